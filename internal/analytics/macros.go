package analytics

import "math"

// Energy per gram of macronutrient.
const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9

	// GoalTolerance is the relative deviation still counted as meeting a target.
	GoalTolerance = 0.1
)

// MacroSplit is the share of calories coming from each macronutrient, in percent.
type MacroSplit struct {
	ProteinPercent int `json:"protein_percent"`
	CarbsPercent   int `json:"carbs_percent"`
	FatPercent     int `json:"fat_percent"`
}

// MacroPercentages converts grams to calorie shares. All zero when there are no calories.
func MacroPercentages(proteinG, carbsG, fatG float64) MacroSplit {
	protein := proteinG * kcalPerGramProtein
	carbs := carbsG * kcalPerGramCarbs
	fat := fatG * kcalPerGramFat
	total := protein + carbs + fat
	if total == 0 {
		return MacroSplit{}
	}
	return MacroSplit{
		ProteinPercent: int(math.Round(protein / total * 100)),
		CarbsPercent:   int(math.Round(carbs / total * 100)),
		FatPercent:     int(math.Round(fat / total * 100)),
	}
}

// IsGoalMet reports whether actual is within tolerance of target. A zero target is always met.
func IsGoalMet(actual, target, tolerance float64) bool {
	if target == 0 {
		return true
	}
	return math.Abs(actual-target)/target <= tolerance
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
