package analytics

type Summary struct {
	From                string         `json:"from"`
	To                  string         `json:"to"`
	Days                int            `json:"days"`
	TotalLogs           int            `json:"total_logs"`
	AvgCalories         float64        `json:"avg_calories"`
	AvgProteinG         float64        `json:"avg_protein"`
	AvgCarbsG           float64        `json:"avg_carbs"`
	AvgFatG             float64        `json:"avg_fat"`
	AvgFiberG           float64        `json:"avg_fiber"`
	Macros              MacroSplit     `json:"macros"`
	MoodBreakdown       map[string]int `json:"mood_breakdown"`
	MostLoggedMood      *string        `json:"most_logged_mood"`
	TrackingConsistency int            `json:"tracking_consistency"`
	Trend               []TrendPoint   `json:"trend"`
	Goals               *GoalCheck     `json:"goals,omitempty"`
}

type TrendPoint struct {
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein"`
	CarbsG   float64 `json:"carbs"`
	FatG     float64 `json:"fat"`
	Mood     *string `json:"mood,omitempty"`
}

// GoalCheck compares averages with the active plan's targets. Nil results mean no target.
type GoalCheck struct {
	PlanID   string      `json:"plan_id"`
	PlanName string      `json:"plan_name"`
	Calories *GoalResult `json:"calories,omitempty"`
	Protein  *GoalResult `json:"protein,omitempty"`
	Carbs    *GoalResult `json:"carbs,omitempty"`
	Fat      *GoalResult `json:"fat,omitempty"`
}

type GoalResult struct {
	Target float64 `json:"target"`
	Actual float64 `json:"actual"`
	Met    bool    `json:"met"`
}
