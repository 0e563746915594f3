// Package analytics summarizes a user's ledger over a trailing window of days.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

var ErrInvalidDays = errors.New("days must be between 1 and 365")

const maxDays = 365

// ActivePlanProvider returns the plan whose targets the summary is checked against.
type ActivePlanProvider interface {
	ActivePlan(ctx context.Context, userID string) (storage.MealPlan, bool, error)
}

// Service builds nutrition summaries.
type Service struct {
	logs        storage.DailyLogsStorage
	plans       ActivePlanProvider
	defaultDays int
	now         func() time.Time
}

// NewService creates an analytics service. plans may be nil.
func NewService(logs storage.DailyLogsStorage, plans ActivePlanProvider, defaultDays int) *Service {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &Service{logs: logs, plans: plans, defaultDays: defaultDays, now: time.Now}
}

// Summary aggregates the user's entries for the last days days (0 means the default).
func (s *Service) Summary(ctx context.Context, userID string, days int) (*Summary, error) {
	if days == 0 {
		days = s.defaultDays
	}
	if days < 1 || days > maxDays {
		return nil, ErrInvalidDays
	}

	today := s.now().UTC()
	// window of days calendar days ending today, inclusive
	from := today.AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	to := today.Format("2006-01-02")

	logs, err := s.logs.ListDailyLogs(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}

	sum := &Summary{
		From:          from,
		To:            to,
		Days:          days,
		MoodBreakdown: map[string]int{},
		Trend:         make([]TrendPoint, 0, len(logs)),
	}

	var total storage.Nutrients
	for _, l := range logs {
		total.Calories += l.Totals.Calories
		total.ProteinG += l.Totals.ProteinG
		total.CarbsG += l.Totals.CarbsG
		total.FatG += l.Totals.FatG
		total.FiberG += l.Totals.FiberG
		if l.Mood != nil && *l.Mood != "" {
			sum.MoodBreakdown[*l.Mood]++
		}
		sum.Trend = append(sum.Trend, TrendPoint{
			Date:     l.Date,
			Calories: l.Totals.Calories,
			ProteinG: l.Totals.ProteinG,
			CarbsG:   l.Totals.CarbsG,
			FatG:     l.Totals.FatG,
			Mood:     l.Mood,
		})
	}

	sum.TotalLogs = len(logs)
	sum.TrackingConsistency = int(math.Round(float64(sum.TotalLogs) / float64(days) * 100))
	sum.MostLoggedMood = mostLogged(sum.MoodBreakdown)

	if n := float64(len(logs)); n > 0 {
		sum.AvgCalories = math.Round(total.Calories / n)
		sum.AvgProteinG = round1(total.ProteinG / n)
		sum.AvgCarbsG = round1(total.CarbsG / n)
		sum.AvgFatG = round1(total.FatG / n)
		sum.AvgFiberG = round1(total.FiberG / n)
	}
	sum.Macros = MacroPercentages(sum.AvgProteinG, sum.AvgCarbsG, sum.AvgFatG)

	if s.plans != nil && sum.TotalLogs > 0 {
		plan, found, err := s.plans.ActivePlan(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("active plan: %w", err)
		}
		if found {
			sum.Goals = goalsFor(plan, sum)
		}
	}

	return sum, nil
}

func goalsFor(plan storage.MealPlan, sum *Summary) *GoalCheck {
	g := &GoalCheck{PlanID: plan.ID, PlanName: plan.Name}
	check := func(target *float64, actual float64) *GoalResult {
		if target == nil {
			return nil
		}
		return &GoalResult{Target: *target, Actual: actual, Met: IsGoalMet(actual, *target, GoalTolerance)}
	}
	g.Calories = check(plan.TargetCalories, sum.AvgCalories)
	g.Protein = check(plan.TargetProteinG, sum.AvgProteinG)
	g.Carbs = check(plan.TargetCarbsG, sum.AvgCarbsG)
	g.Fat = check(plan.TargetFatG, sum.AvgFatG)
	return g
}

// mostLogged returns the mood with the highest count; ties go to the better mood.
func mostLogged(counts map[string]int) *string {
	order := []string{"excellent", "good", "fair", "poor"}
	var best string
	bestCount := 0
	for _, m := range order {
		if counts[m] > bestCount {
			best, bestCount = m, counts[m]
		}
	}
	if bestCount == 0 {
		return nil
	}
	return &best
}
