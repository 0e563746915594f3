package ledger

import (
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

// DailyLogDTO - представление записи дневника для API
type DailyLogDTO struct {
	ID              string    `json:"id,omitempty"`
	Date            string    `json:"date"`
	MealPlanID      *string   `json:"meal_plan_id"`
	BreakfastMealID *string   `json:"breakfast_meal_id"`
	LunchMealID     *string   `json:"lunch_meal_id"`
	DinnerMealID    *string   `json:"dinner_meal_id"`
	SnackMealID     *string   `json:"snack_meal_id"`
	TotalCalories   float64   `json:"total_calories"`
	TotalProtein    float64   `json:"total_protein"`
	TotalCarbs      float64   `json:"total_carbs"`
	TotalFat        float64   `json:"total_fat"`
	TotalFiber      float64   `json:"total_fiber"`
	Mood            *string   `json:"mood"`
	Notes           *string   `json:"notes"`
	Version         int       `json:"version"`
	Exists          bool      `json:"exists"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// ToDTO converts a ledger entry to its API shape.
func ToDTO(l storage.DailyLog) DailyLogDTO {
	return DailyLogDTO{
		ID:              l.ID,
		Date:            l.Date,
		MealPlanID:      l.MealPlanID,
		BreakfastMealID: l.BreakfastMealID,
		LunchMealID:     l.LunchMealID,
		DinnerMealID:    l.DinnerMealID,
		SnackMealID:     l.SnackMealID,
		TotalCalories:   l.Totals.Calories,
		TotalProtein:    l.Totals.ProteinG,
		TotalCarbs:      l.Totals.CarbsG,
		TotalFat:        l.Totals.FatG,
		TotalFiber:      l.Totals.FiberG,
		Mood:            l.Mood,
		Notes:           l.Notes,
		Version:         l.Version,
		Exists:          l.ID != "",
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// SwapRecordDTO is one swap_history row.
type SwapRecordDTO struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`
	MealSlot       string    `json:"meal_slot"`
	OriginalMealID string    `json:"original_meal_id"`
	NewMealID      string    `json:"new_meal_id"`
	Reason         *string   `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

func toSwapDTO(r storage.SwapRecord) SwapRecordDTO {
	return SwapRecordDTO{
		ID:             r.ID,
		Date:           r.Date,
		MealSlot:       r.MealSlot,
		OriginalMealID: r.OriginalMealID,
		NewMealID:      r.NewMealID,
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt,
	}
}

// AssignMealRequest - тело POST /v1/ledger/assign
type AssignMealRequest struct {
	Date     string `json:"date"`
	MealSlot string `json:"meal_slot"`
	MealID   string `json:"meal_id"`
}

// SwapMealRequest - тело POST /v1/ledger/swap
type SwapMealRequest struct {
	Date           string  `json:"date"`
	MealSlot       string  `json:"meal_slot"`
	OriginalMealID string  `json:"original_meal_id"`
	NewMealID      string  `json:"new_meal_id"`
	Reason         *string `json:"reason,omitempty"`
}

// UpdateDayRequest - тело PATCH /v1/ledger/day
type UpdateDayRequest struct {
	Date  string  `json:"date"`
	Mood  *string `json:"mood,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

type SwapResponse struct {
	Day  DailyLogDTO   `json:"day"`
	Swap SwapRecordDTO `json:"swap"`
}

type ListSwapsResponse struct {
	Swaps []SwapRecordDTO `json:"swaps"`
}

type DailyResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Created int    `json:"created"`
}
