package mealplans

import (
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/ledger"
)

type MealPlanDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	StartDate      string    `json:"start_date"`
	EndDate        *string   `json:"end_date,omitempty"`
	TargetCalories *float64  `json:"target_calories,omitempty"`
	TargetProtein  *float64  `json:"target_protein,omitempty"`
	TargetCarbs    *float64  `json:"target_carbs,omitempty"`
	TargetFat      *float64  `json:"target_fat,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type GetMealPlanResponse struct {
	Plan *MealPlanDTO         `json:"plan"`
	Days []ledger.DailyLogDTO `json:"days"`
}

type ListMealPlansResponse struct {
	Plans []MealPlanDTO `json:"plans"`
}

type CreateMealPlanRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	StartDate      string   `json:"start_date"`
	EndDate        *string  `json:"end_date,omitempty"`
	TargetCalories *float64 `json:"target_calories,omitempty"`
	TargetProtein  *float64 `json:"target_protein,omitempty"`
	TargetCarbs    *float64 `json:"target_carbs,omitempty"`
	TargetFat      *float64 `json:"target_fat,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

type GenerateRequest struct {
	StartDate string `json:"start_date"`
}

type GenerateResponse struct {
	Success   bool                 `json:"success"`
	MealCount int                  `json:"meal_count"`
	Days      []ledger.DailyLogDTO `json:"days"`
}

func (r *CreateMealPlanRequest) Validate() error {
	if len(r.Name) < 1 || len(r.Name) > 200 {
		return fmt.Errorf("name must be between 1 and 200 characters")
	}
	if len(r.Description) > 2000 {
		return fmt.Errorf("description cannot exceed 2000 characters")
	}
	if !ledger.IsValidDate(r.StartDate) {
		return fmt.Errorf("start_date must be YYYY-MM-DD")
	}
	if r.EndDate != nil {
		if !ledger.IsValidDate(*r.EndDate) {
			return fmt.Errorf("end_date must be YYYY-MM-DD")
		}
		if *r.EndDate < r.StartDate {
			return fmt.Errorf("end_date must not be before start_date")
		}
	}
	targets := []struct {
		name  string
		value *float64
	}{
		{"target_calories", r.TargetCalories},
		{"target_protein", r.TargetProtein},
		{"target_carbs", r.TargetCarbs},
		{"target_fat", r.TargetFat},
	}
	for _, t := range targets {
		if t.value != nil && *t.value <= 0 {
			return fmt.Errorf("%s must be positive", t.name)
		}
	}
	return nil
}
