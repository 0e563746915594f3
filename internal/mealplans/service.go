package mealplans

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-hub/internal/ledger"
	"github.com/fdg312/meal-hub/internal/storage"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrPlanNotFound = errors.New("meal plan not found")
)

// Generator bulk-creates ledger entries for a plan.
type Generator interface {
	GenerateWeeklyPlan(ctx context.Context, userID, startDate, mealPlanID string) (ledger.GenerateResult, error)
}

// Service handles meal plans business logic.
type Service struct {
	plans     storage.MealPlansStorage
	logs      storage.DailyLogsStorage
	generator Generator
}

// NewService creates a new meal plans service.
func NewService(plans storage.MealPlansStorage, logs storage.DailyLogsStorage, generator Generator) *Service {
	return &Service{plans: plans, logs: logs, generator: generator}
}

// Create stores a new plan for the user.
func (s *Service) Create(ctx context.Context, userID string, req CreateMealPlanRequest) (*MealPlanDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	plan := storage.MealPlan{
		UserID:         userID,
		Name:           req.Name,
		Description:    req.Description,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TargetCalories: req.TargetCalories,
		TargetProteinG: req.TargetProtein,
		TargetCarbsG:   req.TargetCarbs,
		TargetFatG:     req.TargetFat,
		IsActive:       true,
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := s.plans.CreatePlan(ctx, &plan); err != nil {
		return nil, err
	}
	dto := toDTO(plan)
	return &dto, nil
}

// List returns the user's plans, newest start date first.
func (s *Service) List(ctx context.Context, userID string) ([]MealPlanDTO, error) {
	plans, err := s.plans.ListPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MealPlanDTO, len(plans))
	for i, p := range plans {
		out[i] = toDTO(p)
	}
	return out, nil
}

// Get returns a plan together with the ledger entries generated for it.
func (s *Service) Get(ctx context.Context, userID, id string) (*MealPlanDTO, []ledger.DailyLogDTO, error) {
	plan, found, err := s.plans.GetPlan(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrPlanNotFound
	}

	logs, err := s.logs.ListDailyLogsByPlan(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	days := make([]ledger.DailyLogDTO, len(logs))
	for i, l := range logs {
		days[i] = ledger.ToDTO(l)
	}

	dto := toDTO(plan)
	return &dto, days, nil
}

// ActivePlan returns the user's most recent active plan, if any.
func (s *Service) ActivePlan(ctx context.Context, userID string) (storage.MealPlan, bool, error) {
	plans, err := s.plans.ListPlans(ctx, userID)
	if err != nil {
		return storage.MealPlan{}, false, err
	}
	for _, p := range plans {
		if p.IsActive {
			return p, true, nil
		}
	}
	return storage.MealPlan{}, false, nil
}

// Delete removes the plan. Its ledger entries stay but lose the plan link.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.plans.DeletePlan(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrPlanNotFound
	}
	return err
}

// Generate fills a week of the ledger for the plan. startDate defaults to
// the plan's start date.
func (s *Service) Generate(ctx context.Context, userID, planID, startDate string) (ledger.GenerateResult, error) {
	plan, found, err := s.plans.GetPlan(ctx, userID, planID)
	if err != nil {
		return ledger.GenerateResult{}, err
	}
	if !found {
		return ledger.GenerateResult{}, ErrPlanNotFound
	}
	if startDate == "" {
		startDate = plan.StartDate
	}
	return s.generator.GenerateWeeklyPlan(ctx, userID, startDate, plan.ID)
}

func toDTO(p storage.MealPlan) MealPlanDTO {
	return MealPlanDTO{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		TargetCalories: p.TargetCalories,
		TargetProtein:  p.TargetProteinG,
		TargetCarbs:    p.TargetCarbsG,
		TargetFat:      p.TargetFatG,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
