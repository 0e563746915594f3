// Package catalog exposes the read-only meal library.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/meal-hub/internal/storage"
)

var (
	ErrMealNotFound    = errors.New("meal not found")
	ErrInvalidCategory = errors.New("category must be one of breakfast, lunch, dinner, snack")
)

// Service handles meal library lookups.
type Service struct {
	storage storage.MealCatalogStorage
}

// NewService creates a new catalog service.
func NewService(storage storage.MealCatalogStorage) *Service {
	return &Service{storage: storage}
}

// List returns meals matching category and a case-insensitive name query,
// ordered by category, then name.
func (s *Service) List(ctx context.Context, category, query string) ([]MealDTO, error) {
	category = strings.TrimSpace(strings.ToLower(category))
	if category != "" && !storage.IsValidSlot(category) {
		return nil, ErrInvalidCategory
	}

	meals, err := s.storage.ListMeals(ctx, storage.MealFilter{Category: category, Query: query})
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}

	out := make([]MealDTO, len(meals))
	for i, m := range meals {
		out[i] = toDTO(m)
	}
	return out, nil
}

// Get returns one meal by id.
func (s *Service) Get(ctx context.Context, id string) (*MealDTO, error) {
	meal, found, err := s.storage.GetMeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	if !found {
		return nil, ErrMealNotFound
	}
	dto := toDTO(meal)
	return &dto, nil
}

func toDTO(m storage.Meal) MealDTO {
	tags := m.DietaryTags
	if tags == nil {
		tags = []string{}
	}
	return MealDTO{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		Category:        m.Category,
		Calories:        m.Calories,
		ProteinG:        m.ProteinG,
		CarbsG:          m.CarbsG,
		FatG:            m.FatG,
		FiberG:          m.FiberG,
		PrepTimeMinutes: m.PrepTimeMinutes,
		CookTimeMinutes: m.CookTimeMinutes,
		Servings:        m.Servings,
		DietaryTags:     tags,
		Difficulty:      m.Difficulty,
	}
}
