package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of CATALOG_SEED_PATH.
type seedFile struct {
	Meals []seedMeal `yaml:"meals"`
}

type seedMeal struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Category        string   `yaml:"category"`
	Calories        float64  `yaml:"calories"`
	ProteinG        float64  `yaml:"protein_g"`
	CarbsG          float64  `yaml:"carbs_g"`
	FatG            float64  `yaml:"fat_g"`
	FiberG          *float64 `yaml:"fiber_g"`
	PrepTimeMinutes int      `yaml:"prep_time_minutes"`
	CookTimeMinutes int      `yaml:"cook_time_minutes"`
	Servings        int      `yaml:"servings"`
	DietaryTags     []string `yaml:"dietary_tags"`
	Difficulty      string   `yaml:"difficulty"`
}

// LoadSeed reads a YAML meal list. Every row is validated; the first bad row
// fails the whole file.
func LoadSeed(path string) ([]storage.Meal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes seed YAML into catalog rows.
func ParseSeed(raw []byte) ([]storage.Meal, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(file.Meals) == 0 {
		return nil, errors.New("seed has no meals")
	}

	seen := make(map[string]bool, len(file.Meals))
	meals := make([]storage.Meal, 0, len(file.Meals))
	for i, m := range file.Meals {
		meal, err := m.toMeal()
		if err != nil {
			return nil, fmt.Errorf("meal #%d (%s): %w", i+1, m.Name, err)
		}
		if seen[meal.ID] {
			return nil, fmt.Errorf("meal #%d: duplicate id %s", i+1, meal.ID)
		}
		seen[meal.ID] = true
		meals = append(meals, meal)
	}
	return meals, nil
}

func (m seedMeal) toMeal() (storage.Meal, error) {
	id, err := uuid.Parse(strings.TrimSpace(m.ID))
	if err != nil {
		return storage.Meal{}, fmt.Errorf("id: %w", err)
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return storage.Meal{}, errors.New("name is required")
	}
	category := strings.ToLower(strings.TrimSpace(m.Category))
	if !storage.IsValidSlot(category) {
		return storage.Meal{}, ErrInvalidCategory
	}
	if m.Calories < 0 || m.ProteinG < 0 || m.CarbsG < 0 || m.FatG < 0 || (m.FiberG != nil && *m.FiberG < 0) {
		return storage.Meal{}, errors.New("nutrients must be non-negative")
	}

	servings := m.Servings
	if servings <= 0 {
		servings = 1
	}
	return storage.Meal{
		ID:              id.String(),
		Name:            name,
		Description:     m.Description,
		Category:        category,
		Calories:        m.Calories,
		ProteinG:        m.ProteinG,
		CarbsG:          m.CarbsG,
		FatG:            m.FatG,
		FiberG:          m.FiberG,
		PrepTimeMinutes: m.PrepTimeMinutes,
		CookTimeMinutes: m.CookTimeMinutes,
		Servings:        servings,
		DietaryTags:     m.DietaryTags,
		Difficulty:      m.Difficulty,
	}, nil
}
