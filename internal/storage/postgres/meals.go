package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/meal-hub/internal/storage"
)

// mealsStorage читает каталог master_meals. Запись - только через seed/миграции.
type mealsStorage struct {
	pool *pgxpool.Pool
}

func newMealsStorage(pool *pgxpool.Pool) *mealsStorage {
	return &mealsStorage{pool: pool}
}

const mealColumns = `id::text, name, description, category, calories, protein_g, carbs_g, fat_g, fiber_g,
	prep_time_minutes, cook_time_minutes, servings, dietary_tags, difficulty, created_at, updated_at`

func scanMeal(row pgx.Row) (storage.Meal, error) {
	var m storage.Meal
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.Category,
		&m.Calories,
		&m.ProteinG,
		&m.CarbsG,
		&m.FatG,
		&m.FiberG,
		&m.PrepTimeMinutes,
		&m.CookTimeMinutes,
		&m.Servings,
		&m.DietaryTags,
		&m.Difficulty,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (s *mealsStorage) GetMeal(ctx context.Context, id string) (storage.Meal, bool, error) {
	if !validID(id) {
		return storage.Meal{}, false, nil
	}

	m, err := scanMeal(s.pool.QueryRow(ctx, `SELECT `+mealColumns+` FROM master_meals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Meal{}, false, nil
	}
	if err != nil {
		return storage.Meal{}, false, fmt.Errorf("failed to get meal: %w", err)
	}
	return m, true, nil
}

func (s *mealsStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM master_meals
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR position(lower($2) IN lower(name)) > 0)
		ORDER BY category, name, id
	`

	rows, err := s.pool.Query(ctx, query, filter.Category, filter.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	meals := []storage.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating meals: %w", rows.Err())
	}
	return meals, nil
}
