package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

const mealColumns = `id, name, description, category, calories, protein_g, carbs_g, fat_g, fiber_g,
	prep_time_minutes, cook_time_minutes, servings, dietary_tags, difficulty, created_at, updated_at`

func scanMeal(row rowScanner) (storage.Meal, error) {
	var (
		m                    storage.Meal
		fiber                sql.NullFloat64
		tags                 string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.Category,
		&m.Calories, &m.ProteinG, &m.CarbsG, &m.FatG, &fiber,
		&m.PrepTimeMinutes, &m.CookTimeMinutes, &m.Servings,
		&tags, &m.Difficulty, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.Meal{}, err
	}
	m.FiberG = floatPtr(fiber)
	if err := json.Unmarshal([]byte(tags), &m.DietaryTags); err != nil {
		return storage.Meal{}, fmt.Errorf("decode dietary_tags: %w", err)
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return m, nil
}

func (s *SQLiteStorage) GetMeal(ctx context.Context, id string) (storage.Meal, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mealColumns+` FROM master_meals WHERE id = ?`, id)
	m, err := scanMeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Meal{}, false, nil
	}
	if err != nil {
		return storage.Meal{}, false, fmt.Errorf("get meal: %w", err)
	}
	return m, true, nil
}

func (s *SQLiteStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mealColumns+`
		FROM master_meals
		WHERE (?1 = '' OR category = ?1)
		  AND (?2 = '' OR instr(lower(name), lower(?2)) > 0)
		ORDER BY category, name, id`,
		filter.Category, filter.Query,
	)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	meals := []storage.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// PutMeals upserts catalog rows. The API never writes the catalog; this is
// used by tests and to seed local databases.
func (s *SQLiteStorage) PutMeals(ctx context.Context, meals ...storage.Meal) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for i := range meals {
			m := &meals[i]
			if m.ID == "" {
				m.ID = storage.NewRowID()
			}
			tags := m.DietaryTags
			if tags == nil {
				tags = []string{}
			}
			tagsJSON, err := json.Marshal(tags)
			if err != nil {
				return err
			}
			servings := m.Servings
			if servings == 0 {
				servings = 1
			}
			difficulty := m.Difficulty
			if difficulty == "" {
				difficulty = "easy"
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO master_meals (`+mealColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name, description = excluded.description, category = excluded.category,
					calories = excluded.calories, protein_g = excluded.protein_g, carbs_g = excluded.carbs_g,
					fat_g = excluded.fat_g, fiber_g = excluded.fiber_g,
					prep_time_minutes = excluded.prep_time_minutes, cook_time_minutes = excluded.cook_time_minutes,
					servings = excluded.servings, dietary_tags = excluded.dietary_tags,
					difficulty = excluded.difficulty, updated_at = excluded.updated_at`,
				m.ID, m.Name, m.Description, m.Category,
				m.Calories, m.ProteinG, m.CarbsG, m.FatG, m.FiberG,
				m.PrepTimeMinutes, m.CookTimeMinutes, servings,
				string(tagsJSON), difficulty, now, now,
			)
			if err != nil {
				return fmt.Errorf("put meal %s: %w", m.ID, err)
			}
		}
		return nil
	})
}
