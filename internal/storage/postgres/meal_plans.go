package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/meal-hub/internal/storage"
)

type mealPlansStorage struct {
	pool *pgxpool.Pool
}

func newMealPlansStorage(pool *pgxpool.Pool) *mealPlansStorage {
	return &mealPlansStorage{pool: pool}
}

const planColumns = `id::text, user_id, name, description, start_date::text, end_date::text,
	target_calories, target_protein_g, target_carbs_g, target_fat_g, is_active, created_at, updated_at`

func scanPlan(row pgx.Row) (storage.MealPlan, error) {
	var p storage.MealPlan
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.TargetCalories,
		&p.TargetProteinG,
		&p.TargetCarbsG,
		&p.TargetFatG,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (s *mealPlansStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	if plan.ID == "" {
		plan.ID = storage.NewRowID()
	}

	query := `
		INSERT INTO user_meal_plans (id, user_id, name, description, start_date, end_date,
		                             target_calories, target_protein_g, target_carbs_g, target_fat_g, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		plan.ID,
		plan.UserID,
		plan.Name,
		plan.Description,
		plan.StartDate,
		plan.EndDate,
		plan.TargetCalories,
		plan.TargetProteinG,
		plan.TargetCarbsG,
		plan.TargetFatG,
		plan.IsActive,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create meal plan: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) GetPlan(ctx context.Context, userID, id string) (storage.MealPlan, bool, error) {
	if !validID(id) {
		return storage.MealPlan{}, false, nil
	}

	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM user_meal_plans WHERE id = $1 AND user_id = $2`, id, userID)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.MealPlan{}, false, nil
	}
	if err != nil {
		return storage.MealPlan{}, false, fmt.Errorf("failed to get meal plan: %w", err)
	}
	return p, true, nil
}

func (s *mealPlansStorage) ListPlans(ctx context.Context, userID string) ([]storage.MealPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM user_meal_plans
		WHERE user_id = $1
		ORDER BY start_date DESC, created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.MealPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		plans = append(plans, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating meal plans: %w", rows.Err())
	}
	return plans, nil
}

// DeletePlan отвязывает записи дневника (с bump version) и удаляет план в одной транзакции.
func (s *mealPlansStorage) DeletePlan(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return storage.ErrNotFound
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE daily_logs SET meal_plan_id = NULL, version = version + 1, updated_at = NOW()
			WHERE user_id = $1 AND meal_plan_id = $2`, userID, id)
		if err != nil {
			return fmt.Errorf("failed to unlink daily logs: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM user_meal_plans WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete meal plan: %w", err)
		}
		if result.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}
