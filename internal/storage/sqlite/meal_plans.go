package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

const planColumns = `id, user_id, name, description, start_date, end_date,
	target_calories, target_protein_g, target_carbs_g, target_fat_g, is_active, created_at, updated_at`

func scanPlan(row rowScanner) (storage.MealPlan, error) {
	var (
		p                    storage.MealPlan
		endDate              sql.NullString
		calories, protein    sql.NullFloat64
		carbs, fat           sql.NullFloat64
		createdAt, updatedAt string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.StartDate, &endDate,
		&calories, &protein, &carbs, &fat, &p.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.MealPlan{}, err
	}
	p.EndDate = stringPtr(endDate)
	p.TargetCalories = floatPtr(calories)
	p.TargetProteinG = floatPtr(protein)
	p.TargetCarbsG = floatPtr(carbs)
	p.TargetFatG = floatPtr(fat)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func (s *SQLiteStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	if plan.ID == "" {
		plan.ID = storage.NewRowID()
	}
	ts := formatTime(time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_meal_plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.Name, plan.Description, plan.StartDate, plan.EndDate,
		plan.TargetCalories, plan.TargetProteinG, plan.TargetCarbsG, plan.TargetFatG,
		plan.IsActive, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("create meal plan: %w", err)
	}
	plan.CreatedAt = parseTime(ts)
	plan.UpdatedAt = plan.CreatedAt
	return nil
}

func (s *SQLiteStorage) GetPlan(ctx context.Context, userID, id string) (storage.MealPlan, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM user_meal_plans WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.MealPlan{}, false, nil
	}
	if err != nil {
		return storage.MealPlan{}, false, fmt.Errorf("get meal plan: %w", err)
	}
	return p, true, nil
}

func (s *SQLiteStorage) ListPlans(ctx context.Context, userID string) ([]storage.MealPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+planColumns+` FROM user_meal_plans
		WHERE user_id = ?
		ORDER BY start_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list meal plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.MealPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan unlinks ledger entries, bumping their version, and deletes the
// plan in one transaction.
func (s *SQLiteStorage) DeletePlan(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE daily_logs SET meal_plan_id = NULL, version = version + 1, updated_at = ?
			WHERE user_id = ? AND meal_plan_id = ?`, formatTime(time.Now()), userID, id)
		if err != nil {
			return fmt.Errorf("unlink daily logs: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM user_meal_plans WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete meal plan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}
