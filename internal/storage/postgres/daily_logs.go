package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/meal-hub/internal/storage"
)

// ledgerStorage - daily_logs и swap_history. Обе таблицы пишутся в одной
// транзакции при ApplySwap.
type ledgerStorage struct {
	pool *pgxpool.Pool
}

func newLedgerStorage(pool *pgxpool.Pool) *ledgerStorage {
	return &ledgerStorage{pool: pool}
}

const dailyLogColumns = `id::text, user_id, date::text, meal_plan_id::text,
	breakfast_meal_id::text, lunch_meal_id::text, dinner_meal_id::text, snack_meal_id::text,
	slot_snapshots,
	total_calories, total_protein_g, total_carbs_g, total_fat_g, total_fiber_g,
	mood, notes, version, created_at, updated_at`

func scanDailyLog(row pgx.Row) (storage.DailyLog, error) {
	var (
		l         storage.DailyLog
		snapshots []byte
	)
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.Date,
		&l.MealPlanID,
		&l.BreakfastMealID,
		&l.LunchMealID,
		&l.DinnerMealID,
		&l.SnackMealID,
		&snapshots,
		&l.Totals.Calories,
		&l.Totals.ProteinG,
		&l.Totals.CarbsG,
		&l.Totals.FatG,
		&l.Totals.FiberG,
		&l.Mood,
		&l.Notes,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return storage.DailyLog{}, err
	}
	if len(snapshots) > 0 {
		if err := json.Unmarshal(snapshots, &l.SlotSnapshots); err != nil {
			return storage.DailyLog{}, fmt.Errorf("failed to decode slot_snapshots: %w", err)
		}
	}
	if len(l.SlotSnapshots) == 0 {
		l.SlotSnapshots = nil
	}
	return l, nil
}

func encodeSnapshots(m map[string]storage.Nutrients) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (s *ledgerStorage) GetDailyLog(ctx context.Context, userID, date string) (storage.DailyLog, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+dailyLogColumns+` FROM daily_logs WHERE user_id = $1 AND date = $2`, userID, date)
	l, err := scanDailyLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.DailyLog{}, false, nil
	}
	if err != nil {
		return storage.DailyLog{}, false, fmt.Errorf("failed to get daily log: %w", err)
	}
	return l, true, nil
}

func (s *ledgerStorage) InsertDailyLog(ctx context.Context, log *storage.DailyLog) error {
	return insertDailyLog(ctx, s.pool, log)
}

// InsertDailyLogs вставляет всю неделю в одной транзакции: всё или ничего.
func (s *ledgerStorage) InsertDailyLogs(ctx context.Context, logs []storage.DailyLog) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i := range logs {
			if err := insertDailyLog(ctx, tx, &logs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertDailyLog(ctx context.Context, q querier, log *storage.DailyLog) error {
	snapshots, err := encodeSnapshots(log.SlotSnapshots)
	if err != nil {
		return fmt.Errorf("failed to encode slot_snapshots: %w", err)
	}
	if log.ID == "" {
		log.ID = storage.NewRowID()
	}

	query := `
		INSERT INTO daily_logs (
			id, user_id, date, meal_plan_id,
			breakfast_meal_id, lunch_meal_id, dinner_meal_id, snack_meal_id, slot_snapshots,
			total_calories, total_protein_g, total_carbs_g, total_fat_g, total_fiber_g,
			mood, notes, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
		RETURNING version, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		log.ID,
		log.UserID,
		log.Date,
		log.MealPlanID,
		log.BreakfastMealID,
		log.LunchMealID,
		log.DinnerMealID,
		log.SnackMealID,
		snapshots,
		log.Totals.Calories,
		log.Totals.ProteinG,
		log.Totals.CarbsG,
		log.Totals.FatG,
		log.Totals.FiberG,
		log.Mood,
		log.Notes,
	).Scan(&log.Version, &log.CreatedAt, &log.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to insert daily log: %w", err)
	}
	return nil
}

func (s *ledgerStorage) UpdateDailyLog(ctx context.Context, log *storage.DailyLog, expectedVersion int) error {
	return updateDailyLog(ctx, s.pool, log, expectedVersion)
}

// updateDailyLog - compare-and-swap по version.
func updateDailyLog(ctx context.Context, q querier, log *storage.DailyLog, expectedVersion int) error {
	if !validID(log.ID) {
		return storage.ErrNotFound
	}
	snapshots, err := encodeSnapshots(log.SlotSnapshots)
	if err != nil {
		return fmt.Errorf("failed to encode slot_snapshots: %w", err)
	}

	query := `
		UPDATE daily_logs SET
			meal_plan_id = $4,
			breakfast_meal_id = $5,
			lunch_meal_id = $6,
			dinner_meal_id = $7,
			snack_meal_id = $8,
			slot_snapshots = $9,
			total_calories = $10,
			total_protein_g = $11,
			total_carbs_g = $12,
			total_fat_g = $13,
			total_fiber_g = $14,
			mood = $15,
			notes = $16,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND version = $3
		RETURNING version, updated_at
	`

	err = q.QueryRow(ctx, query,
		log.ID,
		log.UserID,
		expectedVersion,
		log.MealPlanID,
		log.BreakfastMealID,
		log.LunchMealID,
		log.DinnerMealID,
		log.SnackMealID,
		snapshots,
		log.Totals.Calories,
		log.Totals.ProteinG,
		log.Totals.CarbsG,
		log.Totals.FatG,
		log.Totals.FiberG,
		log.Mood,
		log.Notes,
	).Scan(&log.Version, &log.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update daily log: %w", err)
	}

	// Ни одной строки: либо записи нет, либо версия ушла вперёд.
	var current int
	err = q.QueryRow(ctx, `SELECT version FROM daily_logs WHERE id = $1 AND user_id = $2`, log.ID, log.UserID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check daily log version: %w", err)
	}
	return storage.ErrVersionConflict
}

func (s *ledgerStorage) ApplySwap(ctx context.Context, log *storage.DailyLog, expectedVersion int, rec *storage.SwapRecord) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateDailyLog(ctx, tx, log, expectedVersion); err != nil {
			return err
		}
		return appendSwap(ctx, tx, rec)
	})
}

func (s *ledgerStorage) ListDailyLogs(ctx context.Context, userID, from, to string) ([]storage.DailyLog, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if from != "" {
		args = append(args, from)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if to != "" {
		args = append(args, to)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date`
	return s.queryDailyLogs(ctx, query, args...)
}

func (s *ledgerStorage) ListDailyLogsByPlan(ctx context.Context, userID, mealPlanID string) ([]storage.DailyLog, error) {
	if !validID(mealPlanID) {
		return nil, nil
	}
	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs WHERE user_id = $1 AND meal_plan_id = $2 ORDER BY date`
	return s.queryDailyLogs(ctx, query, userID, mealPlanID)
}

func (s *ledgerStorage) queryDailyLogs(ctx context.Context, query string, args ...any) ([]storage.DailyLog, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily logs: %w", err)
	}
	defer rows.Close()

	var logs []storage.DailyLog
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily log: %w", err)
		}
		logs = append(logs, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating daily logs: %w", rows.Err())
	}
	return logs, nil
}

// Swap history

func (s *ledgerStorage) AppendSwap(ctx context.Context, rec *storage.SwapRecord) error {
	return appendSwap(ctx, s.pool, rec)
}

func appendSwap(ctx context.Context, q querier, rec *storage.SwapRecord) error {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = storage.NewSwapID(now)
	}
	rec.CreatedAt = now

	query := `
		INSERT INTO swap_history (id, user_id, date, meal_slot, original_meal_id, new_meal_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Date,
		rec.MealSlot,
		rec.OriginalMealID,
		rec.NewMealID,
		rec.Reason,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append swap: %w", err)
	}
	return nil
}

// ListSwaps returns the newest records first.
func (s *ledgerStorage) ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]storage.SwapRecord, error) {
	query := `
		SELECT id, user_id, date::text, meal_slot, original_meal_id::text, new_meal_id::text, reason, created_at
		FROM swap_history
		WHERE user_id = $1`
	args := []any{userID}
	if from != "" {
		args = append(args, from)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if to != "" {
		args = append(args, to)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list swaps: %w", err)
	}
	defer rows.Close()

	var out []storage.SwapRecord
	for rows.Next() {
		var r storage.SwapRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.MealSlot, &r.OriginalMealID, &r.NewMealID, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan swap: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
