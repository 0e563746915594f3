package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

const dailyLogColumns = `id, user_id, date, meal_plan_id,
	breakfast_meal_id, lunch_meal_id, dinner_meal_id, snack_meal_id, slot_snapshots,
	total_calories, total_protein_g, total_carbs_g, total_fat_g, total_fiber_g,
	mood, notes, version, created_at, updated_at`

func scanDailyLog(row rowScanner) (storage.DailyLog, error) {
	var (
		l                                storage.DailyLog
		planID, breakfast, lunch, dinner sql.NullString
		snack, mood, notes               sql.NullString
		snapshots, createdAt, updatedAt  string
	)
	err := row.Scan(
		&l.ID, &l.UserID, &l.Date, &planID,
		&breakfast, &lunch, &dinner, &snack, &snapshots,
		&l.Totals.Calories, &l.Totals.ProteinG, &l.Totals.CarbsG, &l.Totals.FatG, &l.Totals.FiberG,
		&mood, &notes, &l.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.DailyLog{}, err
	}
	l.MealPlanID = stringPtr(planID)
	l.BreakfastMealID = stringPtr(breakfast)
	l.LunchMealID = stringPtr(lunch)
	l.DinnerMealID = stringPtr(dinner)
	l.SnackMealID = stringPtr(snack)
	l.Mood = stringPtr(mood)
	l.Notes = stringPtr(notes)
	if err := json.Unmarshal([]byte(snapshots), &l.SlotSnapshots); err != nil {
		return storage.DailyLog{}, fmt.Errorf("decode slot_snapshots: %w", err)
	}
	if len(l.SlotSnapshots) == 0 {
		l.SlotSnapshots = nil
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return l, nil
}

func encodeSnapshots(m map[string]storage.Nutrients) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode slot_snapshots: %w", err)
	}
	return string(b), nil
}

func (s *SQLiteStorage) GetDailyLog(ctx context.Context, userID, date string) (storage.DailyLog, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+dailyLogColumns+` FROM daily_logs WHERE user_id = ? AND date = ?`, userID, date)
	l, err := scanDailyLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DailyLog{}, false, nil
	}
	if err != nil {
		return storage.DailyLog{}, false, fmt.Errorf("get daily log: %w", err)
	}
	return l, true, nil
}

func (s *SQLiteStorage) InsertDailyLog(ctx context.Context, log *storage.DailyLog) error {
	return insertDailyLog(ctx, s.db, log, time.Now())
}

func (s *SQLiteStorage) InsertDailyLogs(ctx context.Context, logs []storage.DailyLog) error {
	now := time.Now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range logs {
			if err := insertDailyLog(ctx, tx, &logs[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertDailyLog(ctx context.Context, db execer, log *storage.DailyLog, now time.Time) error {
	snapshots, err := encodeSnapshots(log.SlotSnapshots)
	if err != nil {
		return err
	}
	id := log.ID
	if id == "" {
		id = storage.NewRowID()
	}
	ts := formatTime(now)

	_, err = db.ExecContext(ctx, `
		INSERT INTO daily_logs (`+dailyLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, log.UserID, log.Date, log.MealPlanID,
		log.BreakfastMealID, log.LunchMealID, log.DinnerMealID, log.SnackMealID, snapshots,
		log.Totals.Calories, log.Totals.ProteinG, log.Totals.CarbsG, log.Totals.FatG, log.Totals.FiberG,
		log.Mood, log.Notes, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert daily log: %w", err)
	}

	log.ID = id
	log.Version = 1
	log.CreatedAt = parseTime(ts)
	log.UpdatedAt = log.CreatedAt
	return nil
}

func (s *SQLiteStorage) UpdateDailyLog(ctx context.Context, log *storage.DailyLog, expectedVersion int) error {
	return updateDailyLog(ctx, s.db, log, expectedVersion)
}

func updateDailyLog(ctx context.Context, db execer, log *storage.DailyLog, expectedVersion int) error {
	snapshots, err := encodeSnapshots(log.SlotSnapshots)
	if err != nil {
		return err
	}
	ts := formatTime(time.Now())

	res, err := db.ExecContext(ctx, `
		UPDATE daily_logs SET
			meal_plan_id = ?, breakfast_meal_id = ?, lunch_meal_id = ?, dinner_meal_id = ?, snack_meal_id = ?,
			slot_snapshots = ?,
			total_calories = ?, total_protein_g = ?, total_carbs_g = ?, total_fat_g = ?, total_fiber_g = ?,
			mood = ?, notes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND version = ?`,
		log.MealPlanID, log.BreakfastMealID, log.LunchMealID, log.DinnerMealID, log.SnackMealID,
		snapshots,
		log.Totals.Calories, log.Totals.ProteinG, log.Totals.CarbsG, log.Totals.FatG, log.Totals.FiberG,
		log.Mood, log.Notes, ts,
		log.ID, log.UserID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update daily log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update daily log: %w", err)
	}
	if n == 0 {
		var current int
		err := db.QueryRowContext(ctx,
			`SELECT version FROM daily_logs WHERE id = ? AND user_id = ?`, log.ID, log.UserID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check daily log version: %w", err)
		}
		return storage.ErrVersionConflict
	}

	log.Version = expectedVersion + 1
	log.UpdatedAt = parseTime(ts)
	return nil
}

// ApplySwap commits the CAS update and the history row together.
func (s *SQLiteStorage) ApplySwap(ctx context.Context, log *storage.DailyLog, expectedVersion int, rec *storage.SwapRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateDailyLog(ctx, tx, log, expectedVersion); err != nil {
			return err
		}
		return appendSwap(ctx, tx, rec)
	})
}

func (s *SQLiteStorage) ListDailyLogs(ctx context.Context, userID, from, to string) ([]storage.DailyLog, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if from != "" {
		where = append(where, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		where = append(where, "date <= ?")
		args = append(args, to)
	}
	return s.queryDailyLogs(ctx,
		`SELECT `+dailyLogColumns+` FROM daily_logs WHERE `+strings.Join(where, " AND ")+` ORDER BY date`, args...)
}

func (s *SQLiteStorage) ListDailyLogsByPlan(ctx context.Context, userID, mealPlanID string) ([]storage.DailyLog, error) {
	return s.queryDailyLogs(ctx,
		`SELECT `+dailyLogColumns+` FROM daily_logs WHERE user_id = ? AND meal_plan_id = ? ORDER BY date`,
		userID, mealPlanID)
}

func (s *SQLiteStorage) queryDailyLogs(ctx context.Context, query string, args ...any) ([]storage.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}
	defer rows.Close()

	var logs []storage.DailyLog
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM daily_logs
		UNION
		SELECT user_id FROM user_meal_plans
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Swap history

func (s *SQLiteStorage) AppendSwap(ctx context.Context, rec *storage.SwapRecord) error {
	return appendSwap(ctx, s.db, rec)
}

func appendSwap(ctx context.Context, db execer, rec *storage.SwapRecord) error {
	now := time.Now().UTC()
	id := rec.ID
	if id == "" {
		id = storage.NewSwapID(now)
	}
	ts := formatTime(now)

	_, err := db.ExecContext(ctx, `
		INSERT INTO swap_history (id, user_id, date, meal_slot, original_meal_id, new_meal_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.Date, rec.MealSlot, rec.OriginalMealID, rec.NewMealID, rec.Reason, ts,
	)
	if err != nil {
		return fmt.Errorf("append swap: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = parseTime(ts)
	return nil
}

// ListSwaps returns the newest records first.
func (s *SQLiteStorage) ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]storage.SwapRecord, error) {
	query := `SELECT id, user_id, date, meal_slot, original_meal_id, new_meal_id, reason, created_at
		FROM swap_history WHERE user_id = ?`
	args := []any{userID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	defer rows.Close()

	var out []storage.SwapRecord
	for rows.Next() {
		var (
			r         storage.SwapRecord
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.MealSlot, &r.OriginalMealID, &r.NewMealID, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan swap: %w", err)
		}
		r.Reason = stringPtr(reason)
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
