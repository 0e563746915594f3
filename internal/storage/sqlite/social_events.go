package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

const eventColumns = `id, user_id, title, description, event_date, event_type,
	location, expected_meal_count, notes, created_at, updated_at`

func scanEvent(row rowScanner) (storage.SocialEvent, error) {
	var (
		e                    storage.SocialEvent
		location, notes      sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Description, &e.EventDate, &e.EventType,
		&location, &e.ExpectedMealCount, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.SocialEvent{}, err
	}
	e.Location = stringPtr(location)
	e.Notes = stringPtr(notes)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

func (s *SQLiteStorage) CreateEvent(ctx context.Context, event *storage.SocialEvent) error {
	if event.ID == "" {
		event.ID = storage.NewRowID()
	}
	ts := formatTime(time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO social_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Title, event.Description, event.EventDate, event.EventType,
		event.Location, event.ExpectedMealCount, event.Notes, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("create social event: %w", err)
	}
	event.CreatedAt = parseTime(ts)
	event.UpdatedAt = event.CreatedAt
	return nil
}

func (s *SQLiteStorage) ListEvents(ctx context.Context, userID, from string) ([]storage.SocialEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM social_events WHERE user_id = ?`
	args := []any{userID}
	if from != "" {
		query += ` AND event_date >= ?`
		args = append(args, from)
	}
	query += ` ORDER BY event_date ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list social events: %w", err)
	}
	defer rows.Close()

	events := []storage.SocialEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan social event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStorage) DeleteEvent(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM social_events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete social event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
