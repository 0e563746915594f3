package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/meal-hub/internal/storage"
)

type socialEventsStorage struct {
	pool *pgxpool.Pool
}

func newSocialEventsStorage(pool *pgxpool.Pool) *socialEventsStorage {
	return &socialEventsStorage{pool: pool}
}

const eventColumns = `id::text, user_id, title, description, event_date::text, event_type,
	location, expected_meal_count, notes, created_at, updated_at`

func scanEvent(row pgx.Row) (storage.SocialEvent, error) {
	var e storage.SocialEvent
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Title,
		&e.Description,
		&e.EventDate,
		&e.EventType,
		&e.Location,
		&e.ExpectedMealCount,
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (s *socialEventsStorage) CreateEvent(ctx context.Context, event *storage.SocialEvent) error {
	if event.ID == "" {
		event.ID = storage.NewRowID()
	}

	query := `
		INSERT INTO social_events (id, user_id, title, description, event_date, event_type,
		                           location, expected_meal_count, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		event.ID,
		event.UserID,
		event.Title,
		event.Description,
		event.EventDate,
		event.EventType,
		event.Location,
		event.ExpectedMealCount,
		event.Notes,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create social event: %w", err)
	}
	return nil
}

func (s *socialEventsStorage) ListEvents(ctx context.Context, userID, from string) ([]storage.SocialEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM social_events WHERE user_id = $1`
	args := []any{userID}
	if from != "" {
		query += ` AND event_date >= $2`
		args = append(args, from)
	}
	query += ` ORDER BY event_date ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list social events: %w", err)
	}
	defer rows.Close()

	events := []storage.SocialEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan social event: %w", err)
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating social events: %w", rows.Err())
	}
	return events, nil
}

func (s *socialEventsStorage) DeleteEvent(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM social_events WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete social event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
