package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

func (s *SQLiteStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	if report.ID == "" {
		report.ID = storage.NewRowID()
	}
	ts := formatTime(time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, format, from_date, to_date, object_key, size_bytes, status, error, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.UserID, report.Format, report.FromDate, report.ToDate,
		report.ObjectKey, report.SizeBytes, report.Status, report.Error, report.Data, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	report.CreatedAt = parseTime(ts)
	return nil
}

func (s *SQLiteStorage) GetReport(ctx context.Context, userID, id string) (*storage.ReportMeta, error) {
	var (
		r         storage.ReportMeta
		objectKey sql.NullString
		errText   sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, format, from_date, to_date, object_key, size_bytes, status, error, data, created_at
		FROM reports WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&r.ID, &r.UserID, &r.Format, &r.FromDate, &r.ToDate, &objectKey, &r.SizeBytes, &r.Status, &errText, &r.Data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	r.ObjectKey = stringPtr(objectKey)
	r.Error = stringPtr(errText)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// ListReports returns metadata only; Data stays empty.
func (s *SQLiteStorage) ListReports(ctx context.Context, userID string, limit, offset int) ([]storage.ReportMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, format, from_date, to_date, object_key, size_bytes, status, error, created_at
		FROM reports
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []storage.ReportMeta{}
	for rows.Next() {
		var (
			r         storage.ReportMeta
			objectKey sql.NullString
			errText   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Format, &r.FromDate, &r.ToDate, &objectKey, &r.SizeBytes, &r.Status, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.ObjectKey = stringPtr(objectKey)
		r.Error = stringPtr(errText)
		r.CreatedAt = parseTime(createdAt)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *SQLiteStorage) DeleteReport(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
