// Package reports builds nutrition reports over ledger entries and keeps
// them either inline in the store or in object storage.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/blob"
	"github.com/fdg312/meal-hub/internal/storage"
)

var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidDate      = errors.New("invalid date format")
	ErrInvalidDateRange = errors.New("from date must not be after to date")
	ErrRangeTooLarge    = errors.New("date range too large")
	ErrReportNotFound   = errors.New("report not found")
)

// Service handles reports business logic
type Service struct {
	reportsStorage storage.ReportsStorage
	generator      *Generator
	blobStore      blob.Store
	maxRangeDays   int
	presignTTL     time.Duration
	logger         *zap.Logger
}

// NewService creates a new reports service. A nil blobStore keeps report
// bytes in the reports table (local mode).
func NewService(
	reportsStorage storage.ReportsStorage,
	logs LogSource,
	meals MealLookup,
	blobStore blob.Store,
	maxRangeDays int,
	presignTTLSeconds int,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if presignTTLSeconds <= 0 {
		presignTTLSeconds = 900
	}
	return &Service{
		reportsStorage: reportsStorage,
		generator:      NewGenerator(logs, meals),
		blobStore:      blobStore,
		maxRangeDays:   maxRangeDays,
		presignTTL:     time.Duration(presignTTLSeconds) * time.Second,
		logger:         logger.Named("reports"),
	}
}

// LocalMode reports whether report bytes are stored inline.
func (s *Service) LocalMode() bool {
	return s.blobStore == nil
}

func (s *Service) MaxRangeDays() int {
	return s.maxRangeDays
}

// CreateReport generates and stores a report for userID.
func (s *Service) CreateReport(ctx context.Context, userID string, req CreateReportRequest) (*storage.ReportMeta, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if req.Format != FormatPDF && req.Format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	fromDate, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, ErrInvalidDate
	}
	toDate, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if fromDate.After(toDate) {
		return nil, ErrInvalidDateRange
	}

	// обе границы включительно
	days := int(toDate.Sub(fromDate).Hours()/24) + 1
	if days > s.maxRangeDays {
		return nil, ErrRangeTooLarge
	}

	data, err := s.generator.GenerateReport(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	report := &storage.ReportMeta{
		ID:        storage.NewRowID(),
		UserID:    userID,
		Format:    req.Format,
		FromDate:  req.From,
		ToDate:    req.To,
		SizeBytes: int64(len(data)),
		Status:    StatusReady,
	}

	if s.LocalMode() {
		report.Data = data
	} else {
		objectKey := fmt.Sprintf("reports/%s/%s_%s_%s.%s", userID, req.From, req.To, report.ID, req.Format)
		if _, err := s.blobStore.PutObject(ctx, objectKey, data, contentTypeFor(req.Format)); err != nil {
			return nil, fmt.Errorf("failed to upload report: %w", err)
		}
		report.ObjectKey = &objectKey
	}

	if err := s.reportsStorage.CreateReport(ctx, report); err != nil {
		if report.ObjectKey != nil {
			s.deleteObject(ctx, *report.ObjectKey)
		}
		return nil, fmt.Errorf("failed to save report metadata: %w", err)
	}

	s.logger.Info("report created",
		zap.String("user_id", userID),
		zap.String("report_id", report.ID),
		zap.String("format", report.Format),
		zap.Int64("size_bytes", report.SizeBytes))

	report.Data = nil
	return report, nil
}

// GetReport retrieves a report owned by userID.
func (s *Service) GetReport(ctx context.Context, userID, id string) (*storage.ReportMeta, error) {
	meta, err := s.reportsStorage.GetReport(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return meta, nil
}

// ListReports lists reports of userID, newest first.
func (s *Service) ListReports(ctx context.Context, userID string, limit, offset int) ([]storage.ReportMeta, error) {
	metaList, err := s.reportsStorage.ListReports(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return metaList, nil
}

// DeleteReport removes the metadata and, in S3 mode, the object.
func (s *Service) DeleteReport(ctx context.Context, userID, id string) error {
	meta, err := s.GetReport(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.reportsStorage.DeleteReport(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("failed to delete report metadata: %w", err)
	}

	if !s.LocalMode() && meta.ObjectKey != nil {
		s.deleteObject(ctx, *meta.ObjectKey)
	}
	return nil
}

// DownloadURL returns the URL clients should fetch the report from.
func (s *Service) DownloadURL(ctx context.Context, meta *storage.ReportMeta, baseURL string) (string, error) {
	if s.LocalMode() || meta.ObjectKey == nil {
		return fmt.Sprintf("%s/v1/reports/%s/download", strings.TrimSuffix(baseURL, "/"), meta.ID), nil
	}

	url, err := s.blobStore.PresignGet(ctx, *meta.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// ReportData returns the inline bytes of a local-mode report.
func (s *Service) ReportData(ctx context.Context, userID, id string) ([]byte, string, error) {
	meta, err := s.GetReport(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}

	if meta.ObjectKey != nil && !s.LocalMode() {
		data, err := s.blobStore.GetObject(ctx, *meta.ObjectKey)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch report object: %w", err)
		}
		return data, contentTypeFor(meta.Format), nil
	}

	return meta.Data, contentTypeFor(meta.Format), nil
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if err := s.blobStore.DeleteObject(ctx, key); err != nil {
		// метаданные важнее, объект останется сиротой
		s.logger.Warn("failed to delete report object", zap.String("key", key), zap.Error(err))
	}
}
