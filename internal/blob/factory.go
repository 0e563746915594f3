package blob

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appcfg "github.com/fdg312/meal-hub/internal/config"
)

// NewBlobStore builds a blob store using mode local|s3|auto.
// A nil Store with mode local means report bytes stay in the database.
func NewBlobStore(ctx context.Context, cfg appcfg.BlobConfig, logger *zap.Logger) (Store, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("blob")

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	switch mode {
	case appcfg.BlobModeLocal:
		logger.Info("blob store selected", zap.String("mode", appcfg.BlobModeLocal), zap.String("reason", "forced"))
		return nil, appcfg.BlobModeLocal, nil

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			logger.Info("s3 not configured",
				zap.String("status", cfg.S3.Status()),
				zap.Strings("missing", cfg.S3.MissingRequired()),
				zap.String("s3", cfg.S3.Summary()))
			logger.Info("blob store selected", zap.String("mode", appcfg.BlobModeLocal), zap.String("reason", "auto"))
			return nil, appcfg.BlobModeLocal, nil
		}

		store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			logger.Warn("s3 init failed, falling back to local", zap.Error(err))
			return nil, appcfg.BlobModeLocal, nil
		}

		logger.Info("blob store selected", zap.String("mode", appcfg.BlobModeS3), zap.String("reason", "auto"), zap.String("s3", cfg.S3.Summary()))
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !cfg.S3.IsConfigured() {
			missing := cfg.S3.MissingRequired()
			logger.Error("s3 config incomplete", zap.Strings("missing", missing), zap.String("s3", cfg.S3.Summary()))
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}

		logger.Info("blob store selected", zap.String("mode", appcfg.BlobModeS3), zap.String("reason", "forced"), zap.String("s3", cfg.S3.Summary()))
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}
