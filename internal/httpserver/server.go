package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/analytics"
	"github.com/fdg312/meal-hub/internal/auth"
	"github.com/fdg312/meal-hub/internal/blob"
	"github.com/fdg312/meal-hub/internal/catalog"
	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/ledger"
	"github.com/fdg312/meal-hub/internal/mealplans"
	"github.com/fdg312/meal-hub/internal/reports"
	"github.com/fdg312/meal-hub/internal/socialevents"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/storage/memory"
	"github.com/fdg312/meal-hub/internal/storage/postgres"
	"github.com/fdg312/meal-hub/internal/storage/sqlite"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	logger         *zap.Logger
	mux            *http.ServeMux
	storage        storage.Storage
	storageKind    string
	blobStore      blob.Store
	blobMode       string
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт сервер: выбирает storage и blob store, регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	if err := s.initStorage(ctx); err != nil {
		return nil, err
	}

	blobStore, blobMode, err := blob.NewBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		s.storage.Close()
		return nil, err
	}
	s.blobStore = blobStore
	s.blobMode = blobMode

	s.routes()
	return s, nil
}

// initStorage: Postgres if a URL is set, else SQLite if SQLITE_PATH is set, else memory.
func (s *Server) initStorage(ctx context.Context) error {
	switch {
	case s.config.DatabaseURL != "":
		s.logger.Info("connecting to postgres")
		pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
		if err != nil {
			if s.config.Env != "local" {
				return fmt.Errorf("postgres: %w", err)
			}
			s.logger.Warn("postgres unavailable, falling back to in-memory storage", zap.Error(err))
			s.storage, s.storageKind = memory.New(), StorageMemory
			return nil
		}
		s.storage, s.storageKind = pgStorage, StoragePostgres

	case s.config.SQLitePath != "":
		sqliteStorage, err := sqlite.New(ctx, s.config.SQLitePath, s.logger)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		s.storage, s.storageKind = sqliteStorage, StorageSQLite

	default:
		s.storage, s.storageKind = memory.New(), StorageMemory
	}

	s.logger.Info("storage ready", zap.String("kind", s.storageKind))
	return s.seedCatalog(ctx)
}

// seedCatalog loads CATALOG_SEED_PATH into embedded stores. Postgres catalogs
// are managed by migrations.
func (s *Server) seedCatalog(ctx context.Context) error {
	if s.config.CatalogSeedPath == "" {
		return nil
	}
	meals, err := catalog.LoadSeed(s.config.CatalogSeedPath)
	if err != nil {
		s.storage.Close()
		return fmt.Errorf("catalog seed: %w", err)
	}

	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		st.PutMeals(meals...)
	case *sqlite.SQLiteStorage:
		if err := st.PutMeals(ctx, meals...); err != nil {
			st.Close()
			return fmt.Errorf("catalog seed: %w", err)
		}
	default:
		s.logger.Warn("catalog seed ignored for storage", zap.String("kind", s.storageKind))
		return nil
	}
	s.logger.Info("catalog seeded", zap.Int("meals", len(meals)), zap.String("path", s.config.CatalogSeedPath))
	return nil
}

// routes регистрирует маршруты
func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API (public)
	authService := auth.NewService(s.config)
	s.authMiddleware = auth.NewMiddleware(s.config, authService, s.logger)
	if s.config.AuthMode == config.AuthModeDev {
		authHandler := auth.NewHandlers(authService)
		s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)
	}

	// Meal catalog (read-only)
	catalogHandler := catalog.NewHandler(catalog.NewService(s.storage))
	s.mux.HandleFunc("GET /v1/meals", catalogHandler.HandleList)
	s.mux.HandleFunc("GET /v1/meals/{id}", catalogHandler.HandleGet)

	// Daily Nutrition Ledger
	ledgerService := ledger.NewService(ledger.StoresFrom(s.storage), ledger.Options{
		TotalsMode: s.config.LedgerTotalsMode,
		MaxRetries: s.config.LedgerMaxRetries,
	}, s.logger)
	ledgerHandler := ledger.NewHandler(ledgerService, s.config.CronSecret, s.logger)
	s.mux.HandleFunc("GET /v1/ledger/day", ledgerHandler.HandleGetDay)
	s.mux.HandleFunc("PATCH /v1/ledger/day", ledgerHandler.HandleUpdateDay)
	s.mux.HandleFunc("POST /v1/ledger/assign", ledgerHandler.HandleAssign)
	s.mux.HandleFunc("POST /v1/ledger/swap", ledgerHandler.HandleSwap)
	s.mux.HandleFunc("GET /v1/ledger/swaps", ledgerHandler.HandleListSwaps)
	s.mux.HandleFunc("POST /v1/cron/daily-reset", ledgerHandler.HandleDailyReset)

	// Meal plans + weekly plan generator
	mealPlansService := mealplans.NewService(s.storage, s.storage, ledgerService)
	mealPlansHandler := mealplans.NewHandler(mealPlansService)
	s.mux.HandleFunc("GET /v1/meal-plans", mealPlansHandler.HandleList)
	s.mux.HandleFunc("POST /v1/meal-plans", mealPlansHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/meal-plans/{id}", mealPlansHandler.HandleGet)
	s.mux.HandleFunc("DELETE /v1/meal-plans/{id}", mealPlansHandler.HandleDelete)
	s.mux.HandleFunc("POST /v1/meal-plans/{id}/generate", mealPlansHandler.HandleGenerate)

	// Social events
	socialEventsHandler := socialevents.NewHandler(socialevents.NewService(s.storage))
	s.mux.HandleFunc("GET /v1/social-events", socialEventsHandler.HandleList)
	s.mux.HandleFunc("POST /v1/social-events", socialEventsHandler.HandleCreate)
	s.mux.HandleFunc("DELETE /v1/social-events/{id}", socialEventsHandler.HandleDelete)

	// Analytics
	analyticsHandler := analytics.NewHandler(analytics.NewService(s.storage, mealPlansService, s.config.AnalyticsDefaultDays))
	s.mux.HandleFunc("GET /v1/analytics/summary", analyticsHandler.HandleSummary)

	// Reports
	presignTTL := s.config.Blob.S3.PresignTTLSeconds
	reportsService := reports.NewService(s.storage, s.storage, s.storage, s.blobStore, s.config.ReportsMaxRangeDays, presignTTL, s.logger)
	reportsHandler := reports.NewHandlers(reportsService)
	s.mux.HandleFunc("POST /v1/reports", reportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/reports", reportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}/download", reportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/reports/{id}", reportsHandler.HandleDelete)
}

// Handler returns the router wrapped in the middleware chain
// (outermost first): CORS → Rate Limit → Auth → Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.authMiddleware.Authenticate(handler)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"storage": s.storageKind,
		"blob":    s.blobMode,
	})
}

// Start запускает HTTP сервер и блокируется до Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server listening",
		zap.String("addr", addr),
		zap.String("healthz", fmt.Sprintf("http://localhost%s/healthz", addr)),
		zap.String("auth_mode", s.config.AuthMode),
		zap.String("totals_mode", s.config.LedgerTotalsMode))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
