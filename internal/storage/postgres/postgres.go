package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/meal-hub/internal/storage"
)

// unique_violation
const codeUniqueViolation = "23505"

// PostgresStorage - Postgres реализация storage.Storage
type PostgresStorage struct {
	pool      *pgxpool.Pool
	meals     *mealsStorage
	ledger    *ledgerStorage
	mealPlans *mealPlansStorage
	events    *socialEventsStorage
	reports   *PostgresReportsStorage
}

var _ storage.Storage = (*PostgresStorage)(nil)

// New открывает пул соединений и проверяет доступность базы
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:      pool,
		meals:     newMealsStorage(pool),
		ledger:    newLedgerStorage(pool),
		mealPlans: newMealPlansStorage(pool),
		events:    newSocialEventsStorage(pool),
		reports:   NewPostgresReportsStorage(pool),
	}, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// validID reports whether id can be compared with a UUID column without a
// cast error. Non-UUID ids simply do not exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// MealCatalogStorage

func (p *PostgresStorage) GetMeal(ctx context.Context, id string) (storage.Meal, bool, error) {
	return p.meals.GetMeal(ctx, id)
}

func (p *PostgresStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	return p.meals.ListMeals(ctx, filter)
}

// DailyLogsStorage / SwapHistoryStorage

func (p *PostgresStorage) GetDailyLog(ctx context.Context, userID, date string) (storage.DailyLog, bool, error) {
	return p.ledger.GetDailyLog(ctx, userID, date)
}

func (p *PostgresStorage) InsertDailyLog(ctx context.Context, log *storage.DailyLog) error {
	return p.ledger.InsertDailyLog(ctx, log)
}

func (p *PostgresStorage) UpdateDailyLog(ctx context.Context, log *storage.DailyLog, expectedVersion int) error {
	return p.ledger.UpdateDailyLog(ctx, log, expectedVersion)
}

func (p *PostgresStorage) InsertDailyLogs(ctx context.Context, logs []storage.DailyLog) error {
	return p.ledger.InsertDailyLogs(ctx, logs)
}

func (p *PostgresStorage) ListDailyLogs(ctx context.Context, userID, from, to string) ([]storage.DailyLog, error) {
	return p.ledger.ListDailyLogs(ctx, userID, from, to)
}

func (p *PostgresStorage) ListDailyLogsByPlan(ctx context.Context, userID, mealPlanID string) ([]storage.DailyLog, error) {
	return p.ledger.ListDailyLogsByPlan(ctx, userID, mealPlanID)
}

func (p *PostgresStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id FROM daily_logs
		UNION
		SELECT user_id FROM user_meal_plans
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *PostgresStorage) AppendSwap(ctx context.Context, rec *storage.SwapRecord) error {
	return p.ledger.AppendSwap(ctx, rec)
}

func (p *PostgresStorage) ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]storage.SwapRecord, error) {
	return p.ledger.ListSwaps(ctx, userID, from, to, limit)
}

func (p *PostgresStorage) ApplySwap(ctx context.Context, log *storage.DailyLog, expectedVersion int, rec *storage.SwapRecord) error {
	return p.ledger.ApplySwap(ctx, log, expectedVersion, rec)
}

// MealPlansStorage

func (p *PostgresStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	return p.mealPlans.CreatePlan(ctx, plan)
}

func (p *PostgresStorage) GetPlan(ctx context.Context, userID, id string) (storage.MealPlan, bool, error) {
	return p.mealPlans.GetPlan(ctx, userID, id)
}

func (p *PostgresStorage) ListPlans(ctx context.Context, userID string) ([]storage.MealPlan, error) {
	return p.mealPlans.ListPlans(ctx, userID)
}

func (p *PostgresStorage) DeletePlan(ctx context.Context, userID, id string) error {
	return p.mealPlans.DeletePlan(ctx, userID, id)
}

// SocialEventsStorage

func (p *PostgresStorage) CreateEvent(ctx context.Context, event *storage.SocialEvent) error {
	return p.events.CreateEvent(ctx, event)
}

func (p *PostgresStorage) ListEvents(ctx context.Context, userID, from string) ([]storage.SocialEvent, error) {
	return p.events.ListEvents(ctx, userID, from)
}

func (p *PostgresStorage) DeleteEvent(ctx context.Context, userID, id string) error {
	return p.events.DeleteEvent(ctx, userID, id)
}

// ReportsStorage

func (p *PostgresStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	return p.reports.CreateReport(ctx, report)
}

func (p *PostgresStorage) GetReport(ctx context.Context, userID, id string) (*storage.ReportMeta, error) {
	return p.reports.GetReport(ctx, userID, id)
}

func (p *PostgresStorage) ListReports(ctx context.Context, userID string, limit, offset int) ([]storage.ReportMeta, error) {
	return p.reports.ListReports(ctx, userID, limit, offset)
}

func (p *PostgresStorage) DeleteReport(ctx context.Context, userID, id string) error {
	return p.reports.DeleteReport(ctx, userID, id)
}
