package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fdg312/meal-hub/internal/storage"
)

// MemoryStorage - in-memory реализация storage.Storage
type MemoryStorage struct {
	meals     *mealsStorage
	ledger    *ledgerStorage
	mealPlans *mealPlansStorage
	events    *socialEventsStorage
	reports   *ReportsMemoryStorage
}

var _ storage.Storage = (*MemoryStorage)(nil)

// New создаёт пустой MemoryStorage. Каталог заполняется через PutMeals.
func New() *MemoryStorage {
	return &MemoryStorage{
		meals:     newMealsStorage(),
		ledger:    newLedgerStorage(),
		mealPlans: newMealPlansStorage(),
		events:    newSocialEventsStorage(),
		reports:   NewReportsMemoryStorage(),
	}
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}

// PutMeals adds or replaces catalog rows. The application never writes the
// catalog; this exists for tests and local runs.
func (m *MemoryStorage) PutMeals(meals ...storage.Meal) {
	m.meals.put(meals...)
}

// MealCatalogStorage

func (m *MemoryStorage) GetMeal(ctx context.Context, id string) (storage.Meal, bool, error) {
	return m.meals.GetMeal(ctx, id)
}

func (m *MemoryStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	return m.meals.ListMeals(ctx, filter)
}

// DailyLogsStorage / SwapHistoryStorage - delegate to the ledger storage

func (m *MemoryStorage) GetDailyLog(ctx context.Context, userID, date string) (storage.DailyLog, bool, error) {
	return m.ledger.GetDailyLog(ctx, userID, date)
}

func (m *MemoryStorage) InsertDailyLog(ctx context.Context, log *storage.DailyLog) error {
	return m.ledger.InsertDailyLog(ctx, log)
}

func (m *MemoryStorage) UpdateDailyLog(ctx context.Context, log *storage.DailyLog, expectedVersion int) error {
	return m.ledger.UpdateDailyLog(ctx, log, expectedVersion)
}

func (m *MemoryStorage) InsertDailyLogs(ctx context.Context, logs []storage.DailyLog) error {
	return m.ledger.InsertDailyLogs(ctx, logs)
}

func (m *MemoryStorage) ListDailyLogs(ctx context.Context, userID, from, to string) ([]storage.DailyLog, error) {
	return m.ledger.ListDailyLogs(ctx, userID, from, to)
}

func (m *MemoryStorage) ListDailyLogsByPlan(ctx context.Context, userID, mealPlanID string) ([]storage.DailyLog, error) {
	return m.ledger.ListDailyLogsByPlan(ctx, userID, mealPlanID)
}

func (m *MemoryStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range m.ledger.userIDs() {
		seen[id] = struct{}{}
	}
	for _, id := range m.mealPlans.userIDs() {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStorage) AppendSwap(ctx context.Context, rec *storage.SwapRecord) error {
	return m.ledger.AppendSwap(ctx, rec)
}

func (m *MemoryStorage) ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]storage.SwapRecord, error) {
	return m.ledger.ListSwaps(ctx, userID, from, to, limit)
}

func (m *MemoryStorage) ApplySwap(ctx context.Context, log *storage.DailyLog, expectedVersion int, rec *storage.SwapRecord) error {
	return m.ledger.ApplySwap(ctx, log, expectedVersion, rec)
}

// MealPlansStorage

func (m *MemoryStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	return m.mealPlans.CreatePlan(ctx, plan)
}

func (m *MemoryStorage) GetPlan(ctx context.Context, userID, id string) (storage.MealPlan, bool, error) {
	return m.mealPlans.GetPlan(ctx, userID, id)
}

func (m *MemoryStorage) ListPlans(ctx context.Context, userID string) ([]storage.MealPlan, error) {
	return m.mealPlans.ListPlans(ctx, userID)
}

func (m *MemoryStorage) DeletePlan(ctx context.Context, userID, id string) error {
	if err := m.mealPlans.DeletePlan(ctx, userID, id); err != nil {
		return err
	}
	m.ledger.unlinkPlan(userID, id)
	return nil
}

// SocialEventsStorage

func (m *MemoryStorage) CreateEvent(ctx context.Context, event *storage.SocialEvent) error {
	return m.events.CreateEvent(ctx, event)
}

func (m *MemoryStorage) ListEvents(ctx context.Context, userID, from string) ([]storage.SocialEvent, error) {
	return m.events.ListEvents(ctx, userID, from)
}

func (m *MemoryStorage) DeleteEvent(ctx context.Context, userID, id string) error {
	return m.events.DeleteEvent(ctx, userID, id)
}

// ReportsStorage

func (m *MemoryStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	return m.reports.CreateReport(ctx, report)
}

func (m *MemoryStorage) GetReport(ctx context.Context, userID, id string) (*storage.ReportMeta, error) {
	return m.reports.GetReport(ctx, userID, id)
}

func (m *MemoryStorage) ListReports(ctx context.Context, userID string, limit, offset int) ([]storage.ReportMeta, error) {
	return m.reports.ListReports(ctx, userID, limit, offset)
}

func (m *MemoryStorage) DeleteReport(ctx context.Context, userID, id string) error {
	return m.reports.DeleteReport(ctx, userID, id)
}

type mealsStorage struct {
	mu    sync.RWMutex
	meals map[string]storage.Meal
}

func newMealsStorage() *mealsStorage {
	return &mealsStorage{meals: make(map[string]storage.Meal)}
}

func (s *mealsStorage) put(meals ...storage.Meal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meal := range meals {
		s.meals[meal.ID] = meal
	}
}

func (s *mealsStorage) GetMeal(ctx context.Context, id string) (storage.Meal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meal, ok := s.meals[id]
	return meal, ok, nil
}

func (s *mealsStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Meal, 0, len(s.meals))
	for _, meal := range s.meals {
		if storage.MatchMeal(meal, filter) {
			out = append(out, meal)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
