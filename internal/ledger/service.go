// Package ledger keeps the per-user, per-day nutrition ledger consistent as
// meals are assigned, swapped and bulk-generated into a week.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// TotalsRecompute keeps totals equal to the sum of slot snapshots.
	TotalsRecompute = "recompute"
	// TotalsAdditive adds the assigned meal on top of the running totals and
	// never subtracts the previous occupant of the slot.
	TotalsAdditive = "additive"

	// resetWorkers bounds concurrent storage calls in EnsureDays.
	resetWorkers = 8

	// PlanDays is the number of consecutive days GenerateWeeklyPlan writes.
	PlanDays = 7

	dateLayout = "2006-01-02"
)

// Mood values accepted by UpdateDay.
var Moods = []string{"poor", "fair", "good", "excellent"}

// RandSource picks an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Stores groups the collaborators of the ledger.
type Stores struct {
	Catalog storage.MealCatalogStorage
	Logs    storage.DailyLogsStorage
	Swaps   storage.SwapHistoryStorage
	// Atomic, when set, persists the ledger update and the swap history
	// append in one transaction.
	Atomic storage.SwapApplier
}

// StoresFrom wires every collaborator to a single backend.
func StoresFrom(st storage.Storage) Stores {
	return Stores{Catalog: st, Logs: st, Swaps: st, Atomic: st}
}

// Options tune the ledger.
type Options struct {
	TotalsMode string
	MaxRetries int
}

// Service implements the ledger mutator and the weekly plan generator.
type Service struct {
	stores Stores
	opts   Options
	log    *zap.Logger
	rnd    RandSource
	now    func() time.Time
}

// NewService creates the ledger service. Unknown totals modes fall back to recompute.
func NewService(stores Stores, opts Options, logger *zap.Logger) *Service {
	if opts.TotalsMode != TotalsAdditive {
		opts.TotalsMode = TotalsRecompute
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		stores: stores,
		opts:   opts,
		log:    logger.Named("ledger"),
		rnd:    globalRand{},
		now:    time.Now,
	}
}

// WithRand replaces the random source used by GenerateWeeklyPlan.
func (s *Service) WithRand(r RandSource) *Service {
	s.rnd = r
	return s
}

// WithClock replaces the clock used for "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TotalsMode returns the effective totals mode.
func (s *Service) TotalsMode() string {
	return s.opts.TotalsMode
}

// Today returns the current UTC date as YYYY-MM-DD.
func (s *Service) Today() string {
	return s.now().UTC().Format(dateLayout)
}

// AssignMeal puts mealID into slot of the user's entry for date, creating the
// entry when absent.
func (s *Service) AssignMeal(ctx context.Context, userID, date, slot, mealID string) (storage.DailyLog, error) {
	if err := validateCommon(userID, date, slot); err != nil {
		return storage.DailyLog{}, err
	}
	if mealID == "" {
		return storage.DailyLog{}, fmt.Errorf("%w: meal id is required", ErrInvalidInput)
	}

	meal, err := s.resolveMeal(ctx, mealID)
	if err != nil {
		return storage.DailyLog{}, err
	}
	nutrients := NutrientsOf(meal)

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		entry, found, err := s.stores.Logs.GetDailyLog(ctx, userID, date)
		if err != nil {
			return storage.DailyLog{}, persistence("get daily log", err)
		}

		if !found {
			entry = storage.DailyLog{UserID: userID, Date: date}
			entry.SetMealID(slot, &meal.ID)
			setSnapshot(&entry, slot, nutrients)
			entry.Totals = nutrients

			err = s.stores.Logs.InsertDailyLog(ctx, &entry)
			if errors.Is(err, storage.ErrDuplicate) {
				s.log.Debug("daily log created concurrently, retrying",
					zap.String("user_id", userID), zap.String("date", date), zap.Int("attempt", attempt))
				continue
			}
			if err != nil {
				return storage.DailyLog{}, persistence("insert daily log", err)
			}
			return entry, nil
		}

		expected := entry.Version
		entry.SetMealID(slot, &meal.ID)
		setSnapshot(&entry, slot, nutrients)
		if s.opts.TotalsMode == TotalsAdditive {
			entry.Totals = add(entry.Totals, nutrients)
		} else {
			if err := s.backfillSnapshots(ctx, &entry); err != nil {
				return storage.DailyLog{}, err
			}
			entry.Totals = sumSnapshots(&entry)
		}

		err = s.stores.Logs.UpdateDailyLog(ctx, &entry, expected)
		if retryable(err) {
			s.log.Debug("daily log changed concurrently, retrying",
				zap.String("user_id", userID), zap.String("date", date), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return storage.DailyLog{}, persistence("update daily log", err)
		}
		return entry, nil
	}

	return storage.DailyLog{}, fmt.Errorf("%w: assign %s on %s", ErrConflict, slot, date)
}

// SwapMeal replaces originalMealID with newMealID in slot and records the swap.
// Totals move by new minus original. In recompute mode the slot must
// currently hold originalMealID, otherwise the swap is rejected.
func (s *Service) SwapMeal(ctx context.Context, userID, date, slot, originalMealID, newMealID string, reason *string) (storage.DailyLog, storage.SwapRecord, error) {
	if err := validateCommon(userID, date, slot); err != nil {
		return storage.DailyLog{}, storage.SwapRecord{}, err
	}
	if originalMealID == "" || newMealID == "" {
		return storage.DailyLog{}, storage.SwapRecord{}, fmt.Errorf("%w: original and new meal ids are required", ErrInvalidInput)
	}

	original, err := s.resolveMeal(ctx, originalMealID)
	if err != nil {
		return storage.DailyLog{}, storage.SwapRecord{}, err
	}
	replacement, err := s.resolveMeal(ctx, newMealID)
	if err != nil {
		return storage.DailyLog{}, storage.SwapRecord{}, err
	}

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		entry, found, err := s.stores.Logs.GetDailyLog(ctx, userID, date)
		if err != nil {
			return storage.DailyLog{}, storage.SwapRecord{}, persistence("get daily log", err)
		}
		if !found {
			return storage.DailyLog{}, storage.SwapRecord{}, fmt.Errorf("%w: ledger entry not found", ErrNotFound)
		}

		if s.opts.TotalsMode == TotalsRecompute {
			if cur := entry.MealID(slot); cur == nil || *cur != original.ID {
				return storage.DailyLog{}, storage.SwapRecord{}, fmt.Errorf("%w: %s slot does not hold meal %s", ErrInvalidInput, slot, original.ID)
			}
		}

		expected := entry.Version
		entry.SetMealID(slot, &replacement.ID)
		setSnapshot(&entry, slot, NutrientsOf(replacement))
		entry.Totals = add(entry.Totals, Delta(original, replacement))

		rec := storage.SwapRecord{
			UserID:         userID,
			Date:           date,
			MealSlot:       slot,
			OriginalMealID: original.ID,
			NewMealID:      replacement.ID,
			Reason:         reason,
		}

		if s.stores.Atomic != nil {
			err = s.stores.Atomic.ApplySwap(ctx, &entry, expected, &rec)
			if retryable(err) {
				continue
			}
			if err != nil {
				return storage.DailyLog{}, storage.SwapRecord{}, persistence("apply swap", err)
			}
			return entry, rec, nil
		}

		err = s.stores.Logs.UpdateDailyLog(ctx, &entry, expected)
		if retryable(err) {
			continue
		}
		if err != nil {
			return storage.DailyLog{}, storage.SwapRecord{}, persistence("update daily log", err)
		}

		if err := s.stores.Swaps.AppendSwap(ctx, &rec); err != nil {
			s.log.Error("swap history append failed after ledger update",
				zap.String("user_id", userID),
				zap.String("date", date),
				zap.String("slot", slot),
				zap.String("original_meal_id", original.ID),
				zap.String("new_meal_id", replacement.ID),
				zap.Error(err),
			)
			return entry, storage.SwapRecord{}, fmt.Errorf("%w: %w", ErrPartialFailure, err)
		}
		return entry, rec, nil
	}

	return storage.DailyLog{}, storage.SwapRecord{}, fmt.Errorf("%w: swap %s on %s", ErrConflict, slot, date)
}

// GenerateResult is the outcome of GenerateWeeklyPlan.
type GenerateResult struct {
	Success   bool
	MealCount int
	Entries   []storage.DailyLog
}

// GenerateWeeklyPlan writes PlanDays consecutive entries starting at
// startDate, drawing breakfast, lunch and dinner uniformly from the catalog.
// The snack slot stays empty. All entries are inserted in one batch.
func (s *Service) GenerateWeeklyPlan(ctx context.Context, userID, startDate, mealPlanID string) (GenerateResult, error) {
	if userID == "" {
		return GenerateResult{}, ErrUnauthenticated
	}
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	meals, err := s.stores.Catalog.ListMeals(ctx, storage.MealFilter{})
	if err != nil {
		return GenerateResult{}, persistence("list meals", err)
	}
	if len(meals) == 0 {
		return GenerateResult{}, fmt.Errorf("%w: no meals available", ErrNotFound)
	}

	byCategory := make(map[string][]storage.Meal)
	for _, m := range meals {
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}

	var planID *string
	if mealPlanID != "" {
		planID = &mealPlanID
	}

	entries := make([]storage.DailyLog, 0, PlanDays)
	for i := 0; i < PlanDays; i++ {
		entry := storage.DailyLog{
			UserID:     userID,
			Date:       start.AddDate(0, 0, i).Format(dateLayout),
			MealPlanID: planID,
		}
		for _, slot := range []string{storage.SlotBreakfast, storage.SlotLunch, storage.SlotDinner} {
			pool := byCategory[slot]
			if len(pool) == 0 {
				continue
			}
			meal := pool[s.rnd.IntN(len(pool))]
			entry.SetMealID(slot, &meal.ID)
			setSnapshot(&entry, slot, NutrientsOf(meal))
		}
		entry.Totals = sumSnapshots(&entry)
		entries = append(entries, entry)
	}

	if err := s.stores.Logs.InsertDailyLogs(ctx, entries); err != nil {
		s.log.Warn("weekly plan batch rejected",
			zap.String("user_id", userID), zap.String("start_date", startDate), zap.Error(err))
		return GenerateResult{}, persistence("insert weekly plan", err)
	}

	s.log.Info("weekly plan generated",
		zap.String("user_id", userID),
		zap.String("start_date", startDate),
		zap.Stringp("meal_plan_id", planID),
	)
	return GenerateResult{Success: true, MealCount: len(entries), Entries: entries}, nil
}

// GetDay returns the user's entry for date. When absent it returns an empty
// zero-total day and false.
func (s *Service) GetDay(ctx context.Context, userID, date string) (storage.DailyLog, bool, error) {
	if userID == "" {
		return storage.DailyLog{}, false, ErrUnauthenticated
	}
	if !IsValidDate(date) {
		return storage.DailyLog{}, false, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	entry, found, err := s.stores.Logs.GetDailyLog(ctx, userID, date)
	if err != nil {
		return storage.DailyLog{}, false, persistence("get daily log", err)
	}
	if !found {
		return storage.DailyLog{UserID: userID, Date: date}, false, nil
	}
	return entry, true, nil
}

// DayPatch carries the user-editable fields of an entry. Nil fields are left
// untouched, empty strings clear the field.
type DayPatch struct {
	Mood  *string
	Notes *string
}

// UpdateDay sets mood and notes, creating an empty entry when absent.
func (s *Service) UpdateDay(ctx context.Context, userID, date string, patch DayPatch) (storage.DailyLog, error) {
	if userID == "" {
		return storage.DailyLog{}, ErrUnauthenticated
	}
	if !IsValidDate(date) {
		return storage.DailyLog{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if patch.Mood != nil && *patch.Mood != "" && !IsValidMood(*patch.Mood) {
		return storage.DailyLog{}, fmt.Errorf("%w: mood must be one of poor, fair, good, excellent", ErrInvalidInput)
	}

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		entry, found, err := s.stores.Logs.GetDailyLog(ctx, userID, date)
		if err != nil {
			return storage.DailyLog{}, persistence("get daily log", err)
		}
		if !found {
			entry = storage.DailyLog{UserID: userID, Date: date}
		}
		applyPatch(&entry, patch)

		if !found {
			err = s.stores.Logs.InsertDailyLog(ctx, &entry)
		} else {
			err = s.stores.Logs.UpdateDailyLog(ctx, &entry, entry.Version)
		}
		if retryable(err) {
			continue
		}
		if err != nil {
			return storage.DailyLog{}, persistence("save daily log", err)
		}
		return entry, nil
	}
	return storage.DailyLog{}, fmt.Errorf("%w: update day %s", ErrConflict, date)
}

func applyPatch(entry *storage.DailyLog, patch DayPatch) {
	if patch.Mood != nil {
		entry.Mood = nilIfEmpty(*patch.Mood)
	}
	if patch.Notes != nil {
		entry.Notes = nilIfEmpty(*patch.Notes)
	}
}

// EnsureDays creates an empty entry for date for every known user that has
// none. It returns the number of entries created.
func (s *Service) EnsureDays(ctx context.Context, date string) (int, error) {
	if !IsValidDate(date) {
		return 0, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	users, err := s.stores.Logs.ListUserIDs(ctx)
	if err != nil {
		return 0, persistence("list users", err)
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resetWorkers)
	for _, userID := range users {
		g.Go(func() error {
			_, found, err := s.stores.Logs.GetDailyLog(gctx, userID, date)
			if err != nil {
				return persistence("get daily log", err)
			}
			if found {
				return nil
			}
			entry := storage.DailyLog{UserID: userID, Date: date}
			err = s.stores.Logs.InsertDailyLog(gctx, &entry)
			if errors.Is(err, storage.ErrDuplicate) {
				return nil
			}
			if err != nil {
				return persistence("insert daily log", err)
			}
			created.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(created.Load()), err
	}

	s.log.Info("daily reset completed",
		zap.String("date", date), zap.Int("users", len(users)), zap.Int64("created", created.Load()))
	return int(created.Load()), nil
}

// ListSwaps returns the user's swap history between from and to (inclusive,
// either may be empty), newest first.
func (s *Service) ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]storage.SwapRecord, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if (from != "" && !IsValidDate(from)) || (to != "" && !IsValidDate(to)) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	records, err := s.stores.Swaps.ListSwaps(ctx, userID, from, to, limit)
	if err != nil {
		return nil, persistence("list swaps", err)
	}
	return records, nil
}

func (s *Service) resolveMeal(ctx context.Context, id string) (storage.Meal, error) {
	meal, found, err := s.stores.Catalog.GetMeal(ctx, id)
	if err != nil {
		return storage.Meal{}, persistence("get meal", err)
	}
	if !found {
		return storage.Meal{}, fmt.Errorf("%w: meal %s", ErrNotFound, id)
	}
	return meal, nil
}

// backfillSnapshots resolves occupied slots that have no snapshot yet
// (entries written before snapshots were stored).
func (s *Service) backfillSnapshots(ctx context.Context, entry *storage.DailyLog) error {
	for _, slot := range storage.Slots {
		id := entry.MealID(slot)
		if id == nil {
			continue
		}
		if _, ok := entry.SlotSnapshots[slot]; ok {
			continue
		}
		meal, found, err := s.stores.Catalog.GetMeal(ctx, *id)
		if err != nil {
			return persistence("get meal", err)
		}
		if !found {
			s.log.Warn("slot references unknown meal, counting as zero",
				zap.String("date", entry.Date), zap.String("slot", slot), zap.String("meal_id", *id))
			setSnapshot(entry, slot, storage.Nutrients{})
			continue
		}
		setSnapshot(entry, slot, NutrientsOf(meal))
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, storage.ErrVersionConflict) ||
		errors.Is(err, storage.ErrDuplicate) ||
		errors.Is(err, storage.ErrNotFound)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func validateCommon(userID, date, slot string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if !IsValidDate(date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if !storage.IsValidSlot(slot) {
		return fmt.Errorf("%w: meal slot must be one of breakfast, lunch, dinner, snack", ErrInvalidInput)
	}
	return nil
}

// IsValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func IsValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// IsValidMood reports whether s is one of Moods.
func IsValidMood(s string) bool {
	for _, m := range Moods {
		if m == s {
			return true
		}
	}
	return false
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
