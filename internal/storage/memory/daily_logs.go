package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

// ledgerStorage keeps daily logs and swap history under one lock so that
// ApplySwap is atomic.
type ledgerStorage struct {
	mu    sync.RWMutex
	logs  map[string]*storage.DailyLog // key: "userID:date"
	swaps []storage.SwapRecord
}

func newLedgerStorage() *ledgerStorage {
	return &ledgerStorage{
		logs: make(map[string]*storage.DailyLog),
	}
}

func logKey(userID, date string) string {
	return userID + ":" + date
}

func (s *ledgerStorage) GetDailyLog(ctx context.Context, userID, date string) (storage.DailyLog, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[logKey(userID, date)]
	if !ok {
		return storage.DailyLog{}, false, nil
	}
	return l.Clone(), true, nil
}

func (s *ledgerStorage) InsertDailyLog(ctx context.Context, log *storage.DailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.logs[logKey(log.UserID, log.Date)]; exists {
		return storage.ErrDuplicate
	}
	s.insertLocked(log, time.Now().UTC())
	return nil
}

func (s *ledgerStorage) InsertDailyLogs(ctx context.Context, logs []storage.DailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверяем весь батч до вставки: всё или ничего.
	seen := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		key := logKey(l.UserID, l.Date)
		if _, exists := s.logs[key]; exists {
			return storage.ErrDuplicate
		}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicate
		}
		seen[key] = struct{}{}
	}

	now := time.Now().UTC()
	for i := range logs {
		s.insertLocked(&logs[i], now)
	}
	return nil
}

func (s *ledgerStorage) insertLocked(log *storage.DailyLog, now time.Time) {
	if log.ID == "" {
		log.ID = storage.NewRowID()
	}
	log.Version = 1
	log.CreatedAt = now
	log.UpdatedAt = now

	stored := log.Clone()
	s.logs[logKey(log.UserID, log.Date)] = &stored
}

func (s *ledgerStorage) UpdateDailyLog(ctx context.Context, log *storage.DailyLog, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(log, expectedVersion)
}

func (s *ledgerStorage) updateLocked(log *storage.DailyLog, expectedVersion int) error {
	key := logKey(log.UserID, log.Date)
	current, ok := s.logs[key]
	if !ok || current.ID != log.ID {
		return storage.ErrNotFound
	}
	if current.Version != expectedVersion {
		return storage.ErrVersionConflict
	}

	log.Version = expectedVersion + 1
	log.CreatedAt = current.CreatedAt
	log.UpdatedAt = time.Now().UTC()

	stored := log.Clone()
	s.logs[key] = &stored
	return nil
}

func (s *ledgerStorage) ApplySwap(ctx context.Context, log *storage.DailyLog, expectedVersion int, rec *storage.SwapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLocked(log, expectedVersion); err != nil {
		return err
	}
	s.appendLocked(rec)
	return nil
}

func (s *ledgerStorage) ListDailyLogs(ctx context.Context, userID, from, to string) ([]storage.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.DailyLog
	for _, l := range s.logs {
		if l.UserID != userID {
			continue
		}
		if (from != "" && l.Date < from) || (to != "" && l.Date > to) {
			continue
		}
		out = append(out, l.Clone())
	}
	sortByDate(out)
	return out, nil
}

func (s *ledgerStorage) ListDailyLogsByPlan(ctx context.Context, userID, mealPlanID string) ([]storage.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.DailyLog
	for _, l := range s.logs {
		if l.UserID == userID && l.MealPlanID != nil && *l.MealPlanID == mealPlanID {
			out = append(out, l.Clone())
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *ledgerStorage) userIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, l := range s.logs {
		out = append(out, l.UserID)
	}
	return out
}

// unlinkPlan clears daily_logs.meal_plan_id and bumps version, so a stale
// compare-and-swap cannot write the plan back.
func (s *ledgerStorage) unlinkPlan(userID, planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, l := range s.logs {
		if l.UserID == userID && l.MealPlanID != nil && *l.MealPlanID == planID {
			l.MealPlanID = nil
			l.Version++
			l.UpdatedAt = now
		}
	}
}

func (s *ledgerStorage) AppendSwap(ctx context.Context, rec *storage.SwapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(rec)
	return nil
}

func (s *ledgerStorage) appendLocked(rec *storage.SwapRecord) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = storage.NewSwapID(now)
	}
	rec.CreatedAt = now
	s.swaps = append(s.swaps, *rec)
}

// ListSwaps returns the newest records first.
func (s *ledgerStorage) ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]storage.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.SwapRecord
	for i := len(s.swaps) - 1; i >= 0; i-- {
		r := s.swaps[i]
		if r.UserID != userID {
			continue
		}
		if (from != "" && r.Date < from) || (to != "" && r.Date > to) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func sortByDate(logs []storage.DailyLog) {
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Date < logs[j].Date
	})
}
