package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

type mealPlansStorage struct {
	mu    sync.RWMutex
	plans map[string]*storage.MealPlan // key: plan_id
}

func newMealPlansStorage() *mealPlansStorage {
	return &mealPlansStorage{
		plans: make(map[string]*storage.MealPlan),
	}
}

func (s *mealPlansStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if plan.ID == "" {
		plan.ID = storage.NewRowID()
	}
	plan.CreatedAt = now
	plan.UpdatedAt = now

	stored := *plan
	s.plans[plan.ID] = &stored
	return nil
}

func (s *mealPlansStorage) GetPlan(ctx context.Context, userID, id string) (storage.MealPlan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[id]
	if !ok || plan.UserID != userID {
		return storage.MealPlan{}, false, nil
	}
	return *plan, true, nil
}

// ListPlans returns plans by start date, newest first.
func (s *mealPlansStorage) ListPlans(ctx context.Context, userID string) ([]storage.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []storage.MealPlan{}
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate > out[j].StartDate
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *mealPlansStorage) DeletePlan(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[id]
	if !ok || plan.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *mealPlansStorage) userIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, p := range s.plans {
		out = append(out, p.UserID)
	}
	return out
}
