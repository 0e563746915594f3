package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
)

type socialEventsStorage struct {
	mu     sync.RWMutex
	events map[string]*storage.SocialEvent // key: event_id
}

func newSocialEventsStorage() *socialEventsStorage {
	return &socialEventsStorage{
		events: make(map[string]*storage.SocialEvent),
	}
}

func (s *socialEventsStorage) CreateEvent(ctx context.Context, event *storage.SocialEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if event.ID == "" {
		event.ID = storage.NewRowID()
	}
	if _, exists := s.events[event.ID]; exists {
		return storage.ErrDuplicate
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	stored := *event
	s.events[event.ID] = &stored
	return nil
}

// ListEvents returns events by date, oldest first.
func (s *socialEventsStorage) ListEvents(ctx context.Context, userID, from string) ([]storage.SocialEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []storage.SocialEvent{}
	for _, e := range s.events {
		if e.UserID != userID || (from != "" && e.EventDate < from) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate < out[j].EventDate
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *socialEventsStorage) DeleteEvent(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok || event.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.events, id)
	return nil
}
