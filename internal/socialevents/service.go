package socialevents

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-hub/internal/ledger"
	"github.com/fdg312/meal-hub/internal/storage"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrEventNotFound = errors.New("social event not found")
)

// Service handles social events business logic.
type Service struct {
	events storage.SocialEventsStorage
}

// NewService creates a new social events service.
func NewService(events storage.SocialEventsStorage) *Service {
	return &Service{events: events}
}

// Create stores a new event for the user. expected_meal_count defaults to 1.
func (s *Service) Create(ctx context.Context, userID string, req CreateSocialEventRequest) (*SocialEventDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	event := storage.SocialEvent{
		UserID:            userID,
		Title:             req.Title,
		Description:       req.Description,
		EventDate:         req.EventDate,
		EventType:         req.EventType,
		Location:          req.Location,
		ExpectedMealCount: 1,
		Notes:             req.Notes,
	}
	if req.ExpectedMealCount != nil {
		event.ExpectedMealCount = *req.ExpectedMealCount
	}

	if err := s.events.CreateEvent(ctx, &event); err != nil {
		return nil, err
	}
	dto := toDTO(event)
	return &dto, nil
}

// List returns the user's events on or after from, soonest first.
func (s *Service) List(ctx context.Context, userID, from string) ([]SocialEventDTO, error) {
	if from != "" && !ledger.IsValidDate(from) {
		return nil, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrValidation)
	}
	events, err := s.events.ListEvents(ctx, userID, from)
	if err != nil {
		return nil, err
	}
	out := make([]SocialEventDTO, len(events))
	for i, e := range events {
		out[i] = toDTO(e)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.events.DeleteEvent(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

func toDTO(e storage.SocialEvent) SocialEventDTO {
	return SocialEventDTO{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		EventDate:         e.EventDate,
		EventType:         e.EventType,
		Location:          e.Location,
		ExpectedMealCount: e.ExpectedMealCount,
		Notes:             e.Notes,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}
