package socialevents

import (
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/ledger"
)

// EventTypes lists the accepted event_type values.
var EventTypes = []string{"restaurant", "dinner_party", "celebration", "family_gathering", "other"}

type SocialEventDTO struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	EventDate         string    `json:"event_date"`
	EventType         string    `json:"event_type"`
	Location          *string   `json:"location,omitempty"`
	ExpectedMealCount int       `json:"expected_meal_count"`
	Notes             *string   `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ListSocialEventsResponse struct {
	Events []SocialEventDTO `json:"events"`
}

type CreateSocialEventRequest struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	EventDate         string  `json:"event_date"`
	EventType         string  `json:"event_type"`
	Location          *string `json:"location,omitempty"`
	ExpectedMealCount *int    `json:"expected_meal_count,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

func (r *CreateSocialEventRequest) Validate() error {
	if len(r.Title) < 1 || len(r.Title) > 200 {
		return fmt.Errorf("title must be between 1 and 200 characters")
	}
	if len(r.Description) > 2000 {
		return fmt.Errorf("description cannot exceed 2000 characters")
	}
	if !ledger.IsValidDate(r.EventDate) {
		return fmt.Errorf("event_date must be YYYY-MM-DD")
	}
	if !IsValidEventType(r.EventType) {
		return fmt.Errorf("event_type must be one of %v", EventTypes)
	}
	if r.ExpectedMealCount != nil && *r.ExpectedMealCount <= 0 {
		return fmt.Errorf("expected_meal_count must be positive")
	}
	return nil
}

func IsValidEventType(s string) bool {
	for _, t := range EventTypes {
		if t == s {
			return true
		}
	}
	return false
}
