package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by point lookups that must find a row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate - нарушение уникальности (например, daily_logs(user_id, date)).
	ErrDuplicate = errors.New("duplicate key")
	// ErrVersionConflict is returned when a compare-and-swap update lost the race.
	ErrVersionConflict = errors.New("version conflict")
)

// Meal slots / catalog categories.
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotSnack     = "snack"
)

// Slots lists the four meal slots in display order.
var Slots = []string{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}

// IsValidSlot reports whether s is one of the four meal slots.
func IsValidSlot(s string) bool {
	switch s {
	case SlotBreakfast, SlotLunch, SlotDinner, SlotSnack:
		return true
	}
	return false
}

// Nutrients - пять отслеживаемых значений (ккал и граммы).
type Nutrients struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
}

// Meal is a catalog entry (master_meals). Read-only for the application.
type Meal struct {
	ID              string
	Name            string
	Description     string
	Category        string
	Calories        float64
	ProteinG        float64
	CarbsG          float64
	FatG            float64
	FiberG          *float64 // NULL in older catalog rows
	PrepTimeMinutes int
	CookTimeMinutes int
	Servings        int
	DietaryTags     []string
	Difficulty      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MealFilter narrows ListMeals. Empty fields match everything.
type MealFilter struct {
	Category string
	Query    string // case-insensitive substring of name
}

// MatchMeal reports whether meal passes filter. Used by stores that filter in Go.
func MatchMeal(meal Meal, filter MealFilter) bool {
	if filter.Category != "" && meal.Category != filter.Category {
		return false
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		return strings.Contains(strings.ToLower(meal.Name), strings.ToLower(q))
	}
	return true
}

// DailyLog is one ledger entry, unique per (UserID, Date).
type DailyLog struct {
	ID              string
	UserID          string
	Date            string // YYYY-MM-DD
	MealPlanID      *string
	BreakfastMealID *string
	LunchMealID     *string
	DinnerMealID    *string
	SnackMealID     *string
	// SlotSnapshots holds the nutrients of the meal resolved for each occupied
	// slot at the time it was assigned. Rows written before snapshots existed
	// may lack entries for occupied slots.
	SlotSnapshots map[string]Nutrients
	Totals        Nutrients
	Mood          *string
	Notes         *string
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MealID returns the meal reference stored in slot.
func (l *DailyLog) MealID(slot string) *string {
	switch slot {
	case SlotBreakfast:
		return l.BreakfastMealID
	case SlotLunch:
		return l.LunchMealID
	case SlotDinner:
		return l.DinnerMealID
	case SlotSnack:
		return l.SnackMealID
	}
	return nil
}

// SetMealID stores a meal reference (or nil) in slot.
func (l *DailyLog) SetMealID(slot string, mealID *string) {
	switch slot {
	case SlotBreakfast:
		l.BreakfastMealID = mealID
	case SlotLunch:
		l.LunchMealID = mealID
	case SlotDinner:
		l.DinnerMealID = mealID
	case SlotSnack:
		l.SnackMealID = mealID
	}
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (l DailyLog) Clone() DailyLog {
	c := l
	c.MealPlanID = cloneString(l.MealPlanID)
	c.BreakfastMealID = cloneString(l.BreakfastMealID)
	c.LunchMealID = cloneString(l.LunchMealID)
	c.DinnerMealID = cloneString(l.DinnerMealID)
	c.SnackMealID = cloneString(l.SnackMealID)
	c.Mood = cloneString(l.Mood)
	c.Notes = cloneString(l.Notes)
	if l.SlotSnapshots != nil {
		c.SlotSnapshots = make(map[string]Nutrients, len(l.SlotSnapshots))
		for k, v := range l.SlotSnapshots {
			c.SlotSnapshots[k] = v
		}
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// SwapRecord - неизменяемая запись swap_history.
type SwapRecord struct {
	ID             string
	UserID         string
	Date           string
	MealSlot       string
	OriginalMealID string
	NewMealID      string
	Reason         *string
	CreatedAt      time.Time
}

// MealPlan is a user meal plan (user_meal_plans).
type MealPlan struct {
	ID             string
	UserID         string
	Name           string
	Description    string
	StartDate      string
	EndDate        *string
	TargetCalories *float64
	TargetProteinG *float64
	TargetCarbsG   *float64
	TargetFatG     *float64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SocialEvent is a planned meal out (social_events).
type SocialEvent struct {
	ID                string
	UserID            string
	Title             string
	Description       string
	EventDate         string
	EventType         string
	Location          *string
	ExpectedMealCount int
	Notes             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReportMeta - метаданные отчёта
type ReportMeta struct {
	ID        string
	UserID    string
	Format    string // "pdf" or "csv"
	FromDate  string
	ToDate    string
	ObjectKey *string // S3 object key (NULL in local mode)
	SizeBytes int64
	Status    string // "ready" or "failed"
	Error     *string
	CreatedAt time.Time
	Data      []byte // local mode only
}

// MealCatalogStorage is the read side of the meal library.
type MealCatalogStorage interface {
	// GetMeal returns a meal by id. bool=false means not found.
	GetMeal(ctx context.Context, id string) (Meal, bool, error)
	// ListMeals returns meals ordered by category, then name.
	ListMeals(ctx context.Context, filter MealFilter) ([]Meal, error)
}

// DailyLogsStorage manages ledger entries.
type DailyLogsStorage interface {
	// GetDailyLog returns the entry for (userID, date). bool=false means absent.
	GetDailyLog(ctx context.Context, userID, date string) (DailyLog, bool, error)
	// InsertDailyLog inserts a new entry; ErrDuplicate when (user, date) exists.
	// On success log.ID, Version and timestamps are populated.
	InsertDailyLog(ctx context.Context, log *DailyLog) error
	// UpdateDailyLog writes log by id if the stored version equals expectedVersion,
	// otherwise ErrVersionConflict. On success log.Version is incremented.
	UpdateDailyLog(ctx context.Context, log *DailyLog, expectedVersion int) error
	// InsertDailyLogs inserts all entries or none.
	InsertDailyLogs(ctx context.Context, logs []DailyLog) error
	// ListDailyLogs returns entries with from <= date <= to ordered by date.
	ListDailyLogs(ctx context.Context, userID, from, to string) ([]DailyLog, error)
	// ListDailyLogsByPlan returns entries generated for a meal plan ordered by date.
	ListDailyLogsByPlan(ctx context.Context, userID, mealPlanID string) ([]DailyLog, error)
	// ListUserIDs returns every user that owns at least one entry or plan.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SwapHistoryStorage is the append-only swap log.
type SwapHistoryStorage interface {
	AppendSwap(ctx context.Context, rec *SwapRecord) error
	ListSwaps(ctx context.Context, userID, from, to string, limit int) ([]SwapRecord, error)
}

// SwapApplier is implemented by stores that can persist a swap atomically:
// the ledger CAS update and the history append commit together or not at all.
type SwapApplier interface {
	ApplySwap(ctx context.Context, log *DailyLog, expectedVersion int, rec *SwapRecord) error
}

// MealPlansStorage manages user meal plans.
type MealPlansStorage interface {
	CreatePlan(ctx context.Context, plan *MealPlan) error
	// GetPlan returns the plan if it belongs to userID. bool=false means not found.
	GetPlan(ctx context.Context, userID, id string) (MealPlan, bool, error)
	ListPlans(ctx context.Context, userID string) ([]MealPlan, error)
	// DeletePlan removes the plan; ledger entries keep their days but lose the plan link.
	DeletePlan(ctx context.Context, userID, id string) error
}

// SocialEventsStorage manages social events.
type SocialEventsStorage interface {
	CreateEvent(ctx context.Context, event *SocialEvent) error
	// ListEvents returns the user's events with event_date >= from (all when
	// from is empty), ordered by event date.
	ListEvents(ctx context.Context, userID, from string) ([]SocialEvent, error)
	// DeleteEvent returns ErrNotFound when the event does not belong to userID.
	DeleteEvent(ctx context.Context, userID, id string) error
}

// ReportsStorage - интерфейс для работы с отчётами
type ReportsStorage interface {
	CreateReport(ctx context.Context, report *ReportMeta) error
	GetReport(ctx context.Context, userID, id string) (*ReportMeta, error)
	ListReports(ctx context.Context, userID string, limit, offset int) ([]ReportMeta, error)
	DeleteReport(ctx context.Context, userID, id string) error
}

// Storage is implemented by every backend (memory, postgres, sqlite).
type Storage interface {
	MealCatalogStorage
	DailyLogsStorage
	SwapHistoryStorage
	SwapApplier
	MealPlansStorage
	SocialEventsStorage
	ReportsStorage

	// Close закрывает соединение (для SQL бэкендов)
	Close() error
}
