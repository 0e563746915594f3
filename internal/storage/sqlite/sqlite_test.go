package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fdg312/meal-hub/internal/ledger"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

const (
	oatmealID = "11111111-1111-4111-8111-111111111111"
	saladID   = "33333333-3333-4333-8333-333333333333"
	salmonID  = "44444444-4444-4444-8444-444444444444"
	yogurtID  = "55555555-5555-4555-8555-555555555555"
)

func fiber(v float64) *float64 { return &v }

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	st, err := New(context.Background(), filepath.Join(t.TempDir(), "meal-hub.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	err = st.PutMeals(context.Background(),
		storage.Meal{ID: oatmealID, Name: "Oatmeal with Berries", Category: storage.SlotBreakfast, Calories: 320, ProteinG: 8, CarbsG: 58, FatG: 4, FiberG: fiber(5), DietaryTags: []string{"vegetarian"}},
		storage.Meal{ID: saladID, Name: "Chicken Salad", Category: storage.SlotLunch, Calories: 450, ProteinG: 35, CarbsG: 20, FatG: 22},
		storage.Meal{ID: salmonID, Name: "Baked Salmon", Category: storage.SlotDinner, Calories: 520, ProteinG: 40, CarbsG: 30, FatG: 24, FiberG: fiber(4)},
		storage.Meal{ID: yogurtID, Name: "Greek Yogurt", Category: storage.SlotSnack, Calories: 150, ProteinG: 12, CarbsG: 10, FatG: 5},
	)
	if err != nil {
		t.Fatalf("PutMeals: %v", err)
	}
	return st
}

func TestMeals(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	m, found, err := st.GetMeal(ctx, oatmealID)
	if err != nil || !found {
		t.Fatalf("GetMeal: found=%t err=%v", found, err)
	}
	if m.FiberG == nil || *m.FiberG != 5 || len(m.DietaryTags) != 1 || m.Servings != 1 {
		t.Errorf("unexpected meal: %+v", m)
	}

	salad, _, _ := st.GetMeal(ctx, saladID)
	if salad.FiberG != nil {
		t.Errorf("fiber should stay NULL, got %v", *salad.FiberG)
	}

	if _, found, _ := st.GetMeal(ctx, "not-a-meal"); found {
		t.Error("expected missing meal")
	}

	all, err := st.ListMeals(ctx, storage.MealFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range all {
		names = append(names, m.Name)
	}
	want := []string{"Oatmeal with Berries", "Baked Salmon", "Chicken Salad", "Greek Yogurt"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order by category, name (-want +got):\n%s", diff)
	}

	filtered, _ := st.ListMeals(ctx, storage.MealFilter{Query: "SALMON"})
	if len(filtered) != 1 || filtered[0].ID != salmonID {
		t.Errorf("query filter: %+v", filtered)
	}
	filtered, _ = st.ListMeals(ctx, storage.MealFilter{Category: storage.SlotSnack})
	if len(filtered) != 1 || filtered[0].ID != yogurtID {
		t.Errorf("category filter: %+v", filtered)
	}
}

func TestDailyLogs_InsertAndCAS(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	mood := "good"
	log := storage.DailyLog{
		UserID:          "u1",
		Date:            "2025-01-01",
		BreakfastMealID: strPtr(oatmealID),
		SlotSnapshots:   map[string]storage.Nutrients{storage.SlotBreakfast: {Calories: 320, ProteinG: 8, CarbsG: 58, FatG: 4, FiberG: 5}},
		Totals:          storage.Nutrients{Calories: 320, ProteinG: 8, CarbsG: 58, FatG: 4, FiberG: 5},
		Mood:            &mood,
	}
	if err := st.InsertDailyLog(ctx, &log); err != nil {
		t.Fatalf("InsertDailyLog: %v", err)
	}
	if log.ID == "" || log.Version != 1 {
		t.Fatalf("insert did not populate id/version: %+v", log)
	}

	dup := storage.DailyLog{UserID: "u1", Date: "2025-01-01"}
	if err := st.InsertDailyLog(ctx, &dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate insert: err = %v, want ErrDuplicate", err)
	}

	got, found, err := st.GetDailyLog(ctx, "u1", "2025-01-01")
	if err != nil || !found {
		t.Fatalf("GetDailyLog: found=%t err=%v", found, err)
	}
	if diff := cmp.Diff(log, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	got.LunchMealID = strPtr(saladID)
	if err := st.UpdateDailyLog(ctx, &got, 1); err != nil {
		t.Fatalf("UpdateDailyLog: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}

	stale := log
	if err := st.UpdateDailyLog(ctx, &stale, 1); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("stale update: err = %v, want ErrVersionConflict", err)
	}

	ghost := storage.DailyLog{ID: storage.NewRowID(), UserID: "u1", Date: "2025-01-02"}
	if err := st.UpdateDailyLog(ctx, &ghost, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing row: err = %v, want ErrNotFound", err)
	}
}

func TestDailyLogs_BatchIsAllOrNothing(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	existing := storage.DailyLog{UserID: "u1", Date: "2025-01-03"}
	if err := st.InsertDailyLog(ctx, &existing); err != nil {
		t.Fatal(err)
	}

	batch := []storage.DailyLog{
		{UserID: "u1", Date: "2025-01-01"},
		{UserID: "u1", Date: "2025-01-02"},
		{UserID: "u1", Date: "2025-01-03"},
	}
	if err := st.InsertDailyLogs(ctx, batch); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("batch: err = %v, want ErrDuplicate", err)
	}

	logs, err := st.ListDailyLogs(ctx, "u1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("batch left %d rows, want only the pre-existing one", len(logs))
	}
}

func TestApplySwap_Atomic(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	log := storage.DailyLog{UserID: "u1", Date: "2025-01-01", LunchMealID: strPtr(saladID)}
	if err := st.InsertDailyLog(ctx, &log); err != nil {
		t.Fatal(err)
	}

	log.LunchMealID = strPtr(salmonID)
	rec := storage.SwapRecord{UserID: "u1", Date: "2025-01-01", MealSlot: storage.SlotLunch, OriginalMealID: saladID, NewMealID: salmonID}
	if err := st.ApplySwap(ctx, &log, 1, &rec); err != nil {
		t.Fatalf("ApplySwap: %v", err)
	}

	// stale version: neither the update nor the history row may land
	log.LunchMealID = strPtr(oatmealID)
	rec2 := storage.SwapRecord{UserID: "u1", Date: "2025-01-01", MealSlot: storage.SlotLunch, OriginalMealID: salmonID, NewMealID: oatmealID}
	if err := st.ApplySwap(ctx, &log, 1, &rec2); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("stale ApplySwap: err = %v", err)
	}

	swaps, err := st.ListSwaps(ctx, "u1", "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(swaps) != 1 || swaps[0].ID != rec.ID {
		t.Errorf("swaps = %+v, want only the committed one", swaps)
	}

	got, _, _ := st.GetDailyLog(ctx, "u1", "2025-01-01")
	if got.LunchMealID == nil || *got.LunchMealID != salmonID || got.Version != 2 {
		t.Errorf("entry after swaps: %+v", got)
	}
}

func TestMealPlans_DeleteUnlinksEntries(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	target := 2000.0
	plan := storage.MealPlan{UserID: "u1", Name: "Cut", StartDate: "2025-01-01", TargetCalories: &target, IsActive: true}
	if err := st.CreatePlan(ctx, &plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	got, found, err := st.GetPlan(ctx, "u1", plan.ID)
	if err != nil || !found || got.TargetCalories == nil || *got.TargetCalories != 2000 || !got.IsActive {
		t.Fatalf("GetPlan: %+v found=%t err=%v", got, found, err)
	}
	if _, found, _ := st.GetPlan(ctx, "u2", plan.ID); found {
		t.Error("plan visible to another user")
	}

	log := storage.DailyLog{UserID: "u1", Date: "2025-01-01", MealPlanID: &plan.ID}
	if err := st.InsertDailyLog(ctx, &log); err != nil {
		t.Fatal(err)
	}
	byPlan, _ := st.ListDailyLogsByPlan(ctx, "u1", plan.ID)
	if len(byPlan) != 1 {
		t.Fatalf("by plan = %d entries", len(byPlan))
	}

	ids, _ := st.ListUserIDs(ctx)
	if diff := cmp.Diff([]string{"u1"}, ids); diff != "" {
		t.Errorf("user ids (-want +got):\n%s", diff)
	}

	if err := st.DeletePlan(ctx, "u1", plan.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if err := st.DeletePlan(ctx, "u1", plan.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}

	kept, found, _ := st.GetDailyLog(ctx, "u1", "2025-01-01")
	if !found || kept.MealPlanID != nil {
		t.Errorf("entry after plan delete: found=%t plan=%v", found, kept.MealPlanID)
	}
	if kept.Version != log.Version+1 {
		t.Errorf("version = %d, want %d", kept.Version, log.Version+1)
	}

	// a writer holding the pre-delete version must not restore the plan link
	stale := log
	if err := st.UpdateDailyLog(ctx, &stale, log.Version); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("stale update: err = %v, want ErrVersionConflict", err)
	}
}

func TestSocialEvents(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	later := storage.SocialEvent{UserID: "u1", Title: "Wedding", EventDate: "2025-06-14", EventType: "celebration", ExpectedMealCount: 2, Location: strPtr("Hall")}
	sooner := storage.SocialEvent{UserID: "u1", Title: "Lunch", EventDate: "2025-06-01", EventType: "restaurant", ExpectedMealCount: 1}
	other := storage.SocialEvent{UserID: "u2", Title: "BBQ", EventDate: "2025-06-02", EventType: "other", ExpectedMealCount: 1}
	for _, e := range []*storage.SocialEvent{&later, &sooner, &other} {
		if err := st.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := st.ListEvents(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	var titles []string
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	if diff := cmp.Diff([]string{"Lunch", "Wedding"}, titles); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if events[1].Location == nil || *events[1].Location != "Hall" || events[1].Notes != nil || events[1].ExpectedMealCount != 2 {
		t.Errorf("wedding round trip: %+v", events[1])
	}

	events, _ = st.ListEvents(ctx, "u1", "2025-06-02")
	if len(events) != 1 || events[0].ID != later.ID {
		t.Errorf("from filter: %+v", events)
	}

	if err := st.DeleteEvent(ctx, "u2", later.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign delete: err = %v", err)
	}
	if err := st.DeleteEvent(ctx, "u1", later.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if events, _ := st.ListEvents(ctx, "u1", ""); len(events) != 1 {
		t.Errorf("after delete: %d events", len(events))
	}
}

func TestReports(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	r := storage.ReportMeta{UserID: "u1", Format: "csv", FromDate: "2025-01-01", ToDate: "2025-01-07", SizeBytes: 3, Status: "ready", Data: []byte("a,b")}
	if err := st.CreateReport(ctx, &r); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetReport(ctx, "u1", r.ID)
	if err != nil || string(got.Data) != "a,b" {
		t.Fatalf("GetReport: %+v err=%v", got, err)
	}
	if _, err := st.GetReport(ctx, "u2", r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign report: err = %v", err)
	}

	list, _ := st.ListReports(ctx, "u1", 10, 0)
	if len(list) != 1 || list[0].Data != nil {
		t.Errorf("list: %+v", list)
	}

	if err := st.DeleteReport(ctx, "u1", r.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteReport(ctx, "u1", r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

// The ledger runs unchanged on top of the SQL backend.
func TestLedgerOnSQLite(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()
	svc := ledger.NewService(ledger.StoresFrom(st), ledger.Options{MaxRetries: 3}, zap.NewNop())

	if _, err := svc.AssignMeal(ctx, "u1", "2025-01-01", storage.SlotBreakfast, oatmealID); err != nil {
		t.Fatalf("AssignMeal: %v", err)
	}
	if _, err := svc.AssignMeal(ctx, "u1", "2025-01-01", storage.SlotLunch, saladID); err != nil {
		t.Fatalf("AssignMeal: %v", err)
	}
	entry, rec, err := svc.SwapMeal(ctx, "u1", "2025-01-01", storage.SlotLunch, saladID, salmonID, nil)
	if err != nil {
		t.Fatalf("SwapMeal: %v", err)
	}

	want := storage.Nutrients{Calories: 840, ProteinG: 48, CarbsG: 88, FatG: 28, FiberG: 9}
	if diff := cmp.Diff(want, entry.Totals); diff != "" {
		t.Errorf("totals (-want +got):\n%s", diff)
	}
	if rec.ID == "" {
		t.Error("swap record id not assigned")
	}

	// concurrent assignments to distinct slots all survive
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, a := range []struct{ slot, meal string }{{storage.SlotDinner, salmonID}, {storage.SlotSnack, yogurtID}} {
		wg.Add(1)
		go func(slot, meal string) {
			defer wg.Done()
			_, err := svc.AssignMeal(ctx, "u1", "2025-01-02", slot, meal)
			errs <- err
		}(a.slot, a.meal)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent AssignMeal: %v", err)
		}
	}
	day, _, _ := st.GetDailyLog(ctx, "u1", "2025-01-02")
	if day.DinnerMealID == nil || day.SnackMealID == nil || day.Totals.Calories != 670 {
		t.Errorf("concurrent day: %+v", day)
	}
}

func strPtr(s string) *string { return &s }
