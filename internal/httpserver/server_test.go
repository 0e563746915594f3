package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/storage/memory"
	"github.com/fdg312/meal-hub/internal/storage/sqlite"
)

const oatmealID = "aaaaaaaa-0000-4000-8000-000000000001"

func oatmeal() storage.Meal {
	return storage.Meal{
		ID: oatmealID, Name: "Oatmeal", Category: storage.SlotBreakfast,
		Calories: 400, ProteinG: 12, CarbsG: 60, FatG: 8, Servings: 1, Difficulty: "easy",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                  "local",
		Port:                 8080,
		AuthMode:             config.AuthModeNone,
		JWTSecret:            "test-secret",
		JWTIssuer:            "meal-hub-test",
		JWTTTLMinutes:        60,
		LedgerTotalsMode:     config.TotalsModeRecompute,
		LedgerMaxRetries:     3,
		AnalyticsDefaultDays: 30,
		ReportsMaxRangeDays:  90,
		Blob:                 config.BlobConfig{Mode: config.BlobModeLocal},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := do(t, srv.Handler(), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" || resp["storage"] != StorageMemory || resp["blob"] != config.BlobModeLocal {
		t.Errorf("unexpected healthz body: %v", resp)
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := do(t, srv.Handler(), http.MethodPost, "/healthz", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestNew_S3ModeIncompleteFails(t *testing.T) {
	cfg := testConfig()
	cfg.Blob.Mode = config.BlobModeS3

	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for BLOB_MODE=s3 without S3 config")
	}
}

func TestLedgerFlow_NoAuth(t *testing.T) {
	srv := newTestServer(t, testConfig())
	srv.storage.(*memory.MemoryStorage).PutMeals(oatmeal())
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/v1/ledger/assign",
		`{"date":"2026-03-02","meal_slot":"breakfast","meal_id":"`+oatmealID+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/v1/ledger/day?date=2026-03-02", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get day: expected 200, got %d", w.Code)
	}
	var day struct {
		Exists          bool    `json:"exists"`
		BreakfastMealID *string `json:"breakfast_meal_id"`
		TotalCalories   float64 `json:"total_calories"`
	}
	json.NewDecoder(w.Body).Decode(&day)
	if !day.Exists || day.BreakfastMealID == nil || *day.BreakfastMealID != oatmealID || day.TotalCalories != 400 {
		t.Errorf("unexpected day: %+v", day)
	}

	// the entry belongs to the default user
	if _, found, _ := srv.storage.GetDailyLog(context.Background(), config.DefaultUserID, "2026-03-02"); !found {
		t.Error("entry should be stored for the default user")
	}

	w = do(t, h, http.MethodGet, "/v1/meals?category=breakfast", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Oatmeal") {
		t.Errorf("catalog: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/v1/reports", `{"from":"2026-03-01","to":"2026-03-07","format":"csv"}`, "")
	if w.Code != http.StatusCreated {
		t.Errorf("report: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// dev auth is not routed with AUTH_MODE=none
	if w := do(t, h, http.MethodPost, "/v1/auth/dev", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("auth/dev: expected 404, got %d", w.Code)
	}
}

func TestLedgerFlow_DevAuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = config.AuthModeDev
	cfg.AuthRequired = true
	srv := newTestServer(t, cfg)
	h := srv.Handler()

	if w := do(t, h, http.MethodGet, "/v1/ledger/day?date=2026-03-02", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: expected 401, got %d", w.Code)
	}

	w := do(t, h, http.MethodPost, "/v1/auth/dev", `{"user_id":"alice"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("auth/dev: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	json.NewDecoder(w.Body).Decode(&tok)

	w = do(t, h, http.MethodPatch, "/v1/ledger/day", `{"date":"2026-03-02","mood":"good"}`, tok.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("patch day: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, found, _ := srv.storage.GetDailyLog(context.Background(), "alice", "2026-03-02"); !found {
		t.Error("entry should be stored for the token subject")
	}
}

func TestServer_SQLiteStorage(t *testing.T) {
	cfg := testConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "meal-hub.db")
	srv := newTestServer(t, cfg)

	st, ok := srv.storage.(*sqlite.SQLiteStorage)
	if !ok {
		t.Fatalf("expected sqlite storage, got %T", srv.storage)
	}
	if err := st.PutMeals(context.Background(), oatmeal()); err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/v1/meal-plans", `{"name":"Week 1","start_date":"2026-03-02"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create plan: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var plan struct {
		ID string `json:"id"`
	}
	json.NewDecoder(w.Body).Decode(&plan)

	w = do(t, h, http.MethodPost, "/v1/meal-plans/"+plan.ID+"/generate", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var gen struct {
		Success   bool `json:"success"`
		MealCount int  `json:"meal_count"`
	}
	json.NewDecoder(w.Body).Decode(&gen)
	// one entry per day; only breakfast slots are filled
	if !gen.Success || gen.MealCount != 7 {
		t.Errorf("generate: %+v", gen)
	}

	w = do(t, h, http.MethodGet, "/v1/analytics/summary?days=30", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("analytics: expected 200, got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/v1/social-events", `{"title":"Dinner out","event_date":"2026-03-07","event_type":"restaurant"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/v1/social-events?from=2026-03-01", "", "")
	var events struct {
		Events []struct {
			EventDate         string `json:"event_date"`
			ExpectedMealCount int    `json:"expected_meal_count"`
		} `json:"events"`
	}
	json.NewDecoder(w.Body).Decode(&events)
	if len(events.Events) != 1 || events.Events[0].EventDate != "2026-03-07" || events.Events[0].ExpectedMealCount != 1 {
		t.Errorf("list events: %+v", events.Events)
	}
}

const seedYAML = `meals:
  - id: aaaaaaaa-0000-4000-8000-000000000001
    name: Oatmeal
    category: breakfast
    calories: 400
    protein_g: 12
    carbs_g: 60
    fat_g: 8
  - id: aaaaaaaa-0000-4000-8000-000000000002
    name: Lentil Soup
    category: lunch
    calories: 350
    protein_g: 18
    carbs_g: 45
    fat_g: 6
`

func TestServer_CatalogSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, kind := range []string{StorageMemory, StorageSQLite} {
		t.Run(kind, func(t *testing.T) {
			cfg := testConfig()
			cfg.CatalogSeedPath = path
			if kind == StorageSQLite {
				cfg.SQLitePath = filepath.Join(t.TempDir(), "meal-hub.db")
			}
			srv := newTestServer(t, cfg)

			w := do(t, srv.Handler(), http.MethodGet, "/v1/meals", "", "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var resp struct {
				Count int `json:"count"`
			}
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Count != 2 {
				t.Errorf("count = %d, want 2", resp.Count)
			}
		})
	}
}

func TestServer_CatalogSeedInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.yaml")
	if err := os.WriteFile(path, []byte("meals: []"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.CatalogSeedPath = path
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty seed")
	}
}
