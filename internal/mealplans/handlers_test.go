package mealplans

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-hub/internal/ledger"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/storage/memory"
	"github.com/fdg312/meal-hub/internal/userctx"
	"go.uber.org/zap"
)

func setupMux(t *testing.T, meals ...storage.Meal) (*http.ServeMux, *memory.MemoryStorage) {
	t.Helper()
	st := memory.New()
	st.PutMeals(meals...)
	gen := ledger.NewService(ledger.StoresFrom(st), ledger.Options{MaxRetries: 3}, zap.NewNop())
	h := NewHandler(NewService(st, st, gen))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/meal-plans", h.HandleCreate)
	mux.HandleFunc("GET /v1/meal-plans", h.HandleList)
	mux.HandleFunc("GET /v1/meal-plans/{id}", h.HandleGet)
	mux.HandleFunc("DELETE /v1/meal-plans/{id}", h.HandleDelete)
	mux.HandleFunc("POST /v1/meal-plans/{id}/generate", h.HandleGenerate)
	return mux, st
}

func do(mux http.Handler, method, target, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req = req.WithContext(userctx.WithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func TestCreateMealPlanRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateMealPlanRequest
		wantErr bool
	}{
		{"valid", CreateMealPlanRequest{Name: "Cut", StartDate: "2025-01-06", TargetCalories: floatPtr(1800)}, false},
		{"missing name", CreateMealPlanRequest{StartDate: "2025-01-06"}, true},
		{"bad start", CreateMealPlanRequest{Name: "Cut", StartDate: "06.01.2025"}, true},
		{"end before start", CreateMealPlanRequest{Name: "Cut", StartDate: "2025-01-06", EndDate: strPtr("2025-01-05")}, true},
		{"end equals start", CreateMealPlanRequest{Name: "Cut", StartDate: "2025-01-06", EndDate: strPtr("2025-01-06")}, false},
		{"zero target", CreateMealPlanRequest{Name: "Cut", StartDate: "2025-01-06", TargetProtein: floatPtr(0)}, true},
		{"negative target", CreateMealPlanRequest{Name: "Cut", StartDate: "2025-01-06", TargetFat: floatPtr(-5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMealPlansCRUD(t *testing.T) {
	mux, _ := setupMux(t)

	w := do(mux, http.MethodPost, "/v1/meal-plans", "u1", CreateMealPlanRequest{
		Name: "January", StartDate: "2025-01-06", TargetCalories: floatPtr(2000),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	var plan MealPlanDTO
	json.NewDecoder(w.Body).Decode(&plan)
	if plan.ID == "" || !plan.IsActive || *plan.TargetCalories != 2000 {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	w = do(mux, http.MethodGet, "/v1/meal-plans", "u1", nil)
	var list ListMealPlansResponse
	json.NewDecoder(w.Body).Decode(&list)
	if len(list.Plans) != 1 {
		t.Fatalf("list: %d plans, want 1", len(list.Plans))
	}

	// другой пользователь не видит план
	if w := do(mux, http.MethodGet, "/v1/meal-plans/"+plan.ID, "u2", nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign get: status = %d, want 404", w.Code)
	}
	if w := do(mux, http.MethodDelete, "/v1/meal-plans/"+plan.ID, "u2", nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete: status = %d, want 404", w.Code)
	}

	if w := do(mux, http.MethodDelete, "/v1/meal-plans/"+plan.ID, "u1", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", w.Code)
	}
	if w := do(mux, http.MethodGet, "/v1/meal-plans/"+plan.ID, "u1", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
}

func TestMealPlansCreate_Unauthenticated(t *testing.T) {
	mux, _ := setupMux(t)

	w := do(mux, http.MethodPost, "/v1/meal-plans", "", CreateMealPlanRequest{Name: "x", StartDate: "2025-01-06"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHandleGenerate(t *testing.T) {
	mux, st := setupMux(t,
		storage.Meal{ID: "b1", Name: "Toast", Category: storage.SlotBreakfast, Calories: 300, ProteinG: 10},
		storage.Meal{ID: "l1", Name: "Soup", Category: storage.SlotLunch, Calories: 400, ProteinG: 20},
	)

	w := do(mux, http.MethodPost, "/v1/meal-plans", "u1", CreateMealPlanRequest{Name: "Week", StartDate: "2025-02-24"})
	var plan MealPlanDTO
	json.NewDecoder(w.Body).Decode(&plan)

	// без тела: неделя начинается с start_date плана
	req := httptest.NewRequest(http.MethodPost, "/v1/meal-plans/"+plan.ID+"/generate", nil)
	req = req.WithContext(userctx.WithUserID(req.Context(), "u1"))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp GenerateResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Success || resp.MealCount != 7 || len(resp.Days) != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Days[0].Date != "2025-02-24" || resp.Days[6].Date != "2025-03-02" {
		t.Errorf("dates = %s..%s", resp.Days[0].Date, resp.Days[6].Date)
	}
	for _, d := range resp.Days {
		if d.TotalCalories != 700 || d.DinnerMealID != nil {
			t.Errorf("%s: calories=%v dinner=%v", d.Date, d.TotalCalories, d.DinnerMealID)
		}
	}

	w = do(mux, http.MethodGet, "/v1/meal-plans/"+plan.ID, "u1", nil)
	var got GetMealPlanResponse
	json.NewDecoder(w.Body).Decode(&got)
	if len(got.Days) != 7 {
		t.Errorf("plan days = %d, want 7", len(got.Days))
	}

	// повторная генерация упирается в уникальность (user, date)
	w = do(mux, http.MethodPost, "/v1/meal-plans/"+plan.ID+"/generate", "u1", GenerateRequest{StartDate: "2025-02-26"})
	if w.Code != http.StatusConflict {
		t.Errorf("regenerate: status = %d, want 409", w.Code)
	}
	logs, _ := st.ListDailyLogs(context.Background(), "u1", "", "")
	if len(logs) != 7 {
		t.Errorf("stored %d entries after rejected batch, want 7", len(logs))
	}

	// удаление плана оставляет дни без ссылки на план
	do(mux, http.MethodDelete, "/v1/meal-plans/"+plan.ID, "u1", nil)
	logs, _ = st.ListDailyLogs(context.Background(), "u1", "", "")
	for _, l := range logs {
		if l.MealPlanID != nil {
			t.Errorf("%s still linked to deleted plan", l.Date)
		}
	}
}

func TestHandleGenerate_EmptyCatalog(t *testing.T) {
	mux, _ := setupMux(t)

	w := do(mux, http.MethodPost, "/v1/meal-plans", "u1", CreateMealPlanRequest{Name: "Week", StartDate: "2025-02-24"})
	var plan MealPlanDTO
	json.NewDecoder(w.Body).Decode(&plan)

	w = do(mux, http.MethodPost, "/v1/meal-plans/"+plan.ID+"/generate", "u1", GenerateRequest{})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
