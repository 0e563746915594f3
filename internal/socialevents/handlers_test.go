package socialevents

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-hub/internal/storage/memory"
	"github.com/fdg312/meal-hub/internal/userctx"
	"github.com/google/go-cmp/cmp"
)

func setupMux(t *testing.T) *http.ServeMux {
	t.Helper()
	h := NewHandler(NewService(memory.New()))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/social-events", h.HandleCreate)
	mux.HandleFunc("GET /v1/social-events", h.HandleList)
	mux.HandleFunc("DELETE /v1/social-events/{id}", h.HandleDelete)
	return mux
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

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func TestCreateSocialEventRequest_Validate(t *testing.T) {
	valid := CreateSocialEventRequest{Title: "Birthday", EventDate: "2025-05-10", EventType: "celebration"}

	tests := []struct {
		name    string
		mutate  func(r *CreateSocialEventRequest)
		wantErr bool
	}{
		{"valid", func(r *CreateSocialEventRequest) {}, false},
		{"with optional fields", func(r *CreateSocialEventRequest) {
			r.Location = strPtr("Cafe")
			r.Notes = strPtr("skip dessert")
			r.ExpectedMealCount = intPtr(2)
		}, false},
		{"missing title", func(r *CreateSocialEventRequest) { r.Title = "" }, true},
		{"bad date", func(r *CreateSocialEventRequest) { r.EventDate = "10.05.2025" }, true},
		{"impossible date", func(r *CreateSocialEventRequest) { r.EventDate = "2025-02-30" }, true},
		{"unknown type", func(r *CreateSocialEventRequest) { r.EventType = "picnic" }, true},
		{"empty type", func(r *CreateSocialEventRequest) { r.EventType = "" }, true},
		{"zero meal count", func(r *CreateSocialEventRequest) { r.ExpectedMealCount = intPtr(0) }, true},
		{"negative meal count", func(r *CreateSocialEventRequest) { r.ExpectedMealCount = intPtr(-1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSocialEventsCRUD(t *testing.T) {
	mux := setupMux(t)

	w := do(mux, http.MethodPost, "/v1/social-events", "u1", CreateSocialEventRequest{
		Title: "Team dinner", EventDate: "2025-05-20", EventType: "restaurant", Location: strPtr("Bistro"),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	var dinner SocialEventDTO
	json.NewDecoder(w.Body).Decode(&dinner)
	if dinner.ID == "" || dinner.ExpectedMealCount != 1 || *dinner.Location != "Bistro" {
		t.Fatalf("unexpected event: %+v", dinner)
	}

	w = do(mux, http.MethodPost, "/v1/social-events", "u1", CreateSocialEventRequest{
		Title: "Family lunch", EventDate: "2025-05-04", EventType: "family_gathering", ExpectedMealCount: intPtr(2),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	do(mux, http.MethodPost, "/v1/social-events", "u2", CreateSocialEventRequest{
		Title: "Party", EventDate: "2025-05-01", EventType: "dinner_party",
	})

	w = do(mux, http.MethodGet, "/v1/social-events", "u1", nil)
	var list ListSocialEventsResponse
	json.NewDecoder(w.Body).Decode(&list)
	var titles []string
	for _, e := range list.Events {
		titles = append(titles, e.Title)
	}
	if diff := cmp.Diff([]string{"Family lunch", "Team dinner"}, titles); diff != "" {
		t.Errorf("list order mismatch (-want +got):\n%s", diff)
	}

	w = do(mux, http.MethodGet, "/v1/social-events?from=2025-05-10", "u1", nil)
	list = ListSocialEventsResponse{}
	json.NewDecoder(w.Body).Decode(&list)
	if len(list.Events) != 1 || list.Events[0].ID != dinner.ID {
		t.Errorf("from filter: got %+v", list.Events)
	}

	if w := do(mux, http.MethodDelete, "/v1/social-events/"+dinner.ID, "u2", nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete: status = %d, want 404", w.Code)
	}
	if w := do(mux, http.MethodDelete, "/v1/social-events/"+dinner.ID, "u1", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", w.Code)
	}
	if w := do(mux, http.MethodDelete, "/v1/social-events/"+dinner.ID, "u1", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}

func TestSocialEventsList_Empty(t *testing.T) {
	mux := setupMux(t)

	w := do(mux, http.MethodGet, "/v1/social-events", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"events\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestSocialEvents_BadRequests(t *testing.T) {
	mux := setupMux(t)

	tests := []struct {
		name       string
		method     string
		target     string
		userID     string
		body       any
		wantStatus int
	}{
		{"unauthenticated create", http.MethodPost, "/v1/social-events", "", CreateSocialEventRequest{Title: "x", EventDate: "2025-05-01", EventType: "other"}, http.StatusUnauthorized},
		{"unauthenticated list", http.MethodGet, "/v1/social-events", "", nil, http.StatusUnauthorized},
		{"unauthenticated delete", http.MethodDelete, "/v1/social-events/abc", "", nil, http.StatusUnauthorized},
		{"invalid payload", http.MethodPost, "/v1/social-events", "u1", "not an object", http.StatusBadRequest},
		{"invalid type", http.MethodPost, "/v1/social-events", "u1", CreateSocialEventRequest{Title: "x", EventDate: "2025-05-01", EventType: "picnic"}, http.StatusBadRequest},
		{"bad from", http.MethodGet, "/v1/social-events?from=May", "u1", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(mux, tt.method, tt.target, tt.userID, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
