package mealplans

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fdg312/meal-hub/internal/ledger"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/userctx"
)

// Handler handles HTTP requests for meal plans.
type Handler struct {
	service *Service
}

// NewHandler creates a new meal plans handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleCreate handles POST /v1/meal-plans
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateMealPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	plan, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create meal plan")
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

// HandleList handles GET /v1/meal-plans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	plans, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list meal plans")
		return
	}

	writeJSON(w, http.StatusOK, ListMealPlansResponse{Plans: plans})
}

// HandleGet handles GET /v1/meal-plans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	plan, days, err := h.service.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Meal plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get meal plan")
		return
	}

	writeJSON(w, http.StatusOK, GetMealPlanResponse{Plan: plan, Days: days})
}

// HandleDelete handles DELETE /v1/meal-plans/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Meal plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete meal plan")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGenerate handles POST /v1/meal-plans/{id}/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	// пустое тело допустимо: start_date по умолчанию = start_date плана
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	res, err := h.service.Generate(r.Context(), userID, r.PathValue("id"), req.StartDate)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Meal plan not found")
			return
		}
		status, code, message := ledger.ErrorStatus(err)
		if errors.Is(err, storage.ErrDuplicate) {
			status, code, message = http.StatusConflict, "generate_failed", "Failed to generate plan: some days already have entries"
		}
		writeError(w, status, code, message)
		return
	}

	days := make([]ledger.DailyLogDTO, len(res.Entries))
	for i, e := range res.Entries {
		days[i] = ledger.ToDTO(e)
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Success: res.Success, MealCount: res.MealCount, Days: days})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
