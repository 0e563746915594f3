package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Handler handles HTTP requests for the meal library.
type Handler struct {
	service *Service
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleList handles GET /v1/meals?category=&q=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	meals, err := h.service.List(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		if errors.Is(err, ErrInvalidCategory) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list meals")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ListMealsResponse{Meals: meals, Count: len(meals)})
}

// HandleGet handles GET /v1/meals/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal id is required")
		return
	}

	meal, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMealNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Meal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get meal")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(meal)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
