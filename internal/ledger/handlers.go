package ledger

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/meal-hub/internal/userctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSwapsLimit = 50
	maxSwapsLimit     = 500
)

// Handler handles HTTP requests for the daily ledger.
type Handler struct {
	service    *Service
	cronSecret string
	log        *zap.Logger
}

// NewHandler creates a ledger handler. An empty cronSecret disables the cron route.
func NewHandler(service *Service, cronSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, cronSecret: cronSecret, log: logger}
}

// HandleGetDay handles GET /v1/ledger/day?date=YYYY-MM-DD
func (h *Handler) HandleGetDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.service.Today()
	}

	entry, _, err := h.service.GetDay(r.Context(), userID, date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToDTO(entry))
}

// HandleUpdateDay handles PATCH /v1/ledger/day
func (h *Handler) HandleUpdateDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req UpdateDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if req.Date == "" {
		req.Date = h.service.Today()
	}

	entry, err := h.service.UpdateDay(r.Context(), userID, req.Date, DayPatch{Mood: req.Mood, Notes: req.Notes})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToDTO(entry))
}

// HandleAssign handles POST /v1/ledger/assign
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req AssignMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if !isUUID(req.MealID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal_id must be a UUID")
		return
	}

	entry, err := h.service.AssignMeal(r.Context(), userID, req.Date, req.MealSlot, req.MealID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToDTO(entry))
}

// HandleSwap handles POST /v1/ledger/swap
func (h *Handler) HandleSwap(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req SwapMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if !isUUID(req.OriginalMealID) || !isUUID(req.NewMealID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "original_meal_id and new_meal_id must be UUIDs")
		return
	}

	entry, rec, err := h.service.SwapMeal(r.Context(), userID, req.Date, req.MealSlot, req.OriginalMealID, req.NewMealID, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SwapResponse{Day: ToDTO(entry), Swap: toSwapDTO(rec)})
}

// HandleListSwaps handles GET /v1/ledger/swaps?from=&to=&limit=
func (h *Handler) HandleListSwaps(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	q := r.URL.Query()
	limit := defaultSwapsLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxSwapsLimit)
	}

	records, err := h.service.ListSwaps(r.Context(), userID, q.Get("from"), q.Get("to"), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := ListSwapsResponse{Swaps: make([]SwapRecordDTO, 0, len(records))}
	for _, rec := range records {
		resp.Swaps = append(resp.Swaps, toSwapDTO(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDailyReset handles POST /v1/cron/daily-reset (Authorization: Bearer CRON_SECRET)
func (h *Handler) HandleDailyReset(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" || !validBearer(r.Header.Get("Authorization"), h.cronSecret) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	date := h.service.Today()
	created, err := h.service.EnsureDays(r.Context(), date)
	if err != nil {
		h.log.Error("daily reset failed", zap.String("date", date), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DailyResetResponse{
		Success: true,
		Message: "Daily reset completed",
		Date:    date,
		Created: created,
	})
}

func validBearer(header, secret string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("ledger request failed", zap.Error(err))
	}
	writeError(w, status, code, message)
}

// ErrorStatus maps ledger errors to an HTTP status, error code and message.
func ErrorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized", "Authentication required"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found", strings.TrimPrefix(err.Error(), ErrNotFound.Error()+": ")
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict", "Concurrent update, try again"
	case errors.Is(err, ErrPartialFailure):
		return http.StatusInternalServerError, "partial_failure", "Meal swapped but swap history was not recorded"
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError, "persistence_error", "Failed to save changes"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
