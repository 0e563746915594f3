package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
)

var (
	apiBase  string
	token    string
	client   = &http.Client{Timeout: 30 * time.Second}
	testDate string

	// состояние между шагами
	mealsBySlot = make(map[string][]mealRef)
	assigned    mealRef
	planID      string
	reportID    string
	eventID     string
)

var errSkip = errors.New("skipped")

type mealRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type dayResponse struct {
	Date          string  `json:"date"`
	Exists        bool    `json:"exists"`
	TotalCalories float64 `json:"total_calories"`
	Version       int     `json:"version"`
}

func main() {
	fmt.Println("=== Meal Hub E2E Smoke Test ===")
	fmt.Println()

	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	token = getEnv("SMOKE_TOKEN", "")
	testDate = getEnv("SMOKE_DATE", time.Now().Format("2006-01-02"))

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Printf("Date: %s\n", testDate)
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Dev Token", testDevToken},
		{"List Meals", testListMeals},
		{"Assign Meal", testAssignMeal},
		{"Get Day", testGetDay},
		{"Swap Meal", testSwapMeal},
		{"List Swaps", testListSwaps},
		{"Update Mood", testUpdateMood},
		{"Create Meal Plan", testCreatePlan},
		{"Generate Weekly Plan", testGeneratePlan},
		{"Create Social Event", testCreateEvent},
		{"List Social Events", testListEvents},
		{"Delete Social Event", testDeleteEvent},
		{"Analytics Summary", testAnalytics},
		{"Create Report (CSV)", testCreateReport},
		{"Download Report", testDownloadReport},
		{"Delete Report", testDeleteReport},
		{"Delete Meal Plan", testDeletePlan},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		err := step.fn()
		if errors.Is(err, errSkip) {
			fmt.Printf("⏭  SKIPPED (%v)\n", err)
			continue
		}
		if err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	_, err := doJSON("GET", "/healthz", nil, nil, http.StatusOK)
	return err
}

func testDevToken() error {
	if token != "" {
		return fmt.Errorf("%w: SMOKE_TOKEN set", errSkip)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	status, err := doJSON("POST", "/v1/auth/dev", map[string]string{"user_id": "smoke-user"}, &resp, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: AUTH_MODE=none", errSkip)
	}
	token = resp.AccessToken
	return nil
}

func testListMeals() error {
	var resp struct {
		Meals []mealRef `json:"meals"`
	}
	if _, err := doJSON("GET", "/v1/meals", nil, &resp, http.StatusOK); err != nil {
		return err
	}
	if len(resp.Meals) == 0 {
		return fmt.Errorf("meal catalog is empty; seed master_meals first")
	}
	for _, m := range resp.Meals {
		mealsBySlot[m.Category] = append(mealsBySlot[m.Category], m)
	}
	return nil
}

func testAssignMeal() error {
	for _, slot := range []string{"breakfast", "lunch", "dinner", "snack"} {
		if len(mealsBySlot[slot]) > 0 {
			assigned = mealsBySlot[slot][0]
			break
		}
	}

	var day dayResponse
	_, err := doJSON("POST", "/v1/ledger/assign", map[string]string{
		"date":      testDate,
		"meal_slot": assigned.Category,
		"meal_id":   assigned.ID,
	}, &day, http.StatusOK)
	if err != nil {
		return err
	}
	if !day.Exists || day.Version < 1 {
		return fmt.Errorf("unexpected day after assign: %+v", day)
	}
	return nil
}

func testGetDay() error {
	var day dayResponse
	if _, err := doJSON("GET", "/v1/ledger/day?date="+testDate, nil, &day, http.StatusOK); err != nil {
		return err
	}
	if !day.Exists {
		return fmt.Errorf("day %s does not exist after assign", testDate)
	}
	return nil
}

func testSwapMeal() error {
	pool := mealsBySlot[assigned.Category]
	if len(pool) < 2 {
		return fmt.Errorf("%w: only one %s meal in catalog", errSkip, assigned.Category)
	}

	replacement := pool[1]
	_, err := doJSON("POST", "/v1/ledger/swap", map[string]any{
		"date":             testDate,
		"meal_slot":        assigned.Category,
		"original_meal_id": assigned.ID,
		"new_meal_id":      replacement.ID,
		"reason":           "smoke test",
	}, nil, http.StatusOK)
	if err != nil {
		return err
	}
	assigned = replacement
	return nil
}

func testListSwaps() error {
	var resp struct {
		Swaps []json.RawMessage `json:"swaps"`
	}
	_, err := doJSON("GET", "/v1/ledger/swaps?from="+testDate+"&to="+testDate, nil, &resp, http.StatusOK)
	return err
}

func testUpdateMood() error {
	_, err := doJSON("PATCH", "/v1/ledger/day", map[string]string{"date": testDate, "mood": "good"}, nil, http.StatusOK)
	return err
}

func testCreatePlan() error {
	// далёкая дата, чтобы не пересекаться с прошлыми прогонами
	start := time.Now().AddDate(2, 0, rand.IntN(3000)).Format("2006-01-02")

	var plan struct {
		ID string `json:"id"`
	}
	_, err := doJSON("POST", "/v1/meal-plans", map[string]any{
		"name":            "Smoke plan",
		"start_date":      start,
		"target_calories": 2000,
	}, &plan, http.StatusCreated)
	if err != nil {
		return err
	}
	planID = plan.ID
	return nil
}

func testGeneratePlan() error {
	var resp struct {
		Success   bool `json:"success"`
		MealCount int  `json:"meal_count"`
	}
	if _, err := doJSON("POST", "/v1/meal-plans/"+planID+"/generate", nil, &resp, http.StatusOK); err != nil {
		return err
	}
	if !resp.Success || resp.MealCount != 7 {
		return fmt.Errorf("unexpected generate result: %+v", resp)
	}
	return nil
}

func testCreateEvent() error {
	var event struct {
		ID string `json:"id"`
	}
	_, err := doJSON("POST", "/v1/social-events", map[string]any{
		"title":      "Smoke dinner",
		"event_date": testDate,
		"event_type": "restaurant",
	}, &event, http.StatusCreated)
	if err != nil {
		return err
	}
	eventID = event.ID
	return nil
}

func testListEvents() error {
	var resp struct {
		Events []struct {
			ID string `json:"id"`
		} `json:"events"`
	}
	if _, err := doJSON("GET", "/v1/social-events?from="+testDate, nil, &resp, http.StatusOK); err != nil {
		return err
	}
	for _, e := range resp.Events {
		if e.ID == eventID {
			return nil
		}
	}
	return fmt.Errorf("event %s not listed", eventID)
}

func testDeleteEvent() error {
	_, err := doJSON("DELETE", "/v1/social-events/"+eventID, nil, nil, http.StatusNoContent)
	return err
}

func testAnalytics() error {
	var resp struct {
		TotalLogs int `json:"total_logs"`
	}
	if _, err := doJSON("GET", "/v1/analytics/summary?days=7", nil, &resp, http.StatusOK); err != nil {
		return err
	}
	if resp.TotalLogs < 1 {
		return fmt.Errorf("expected at least one logged day, got %d", resp.TotalLogs)
	}
	return nil
}

func testCreateReport() error {
	to, err := time.Parse("2006-01-02", testDate)
	if err != nil {
		return err
	}
	from := to.AddDate(0, 0, -6).Format("2006-01-02")
	var resp struct {
		ID string `json:"id"`
	}
	_, err = doJSON("POST", "/v1/reports", map[string]string{
		"from":   from,
		"to":     testDate,
		"format": "csv",
	}, &resp, http.StatusCreated)
	if err != nil {
		return err
	}
	reportID = resp.ID
	return nil
}

func testDownloadReport() error {
	req, err := http.NewRequest("GET", apiBase+"/v1/reports/"+reportID+"/download", nil)
	if err != nil {
		return err
	}
	addAuth(req)

	// редирект на presigned URL клиент пройдёт сам
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(body))
	}
	if !bytes.HasPrefix(body, []byte("date,")) {
		return fmt.Errorf("unexpected CSV header: %s", truncate(body))
	}
	return nil
}

func testDeleteReport() error {
	_, err := doJSON("DELETE", "/v1/reports/"+reportID, nil, nil, http.StatusNoContent)
	return err
}

func testDeletePlan() error {
	_, err := doJSON("DELETE", "/v1/meal-plans/"+planID, nil, nil, http.StatusNoContent)
	return err
}

// Helper functions

// doJSON sends body as JSON and decodes the response into out when the
// status is one of want.
func doJSON(method, path string, body, out any, want ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	for _, code := range want {
		if resp.StatusCode == code {
			if out != nil && code < 300 && len(data) > 0 {
				if err := json.Unmarshal(data, out); err != nil {
					return resp.StatusCode, fmt.Errorf("decode response: %w", err)
				}
			}
			return resp.StatusCode, nil
		}
	}
	return resp.StatusCode, fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(data))
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func truncate(b []byte) string {
	if len(b) > 512 {
		return string(b[:512]) + "..."
	}
	return string(b)
}
