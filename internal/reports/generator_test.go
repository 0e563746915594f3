package reports

import (
	"testing"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/go-cmp/cmp"
)

func TestCalculateSummary(t *testing.T) {
	rows := []reportRow{
		{Date: "2026-02-10", Totals: storage.Nutrients{Calories: 2000, ProteinG: 100, CarbsG: 200, FatG: 70, FiberG: 25}, Mood: "good"},
		{Date: "2026-02-11", Totals: storage.Nutrients{Calories: 1501, ProteinG: 81, CarbsG: 150, FatG: 51}, Mood: "good"},
		{Date: "2026-02-12", Totals: storage.Nutrients{Calories: 1800, ProteinG: 90, CarbsG: 180, FatG: 60}, Mood: "fair"},
		{Date: "2026-02-13"},
	}

	want := Summary{
		DaysLogged:    4,
		AvgCalories:   1325,
		AvgProteinG:   67.8,
		AvgCarbsG:     132.5,
		AvgFatG:       45.3,
		AvgFiberG:     6.3,
		MoodBreakdown: map[string]int{"good": 2, "fair": 1},
	}
	if diff := cmp.Diff(want, calculateSummary(rows)); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratePDF_Empty(t *testing.T) {
	data, err := generatePDF(CreateReportRequest{From: "2026-02-01", To: "2026-02-07", Format: FormatPDF}, nil, calculateSummary(nil))
	if err != nil {
		t.Fatalf("generatePDF: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Errorf("not a PDF: %q", data[:min(len(data), 8)])
	}
}

func TestFormatMoods(t *testing.T) {
	if got := formatMoods(nil); got != "no data" {
		t.Errorf("got %q", got)
	}
	if got := formatMoods(map[string]int{"poor": 1, "excellent": 2}); got != "excellent 2, poor 1" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Grilled salmon with quinoa", 10); got != "Grilled s." {
		t.Errorf("got %q", got)
	}
	if got := truncate("Oatmeal", 10); got != "Oatmeal" {
		t.Errorf("got %q", got)
	}
}
