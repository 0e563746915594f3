package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/meal-hub/internal/storage"
)

// LogSource reads ledger entries of a user.
type LogSource interface {
	ListDailyLogs(ctx context.Context, userID, from, to string) ([]storage.DailyLog, error)
}

// MealLookup resolves slot meal ids to catalog rows.
type MealLookup interface {
	GetMeal(ctx context.Context, id string) (storage.Meal, bool, error)
}

// Generator generates PDF/CSV reports
type Generator struct {
	logs  LogSource
	meals MealLookup
}

func NewGenerator(logs LogSource, meals MealLookup) *Generator {
	return &Generator{logs: logs, meals: meals}
}

// reportRow is one ledger day with meal names resolved.
type reportRow struct {
	Date   string
	Meals  map[string]string // slot -> meal name
	Totals storage.Nutrients
	Mood   string
}

// Summary holds calculated summary statistics
type Summary struct {
	DaysLogged    int
	AvgCalories   float64
	AvgProteinG   float64
	AvgCarbsG     float64
	AvgFatG       float64
	AvgFiberG     float64
	MoodBreakdown map[string]int
}

// GenerateReport generates a report for userID and returns its bytes.
func (g *Generator) GenerateReport(ctx context.Context, userID string, req CreateReportRequest) ([]byte, error) {
	logs, err := g.logs.ListDailyLogs(ctx, userID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily logs: %w", err)
	}

	rows, err := g.buildRows(ctx, logs)
	if err != nil {
		return nil, err
	}

	switch req.Format {
	case FormatPDF:
		return generatePDF(req, rows, calculateSummary(rows))
	case FormatCSV:
		return generateCSV(rows)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func (g *Generator) buildRows(ctx context.Context, logs []storage.DailyLog) ([]reportRow, error) {
	names := make(map[string]string) // кэш id -> name
	rows := make([]reportRow, 0, len(logs))

	for i := range logs {
		l := &logs[i]
		row := reportRow{Date: l.Date, Meals: make(map[string]string, 4), Totals: l.Totals}
		if l.Mood != nil {
			row.Mood = *l.Mood
		}

		for _, slot := range storage.Slots {
			id := l.MealID(slot)
			if id == nil {
				continue
			}
			name, ok := names[*id]
			if !ok {
				meal, found, err := g.meals.GetMeal(ctx, *id)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve meal %s: %w", *id, err)
				}
				name = *id
				if found {
					name = meal.Name
				}
				names[*id] = name
			}
			row.Meals[slot] = name
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func generateCSV(rows []reportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", "breakfast", "lunch", "dinner", "snack", "calories", "protein_g", "carbs_g", "fat_g", "fiber_g", "mood"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range rows {
		record := []string{r.Date}
		for _, slot := range storage.Slots {
			record = append(record, r.Meals[slot])
		}
		record = append(record,
			strconv.FormatFloat(math.Round(r.Totals.Calories), 'f', 0, 64),
			formatGrams(r.Totals.ProteinG),
			formatGrams(r.Totals.CarbsG),
			formatGrams(r.Totals.FatG),
			formatGrams(r.Totals.FiberG),
			r.Mood,
		)
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// generatePDF uses the core Helvetica font; text goes through the cp1252
// translator, characters outside it are lost.
func generatePDF(req CreateReportRequest, rows []reportRow, summary Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Nutrition report")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s - %s", req.From, req.To))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Days logged: %d", summary.DaysLogged),
		fmt.Sprintf("Average calories: %.0f kcal", summary.AvgCalories),
		fmt.Sprintf("Average protein / carbs / fat: %.1f / %.1f / %.1f g", summary.AvgProteinG, summary.AvgCarbsG, summary.AvgFatG),
		fmt.Sprintf("Average fiber: %.1f g", summary.AvgFiberG),
		"Mood: " + formatMoods(summary.MoodBreakdown),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Days")
	pdf.Ln(8)

	drawDaysTable(pdf, rows, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func drawDaysTable(pdf *gofpdf.Fpdf, rows []reportRow, tr func(string) string) {
	widths := []float64{22, 32, 32, 32, 26, 14, 11, 11, 11}
	header := []string{"Date", "Breakfast", "Lunch", "Dinner", "Snack", "kcal", "P", "C", "F"}

	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range header {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	if len(rows) == 0 {
		pdf.CellFormat(sum(widths), 6, "No entries in this period", "1", 1, "C", false, 0, "")
		return
	}

	for _, r := range rows {
		pdf.CellFormat(widths[0], 6, r.Date, "1", 0, "C", false, 0, "")
		for i, slot := range storage.Slots {
			pdf.CellFormat(widths[i+1], 6, tr(truncate(r.Meals[slot], 20)), "1", 0, "L", false, 0, "")
		}
		pdf.CellFormat(widths[5], 6, fmt.Sprintf("%.0f", r.Totals.Calories), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, fmt.Sprintf("%.0f", r.Totals.ProteinG), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[7], 6, fmt.Sprintf("%.0f", r.Totals.CarbsG), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[8], 6, fmt.Sprintf("%.0f", r.Totals.FatG), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

func calculateSummary(rows []reportRow) Summary {
	s := Summary{DaysLogged: len(rows), MoodBreakdown: make(map[string]int)}
	if len(rows) == 0 {
		return s
	}

	var total storage.Nutrients
	for _, r := range rows {
		total.Calories += r.Totals.Calories
		total.ProteinG += r.Totals.ProteinG
		total.CarbsG += r.Totals.CarbsG
		total.FatG += r.Totals.FatG
		total.FiberG += r.Totals.FiberG
		if r.Mood != "" {
			s.MoodBreakdown[r.Mood]++
		}
	}

	n := float64(len(rows))
	s.AvgCalories = math.Round(total.Calories / n)
	s.AvgProteinG = round1(total.ProteinG / n)
	s.AvgCarbsG = round1(total.CarbsG / n)
	s.AvgFatG = round1(total.FatG / n)
	s.AvgFiberG = round1(total.FiberG / n)
	return s
}

func formatMoods(m map[string]int) string {
	if len(m) == 0 {
		return "no data"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s %d", k, m[k])
	}
	return buf.String()
}

func formatGrams(v float64) string {
	return strconv.FormatFloat(round1(v), 'f', 1, 64)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "."
}

func sum(vs []float64) float64 {
	var t float64
	for _, v := range vs {
		t += v
	}
	return t
}
