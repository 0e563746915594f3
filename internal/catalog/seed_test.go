package catalog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadSeed(t *testing.T) {
	meals, err := LoadSeed(filepath.Join("testdata", "meals.yaml"))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(meals) != 4 {
		t.Fatalf("len = %d, want 4", len(meals))
	}

	oatmeal := meals[0]
	if oatmeal.FiberG == nil || *oatmeal.FiberG != 5 {
		t.Errorf("fiber = %v, want 5", oatmeal.FiberG)
	}
	if diff := cmp.Diff([]string{"vegetarian"}, oatmeal.DietaryTags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if oatmeal.Servings != 1 {
		t.Errorf("servings default = %d, want 1", oatmeal.Servings)
	}

	salad := meals[1]
	if salad.Category != "lunch" || salad.Servings != 2 {
		t.Errorf("salad = %+v", salad)
	}
	if salad.FiberG != nil {
		t.Errorf("missing fiber should stay nil, got %v", *salad.FiberG)
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	if _, err := LoadSeed(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "meals: []", "no meals"},
		{"bad yaml", "meals: [", "parse seed"},
		{"bad id", "meals:\n  - id: x\n    name: A\n    category: lunch", "id"},
		{"no name", "meals:\n  - id: 11111111-1111-4111-8111-111111111111\n    category: lunch", "name is required"},
		{"bad category", "meals:\n  - id: 11111111-1111-4111-8111-111111111111\n    name: A\n    category: brunch", "category"},
		{"negative", "meals:\n  - id: 11111111-1111-4111-8111-111111111111\n    name: A\n    category: lunch\n    calories: -1", "non-negative"},
		{"duplicate", "meals:\n  - id: 11111111-1111-4111-8111-111111111111\n    name: A\n    category: lunch\n  - id: 11111111-1111-4111-8111-111111111111\n    name: B\n    category: snack", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
