package catalog

// MealDTO represents a meal in API responses.
type MealDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category"`
	Calories        float64  `json:"calories"`
	ProteinG        float64  `json:"protein_grams"`
	CarbsG          float64  `json:"carbs_grams"`
	FatG            float64  `json:"fat_grams"`
	FiberG          *float64 `json:"fiber_grams"`
	PrepTimeMinutes int      `json:"prep_time_minutes"`
	CookTimeMinutes int      `json:"cook_time_minutes"`
	Servings        int      `json:"servings"`
	DietaryTags     []string `json:"dietary_tags"`
	Difficulty      string   `json:"difficulty,omitempty"`
}

// ListMealsResponse represents the response for GET /v1/meals.
type ListMealsResponse struct {
	Meals []MealDTO `json:"meals"`
	Count int       `json:"count"`
}
