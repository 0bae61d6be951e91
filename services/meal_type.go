package services

import "strings"

// Meal type tags stored on meals.meal_type.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

var mealTypeKeywords = []struct {
	mealType string
	keywords []string
}{
	{MealTypeBreakfast, []string{"завтрак", "breakfast"}},
	{MealTypeLunch, []string{"обед", "lunch"}},
	{MealTypeDinner, []string{"ужин", "dinner"}},
}

// ClassifyMealType maps a free-form meal title to a meal type tag by
// case-insensitive substring match. Unmatched titles are snacks.
func ClassifyMealType(title string) string {
	lower := strings.ToLower(title)
	for _, group := range mealTypeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.mealType
			}
		}
	}
	return MealTypeSnack
}
