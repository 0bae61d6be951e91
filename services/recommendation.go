package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/zonkedw/project-shop-sub001/llm"
	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/metrics"
)

// Plan sources reported with generated plans.
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

const defaultTargetCalories = 2000

// JSONChatter is the part of the LLM client the recommender needs.
type JSONChatter interface {
	Configured() bool
	ChatJSON(ctx context.Context, messages []llm.Message, out any) error
}

type MealPlanOptions struct {
	Date           string  `json:"date,omitempty"`
	TargetCalories float64 `json:"target_calories,omitempty"`
	Meals          int     `json:"meals,omitempty"`
	Preferences    string  `json:"preferences,omitempty"`
}

type WorkoutOptions struct {
	Date  string `json:"date,omitempty"`
	Focus string `json:"focus,omitempty"` // full, upper, lower
	Level string `json:"level,omitempty"` // beginner, intermediate, advanced
}

// GeneratedMealPlan is a meal plan ready to be reviewed and applied.
type GeneratedMealPlan struct {
	Source string   `json:"source"`
	Plan   MealPlan `json:"plan"`
}

// GeneratedWorkout is a workout plan ready to be reviewed and applied.
type GeneratedWorkout struct {
	Source string      `json:"source"`
	Plan   WorkoutPlan `json:"plan"`
}

// Recommender produces plans, asking the LLM first and falling back to
// fixed templates whenever the model is unavailable or returns nothing usable.
type Recommender struct {
	llm     JSONChatter
	metrics *metrics.PlanMetrics
	now     func() time.Time
}

func NewRecommender(client JSONChatter, m *metrics.PlanMetrics) *Recommender {
	return &Recommender{llm: client, metrics: m, now: time.Now}
}

// MealPlan generates a one-day meal plan.
func (r *Recommender) MealPlan(ctx context.Context, userID uint, opts MealPlanOptions) (*GeneratedMealPlan, error) {
	date, err := ResolveDate(r.now(), opts.Date)
	if err != nil {
		return nil, err
	}
	if opts.TargetCalories <= 0 {
		opts.TargetCalories = defaultTargetCalories
	}
	if opts.Meals != 3 {
		opts.Meals = 4
	}

	if plan, ok := r.aiMealPlan(ctx, userID, opts); ok {
		plan.Date = FormatDate(date)
		r.metrics.RecordRecommendation(metrics.KindMealPlan, SourceAI)
		return &GeneratedMealPlan{Source: SourceAI, Plan: plan}, nil
	}

	plan := RuleMealPlan(opts.TargetCalories, opts.Meals)
	plan.Date = FormatDate(date)
	r.metrics.RecordRecommendation(metrics.KindMealPlan, SourceRules)
	return &GeneratedMealPlan{Source: SourceRules, Plan: plan}, nil
}

// Workout generates a single workout.
func (r *Recommender) Workout(ctx context.Context, userID uint, opts WorkoutOptions) (*GeneratedWorkout, error) {
	date, err := ResolveDate(r.now(), opts.Date)
	if err != nil {
		return nil, err
	}
	opts.Focus = normalizeFocus(opts.Focus)
	opts.Level = normalizeLevel(opts.Level)

	if plan, ok := r.aiWorkout(ctx, userID, opts); ok {
		plan.Date = FormatDate(date)
		r.metrics.RecordRecommendation(metrics.KindWorkout, SourceAI)
		return &GeneratedWorkout{Source: SourceAI, Plan: plan}, nil
	}

	plan := RuleWorkout(opts.Focus, opts.Level)
	plan.Date = FormatDate(date)
	r.metrics.RecordRecommendation(metrics.KindWorkout, SourceRules)
	return &GeneratedWorkout{Source: SourceRules, Plan: plan}, nil
}

func (r *Recommender) aiMealPlan(ctx context.Context, userID uint, opts MealPlanOptions) (MealPlan, bool) {
	if r.llm == nil || !r.llm.Configured() {
		return MealPlan{}, false
	}

	prompt := fmt.Sprintf(`Составь рацион на один день примерно на %.0f ккал из %d приёмов пищи.
Пожелания: %s

Верни ТОЛЬКО JSON без пояснений:
{"plan": [{"title": "Завтрак", "items": [{"name": "Овсянка", "grams": 60, "calories": 220}]}]}`,
		opts.TargetCalories, opts.Meals, orDash(opts.Preferences))

	var plan MealPlan
	err := r.llm.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: "Ты диетолог. Отвечай строго валидным JSON, названия продуктов на русском."},
		{Role: "user", Content: prompt},
	}, &plan)
	if err != nil {
		logger.Warn("AI meal plan failed, using rule-based plan", "user_id", userID, "error", err)
		return MealPlan{}, false
	}
	if !hasNamedItem(plan) {
		logger.Warn("AI meal plan was empty, using rule-based plan", "user_id", userID)
		return MealPlan{}, false
	}
	return plan, true
}

func (r *Recommender) aiWorkout(ctx context.Context, userID uint, opts WorkoutOptions) (WorkoutPlan, bool) {
	if r.llm == nil || !r.llm.Configured() {
		return WorkoutPlan{}, false
	}

	prompt := fmt.Sprintf(`Составь одну силовую тренировку. Фокус: %s. Уровень: %s.

Верни ТОЛЬКО JSON без пояснений:
{"title": "...", "duration_min": 45, "sets": [{"exercise": {"name": "Приседания", "muscle_group": "legs"}, "set_number": 1, "reps": 10, "weight_kg": 40}]}`,
		opts.Focus, opts.Level)

	var plan WorkoutPlan
	err := r.llm.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: "Ты персональный тренер. Отвечай строго валидным JSON, названия упражнений на русском."},
		{Role: "user", Content: prompt},
	}, &plan)
	if err != nil {
		logger.Warn("AI workout failed, using rule-based workout", "user_id", userID, "error", err)
		return WorkoutPlan{}, false
	}
	for _, s := range plan.Sets {
		if strings.TrimSpace(s.Exercise.Name) != "" {
			return plan, true
		}
	}
	logger.Warn("AI workout was empty, using rule-based workout", "user_id", userID)
	return WorkoutPlan{}, false
}

func hasNamedItem(plan MealPlan) bool {
	for _, g := range plan.Meals {
		for _, it := range g.Items {
			if strings.TrimSpace(it.Name) != "" {
				return true
			}
		}
	}
	return false
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "нет"
	}
	return s
}

type templateFood struct {
	name        string
	kcalPer100  float64
	shareOfMeal float64
}

type mealTemplate struct {
	title string
	share float64
	foods []templateFood
}

var mealTemplates = []mealTemplate{
	{"Завтрак", 0.25, []templateFood{
		{"Овсянка", 370, 0.5},
		{"Яйцо", 140, 0.3},
		{"Банан", 90, 0.2},
	}},
	{"Обед", 0.35, []templateFood{
		{"Куриная грудка", 165, 0.45},
		{"Гречка отварная", 110, 0.35},
		{"Овощной салат", 40, 0.2},
	}},
	{"Ужин", 0.30, []templateFood{
		{"Лосось", 200, 0.5},
		{"Рис отварной", 130, 0.3},
		{"Брокколи", 35, 0.2},
	}},
	{"Перекус", 0.10, []templateFood{
		{"Творог", 120, 0.6},
		{"Яблоко", 52, 0.4},
	}},
}

// RuleMealPlan splits targetCalories over breakfast, lunch, dinner and,
// when meals is 4, a snack, using fixed foods.
func RuleMealPlan(targetCalories float64, meals int) MealPlan {
	templates := mealTemplates
	if meals == 3 {
		templates = mealTemplates[:3]
	}
	var totalShare float64
	for _, t := range templates {
		totalShare += t.share
	}

	plan := MealPlan{Meals: make([]MealGroup, 0, len(templates))}
	for _, t := range templates {
		mealKcal := targetCalories * t.share / totalShare
		group := MealGroup{Title: t.title}
		for _, f := range t.foods {
			kcal := mealKcal * f.shareOfMeal
			group.Items = append(group.Items, PlanItem{
				Name:     f.name,
				Grams:    Num(math.Round(kcal / f.kcalPer100 * 100)),
				Calories: Num(math.Round(kcal)),
			})
		}
		plan.Meals = append(plan.Meals, group)
	}
	return plan
}

type templateExercise struct {
	name        string
	muscleGroup string
	baseWeight  float64
}

var workoutFocus = map[string]struct {
	title     string
	exercises []templateExercise
}{
	"full": {"Тренировка на всё тело", []templateExercise{
		{"Приседания со штангой", "legs", 50},
		{"Жим лёжа", "chest", 40},
		{"Тяга верхнего блока", "back", 40},
		{"Планка", "core", 0},
	}},
	"upper": {"Тренировка верха тела", []templateExercise{
		{"Жим лёжа", "chest", 40},
		{"Тяга штанги в наклоне", "back", 35},
		{"Жим гантелей сидя", "shoulders", 12},
		{"Подъём гантелей на бицепс", "arms", 10},
	}},
	"lower": {"Тренировка ног", []templateExercise{
		{"Приседания со штангой", "legs", 50},
		{"Румынская тяга", "hamstrings", 40},
		{"Выпады с гантелями", "legs", 10},
		{"Подъёмы на носки", "calves", 30},
	}},
}

var workoutLevels = map[string]struct {
	reps   int
	factor float64
}{
	"beginner":     {12, 0.6},
	"intermediate": {10, 1.0},
	"advanced":     {8, 1.3},
}

const setsPerExercise = 3

func normalizeFocus(focus string) string {
	focus = strings.ToLower(strings.TrimSpace(focus))
	if _, ok := workoutFocus[focus]; ok {
		return focus
	}
	return "full"
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if _, ok := workoutLevels[level]; ok {
		return level
	}
	return "beginner"
}

// RuleWorkout builds a fixed workout for focus and level: three sets per
// exercise, working weights rounded to 2.5 kg.
func RuleWorkout(focus, level string) WorkoutPlan {
	f := workoutFocus[normalizeFocus(focus)]
	l := workoutLevels[normalizeLevel(level)]

	plan := WorkoutPlan{Title: f.title}
	n := 0
	for _, ex := range f.exercises {
		weight := math.Round(ex.baseWeight*l.factor/2.5) * 2.5
		for i := 0; i < setsPerExercise; i++ {
			n++
			plan.Sets = append(plan.Sets, PlanSet{
				Exercise:  PlanExercise{Name: ex.name, MuscleGroup: ex.muscleGroup},
				SetNumber: Num(float64(n)),
				Reps:      Num(float64(l.reps)),
				WeightKg:  Num(weight),
			})
		}
	}
	return plan
}
