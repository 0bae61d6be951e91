package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrInvalidDate is returned when a supplied plan date cannot be parsed.
	ErrInvalidDate = errors.New("invalid plan date")
	// ErrNoUser is returned when an Applier is called without a user identity.
	ErrNoUser = errors.New("user identity is required")
)

// ApplyError wraps a database failure with the Applier stage that failed.
type ApplyError struct {
	Stage string
	Err   error
}

func (e *ApplyError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &ApplyError{Stage: stage, Err: err}
}

// Number is a loosely typed plan number. Generated plans carry numbers as
// JSON numbers, numeric strings or null; anything unparseable is treated as
// absent rather than rejected.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a present Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Or returns the value, or def when the number is absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Num(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// PlanItem is one food entry of a meal group.
type PlanItem struct {
	Name     string `json:"name"`
	Grams    Number `json:"grams"`
	Calories Number `json:"calories"`
}

// MealGroup is one titled meal of a plan.
type MealGroup struct {
	Title string     `json:"title"`
	Items []PlanItem `json:"items"`
}

// MealPlan is a generated nutrition plan for one day.
type MealPlan struct {
	Date  string      `json:"date,omitempty"`
	Meals []MealGroup `json:"plan"`
}

// UnmarshalJSON accepts both the object form {date, plan: [...]} and a bare
// array of meal groups. Values of the wrong JSON type are left at their zero
// value instead of failing the whole plan.
func (p *MealPlan) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		*p = MealPlan{}
		return ignoreTypeErrors(json.Unmarshal(data, &p.Meals))
	}
	type plain MealPlan
	var out plain
	if err := ignoreTypeErrors(json.Unmarshal(data, &out)); err != nil {
		return err
	}
	*p = MealPlan(out)
	return nil
}

// ignoreTypeErrors drops *json.UnmarshalTypeError. encoding/json still
// decodes every other field when it reports one.
func ignoreTypeErrors(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return err
}

// MealPlanRequest is the body of a meal plan application.
type MealPlanRequest struct {
	Date string   `json:"date,omitempty"`
	Plan MealPlan `json:"plan"`
}

// MealPlanResult is returned after a meal plan was committed.
type MealPlanResult struct {
	Message    string `json:"message"`
	Date       string `json:"date"`
	MealsAdded int    `json:"meals_added"`
	MealIDs    []uint `json:"meal_ids"`

	// CreatedProductIDs lists catalog rows inserted by this application.
	CreatedProductIDs []uint `json:"-"`
}

// PlanExercise names the exercise of a workout set.
type PlanExercise struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscle_group,omitempty"`
}

// PlanSet is one set of a generated workout.
type PlanSet struct {
	Exercise  PlanExercise `json:"exercise"`
	SetNumber Number       `json:"set_number"`
	Reps      Number       `json:"reps"`
	WeightKg  Number       `json:"weight_kg"`
}

// WorkoutPlan is a generated workout for one day.
type WorkoutPlan struct {
	Date        string    `json:"date,omitempty"`
	Title       string    `json:"title,omitempty"`
	Sets        []PlanSet `json:"sets"`
	DurationMin Number    `json:"duration_min"`
}

// WorkoutPlanRequest is the body of a workout plan application.
type WorkoutPlanRequest struct {
	Plan WorkoutPlan `json:"plan"`
}

// WorkoutPlanResult is returned after a workout plan was committed.
type WorkoutPlanResult struct {
	Message   string `json:"message"`
	SessionID uint   `json:"session_id"`
	Date      string `json:"date"`
	SetsAdded int    `json:"sets_added"`
}

// ResolveDate returns the first non-blank candidate as a UTC calendar day,
// or the UTC day of now when every candidate is blank. Candidates may be
// plain dates or RFC3339 timestamps; only the date part is kept.
func ResolveDate(now time.Time, candidates ...string) (time.Time, error) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(c) > len(dateLayout) {
			c = c[:len(dateLayout)]
		}
		d, err := time.Parse(dateLayout, c)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, c)
		}
		return d, nil
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders a plan day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
