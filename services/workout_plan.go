package services

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/catalog"
	"github.com/zonkedw/project-shop-sub001/database"
	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/metrics"
	"github.com/zonkedw/project-shop-sub001/models"
)

const (
	// DefaultWorkoutTitle is used as session notes when a plan has no title.
	DefaultWorkoutTitle = "Тренировка от AI"

	MinWorkoutMinutes     = 15
	MaxWorkoutMinutes     = 120
	defaultWorkoutMinutes = 45
	minutesPerSet         = 3

	workoutAppliedMessage = "Тренировка добавлена в дневник"
)

// WorkoutDuration returns the session length in minutes: the explicit
// duration when present and non-zero, else minutesPerSet per planned set,
// else the default, clamped to [MinWorkoutMinutes, MaxWorkoutMinutes].
func WorkoutDuration(explicit Number, setCount int) int {
	minutes := float64(defaultWorkoutMinutes)
	switch {
	case explicit.Valid && explicit.Value != 0:
		minutes = explicit.Value
	case setCount > 0:
		minutes = float64(setCount * minutesPerSet)
	}
	minutes = math.Round(minutes)
	return int(math.Min(MaxWorkoutMinutes, math.Max(MinWorkoutMinutes, minutes)))
}

// WorkoutPlanApplier commits a generated workout as a completed session with
// its sets, creating catalog exercises on demand, in one transaction.
type WorkoutPlanApplier struct {
	db      *gorm.DB
	metrics *metrics.PlanMetrics
	now     func() time.Time
}

// NewWorkoutPlanApplier creates an applier over db. m may be nil.
func NewWorkoutPlanApplier(db *gorm.DB, m *metrics.PlanMetrics) *WorkoutPlanApplier {
	return &WorkoutPlanApplier{db: db, metrics: m, now: time.Now}
}

// Apply persists req.Plan for userID as one workout session.
func (a *WorkoutPlanApplier) Apply(ctx context.Context, userID uint, req WorkoutPlanRequest) (*WorkoutPlanResult, error) {
	started := a.now()
	result, created, err := a.apply(ctx, userID, req.Plan)
	a.metrics.RecordPlanApply(metrics.KindWorkout, err, time.Since(started))
	if err != nil {
		logger.Error("Failed to apply workout plan", "user_id", userID, "error", err)
		return nil, err
	}
	a.metrics.RecordCatalogCreated(metrics.KindExercise, created)
	logger.Info("Workout plan applied", "user_id", userID, "session_id", result.SessionID,
		"date", result.Date, "sets_added", result.SetsAdded, "exercises_created", created)
	return result, nil
}

func (a *WorkoutPlanApplier) apply(ctx context.Context, userID uint, plan WorkoutPlan) (*WorkoutPlanResult, int, error) {
	if userID == 0 {
		return nil, 0, ErrNoUser
	}
	date, err := ResolveDate(a.now(), plan.Date)
	if err != nil {
		return nil, 0, err
	}

	notes := strings.TrimSpace(plan.Title)
	if notes == "" {
		notes = DefaultWorkoutTitle
	}

	logger.Info("Applying workout plan", "user_id", userID, "date", FormatDate(date), "sets", len(plan.Sets))

	var (
		session models.WorkoutSession
		added   int
		created int
	)
	err = database.WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		start := a.now()
		session = models.WorkoutSession{
			UserID:      userID,
			SessionDate: date,
			StartTime:   &start,
			Notes:       notes,
		}
		if err := tx.Create(&session).Error; err != nil {
			return stageErr("create session", err)
		}

		counter := 0
		for _, set := range plan.Sets {
			name := catalog.NormalizeName(set.Exercise.Name)
			if name == "" {
				continue
			}
			counter++

			res, err := catalog.Resolve(tx, name, func(name string) *models.Exercise {
				return newPlanExercise(name, set.Exercise, userID)
			})
			if err != nil {
				return stageErr("resolve exercise", err)
			}
			if res.IsCreated() {
				created++
				logger.Debug("Created catalog exercise", "exercise_id", res.Entity.ID, "name", name)
			}

			row := models.WorkoutSet{
				SessionID:  session.ID,
				ExerciseID: res.Entity.ID,
				SetNumber:  int(set.SetNumber.Or(float64(counter))),
				Reps:       optionalInt(set.Reps),
				WeightKg:   optionalFloat(set.WeightKg),
			}
			if err := tx.Create(&row).Error; err != nil {
				return stageErr("create workout set", err)
			}
			added++
		}

		end := a.now()
		err := tx.Model(&session).Updates(map[string]any{
			"end_time":        end,
			"duration_min":    WorkoutDuration(plan.DurationMin, len(plan.Sets)),
			"total_volume_kg": gorm.Expr("COALESCE(total_volume_kg, 0)"),
			"completed":       true,
		}).Error
		return stageErr("complete session", err)
	})
	if err != nil {
		return nil, 0, err
	}

	return &WorkoutPlanResult{
		Message:   workoutAppliedMessage,
		SessionID: session.ID,
		Date:      FormatDate(date),
		SetsAdded: added,
	}, created, nil
}

func newPlanExercise(name string, ex PlanExercise, userID uint) *models.Exercise {
	owner := userID
	e := &models.Exercise{Name: name, CreatedBy: &owner}
	if group := strings.TrimSpace(ex.MuscleGroup); group != "" {
		e.MuscleGroup = &group
	}
	return e
}

func optionalInt(n Number) *int {
	if !n.Valid {
		return nil
	}
	v := int(math.Round(n.Value))
	return &v
}

func optionalFloat(n Number) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
