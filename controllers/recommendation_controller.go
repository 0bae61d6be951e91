package controllers

import (
	"errors"
	"net/http"

	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/services"
)

const (
	msgMealPlanApplyFailed = "Не удалось применить план питания"
	msgWorkoutApplyFailed  = "Не удалось применить план тренировки"
	msgGenerateFailed      = "Не удалось сформировать рекомендацию"
)

// GenerateMealPlan handles POST /api/ai/recommendations/mealplan.
func (c *Controller) GenerateMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var opts services.MealPlanOptions
	if err := decodeBody(r, &opts); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	plan, err := c.recommender.MealPlan(r.Context(), userID, opts)
	if err != nil {
		writeGenerateError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GenerateWorkout handles POST /api/ai/recommendations/workout.
func (c *Controller) GenerateWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var opts services.WorkoutOptions
	if err := decodeBody(r, &opts); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	plan, err := c.recommender.Workout(r.Context(), userID, opts)
	if err != nil {
		writeGenerateError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func writeGenerateError(w http.ResponseWriter, userID uint, err error) {
	if errors.Is(err, services.ErrInvalidDate) {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return
	}
	logger.Error("Failed to generate recommendation", "user_id", userID, "error", err)
	writeError(w, http.StatusInternalServerError, msgGenerateFailed)
}

// ApplyMealPlan handles POST /api/ai/recommendations/mealplan/apply. Products
// created by the plan are queued for enrichment once the transaction commits.
func (c *Controller) ApplyMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req services.MealPlanRequest
	if err := decodePlan(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	result, err := c.mealPlans.Apply(r.Context(), userID, req)
	if err != nil {
		logger.Error("Meal plan apply request failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, msgMealPlanApplyFailed)
		return
	}

	if c.enrichment != nil {
		for _, id := range result.CreatedProductIDs {
			c.enrichment.Enqueue(id)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// ApplyWorkout handles POST /api/ai/recommendations/workout/apply.
func (c *Controller) ApplyWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req services.WorkoutPlanRequest
	if err := decodePlan(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	result, err := c.workouts.Apply(r.Context(), userID, req)
	if err != nil {
		logger.Error("Workout apply request failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, msgWorkoutApplyFailed)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
