package controllers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/models"
	"github.com/zonkedw/project-shop-sub001/services"
)

// ListMeals handles GET /api/meals?date=YYYY-MM-DD.
func (c *Controller) ListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, ok := c.dayParam(w, r)
	if !ok {
		return
	}

	meals := []models.Meal{}
	err := c.db.WithContext(r.Context()).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("meal_item_id") }).
		Preload("Items.Product").
		Where("user_id = ? AND meal_date >= ? AND meal_date < ?", userID, day, day.AddDate(0, 0, 1)).
		Order("meal_id").
		Find(&meals).Error
	if err != nil {
		logger.Error("Failed to list meals", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Не удалось загрузить дневник питания")
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

// ListWorkouts handles GET /api/workouts?date=YYYY-MM-DD.
func (c *Controller) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, ok := c.dayParam(w, r)
	if !ok {
		return
	}

	sessions := []models.WorkoutSession{}
	err := c.db.WithContext(r.Context()).
		Preload("Sets", func(db *gorm.DB) *gorm.DB { return db.Order("set_id") }).
		Preload("Sets.Exercise").
		Where("user_id = ? AND session_date >= ? AND session_date < ?", userID, day, day.AddDate(0, 0, 1)).
		Order("session_id").
		Find(&sessions).Error
	if err != nil {
		logger.Error("Failed to list workouts", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Не удалось загрузить дневник тренировок")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (c *Controller) dayParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	day, err := services.ResolveDate(c.now(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidDate)
		return time.Time{}, false
	}
	return day, true
}
