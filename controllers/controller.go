package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/middleware"
	"github.com/zonkedw/project-shop-sub001/services"
)

const (
	msgUnauthorized   = "Требуется авторизация"
	msgInvalidRequest = "Некорректный запрос"
	msgInvalidDate    = "Некорректная дата"

	defaultListLimit = 20
	maxListLimit     = 100
)

// Enqueuer schedules background enrichment of a catalog product.
type Enqueuer interface {
	Enqueue(productID uint) bool
}

// Controller holds the dependencies of the HTTP handlers.
type Controller struct {
	db          *gorm.DB
	mealPlans   *services.NutritionPlanApplier
	workouts    *services.WorkoutPlanApplier
	recommender *services.Recommender
	enrichment  Enqueuer
	now         func() time.Time
}

// New creates a Controller. enrichment may be nil.
func New(db *gorm.DB, mealPlans *services.NutritionPlanApplier, workouts *services.WorkoutPlanApplier,
	recommender *services.Recommender, enrichment Enqueuer) *Controller {
	return &Controller{
		db:          db,
		mealPlans:   mealPlans,
		workouts:    workouts,
		recommender: recommender,
		enrichment:  enrichment,
		now:         time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requireUser writes 401 and returns false when the request carries no user.
func requireUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return 0, false
	}
	return userID, true
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves
// dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// decodePlan decodes an apply body. Plans come from a model and may carry
// values of the wrong JSON type; those fields keep their zero value and the
// plan is applied with defaults. Only a body that is not JSON is rejected.
func decodePlan(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		logger.Warn("Ignoring mistyped plan field", "field", typeErr.Field, "value", typeErr.Value)
		return nil
	}
	return err
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

// Health handles GET /healthz.
func (c *Controller) Health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		logger.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
