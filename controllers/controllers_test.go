package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zonkedw/project-shop-sub001/database"
	"github.com/zonkedw/project-shop-sub001/middleware"
	"github.com/zonkedw/project-shop-sub001/models"
	"github.com/zonkedw/project-shop-sub001/services"
)

type recordingEnqueuer struct {
	ids []uint
}

func (e *recordingEnqueuer) Enqueue(id uint) bool {
	e.ids = append(e.ids, id)
	return true
}

type testEnv struct {
	db       *gorm.DB
	userID   uint
	ctrl     *Controller
	enqueued *recordingEnqueuer
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	user := models.User{Email: "athlete@example.com", Name: "Athlete"}
	require.NoError(t, db.Create(&user).Error)

	enq := &recordingEnqueuer{}
	ctrl := New(db,
		services.NewNutritionPlanApplier(db, nil),
		services.NewWorkoutPlanApplier(db, nil),
		services.NewRecommender(nil, nil),
		enq,
	)
	return &testEnv{db: db, userID: user.ID, ctrl: ctrl, enqueued: enq}
}

func (e *testEnv) do(t *testing.T, h http.HandlerFunc, method, target, body string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req = req.WithContext(middleware.WithUserID(req.Context(), e.userID))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func failInsertsInto(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("injected failure"))
		}
	})
	require.NoError(t, err)
}

const mealPlanBody = `{"date":"2025-12-10","plan":[{"title":"Завтрак","items":[{"name":"Яйцо","grams":50,"calories":70}]}]}`

func TestApplyMealPlanEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, env.ctrl.ApplyMealPlan, http.MethodPost, "/api/ai/recommendations/mealplan/apply", mealPlanBody, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[map[string]any](t, rec)
	assert.Equal(t, "2025-12-10", res["date"])
	assert.EqualValues(t, 1, res["meals_added"])
	assert.NotContains(t, res, "CreatedProductIDs")
	assert.Len(t, env.enqueued.ids, 1, "created products are queued for enrichment")

	rec = env.do(t, env.ctrl.ListMeals, http.MethodGet, "/api/meals?date=2025-12-10", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	meals := decode[[]models.Meal](t, rec)
	require.Len(t, meals, 1)
	assert.InDelta(t, 70, meals[0].TotalCalories, 0.001)
	require.Len(t, meals[0].Items, 1)
	require.NotNil(t, meals[0].Items[0].Product)
	assert.Equal(t, "Яйцо", meals[0].Items[0].Product.Name)

	rec = env.do(t, env.ctrl.ListMeals, http.MethodGet, "/api/meals?date=2025-12-11", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Meal](t, rec))
}

func TestApplyMealPlanFailureReturnsLocalizedError(t *testing.T) {
	env := setupTestEnv(t)
	failInsertsInto(t, env.db, "meal_items")

	rec := env.do(t, env.ctrl.ApplyMealPlan, http.MethodPost, "/api/ai/recommendations/mealplan/apply", mealPlanBody, true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": msgMealPlanApplyFailed}, decode[map[string]string](t, rec))
	assert.NotContains(t, rec.Body.String(), "injected")

	var meals, products int64
	require.NoError(t, env.db.Model(&models.Meal{}).Count(&meals).Error)
	require.NoError(t, env.db.Model(&models.Product{}).Count(&products).Error)
	assert.Zero(t, meals)
	assert.Zero(t, products)
	assert.Empty(t, env.enqueued.ids, "nothing is queued when the transaction rolls back")
}

func TestApplyWorkoutEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"plan":{"date":"2025-12-10","title":"Тренировка","sets":[{"exercise":{"name":"Жим"},"reps":10,"weight_kg":40}]}}`
	rec := env.do(t, env.ctrl.ApplyWorkout, http.MethodPost, "/api/ai/recommendations/workout/apply", body, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[services.WorkoutPlanResult](t, rec)
	assert.NotZero(t, res.SessionID)
	assert.Equal(t, 1, res.SetsAdded)

	rec = env.do(t, env.ctrl.ListWorkouts, http.MethodGet, "/api/workouts?date=2025-12-10", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decode[[]models.WorkoutSession](t, rec)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Sets, 1)
	require.NotNil(t, sessions[0].Sets[0].Exercise)
	assert.Equal(t, "Жим", sessions[0].Sets[0].Exercise.Name)

	rec = env.do(t, env.ctrl.ApplyWorkout, http.MethodPost, "/api/ai/recommendations/workout/apply",
		`{"plan":{"date":"not-a-date","sets":[]}}`, true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": msgWorkoutApplyFailed}, decode[map[string]string](t, rec))
}

func TestEndpointsRequireUser(t *testing.T) {
	env := setupTestEnv(t)
	handlers := map[string]http.HandlerFunc{
		"apply mealplan": env.ctrl.ApplyMealPlan,
		"apply workout":  env.ctrl.ApplyWorkout,
		"gen mealplan":   env.ctrl.GenerateMealPlan,
		"gen workout":    env.ctrl.GenerateWorkout,
		"meals":          env.ctrl.ListMeals,
		"workouts":       env.ctrl.ListWorkouts,
		"products":       env.ctrl.ListProducts,
		"exercises":      env.ctrl.ListExercises,
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, h, http.MethodPost, "/", mealPlanBody, false)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	env := setupTestEnv(t)
	for _, h := range []http.HandlerFunc{env.ctrl.ApplyMealPlan, env.ctrl.ApplyWorkout, env.ctrl.GenerateMealPlan} {
		rec := env.do(t, h, http.MethodPost, "/", `{"plan":`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := env.do(t, env.ctrl.ApplyMealPlan, http.MethodPost, "/", ``, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "apply needs a body")
}

func TestApplyDefaultsMistypedPlanFields(t *testing.T) {
	env := setupTestEnv(t)

	body := `{"date":"2025-12-10","plan":[{"title":5,"items":[{"name":"Яйцо","grams":50,"calories":70}]}]}`
	rec := env.do(t, env.ctrl.ApplyMealPlan, http.MethodPost, "/api/ai/recommendations/mealplan/apply", body, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var meal models.Meal
	require.NoError(t, env.db.First(&meal).Error)
	assert.Equal(t, services.MealTypeSnack, meal.MealType)
	assert.InDelta(t, 70, meal.TotalCalories, 0.001)

	body = `{"plan":{"date":"2025-12-10","title":5,"sets":[{"exercise":{"name":"Жим"},"reps":"10"}]}}`
	rec = env.do(t, env.ctrl.ApplyWorkout, http.MethodPost, "/api/ai/recommendations/workout/apply", body, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session models.WorkoutSession
	require.NoError(t, env.db.Preload("Sets").First(&session).Error)
	assert.Equal(t, services.DefaultWorkoutTitle, session.Notes)
	require.Len(t, session.Sets, 1)
	require.NotNil(t, session.Sets[0].Reps)
	assert.Equal(t, 10, *session.Sets[0].Reps)
}

func TestGenerateFallsBackToRules(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, env.ctrl.GenerateMealPlan, http.MethodPost, "/", ``, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	meal := decode[services.GeneratedMealPlan](t, rec)
	assert.Equal(t, services.SourceRules, meal.Source)
	assert.NotEmpty(t, meal.Plan.Meals)

	rec = env.do(t, env.ctrl.GenerateWorkout, http.MethodPost, "/", `{"focus":"lower","date":"2025-12-12"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	workout := decode[services.GeneratedWorkout](t, rec)
	assert.Equal(t, "2025-12-12", workout.Plan.Date)
	assert.NotEmpty(t, workout.Plan.Sets)

	rec = env.do(t, env.ctrl.GenerateWorkout, http.MethodPost, "/", `{"date":"12/12/2025"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCatalog(t *testing.T) {
	env := setupTestEnv(t)
	for _, name := range []string{"Oatmeal", "Oat milk", "Rice", "Яйцо куриное"} {
		require.NoError(t, env.db.Create(&models.Product{Name: name}).Error)
	}
	require.NoError(t, env.db.Create(&models.Exercise{Name: "Squat"}).Error)

	rec := env.do(t, env.ctrl.ListProducts, http.MethodGet, "/api/products?search=OAT", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]models.Product](t, rec)
	require.Len(t, products, 2)
	assert.Equal(t, "Oat milk", products[0].Name)

	rec = env.do(t, env.ctrl.ListProducts, http.MethodGet, "/api/products?search="+url.QueryEscape("Яйцо"), "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	products = decode[[]models.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "Яйцо куриное", products[0].Name)

	rec = env.do(t, env.ctrl.ListProducts, http.MethodGet, "/api/products?limit=1", "", true)
	assert.Len(t, decode[[]models.Product](t, rec), 1)

	rec = env.do(t, env.ctrl.ListExercises, http.MethodGet, "/api/exercises?search=squ", "", true)
	assert.Len(t, decode[[]models.Exercise](t, rec), 1)
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, env.ctrl.Health, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}
