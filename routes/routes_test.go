package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zonkedw/project-shop-sub001/controllers"
	"github.com/zonkedw/project-shop-sub001/database"
	"github.com/zonkedw/project-shop-sub001/jobs"
	"github.com/zonkedw/project-shop-sub001/metrics"
	"github.com/zonkedw/project-shop-sub001/models"
	"github.com/zonkedw/project-shop-sub001/services"
)

const testSecret = "routes-secret"

func setupRouter(t *testing.T) (http.Handler, uint) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	user := models.User{Email: "runner@example.com"}
	require.NoError(t, db.Create(&user).Error)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewPlanMetrics(registry)
	require.NoError(t, err)

	worker := jobs.NewEnrichmentWorker(db, nil, 10, m)
	ctrl := controllers.New(db,
		services.NewNutritionPlanApplier(db, m),
		services.NewWorkoutPlanApplier(db, m),
		services.NewRecommender(nil, m),
		worker,
	)
	return SetupRouter(ctrl, Options{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"http://localhost:5173"},
		Registry:       registry,
		Worker:         worker,
	}), user.ID
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, target, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicEndpoints(t *testing.T) {
	h, _ := setupRouter(t)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics", "", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/nope", "", "").Code)
}

func TestRouterAPIRequiresToken(t *testing.T) {
	h, userID := setupRouter(t)

	rec := serve(h, http.MethodGet, "/api/meals", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/meals?date=2025-12-10", bearer(t, userID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouterApplyRecordsMetrics(t *testing.T) {
	h, userID := setupRouter(t)

	body := `{"plan":{"date":"2025-12-10","title":"Тренировка","sets":[{"exercise":{"name":"Жим"}}]}}`
	rec := serve(h, http.MethodPost, "/api/ai/recommendations/workout/apply", bearer(t, userID), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, rec.Body.String(), `plan_apply_total{kind="workout",outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `catalog_entities_created_total{kind="exercise"} 1`)
}

type oneShotSubscriber struct {
	update       jobs.ProductUpdate
	unsubscribed bool
}

func (s *oneShotSubscriber) Subscribe(ch chan jobs.ProductUpdate) {
	ch <- s.update
	close(ch)
}

func (s *oneShotSubscriber) Unsubscribe(chan jobs.ProductUpdate) {
	s.unsubscribed = true
}

func TestProductSSEStreamsUpdates(t *testing.T) {
	sub := &oneShotSubscriber{update: jobs.ProductUpdate{ProductID: 7, Name: "Яйцо", ProteinPer100: 12.6}}

	rec := httptest.NewRecorder()
	ProductSSE(sub)(rec, httptest.NewRequest(http.MethodGet, "/api/sse/products", nil))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: product_update\n")
	assert.Contains(t, body, `"product_id":7`)
	assert.True(t, sub.unsubscribed)
}
