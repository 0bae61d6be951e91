package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonkedw/project-shop-sub001/config"
)

func newOFFServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		assert.Equal(t, "Гречка", r.URL.Query().Get("search_terms"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEstimateFromOpenFoodFacts(t *testing.T) {
	srv := newOFFServer(t, `{"products":[
		{"product_name":"no energy","nutriments":{"energy-kcal_100g":0}},
		{"product_name":"Гречка ядрица","nutriments":{"energy-kcal_100g":313,"proteins_100g":12.6,"carbohydrates_100g":57.1,"fat_100g":3.3}}
	]}`)
	chatter := &fakeChatter{configured: true, reply: `{"calories":1}`}
	s := NewNutritionService(config.OpenFoodFacts{Enabled: true, BaseURL: srv.URL}, chatter)

	n, err := s.Estimate(context.Background(), " Гречка ")
	require.NoError(t, err)
	assert.True(t, n.Verified)
	assert.InDelta(t, 313, n.Calories, 0)
	assert.InDelta(t, 12.6, n.Protein, 1e-9)
	assert.Zero(t, chatter.calls, "LLM is not consulted when the database answers")
}

func TestEstimateFallsBackToLLM(t *testing.T) {
	srv := newOFFServer(t, `{"products":[]}`)
	chatter := &fakeChatter{configured: true, reply: `{"calories":1200,"protein":12,"carbs":150,"fat":-2}`}
	s := NewNutritionService(config.OpenFoodFacts{Enabled: true, BaseURL: srv.URL}, chatter)

	n, err := s.Estimate(context.Background(), "Гречка")
	require.NoError(t, err)
	assert.False(t, n.Verified)
	assert.InDelta(t, 900, n.Calories, 0, "calories are capped")
	assert.InDelta(t, 100, n.Carbs, 0, "macros are capped")
	assert.Zero(t, n.Fats)
	assert.Equal(t, 1, chatter.calls)
}

func TestEstimateWithoutSources(t *testing.T) {
	s := NewNutritionService(config.OpenFoodFacts{Enabled: false}, &fakeChatter{})
	_, err := s.Estimate(context.Background(), "Гречка")
	require.ErrorIs(t, err, ErrNoEstimate)

	_, err = s.Estimate(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNoEstimate)
}

func TestEstimateCachesByName(t *testing.T) {
	chatter := &fakeChatter{configured: true, reply: `{"calories":52,"protein":0.3,"carbs":14,"fat":0.2}`}
	s := NewNutritionService(config.OpenFoodFacts{Enabled: false}, chatter)

	first, err := s.Estimate(context.Background(), "Яблоко")
	require.NoError(t, err)
	second, err := s.Estimate(context.Background(), "Яблоко ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, chatter.calls)
}

func TestEstimateOpenFoodFactsUnavailable(t *testing.T) {
	chatter := &fakeChatter{configured: true, reply: `{"calories":130,"protein":2.7,"carbs":28,"fat":0.3}`}
	s := NewNutritionService(config.OpenFoodFacts{Enabled: true, BaseURL: "https://off.test"}, chatter)

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, `=~^https://off\.test/cgi/search\.pl`,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "maintenance"))
	s.httpClient.Transport = mock

	n, err := s.Estimate(context.Background(), "Рис")
	require.NoError(t, err)
	assert.False(t, n.Verified)
	assert.InDelta(t, 130, n.Calories, 0)
	assert.Equal(t, 1, mock.GetTotalCallCount())
	assert.Equal(t, 1, chatter.calls)
}
