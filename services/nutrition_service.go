package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zonkedw/project-shop-sub001/config"
	"github.com/zonkedw/project-shop-sub001/llm"
	"github.com/zonkedw/project-shop-sub001/logger"
)

// ErrNoEstimate is returned when no source could estimate a product.
var ErrNoEstimate = errors.New("no nutrition estimate available")

// Nutrients are densities per 100 g.
type Nutrients struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fat"`
	// Verified is true when the values come from a product database rather
	// than a model estimate.
	Verified bool `json:"-"`
}

const estimateCacheTTL = 24 * time.Hour

// NutritionService estimates per-100 g nutrients for catalog products.
// Successful estimates are cached by lowercased name.
type NutritionService struct {
	llm        JSONChatter
	offEnabled bool
	offBaseURL string
	httpClient *http.Client
	cache      *cache.Cache
}

func NewNutritionService(cfg config.OpenFoodFacts, client JSONChatter) *NutritionService {
	return &NutritionService{
		llm:        client,
		offEnabled: cfg.Enabled && cfg.BaseURL != "",
		offBaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Second},
		cache:      cache.New(estimateCacheTTL, estimateCacheTTL*2),
	}
}

// Estimate tries Open Food Facts first and falls back to the LLM.
func (s *NutritionService) Estimate(ctx context.Context, name string) (Nutrients, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Nutrients{}, ErrNoEstimate
	}

	cacheKey := strings.ToLower(name)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(Nutrients), nil
	}

	n, err := s.estimate(ctx, name)
	if err != nil {
		return Nutrients{}, err
	}
	s.cache.Set(cacheKey, n, cache.DefaultExpiration)
	return n, nil
}

func (s *NutritionService) estimate(ctx context.Context, name string) (Nutrients, error) {
	if s.offEnabled {
		n, err := s.fetchFromOpenFoodFacts(ctx, name)
		if err == nil {
			logger.Info("Nutrition fetched from Open Food Facts", "product", name)
			return n, nil
		}
		logger.Debug("Open Food Facts lookup failed", "product", name, "error", err)
	}

	if s.llm == nil || !s.llm.Configured() {
		return Nutrients{}, ErrNoEstimate
	}
	return s.estimateWithLLM(ctx, name)
}

func (s *NutritionService) fetchFromOpenFoodFacts(ctx context.Context, query string) (Nutrients, error) {
	q := url.Values{}
	q.Set("search_terms", query)
	q.Set("search_simple", "1")
	q.Set("action", "process")
	q.Set("json", "1")
	q.Set("page_size", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.offBaseURL+"/cgi/search.pl?"+q.Encode(), nil)
	if err != nil {
		return Nutrients{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Nutrients{}, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Nutrients{}, fmt.Errorf("search status %d", resp.StatusCode)
	}

	var result struct {
		Products []struct {
			ProductName string `json:"product_name"`
			Nutriments  struct {
				EnergyKcal100g    json.Number `json:"energy-kcal_100g"`
				Proteins100g      json.Number `json:"proteins_100g"`
				Carbohydrates100g json.Number `json:"carbohydrates_100g"`
				Fat100g           json.Number `json:"fat_100g"`
			} `json:"nutriments"`
		} `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Nutrients{}, fmt.Errorf("decode search response: %w", err)
	}

	for _, p := range result.Products {
		kcal, _ := p.Nutriments.EnergyKcal100g.Float64()
		// Only accept if we have meaningful energy data
		if kcal <= 0 {
			continue
		}
		protein, _ := p.Nutriments.Proteins100g.Float64()
		carbs, _ := p.Nutriments.Carbohydrates100g.Float64()
		fat, _ := p.Nutriments.Fat100g.Float64()
		return capNutrients(Nutrients{
			Calories: kcal,
			Protein:  protein,
			Carbs:    carbs,
			Fats:     fat,
			Verified: true,
		}), nil
	}
	return Nutrients{}, fmt.Errorf("no product with energy data for %q", query)
}

func (s *NutritionService) estimateWithLLM(ctx context.Context, name string) (Nutrients, error) {
	logger.Info("Using LLM to estimate nutrition", "product", name)

	prompt := fmt.Sprintf(`Provide nutritional information per 100g for this food: %s

Return ONLY a JSON object:
{
  "calories": float,
  "protein": float,
  "carbs": float,
  "fat": float
}`, name)

	var data Nutrients
	err := s.llm.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: "You are a nutrition expert. Provide estimated nutritional data per 100g. Use average values for the food."},
		{Role: "user", Content: prompt},
	}, &data)
	if err != nil {
		return Nutrients{}, fmt.Errorf("llm estimate: %w", err)
	}
	data.Verified = false
	return capNutrients(data), nil
}

// capNutrients clamps values to what 100 g can physically contain: pure fat
// is about 900 kcal and no macro exceeds 100 g.
func capNutrients(n Nutrients) Nutrients {
	if n.Calories > 900 {
		logger.Warn("Insane calorie value detected, capping at 900", "val", n.Calories)
		n.Calories = 900
	}
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	n.Calories = max(n.Calories, 0)
	n.Protein = clamp(n.Protein)
	n.Carbs = clamp(n.Carbs)
	n.Fats = clamp(n.Fats)
	return n
}
