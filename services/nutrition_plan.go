package services

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/catalog"
	"github.com/zonkedw/project-shop-sub001/database"
	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/metrics"
	"github.com/zonkedw/project-shop-sub001/models"
)

const (
	// AIMealNote marks meals created from a generated plan.
	AIMealNote = "added_by_ai"
	// AIProductCategory tags catalog products created from a generated plan.
	AIProductCategory = "ai"
)

const (
	defaultItemGrams       = 100.0
	defaultCaloriesPerGram = 1.5
	mealPlanAppliedMessage = "План питания добавлен в дневник"
)

// NutritionPlanApplier commits a generated meal plan as meals, meal items
// and, where needed, new catalog products, all in one transaction.
type NutritionPlanApplier struct {
	db      *gorm.DB
	metrics *metrics.PlanMetrics
	now     func() time.Time
}

// NewNutritionPlanApplier creates an applier over db. m may be nil.
func NewNutritionPlanApplier(db *gorm.DB, m *metrics.PlanMetrics) *NutritionPlanApplier {
	return &NutritionPlanApplier{db: db, metrics: m, now: time.Now}
}

// Apply persists every meal group of req for userID. Either all meals,
// items and created products are committed, or nothing is.
func (a *NutritionPlanApplier) Apply(ctx context.Context, userID uint, req MealPlanRequest) (*MealPlanResult, error) {
	started := a.now()
	result, err := a.apply(ctx, userID, req)
	a.metrics.RecordPlanApply(metrics.KindMealPlan, err, time.Since(started))
	if err != nil {
		logger.Error("Failed to apply meal plan", "user_id", userID, "error", err)
		return nil, err
	}
	a.metrics.RecordCatalogCreated(metrics.KindProduct, len(result.CreatedProductIDs))
	logger.Info("Meal plan applied", "user_id", userID, "date", result.Date,
		"meals_added", result.MealsAdded, "products_created", len(result.CreatedProductIDs))
	return result, nil
}

func (a *NutritionPlanApplier) apply(ctx context.Context, userID uint, req MealPlanRequest) (*MealPlanResult, error) {
	if userID == 0 {
		return nil, ErrNoUser
	}
	date, err := ResolveDate(a.now(), req.Date, req.Plan.Date)
	if err != nil {
		return nil, err
	}

	logger.Info("Applying meal plan", "user_id", userID, "date", FormatDate(date), "meals", len(req.Plan.Meals))

	result := &MealPlanResult{
		Message: mealPlanAppliedMessage,
		Date:    FormatDate(date),
		MealIDs: []uint{},
	}
	err = database.WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		for _, group := range req.Plan.Meals {
			mealID, created, err := a.applyMealGroup(tx, userID, date, group)
			if err != nil {
				return err
			}
			result.MealIDs = append(result.MealIDs, mealID)
			result.CreatedProductIDs = append(result.CreatedProductIDs, created...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.MealsAdded = len(req.Plan.Meals)
	return result, nil
}

// applyMealGroup inserts one meal with its items and stores the recomputed
// totals. It returns the meal id and the ids of products it created.
func (a *NutritionPlanApplier) applyMealGroup(tx *gorm.DB, userID uint, date time.Time, group MealGroup) (uint, []uint, error) {
	meal := models.Meal{
		UserID:   userID,
		MealDate: date,
		MealType: ClassifyMealType(group.Title),
		Notes:    AIMealNote,
	}
	if err := tx.Create(&meal).Error; err != nil {
		return 0, nil, stageErr("create meal", err)
	}

	var created []uint
	for _, item := range group.Items {
		name := catalog.NormalizeName(item.Name)
		if name == "" {
			continue
		}

		res, err := catalog.Resolve(tx, name, func(name string) *models.Product {
			return newPlanProduct(name, item, userID)
		})
		if err != nil {
			return 0, nil, stageErr("resolve product", err)
		}
		if res.IsCreated() {
			created = append(created, res.Entity.ID)
			logger.Debug("Created catalog product", "product_id", res.Entity.ID, "name", name)
		}

		mealItem := scaleMealItem(meal.ID, res.Entity, itemGrams(item))
		if err := tx.Create(&mealItem).Error; err != nil {
			return 0, nil, stageErr("create meal item", err)
		}
	}

	if err := recomputeMealTotals(tx, &meal); err != nil {
		return 0, nil, err
	}
	return meal.ID, created, nil
}

// newPlanProduct derives a catalog product from a plan item. The calorie
// density comes from the item's calories and grams; macros are unknown.
func newPlanProduct(name string, item PlanItem, userID uint) *models.Product {
	grams := itemGrams(item)
	calories := item.Calories.Or(math.Round(grams * defaultCaloriesPerGram))
	owner := userID
	return &models.Product{
		Name:           name,
		CaloriesPer100: math.Round(calories * 100 / math.Max(1, grams)),
		Category:       AIProductCategory,
		IsVerified:     false,
		CreatedBy:      &owner,
	}
}

// itemGrams returns the item's portion, treating a missing or non-positive
// weight as the default portion.
func itemGrams(item PlanItem) float64 {
	if !item.Grams.Valid || item.Grams.Value <= 0 {
		return defaultItemGrams
	}
	return item.Grams.Value
}

// scaleMealItem scales the per-100 g densities of p to grams.
func scaleMealItem(mealID uint, p *models.Product, grams float64) models.MealItem {
	factor := grams / 100
	return models.MealItem{
		MealID:    mealID,
		ProductID: p.ID,
		QuantityG: grams,
		Calories:  p.CaloriesPer100 * factor,
		Protein:   p.ProteinPer100 * factor,
		Carbs:     p.CarbsPer100 * factor,
		Fats:      p.FatsPer100 * factor,
	}
}

type mealTotals struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fats     float64
}

// recomputeMealTotals stores the sum of the meal's items on the meal row.
func recomputeMealTotals(tx *gorm.DB, meal *models.Meal) error {
	var totals mealTotals
	err := tx.Model(&models.MealItem{}).
		Select("COALESCE(SUM(calories), 0) AS calories, COALESCE(SUM(protein), 0) AS protein, "+
			"COALESCE(SUM(carbs), 0) AS carbs, COALESCE(SUM(fats), 0) AS fats").
		Where("meal_id = ?", meal.ID).
		Scan(&totals).Error
	if err != nil {
		return stageErr("sum meal items", err)
	}

	err = tx.Model(meal).Updates(map[string]any{
		"total_calories": totals.Calories,
		"total_protein":  totals.Protein,
		"total_carbs":    totals.Carbs,
		"total_fats":     totals.Fats,
	}).Error
	if err != nil {
		return stageErr("update meal totals", err)
	}
	return nil
}
