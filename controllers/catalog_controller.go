package controllers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/models"
)

// ListProducts handles GET /api/products?search=&limit=.
func (c *Controller) ListProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	products := []models.Product{}
	if err := c.searchCatalog(r, &products).Error; err != nil {
		logger.Error("Failed to search products", "error", err)
		writeError(w, http.StatusInternalServerError, "Не удалось загрузить продукты")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// ListExercises handles GET /api/exercises?search=&limit=.
func (c *Controller) ListExercises(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	exercises := []models.Exercise{}
	if err := c.searchCatalog(r, &exercises).Error; err != nil {
		logger.Error("Failed to search exercises", "error", err)
		writeError(w, http.StatusInternalServerError, "Не удалось загрузить упражнения")
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

// searchCatalog runs a case-insensitive substring search on name.
func (c *Controller) searchCatalog(r *http.Request, dst any) *gorm.DB {
	q := r.URL.Query()
	tx := c.db.WithContext(r.Context())
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		tx = tx.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}
	return tx.Order("name").Limit(parseLimit(q.Get("limit"))).Find(dst)
}
