package jobs

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/metrics"
	"github.com/zonkedw/project-shop-sub001/models"
	"github.com/zonkedw/project-shop-sub001/services"
)

// Estimator produces per-100 g nutrients for a product name.
type Estimator interface {
	Estimate(ctx context.Context, name string) (services.Nutrients, error)
}

// EnrichmentJob asks the worker to fill in macros of one catalog product.
type EnrichmentJob struct {
	ProductID uint
}

// ProductUpdate is sent to subscribers when a product's macros were stored.
type ProductUpdate struct {
	ProductID      uint    `json:"product_id"`
	Name           string  `json:"name"`
	CaloriesPer100 float64 `json:"calories_per_100"`
	ProteinPer100  float64 `json:"protein_per_100"`
	CarbsPer100    float64 `json:"carbs_per_100"`
	FatsPer100     float64 `json:"fats_per_100"`
	Verified       bool    `json:"verified"`
}

// EnrichmentWorker estimates macros for products created from generated
// plans. Products are processed one at a time in a background goroutine.
type EnrichmentWorker struct {
	db        *gorm.DB
	estimator Estimator
	metrics   *metrics.PlanMetrics
	jobs      chan EnrichmentJob

	subscribers map[chan ProductUpdate]bool
	subMux      sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewEnrichmentWorker creates a stopped worker with a queue of queueSize jobs.
func NewEnrichmentWorker(db *gorm.DB, estimator Estimator, queueSize int, m *metrics.PlanMetrics) *EnrichmentWorker {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &EnrichmentWorker{
		db:          db,
		estimator:   estimator,
		metrics:     m,
		jobs:        make(chan EnrichmentJob, queueSize),
		subscribers: make(map[chan ProductUpdate]bool),
	}
}

// Start launches the processing goroutine. It is a no-op when already running.
func (w *EnrichmentWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	logger.Info("Enrichment worker started", "queue_size", cap(w.jobs))
}

// Stop cancels the worker and waits for the current job to finish.
// Jobs still queued are discarded.
func (w *EnrichmentWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	logger.Info("Enrichment worker stopped")
}

// Enqueue adds a job without blocking; the job is dropped when the queue is full.
func (w *EnrichmentWorker) Enqueue(productID uint) bool {
	select {
	case w.jobs <- EnrichmentJob{ProductID: productID}:
		logger.Debug("Enrichment job enqueued", "product_id", productID)
		return true
	default:
		logger.Warn("Enrichment queue full, dropping job", "product_id", productID)
		w.metrics.RecordEnrichment(metrics.OutcomeSkipped)
		return false
	}
}

// Subscribe registers a channel to receive product updates
func (w *EnrichmentWorker) Subscribe(ch chan ProductUpdate) {
	w.subMux.Lock()
	defer w.subMux.Unlock()
	w.subscribers[ch] = true
}

// Unsubscribe removes ch and closes it.
func (w *EnrichmentWorker) Unsubscribe(ch chan ProductUpdate) {
	w.subMux.Lock()
	defer w.subMux.Unlock()
	if _, ok := w.subscribers[ch]; !ok {
		return
	}
	delete(w.subscribers, ch)
	close(ch)
}

func (w *EnrichmentWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.processJob(ctx, job)
		}
	}
}

func (w *EnrichmentWorker) processJob(ctx context.Context, job EnrichmentJob) {
	outcome, err := w.enrich(ctx, job)
	w.metrics.RecordEnrichment(outcome)
	if err != nil {
		logger.Warn("Enrichment job failed", "product_id", job.ProductID, "error", err)
	}
}

func (w *EnrichmentWorker) enrich(ctx context.Context, job EnrichmentJob) (string, error) {
	var product models.Product
	if err := w.db.WithContext(ctx).First(&product, job.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return metrics.OutcomeSkipped, nil
		}
		return metrics.OutcomeError, err
	}

	if product.IsVerified || hasMacros(product) {
		logger.Debug("Product already has nutrition, skipping", "product_id", product.ID)
		return metrics.OutcomeSkipped, nil
	}

	n, err := w.estimator.Estimate(ctx, product.Name)
	if err != nil {
		return metrics.OutcomeError, err
	}

	err = w.db.WithContext(ctx).Model(&product).Updates(map[string]any{
		"protein_per_100": n.Protein,
		"carbs_per_100":   n.Carbs,
		"fats_per_100":    n.Fats,
	}).Error
	if err != nil {
		return metrics.OutcomeError, err
	}
	product.ProteinPer100 = n.Protein
	product.CarbsPer100 = n.Carbs
	product.FatsPer100 = n.Fats

	logger.Info("Product nutrition updated", "product_id", product.ID, "verified_source", n.Verified)
	w.broadcast(ProductUpdate{
		ProductID:      product.ID,
		Name:           product.Name,
		CaloriesPer100: product.CaloriesPer100,
		ProteinPer100:  product.ProteinPer100,
		CarbsPer100:    product.CarbsPer100,
		FatsPer100:     product.FatsPer100,
		Verified:       product.IsVerified,
	})
	return metrics.OutcomeSuccess, nil
}

func (w *EnrichmentWorker) broadcast(update ProductUpdate) {
	w.subMux.RLock()
	defer w.subMux.RUnlock()
	for ch := range w.subscribers {
		select {
		case ch <- update:
		default:
			// slow subscriber
		}
	}
}

func hasMacros(p models.Product) bool {
	return p.ProteinPer100 != 0 || p.CarbsPer100 != 0 || p.FatsPer100 != 0
}
