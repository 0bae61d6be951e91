// Package metrics provides Prometheus metrics for plan application,
// recommendation generation and catalog enrichment.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Plan kinds used as label values.
const (
	KindMealPlan = "mealplan"
	KindWorkout  = "workout"

	KindProduct  = "product"
	KindExercise = "exercise"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// PlanMetrics contains all Prometheus metrics of the service. A nil
// *PlanMetrics is valid and records nothing.
type PlanMetrics struct {
	PlanApplyTotal           *prometheus.CounterVec   // Applier invocations by kind and outcome
	PlanApplyDuration        *prometheus.HistogramVec // Applier latency by kind
	CatalogCreatedTotal      *prometheus.CounterVec   // Catalog rows created on demand by kind
	RecommendationsGenerated *prometheus.CounterVec   // Generated plans by kind and source (ai, rules)
	EnrichmentJobsTotal      *prometheus.CounterVec   // Enrichment jobs by outcome

	registry *prometheus.Registry
}

// NewPlanMetrics creates the metrics and registers them on registry.
func NewPlanMetrics(registry *prometheus.Registry) (*PlanMetrics, error) {
	m := &PlanMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register plan metrics: %w", err)
	}
	return m, nil
}

func (m *PlanMetrics) initMetrics() {
	m.PlanApplyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_apply_total",
			Help: "Total number of plan applications by plan kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	m.PlanApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plan_apply_duration_seconds",
			Help:    "Time taken to apply a plan inside its transaction",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"kind"},
	)

	m.CatalogCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_entities_created_total",
			Help: "Total number of catalog rows created while applying plans",
		},
		[]string{"kind"},
	)

	m.RecommendationsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_generated_total",
			Help: "Total number of generated plans by kind and source",
		},
		[]string{"kind", "source"},
	)

	m.EnrichmentJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_jobs_total",
			Help: "Total number of catalog enrichment jobs by outcome",
		},
		[]string{"outcome"},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *PlanMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.PlanApplyTotal.Describe(ch)
	m.PlanApplyDuration.Describe(ch)
	m.CatalogCreatedTotal.Describe(ch)
	m.RecommendationsGenerated.Describe(ch)
	m.EnrichmentJobsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PlanMetrics) Collect(ch chan<- prometheus.Metric) {
	m.PlanApplyTotal.Collect(ch)
	m.PlanApplyDuration.Collect(ch)
	m.CatalogCreatedTotal.Collect(ch)
	m.RecommendationsGenerated.Collect(ch)
	m.EnrichmentJobsTotal.Collect(ch)
}

// RecordPlanApply records one Applier invocation.
func (m *PlanMetrics) RecordPlanApply(kind string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.PlanApplyTotal.WithLabelValues(kind, outcome).Inc()
	m.PlanApplyDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCatalogCreated counts catalog rows created on demand.
func (m *PlanMetrics) RecordCatalogCreated(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CatalogCreatedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordRecommendation counts a generated plan.
func (m *PlanMetrics) RecordRecommendation(kind, source string) {
	if m == nil {
		return
	}
	m.RecommendationsGenerated.WithLabelValues(kind, source).Inc()
}

// RecordEnrichment counts a processed enrichment job.
func (m *PlanMetrics) RecordEnrichment(outcome string) {
	if m == nil {
		return
	}
	m.EnrichmentJobsTotal.WithLabelValues(outcome).Inc()
}
