package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zonkedw/project-shop-sub001/controllers"
	"github.com/zonkedw/project-shop-sub001/jobs"
	auth "github.com/zonkedw/project-shop-sub001/middleware"
)

// Options carries what the router needs beyond the controllers.
type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Registry       *prometheus.Registry
	Worker         *jobs.EnrichmentWorker
}

func SetupRouter(ctrl *controllers.Controller, opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", ctrl.Health)
	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(opts.JWTSecret))

		r.Route("/ai/recommendations", func(r chi.Router) {
			r.Post("/mealplan", ctrl.GenerateMealPlan)
			r.Post("/mealplan/apply", ctrl.ApplyMealPlan)
			r.Post("/workout", ctrl.GenerateWorkout)
			r.Post("/workout/apply", ctrl.ApplyWorkout)
		})

		r.Get("/meals", ctrl.ListMeals)
		r.Get("/workouts", ctrl.ListWorkouts)
		r.Get("/products", ctrl.ListProducts)
		r.Get("/exercises", ctrl.ListExercises)

		if opts.Worker != nil {
			// Server-Sent Events for product enrichment updates
			r.Get("/sse/products", ProductSSE(opts.Worker))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
