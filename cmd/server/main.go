package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zonkedw/project-shop-sub001/config"
	"github.com/zonkedw/project-shop-sub001/controllers"
	"github.com/zonkedw/project-shop-sub001/database"
	"github.com/zonkedw/project-shop-sub001/jobs"
	"github.com/zonkedw/project-shop-sub001/llm"
	"github.com/zonkedw/project-shop-sub001/logger"
	"github.com/zonkedw/project-shop-sub001/metrics"
	"github.com/zonkedw/project-shop-sub001/routes"
	"github.com/zonkedw/project-shop-sub001/services"
)

func main() {
	if err := run(); err != nil {
		logger.Error("Server exited with error", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	// Load .env
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Init("development")
		return fmt.Errorf("load configuration: %w", err)
	}

	// Initialize Structured Logger
	logger.Init(cfg.Env)
	defer logger.Sync()
	if envErr != nil {
		logger.Warn("No .env file found, using system env vars")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, every API request will be rejected")
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	planMetrics, err := metrics.NewPlanMetrics(registry)
	if err != nil {
		return err
	}

	llmClient := llm.NewClient(cfg.LLM)
	if !llmClient.Configured() {
		logger.Warn("LLM_API_KEY not set, recommendations use rule-based plans")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background enrichment worker
	nutrition := services.NewNutritionService(cfg.OpenFoodFacts, llmClient)
	worker := jobs.NewEnrichmentWorker(db, nutrition, cfg.EnrichmentQueueSize, planMetrics)
	worker.Start(ctx)
	defer worker.Stop()

	ctrl := controllers.New(db,
		services.NewNutritionPlanApplier(db, planMetrics),
		services.NewWorkoutPlanApplier(db, planMetrics),
		services.NewRecommender(llmClient, planMetrics),
		worker,
	)
	r := routes.SetupRouter(ctrl, routes.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Registry:       registry,
		Worker:         worker,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
