package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/printfleet/printfleet-api/internal/handler"
	internalmiddleware "github.com/printfleet/printfleet-api/internal/middleware"
	"github.com/printfleet/printfleet-api/internal/planner"
	"github.com/printfleet/printfleet-api/internal/repository"
	"github.com/printfleet/printfleet-api/internal/service"
	"github.com/printfleet/printfleet-api/pkg/cache"
	"github.com/printfleet/printfleet-api/pkg/config"
	"github.com/printfleet/printfleet-api/pkg/database"
	"github.com/printfleet/printfleet-api/pkg/logger"
	corsmiddleware "github.com/printfleet/printfleet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/printfleet/printfleet-api/pkg/middleware/requestid"
	"github.com/printfleet/printfleet-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	metricsSvc := service.NewMetricsService()

	planSvc := service.NewPlanGeneratorService(
		repository.NewPrinterRepository(db),
		repository.NewProjectRepository(db),
		repository.NewProductRepository(db),
		repository.NewSettingsRepository(db),
		repository.NewInventoryRepository(db),
		repository.NewCycleRepository(db),
		repository.NewPlanRepository(db),
		repository.NewBlockLogRepository(redisClient, cfg.Planner.BlockLogRetention),
		db,
		metricsSvc,
		nil,
		logr,
		service.PlanGeneratorConfig{
			ProposalTTL: cfg.Planner.ProposalTTL,
			Planner: planner.Config{
				HorizonDays:          cfg.Planner.HorizonDays,
				MaxSimulationDays:    cfg.Planner.MaxSimulationDays,
				MaxIterations:        cfg.Planner.MaxIterations,
				PlateCleanupDelay:    cfg.Planner.PlateCleanupDelay,
				GlobalPlateInventory: cfg.Planner.GlobalPlateInventory,
			},
		},
	)

	planHandler := handler.NewPlanHandler(planSvc)
	blockLogHandler := handler.NewBlockLogHandler(planSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Snapshot)

	if cfg.Planner.Enabled {
		auth := internalmiddleware.JWT(cfg.JWT.Secret)
		plans := api.Group("/plans")
		plans.POST("/generate", auth, planHandler.Generate)
		plans.POST("", auth, planHandler.Save)
		plans.GET("", planHandler.List)
		plans.GET("/block-log", blockLogHandler.Recent)
		plans.GET("/:id", planHandler.Get)
		plans.DELETE("/:id", auth, planHandler.Delete)
		if cfg.Exports.Enabled {
			store, err := storage.NewLocalStorage(cfg.Exports.Dir)
			if err != nil {
				logr.Sugar().Fatalw("failed to init export storage", "error", err)
			}
			signer := storage.NewTokenSigner(cfg.Exports.SignSecret, cfg.Exports.URLTTL)
			exportSvc := service.NewPlanExportService(planSvc, store, signer, logr, service.PlanExportConfig{
				Workers:         cfg.Exports.Workers,
				QueueSize:       cfg.Exports.QueueSize,
				MaxRetries:      cfg.Exports.MaxRetries,
				RetryDelay:      cfg.Exports.RetryDelay,
				ArtifactTTL:     cfg.Exports.ArtifactTTL,
				CleanupInterval: cfg.Exports.CleanupInterval,
			})
			exportSvc.Start(ctx)
			defer exportSvc.Stop()
			exportHandler := handler.NewExportHandler(exportSvc)

			plans.GET("/:id/export", planHandler.Export)
			plans.POST("/:id/export", auth, exportHandler.Enqueue)
			plans.GET("/exports/:jobId", exportHandler.Job)
			plans.GET("/exports/:jobId/download", exportHandler.Download)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "planner", cfg.Planner.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
