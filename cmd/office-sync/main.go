package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/openretreat/office-sync/internal/client"
	"github.com/openretreat/office-sync/internal/handler"
	"github.com/openretreat/office-sync/internal/middleware"
	"github.com/openretreat/office-sync/internal/scheduler"
	"github.com/openretreat/office-sync/internal/service"
	"github.com/openretreat/office-sync/pkg/cache"
	"github.com/openretreat/office-sync/pkg/config"
	"github.com/openretreat/office-sync/pkg/jobs"
	"github.com/openretreat/office-sync/pkg/logger"
	corsmiddleware "github.com/openretreat/office-sync/pkg/middleware/cors"
	reqidmiddleware "github.com/openretreat/office-sync/pkg/middleware/requestid"
)

func main() {
	once := flag.Bool("once", false, "run one sync and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var snapshot *cache.SnapshotCache
	if cfg.Snapshot.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		snapshot = cache.NewSnapshotCache(redisClient, cfg.Snapshot.TTL)
	}

	layout, err := service.LayoutByName(cfg.Generator.EventLayout)
	if err != nil {
		logr.Sugar().Fatalw("invalid event layout", "error", err)
	}
	if layout != nil && cfg.Generator.OrgaMeetingID != "" {
		layout.AttachOrgaRoom(cfg.Generator.OrgaMeetingID)
	}

	links := service.NewLinkExtractor(cfg.Generator.IconBaseURL)
	generator, err := service.NewOfficeService(cfg.Generator, links, layout, logr)
	if err != nil {
		logr.Sugar().Fatalw("generator setup failed", "error", err)
	}

	fetcher := client.NewSheetsClient(cfg.Spreadsheet, logr, client.WithSnapshotCache(snapshot))
	metrics := service.NewMetricsService()

	var slack service.SlackAPI
	if cfg.Slack.Enabled {
		slack = client.NewSlackClient(cfg.Slack, logr)
	}
	var confluence service.ConfluenceAPI
	if cfg.Confluence.Enabled {
		confluence = client.NewConfluenceClient(cfg.Confluence, logr)
	}

	syncSvc := service.NewSyncService(*cfg, service.SyncServiceDeps{
		Fetcher:    fetcher,
		Adapter:    service.NewAdapterService(validator.New(), logr),
		Validator:  service.NewValidatorService(logr),
		Generator:  generator,
		Enrichment: service.NewEnrichmentService(cfg.Slack, cfg.Confluence, links, logr),
		Publisher:  client.NewOfficeClient(cfg.Office, logr),
		Slack:      slack,
		Confluence: confluence,
		Metrics:    metrics,
		Logger:     logr,
	})

	if *once {
		if err := syncSvc.Run(ctx); err != nil {
			logr.Sugar().Fatalw("sync failed", "error", err)
		}
		return
	}

	queue := jobs.NewQueue("sync", func(ctx context.Context, _ jobs.Job) error {
		return syncSvc.Run(ctx)
	}, jobs.QueueConfig{
		Workers:    cfg.Sync.Workers,
		MaxRetries: cfg.Sync.Retries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Sync.Interval != "" {
		sched := scheduler.New(logr)
		if err := sched.Add(cfg.Sync.Interval, func(context.Context) {
			job := jobs.Job{ID: uuid.NewString(), Trigger: jobs.TriggerSchedule}
			if err := queue.Enqueue(job); err != nil {
				logr.Sugar().Errorw("failed to enqueue scheduled sync", "error", err)
			}
		}); err != nil {
			logr.Sugar().Fatalw("scheduler setup failed", "error", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	syncHandler := handler.NewSyncHandler(syncSvc, queue, logr)
	admin := r.Group("/", middleware.Auth(cfg.AuthToken))
	admin.POST("/sync", syncHandler.Trigger)
	admin.GET("/sync/status", syncHandler.Status)
	admin.GET("/office/preview", syncHandler.Preview)
	admin.GET("/export/schedule.csv", syncHandler.ExportCSV)
	admin.GET("/export/schedule.pdf", syncHandler.ExportPDF)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
