package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/activities"
	"github.com/fionalabs/outreach-orchestrator/internal/agentruntime"
	"github.com/fionalabs/outreach-orchestrator/internal/config"
	"github.com/fionalabs/outreach-orchestrator/internal/constants"
	"github.com/fionalabs/outreach-orchestrator/internal/db"
	"github.com/fionalabs/outreach-orchestrator/internal/health"
	"github.com/fionalabs/outreach-orchestrator/internal/httpapi"
	"github.com/fionalabs/outreach-orchestrator/internal/ratecontrol"
	"github.com/fionalabs/outreach-orchestrator/internal/session"
	temporaladapter "github.com/fionalabs/outreach-orchestrator/internal/temporal"
	"github.com/fionalabs/outreach-orchestrator/internal/tracing"
	"github.com/fionalabs/outreach-orchestrator/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := tracing.Initialize(cfg.Tracing, logger); err != nil {
		logger.Warn("Tracing initialization failed, continuing without it", zap.Error(err))
	}

	// Per-model rate limits hot-reload when the file changes.
	if path := os.Getenv("MODELS_CONFIG_PATH"); path != "" {
		if err := ratecontrol.Watch(path); err != nil {
			logger.Warn("Rate limit config watch failed", zap.String("path", path), zap.Error(err))
		}
	}

	hm := health.NewManager(logger)

	// Archive is optional: without Postgres the service still runs, it just
	// keeps no history.
	var archive *db.Client
	dbClient, err := db.NewClient(&db.Config{DSN: cfg.Postgres.DSN()}, logger)
	if err != nil {
		logger.Warn("Archive database unavailable, history disabled", zap.Error(err))
	} else {
		archive = dbClient
		defer archive.Close()
		hm.Register(health.CheckFunc{CheckName: "postgres", Fn: func(ctx context.Context) error {
			return archive.DB().PingContext(ctx)
		}}, false)
	}

	// Lead memory is likewise optional.
	var sessions *session.Manager
	sessionManager, err := session.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("Redis unavailable, lead memory disabled", zap.Error(err))
	} else {
		sessions = sessionManager
		hm.Register(health.CheckFunc{CheckName: "redis", Fn: func(ctx context.Context) error {
			return sessions.Ping(ctx)
		}}, false)
	}

	runtime := agentruntime.NewClient(cfg.AgentRuntime.BaseURL, cfg.AgentRuntime.Model, cfg.AgentRuntime.RequestTimeout, logger)

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporaladapter.NewZapAdapter(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer temporalClient.Close()
	hm.Register(health.CheckFunc{CheckName: "temporal", Fn: func(ctx context.Context) error {
		_, err := temporalClient.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	}}, true)

	w := worker.New(temporalClient, constants.OutreachTaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.OutreachWorkflow)

	acts := activities.NewActivities(runtime, sessions, archive, logger)
	w.RegisterActivity(acts.ResearchLead)
	w.RegisterActivity(acts.DraftEmail)
	w.RegisterActivity(acts.DeliverEmail)
	w.RegisterActivity(acts.RequestApproval)
	w.RegisterActivity(acts.SaveLeadMemory)
	w.RegisterActivity(acts.RecallLeadMemory)
	w.RegisterActivity(acts.UpdateSession)

	if err := w.Start(); err != nil {
		logger.Fatal("Failed to start Temporal worker", zap.Error(err))
	}
	defer w.Stop()

	apiServer := httpapi.StartServer(httpapi.ServerOptions{
		Port:                   cfg.Server.Port,
		AuthToken:              cfg.Approval.AuthToken,
		ApprovalTimeoutSeconds: cfg.Approval.TimeoutSeconds,
	}, temporalClient, logger)

	adminMux := http.NewServeMux()
	health.NewHTTPHandler(hm).RegisterRoutes(adminMux)
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.MetricsPort),
		Handler:      adminMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Admin HTTP server listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Admin HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("Outreach orchestrator started",
		zap.Int("api_port", cfg.Server.Port),
		zap.String("task_queue", constants.OutreachTaskQueue),
		zap.String("temporal", cfg.Temporal.HostPort),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown error", zap.Error(err))
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Admin server shutdown error", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
