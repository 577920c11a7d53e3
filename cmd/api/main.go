package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satish27072002/mh-skills-coach/cmd/mainconfig"
	"github.com/satish27072002/mh-skills-coach/internal/api/router"
	"github.com/satish27072002/mh-skills-coach/internal/app/bootstrap"
	"github.com/satish27072002/mh-skills-coach/internal/booking"
	"github.com/satish27072002/mh-skills-coach/internal/chat"
	"github.com/satish27072002/mh-skills-coach/internal/coach"
	appconfig "github.com/satish27072002/mh-skills-coach/internal/config"
	"github.com/satish27072002/mh-skills-coach/internal/notify"
	"github.com/satish27072002/mh-skills-coach/internal/observability/metrics"
	"github.com/satish27072002/mh-skills-coach/internal/safety"
	"github.com/satish27072002/mh-skills-coach/internal/therapist"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

func main() {
	// Local development reads settings from .env; deployments set real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting mh-skills-coach API server",
		"port", cfg.Port,
		"dev_mode", cfg.DevMode,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(registry)
	emailMetrics := metrics.NewEmailMetrics(registry)
	searchMetrics := metrics.NewSearchMetrics(registry)

	llmClient, modelID, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to configure LLM client", "error", err)
		os.Exit(1)
	}
	responder := coach.NewResponder(llmClient, modelID, logger.Logger)

	sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	orchestrator := notify.NewOrchestrator(db, sender, logger).WithMetrics(emailMetrics)

	therapistAgent := bootstrap.BuildTherapistAgent(cfg, redisClient, logger).WithMetrics(searchMetrics)

	pendingStore := booking.NewStore(pool)
	bookingAgent := booking.NewAgent(pendingStore, orchestrator.Send, logger)

	gate := safety.NewGate(therapistAgent, cfg.DevMode, logger)

	var history chat.HistoryStore
	if redisClient != nil {
		history = chat.NewRedisHistoryStore(redisClient, cfg.HistoryMaxTurns)
	} else {
		logger.Warn("redis not configured, conversation history held in memory")
		history = chat.NewMemoryHistoryStore(cfg.HistoryMaxTurns)
	}

	chatRouter := chat.NewRouter(chat.NewLLMRouteFallback(llmClient, modelID, logger))
	chatService := chat.NewService(
		chatRouter,
		gate,
		therapistAgent,
		bookingAgent,
		pendingStore,
		responder,
		history,
		chatMetrics,
		logger,
	)

	resolver := chat.CookieActorResolver{
		SessionCookieName: cfg.SessionCookieName,
		BookingCookieName: cfg.BookingCookieName,
	}
	chatHandler := chat.NewHandler(chatService, resolver, cfg.BookingCookieName, !cfg.DevMode, logger)
	therapistHandler := therapist.NewHandler(therapistAgent, resolver, logger)
	auditHandler := notify.NewHandler(orchestrator, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		TherapistHandler:   therapistHandler,
		AuditHandler:       auditHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
		ChatRateBurst:      cfg.ChatRateBurst,
		SessionCookieName:  cfg.BookingCookieName,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
