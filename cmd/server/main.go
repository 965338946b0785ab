package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/advisor"
	"github.com/watson9049/billygold-website/internal/bot"
	"github.com/watson9049/billygold-website/internal/cache"
	"github.com/watson9049/billygold-website/internal/config"
	"github.com/watson9049/billygold-website/internal/db"
	"github.com/watson9049/billygold-website/internal/handler"
	"github.com/watson9049/billygold-website/internal/job"
	"github.com/watson9049/billygold-website/internal/provider"
	"github.com/watson9049/billygold-website/internal/repository"
	"github.com/watson9049/billygold-website/internal/service"
	"github.com/watson9049/billygold-website/pkg/logging"
	"github.com/watson9049/billygold-website/pkg/tracing"

	_ "github.com/watson9049/billygold-website/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newOpenAIClientFunc    = advisor.NewOpenAIClient
	startEngineFunc        = func(e *service.PriceEngine, ctx context.Context) error { return e.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc               = os.Exit
)

var log = logging.For("server")

// @title           BillyGold Price API
// @version         1.0
// @description     Precious metal quotes and jewelry retail price calculation.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  APIKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	defer db.Close()
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx, tracing.DefaultService)
	if err != nil {
		log.WithError(err).Error("failed to initialize tracer")
		exitFunc(1)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("error shutting down tracer provider")
		}
	}()

	engine, history, err := buildEngine(cfg, tracer)
	if err != nil {
		log.WithError(err).Error("failed to build price engine")
		exitFunc(1)
		return
	}
	if err := startEngineFunc(engine, ctx); err != nil {
		log.WithError(err).Error("failed to start price schedule")
		exitFunc(1)
		return
	}
	defer engine.Stop()

	advisorSvc := buildAdvisor(cfg, tracer, engine)

	var botAdvisor bot.Advisor
	if advisorSvc != nil {
		botAdvisor = advisorSvc
	}
	if tb, err := startTelegramBotFunc(cfg.TelegramBotToken, engine, botAdvisor); err != nil {
		log.WithError(err).Warn("telegram bot disabled")
	} else if tb != nil {
		defer tb.Stop()
	}

	opts := handler.Options{
		AdminAPIKey:         cfg.AdminAPIKey,
		DefaultExchangeRate: cfg.DefaultExchangeRate,
		Upstreams: map[string]string{
			"metals":       orDefault(cfg.MetalsAPIURL, provider.DefaultMetalsBaseURL),
			"exchangeRate": orDefault(cfg.FXAPIURL, provider.DefaultFXURL),
		},
		Checks: healthChecks(),
	}
	if history != nil {
		opts.History = history
	}
	if advisorSvc != nil {
		opts.Advisor = advisorSvc
	}
	h := handler.New(tracer, engine, opts)

	r := newRouterFunc()
	r.Use(gin.Recovery(), otelgin.Middleware(tracing.DefaultService), handler.RequestLogger())
	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("listen failed")
			exitFunc(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("Server exiting")
}

// buildEngine wires the provider, fallback, cache and scheduler into the
// price engine. The returned history repository is nil without Postgres.
func buildEngine(cfg *config.Config, tracer trace.Tracer) (*service.PriceEngine, *repository.QuoteHistoryRepository, error) {
	metals := provider.NewMetalsProvider(tracer, cfg.MetalsAPIURL, cfg.MetalsAPIKey, cfg.ProviderRatePerMin)
	fx := provider.NewExchangeRateProvider(tracer, cfg.FXAPIURL, cfg.ProviderRatePerMin)
	client := provider.NewClient(tracer, metals, fx, cfg.ProviderTimeout)
	fallback := provider.NewFallbackGenerator(cfg.FallbackBaselines, cfg.FallbackJitter)

	scheduler, err := job.NewScheduler(tracer, cfg.ScheduleInterval, cfg.ScheduleMinInterval, cfg.ScheduleMaxInterval)
	if err != nil {
		return nil, nil, err
	}

	engineCfg := service.EngineConfig{
		DefaultFee:   cfg.DefaultWorkmanshipFee,
		References:   cfg.ReferenceBaselines,
		FetchTimeout: client.Timeout(),
	}
	if cache.Client != nil {
		engineCfg.Publisher = cache.NewRedisMirror(cache.Client, cfg.ScheduleInterval)
	}
	var history *repository.QuoteHistoryRepository
	if db.Pool != nil {
		history = repository.NewQuoteHistoryRepository(db.Pool, tracer)
		engineCfg.Recorder = history
	}

	engine := service.NewPriceEngine(tracer, client, fallback, cache.NewQuoteCache(), scheduler, engineCfg)
	return engine, history, nil
}

// buildAdvisor returns nil when no OpenAI key is configured. Conversations
// persist in Postgres when available and in memory otherwise.
func buildAdvisor(cfg *config.Config, tracer trace.Tracer, engine *service.PriceEngine) *advisor.AdvisorService {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	var store advisor.ConversationStore = advisor.NewMemoryStore()
	if db.Pool != nil {
		store = repository.NewConversationRepository(db.Pool, tracer)
	}
	log.WithField("model", cfg.OpenAIModel).Info("advisor service enabled")
	return advisor.NewAdvisorService(tracer, newOpenAIClientFunc(cfg.OpenAIAPIKey), engine, store, cfg.OpenAIModel, cfg.AdvisorMaxHistory)
}

func healthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{}
	if cache.Client != nil {
		client := cache.Client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if db.Pool != nil {
		pool := db.Pool
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	return checks
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
