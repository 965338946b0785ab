package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	wishlogging "github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"

	"github.com/watson9049/billygold-website/internal/cache"
	"github.com/watson9049/billygold-website/internal/config"
	"github.com/watson9049/billygold-website/internal/job"
	"github.com/watson9049/billygold-website/internal/provider"
	"github.com/watson9049/billygold-website/internal/service"
	"github.com/watson9049/billygold-website/internal/tui"
	"github.com/watson9049/billygold-website/pkg/logging"
	"github.com/watson9049/billygold-website/pkg/tracing"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	startEngineFunc   = func(e *service.PriceEngine, ctx context.Context) error { return e.Start(ctx) }
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
	exitFunc          = os.Exit
)

var log = logging.For("ssh")

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx, tracing.DefaultService+"-ssh")
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

	engine, err := buildEngine(cfg, tracer)
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

	if len(cfg.SSHAllowedFingerprints) == 0 {
		log.Warn("SSH_ALLOWED_FINGERPRINTS empty, every key will be rejected")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)
	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(fingerprintAuth(cfg.SSHAllowedFingerprints)),
		wish.WithMiddleware(
			bubbletea.Middleware(boardHandler(engine)),
			wishlogging.Middleware(),
		),
	)
	if err != nil {
		log.WithError(err).Error("failed to create SSH server")
		exitFunc(1)
		return
	}

	if srv != nil {
		go func() {
			log.WithField("addr", addr).Info("SSH server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				log.WithError(err).Error("SSH server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("SSH server shutdown error")
		}
	}

	log.Info("SSH server exited")
}

// buildEngine wires an in-process price engine. The board only reads
// quotes, so quote history is left to the HTTP server.
func buildEngine(cfg *config.Config, tracer trace.Tracer) (*service.PriceEngine, error) {
	metals := provider.NewMetalsProvider(tracer, cfg.MetalsAPIURL, cfg.MetalsAPIKey, cfg.ProviderRatePerMin)
	fx := provider.NewExchangeRateProvider(tracer, cfg.FXAPIURL, cfg.ProviderRatePerMin)
	client := provider.NewClient(tracer, metals, fx, cfg.ProviderTimeout)

	scheduler, err := job.NewScheduler(tracer, cfg.ScheduleInterval, cfg.ScheduleMinInterval, cfg.ScheduleMaxInterval)
	if err != nil {
		return nil, err
	}

	engineCfg := service.EngineConfig{
		DefaultFee:   cfg.DefaultWorkmanshipFee,
		References:   cfg.ReferenceBaselines,
		FetchTimeout: client.Timeout(),
	}
	if cache.Client != nil {
		engineCfg.Publisher = cache.NewRedisMirror(cache.Client, cfg.ScheduleInterval)
	}
	fallback := provider.NewFallbackGenerator(cfg.FallbackBaselines, cfg.FallbackJitter)
	return service.NewPriceEngine(tracer, client, fallback, cache.NewQuoteCache(), scheduler, engineCfg), nil
}

// fingerprintAuth accepts keys whose SHA256 fingerprint is in the allowlist.
func fingerprintAuth(allowed []string) func(ssh.Context, ssh.PublicKey) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, fp := range allowed {
		set[strings.TrimSpace(fp)] = struct{}{}
	}
	return func(_ ssh.Context, key ssh.PublicKey) bool {
		fingerprint := gossh.FingerprintSHA256(key)
		if _, ok := set[fingerprint]; !ok {
			log.WithField("fingerprint", fingerprint).Warn("SSH auth denied")
			return false
		}
		log.WithField("fingerprint", fingerprint).Info("SSH auth accepted")
		return true
	}
}

func boardHandler(src tui.PriceSource) func(ssh.Session) (tea.Model, []tea.ProgramOption) {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		model := tui.NewModel(src, s.User(), tui.DefaultRefresh)
		if pty, _, ok := s.Pty(); ok {
			model.SetSize(pty.Window.Width, pty.Window.Height)
		}
		return model, []tea.ProgramOption{tea.WithAltScreen()}
	}
}
