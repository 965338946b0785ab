package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/watson9049/billygold-website/internal/domain"
	"github.com/watson9049/billygold-website/pkg/logging"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	DefaultExchangeRate   float64
	DefaultWorkmanshipFee float64

	ScheduleInterval    time.Duration
	ScheduleMinInterval time.Duration
	ScheduleMaxInterval time.Duration

	ProviderTimeout    time.Duration
	ProviderRatePerMin int
	MetalsAPIURL       string
	MetalsAPIKey       string
	FXAPIURL           string

	FallbackJitter     float64
	FallbackBaselines  map[domain.QuoteKind]float64
	ReferenceBaselines map[domain.QuoteKind]float64
	BaselinesFile      string

	AdminAPIKey string

	OpenAIAPIKey      string
	OpenAIModel       string
	AdvisorMaxHistory int

	TelegramBotToken string

	SSHPort                int
	SSHHostKeyPath         string
	SSHAllowedFingerprints []string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	log := logging.For("config")

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MetalsAPIURL:     strings.TrimSpace(os.Getenv("METALS_API_URL")),
		MetalsAPIKey:     os.Getenv("METALS_API_KEY"),
		FXAPIURL:         strings.TrimSpace(os.Getenv("FX_API_URL")),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		SSHHostKeyPath:   strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH")),
	}

	cfg.Port = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, quote history disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}
	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY not set, schedule changes are rejected")
	}

	cfg.DefaultExchangeRate = positiveFloat("DEFAULT_EXCHANGE_RATE", 31.8)
	cfg.DefaultWorkmanshipFee = 500
	if v := strings.TrimSpace(os.Getenv("DEFAULT_WORKMANSHIP_FEE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.DefaultWorkmanshipFee = n
		}
	}

	cfg.ScheduleMinInterval = time.Duration(positiveInt("PRICE_SCHEDULE_MIN_MINUTES", 15)) * time.Minute
	cfg.ScheduleMaxInterval = time.Duration(positiveInt("PRICE_SCHEDULE_MAX_MINUTES", 1440)) * time.Minute
	if cfg.ScheduleMinInterval > cfg.ScheduleMaxInterval {
		log.Warn("PRICE_SCHEDULE_MIN_MINUTES above PRICE_SCHEDULE_MAX_MINUTES, using 15-1440")
		cfg.ScheduleMinInterval = 15 * time.Minute
		cfg.ScheduleMaxInterval = 24 * time.Hour
	}
	cfg.ScheduleInterval = time.Duration(positiveInt("PRICE_SCHEDULE_MINUTES", 15)) * time.Minute
	if cfg.ScheduleInterval < cfg.ScheduleMinInterval {
		log.Warnf("PRICE_SCHEDULE_MINUTES below minimum, using %s", cfg.ScheduleMinInterval)
		cfg.ScheduleInterval = cfg.ScheduleMinInterval
	}
	if cfg.ScheduleInterval > cfg.ScheduleMaxInterval {
		log.Warnf("PRICE_SCHEDULE_MINUTES above maximum, using %s", cfg.ScheduleMaxInterval)
		cfg.ScheduleInterval = cfg.ScheduleMaxInterval
	}

	cfg.ProviderTimeout = 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("PROVIDER_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 15 {
			cfg.ProviderTimeout = time.Duration(n) * time.Second
		} else {
			log.Warnf("PROVIDER_TIMEOUT_SECS=%q outside 1-15, using 10", v)
		}
	}
	cfg.ProviderRatePerMin = positiveInt("PROVIDER_RATE_PER_MIN", 30)

	cfg.FallbackJitter = 0.02
	if v := strings.TrimSpace(os.Getenv("FALLBACK_JITTER")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n <= 0.1 {
			cfg.FallbackJitter = n
		} else {
			log.Warnf("FALLBACK_JITTER=%q outside (0, 0.1], using 0.02", v)
		}
	}

	cfg.FallbackBaselines = map[domain.QuoteKind]float64{}
	cfg.ReferenceBaselines = map[domain.QuoteKind]float64{}
	cfg.BaselinesFile = strings.TrimSpace(os.Getenv("PRICE_BASELINES_FILE"))
	if cfg.BaselinesFile != "" {
		file, err := LoadBaselines(cfg.BaselinesFile)
		if err != nil {
			log.WithError(err).Warn("ignoring baselines file")
		} else {
			for k, v := range file.Fallback {
				cfg.FallbackBaselines[k] = v
			}
			for k, v := range file.Reference {
				cfg.ReferenceBaselines[k] = v
			}
		}
	}
	if os.Getenv("DEFAULT_EXCHANGE_RATE") != "" || cfg.FallbackBaselines[domain.KindUSDTWD] == 0 {
		cfg.FallbackBaselines[domain.KindUSDTWD] = cfg.DefaultExchangeRate
	}
	for _, kind := range domain.Metals {
		name := strings.ToUpper(string(kind))
		if v := positiveFloat("FALLBACK_"+name, 0); v > 0 {
			cfg.FallbackBaselines[kind] = v
		}
		if v := positiveFloat("REFERENCE_"+name, 0); v > 0 {
			cfg.ReferenceBaselines[kind] = v
		}
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, advisor will be disabled")
	}
	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.AdvisorMaxHistory = positiveInt("ADVISOR_MAX_HISTORY", 20)
	if cfg.AdvisorMaxHistory > 50 {
		cfg.AdvisorMaxHistory = 50
	}

	cfg.SSHPort = positiveInt("SSH_PORT", 2222)
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/id_ed25519"
	}
	for _, fp := range strings.Split(os.Getenv("SSH_ALLOWED_FINGERPRINTS"), ",") {
		if fp = strings.TrimSpace(fp); fp != "" {
			cfg.SSHAllowedFingerprints = append(cfg.SSHAllowedFingerprints, fp)
		}
	}

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if cfg.LogFormat != "json" {
		cfg.LogFormat = "text"
	}

	return cfg
}

func positiveInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logging.For("config").Warnf("invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func positiveFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			return n
		}
		logging.For("config").Warnf("invalid %s=%q, using %v", key, v, def)
	}
	return def
}
