package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	RedisFuzzerLogEnv = "REDIS_FUZZER_LOG"
	HTTPFuzzerLogEnv  = "HTTP_FUZZER_LOG"
)

type AppConfig struct {
	DatabaseURL        string
	RabbitMQURL        string
	RedisSentinelHosts string
	RedisMasterName    string
	RedisUrl           string
	LogLevel           string
	ServiceName        string
	OtlpEndpoint       string
	HarnessConfig      HarnessConfig
	AnalysisConfig     AnalysisConfig
}

// side-channel log destinations of the harness binaries
type HarnessConfig struct {
	RedisFuzzerLog string
	HTTPFuzzerLog  string
}

type AnalysisConfig struct {
	// quiet period before a changed campaign is re-analyzed in watch mode
	WatchDebounce time.Duration
}

// LoadConfig reads the configuration from the environment (and an optional .env file).
// Nothing is mandatory: every backend left unset is simply not wired.
func LoadConfig() *AppConfig {
	godotenv.Load()

	config := &AppConfig{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		RedisSentinelHosts: os.Getenv("REDIS_SENTINEL_HOSTS"),
		RedisMasterName:    os.Getenv("REDIS_MASTER"),
		RedisUrl:           os.Getenv("OVERRIDE_REDIS_URL"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		ServiceName:        os.Getenv("SERVICE_NAME"),
		OtlpEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		HarnessConfig: HarnessConfig{
			RedisFuzzerLog: os.Getenv(RedisFuzzerLogEnv),
			HTTPFuzzerLog:  os.Getenv(HTTPFuzzerLogEnv),
		},
		AnalysisConfig: AnalysisConfig{
			WatchDebounce: parseDuration(os.Getenv("ANALYSIS_WATCH_DEBOUNCE"), 2*time.Second),
		},
	}

	if config.LogLevel == "" {
		config.LogLevel = "info" // Set default log level
	}
	if config.ServiceName == "" {
		config.ServiceName = "protofuzz"
	}
	if config.RedisSentinelHosts != "" && config.RedisMasterName == "" {
		// use a temporary logger for now
		logger := zap.NewExample().Named("config")
		logger.Warn("REDIS_SENTINEL_HOSTS set without REDIS_MASTER, redis is disabled")
		config.RedisSentinelHosts = ""
	}

	return config
}

// RedisEnabled reports whether either a direct URL or a sentinel setup is configured.
func (c *AppConfig) RedisEnabled() bool {
	return c.RedisUrl != "" || c.RedisSentinelHosts != ""
}

func (c *AppConfig) TelemetryEnabled() bool {
	return c.OtlpEndpoint != ""
}

func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
