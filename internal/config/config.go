package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the consolidated order book engine.
type Config struct {
	Engine        EngineConfig
	Venues        []VenueConfig
	Server        ServerConfig
	Observability ObservabilityConfig
}

// EngineConfig carries the options the spec recognizes for the COBE core.
type EngineConfig struct {
	Symbol       string // the single instrument this engine instance tracks
	Depth        int    // requested book depth from each venue
	PriceScale   int64  // fixed: USD -> cents
	VolumeScale  int64  // fixed: quantity -> micro-units
	StaleAfter   time.Duration
	UpdateBuffer int // buffer size of the engine's ingest, worker and query channels
}

// VenueConfig configures one venue adapter. None of these fields are
// visible to the core; they are consumed only by internal/adapter/*.
type VenueConfig struct {
	Name           string
	WSBaseURL      string
	RESTBaseURL    string
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
	MakerFeeBps    float64
	TakerFeeBps    float64
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ObservabilityConfig struct {
	ServiceName string
	LogLevel    string
	LogFormat   string
	MetricsPort int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Engine: EngineConfig{
			Symbol:       getEnv("COBE_SYMBOL", "BTC-USD"),
			Depth:        getIntEnv("COBE_DEPTH", 50),
			PriceScale:   100,
			VolumeScale:  1_000_000,
			StaleAfter:   getDurationEnv("COBE_STALE_AFTER", 30*time.Second),
			UpdateBuffer: getIntEnv("COBE_UPDATE_BUFFER", 4096),
		},
		Venues: loadVenues(),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		},
		Observability: ObservabilityConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "cobe-engine"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "json"),
			MetricsPort: getIntEnv("METRICS_PORT", 9090),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadVenues builds the venue adapter list. COBE_VENUES is a comma
// separated list of venue names (default: binance,kraken); per-venue
// URLs fall back to well-known defaults when unset.
func loadVenues() []VenueConfig {
	names := getSliceEnv("COBE_VENUES", []string{"binance", "kraken"})
	venues := make([]VenueConfig, 0, len(names))
	for _, name := range names {
		upper := strings.ToUpper(name)
		venues = append(venues, VenueConfig{
			Name:         name,
			WSBaseURL:    getEnv(upper+"_WS_URL", defaultWSURL(name)),
			RESTBaseURL:  getEnv(upper+"_REST_URL", defaultRESTURL(name)),
			ReconnectMin: getDurationEnv(upper+"_RECONNECT_MIN", 500*time.Millisecond),
			ReconnectMax: getDurationEnv(upper+"_RECONNECT_MAX", 30*time.Second),
			MakerFeeBps:  getFloatEnv(upper+"_MAKER_FEE_BPS", 10),
			TakerFeeBps:  getFloatEnv(upper+"_TAKER_FEE_BPS", 10),
		})
	}
	return venues
}

func defaultWSURL(venue string) string {
	switch venue {
	case "binance":
		return "wss://stream.binance.com:9443/ws"
	case "kraken":
		return "wss://ws.kraken.com/v2"
	default:
		return ""
	}
}

func defaultRESTURL(venue string) string {
	switch venue {
	case "binance":
		return "https://api.binance.com"
	case "kraken":
		return "https://api.kraken.com"
	default:
		return ""
	}
}

func (c *Config) validate() error {
	if c.Engine.Symbol == "" {
		return fmt.Errorf("COBE_SYMBOL is required")
	}
	if c.Engine.Depth <= 0 {
		return fmt.Errorf("COBE_DEPTH must be positive")
	}
	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue must be configured")
	}
	return nil
}

// Helper functions for environment variable parsing.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
