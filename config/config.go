package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Poller   PollerConfig
	Manual   ManualConfirmConfig
}

type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"8088"`
	Env          string        `env:"APP_ENV" envDefault:"development"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
}

type DatabaseConfig struct {
	DSN             string        `env:"DB_DSN" envDefault:"satang:satang@tcp(localhost:3306)/satang?charset=utf8mb4&parseTime=True&loc=Local"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

type JWTConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"change-me-in-production"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"change-me-refresh"`
	AccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"satang"`
}

// GatewayConfig holds credentials and timeouts for the upstream payment gateway.
// The shared secret signs webhook payloads and authenticates outbound calls.
type GatewayConfig struct {
	BaseURL        string        `env:"GATEWAY_BASE_URL" envDefault:"https://api.sabuypay.in.th"`
	MerchantID     string        `env:"GATEWAY_MERCHANT_ID"`
	SharedSecret   string        `env:"GATEWAY_SHARED_SECRET"`
	RequestTimeout time.Duration `env:"GATEWAY_REQUEST_TIMEOUT" envDefault:"30s"`
	IntentTTL      time.Duration `env:"GATEWAY_INTENT_TTL" envDefault:"10m"`
}

// PollerConfig tunes the confirm-polling retry loop. The gateway rate-limits
// aggressively, so these are deployment knobs rather than constants.
type PollerConfig struct {
	MaxAttempts int           `env:"POLLER_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"POLLER_BASE_DELAY" envDefault:"2s"`
	MaxJitter   time.Duration `env:"POLLER_MAX_JITTER" envDefault:"3s"`
}

// ManualConfirmConfig gates the user-asserted confirmation path.
type ManualConfirmConfig struct {
	RateLimit       int           `env:"MANUAL_CONFIRM_RATE_LIMIT" envDefault:"3"`
	RateLimitWindow time.Duration `env:"MANUAL_CONFIRM_RATE_WINDOW" envDefault:"1h"`
}

// RelayConfig is the standalone config for the edge relay binary.
type RelayConfig struct {
	Port           string        `env:"RELAY_PORT" envDefault:"8089"`
	OriginURL      string        `env:"RELAY_ORIGIN_URL" envDefault:"http://localhost:8088/api/v1/webhooks/payment"`
	SharedSecret   string        `env:"GATEWAY_SHARED_SECRET"`
	SpoolDir       string        `env:"RELAY_SPOOL_DIR" envDefault:"relay-spool"`
	ForwardTimeout time.Duration `env:"RELAY_FORWARD_TIMEOUT" envDefault:"15s"`
	ReplayInterval time.Duration `env:"RELAY_REPLAY_INTERVAL" envDefault:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func LoadRelay() (*RelayConfig, error) {
	_ = godotenv.Load()
	cfg := &RelayConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse relay config: %w", err)
	}
	return cfg, nil
}
