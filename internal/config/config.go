// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port       int    `envconfig:"PORT" default:"8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	CronSecret string `envconfig:"CRON_SECRET" required:"true"`

	// Persistence
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL"`

	// Reconciliation
	Concurrency    int           `envconfig:"RECON_CONCURRENCY" default:"8"`
	CarrierTimeout time.Duration `envconfig:"CARRIER_TIMEOUT" default:"30s"`

	// Freightcom
	FreightcomBaseURL string `envconfig:"FREIGHTCOM_BASE_URL" default:"https://api.freightcom.com/v1"`
	FreightcomEnabled bool   `envconfig:"FREIGHTCOM_ENABLED" default:"true"`
	FreightcomUseMock bool   `envconfig:"FREIGHTCOM_USE_MOCK" default:"false"`

	// Canada Post
	CanadaPostBaseURL string `envconfig:"CANADAPOST_BASE_URL" default:"https://soa-gw.canadapost.ca"`
	CanadaPostEnabled bool   `envconfig:"CANADAPOST_ENABLED" default:"true"`
	CanadaPostUseMock bool   `envconfig:"CANADAPOST_USE_MOCK" default:"false"`

	// Purolator
	PurolatorBaseURL string `envconfig:"PUROLATOR_BASE_URL" default:"https://webservices.purolator.com"`
	PurolatorEnabled bool   `envconfig:"PUROLATOR_ENABLED" default:"true"`
	PurolatorUseMock bool   `envconfig:"PUROLATOR_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shipment-reconciler"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("freightcom.enabled", c.FreightcomEnabled),
		attribute.Bool("canadapost.enabled", c.CanadaPostEnabled),
		attribute.Bool("purolator.enabled", c.PurolatorEnabled),
	}
}
