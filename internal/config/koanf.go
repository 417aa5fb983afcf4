// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/story-pull/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4001,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/content.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			JWTSecret:          "",
			JWTIssuer:          "story-pull",
			TokenTTL:           15 * time.Minute,
			BcryptCost:         10,
			RevocationStore:    "badger",
			RevocationPath:     "/data/revocations",
			RevocationTimeout:  250 * time.Millisecond,
			RevocationCleanup:  5 * time.Minute,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
			RateLimitReqs:      20,
			RateLimitWindow:    time.Minute,
			CORSOrigins:        []string{"*"},
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			QueueGroup:     "content-service",
			SubjectPrefix:  "storypull",
			MaxConcurrent:  64,
			RequestRate:    500,
			RequestBurst:   100,
			RequestTimeout: 10 * time.Second,
		},
		Events: EventsConfig{
			Enabled:     true,
			TopicPrefix: "storypull.events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the config file (if
// any), then environment variables, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"jwt_secret":               "security.jwt_secret",
	"jwt_issuer":               "security.jwt_issuer",
	"token_ttl":                "security.token_ttl",
	"jwt_expiration":           "security.token_ttl",
	"bcrypt_cost":              "security.bcrypt_cost",
	"revocation_store":         "security.revocation_store",
	"revocation_path":          "security.revocation_path",
	"revocation_timeout":       "security.revocation_timeout",
	"revocation_cleanup":       "security.revocation_cleanup",
	"breaker_max_failures":     "security.breaker_max_failures",
	"breaker_open_timeout":     "security.breaker_open_timeout",
	"rate_limit_requests":      "security.rate_limit_requests",
	"rate_limit_window":        "security.rate_limit_window",
	"disable_rate_limit":       "security.rate_limit_disabled",
	"cors_origins":             "security.cors_origins",
	"trusted_proxies_disabled": "security.trusted_proxies_disabled",

	"nats_enabled":         "nats.enabled",
	"nats_url":             "nats.url",
	"nats_embedded":        "nats.embedded_server",
	"nats_host":            "nats.host",
	"nats_port":            "nats.port",
	"nats_queue_group":     "nats.queue_group",
	"nats_subject_prefix":  "nats.subject_prefix",
	"nats_max_concurrent":  "nats.max_concurrent",
	"nats_request_rate":    "nats.request_rate",
	"nats_request_burst":   "nats.request_burst",
	"nats_request_timeout": "nats.request_timeout",

	"events_enabled":      "events.enabled",
	"events_topic_prefix": "events.topic_prefix",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps a known environment variable to its config key.
// Unknown and empty variables return an empty key, which koanf skips, so
// a blank JWT_SECRET does not mask the value from the config file.
func envTransformFunc(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped, value
	}
	return "", nil
}
