// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig points at the DuckDB file holding content and users.
// Path ":memory:" keeps everything in process memory.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SecurityConfig covers token signing, revocation and request throttling.
type SecurityConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	JWTIssuer string        `koanf:"jwt_issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	// BcryptCost is the password hashing cost for registered users.
	BcryptCost int `koanf:"bcrypt_cost"`

	// RevocationStore selects the logout blacklist backend: badger or memory.
	RevocationStore        string        `koanf:"revocation_store"`
	RevocationPath         string        `koanf:"revocation_path"`
	RevocationTimeout      time.Duration `koanf:"revocation_timeout"`
	RevocationCleanup      time.Duration `koanf:"revocation_cleanup"`
	BreakerMaxFailures     uint32        `koanf:"breaker_max_failures"`
	BreakerOpenTimeout     time.Duration `koanf:"breaker_open_timeout"`
	RateLimitReqs          int           `koanf:"rate_limit_requests"`
	RateLimitWindow        time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled      bool          `koanf:"rate_limit_disabled"`
	CORSOrigins            []string      `koanf:"cors_origins"`
	TrustedProxiesDisabled bool          `koanf:"trusted_proxies_disabled"`
}

// NATSConfig controls the internal RPC transport.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	QueueGroup     string        `koanf:"queue_group"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxConcurrent  int           `koanf:"max_concurrent"`
	RequestRate    float64       `koanf:"request_rate"`
	RequestBurst   int           `koanf:"request_burst"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// EventsConfig controls content lifecycle event publishing. Events ride
// on the NATS connection, so they need nats.enabled as well.
type EventsConfig struct {
	Enabled     bool   `koanf:"enabled"`
	TopicPrefix string `koanf:"topic_prefix"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the service runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
