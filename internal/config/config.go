// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Loading order (koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config file: optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Helpdesk HelpdeskConfig `koanf:"helpdesk"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// HelpdeskConfig configures the upstream helpdesk REST API.
type HelpdeskConfig struct {
	// URL is the API base, e.g. https://acme.gorgias.com/api. Empty disables syncing.
	URL      string `koanf:"url" validate:"omitempty,url"`
	Username string `koanf:"username"`
	APIKey   string `koanf:"api_key"`

	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
	PageSize int           `koanf:"page_size" validate:"min=1,max=100"`

	// RequestsPerSecond is the steady-state budget shared by every outbound call.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0,lte=50"`

	// CircuitBreaker wraps upstream calls in a gobreaker circuit breaker.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// DatabaseConfig configures the DuckDB warehouse. An empty Path leaves the
// warehouse unconfigured and every store operation becomes a no-op.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0,max=128"`
}

// SyncConfig configures the sync orchestrator.
type SyncConfig struct {
	// BatchSize bounds the rows per bulk upsert statement.
	BatchSize int `koanf:"batch_size" validate:"min=1,max=5000"`

	// Concurrency bounds parallel per-ticket message fetches (1 = sequential).
	Concurrency int `koanf:"concurrency" validate:"min=1,max=10"`

	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries     int           `koanf:"max_retries" validate:"min=0,max=10"`
	BackoffBase    time.Duration `koanf:"backoff_base"`
	TransientDelay time.Duration `koanf:"transient_delay"`

	// Incremental resumes customers, tickets and messages from the last cursor.
	Incremental        bool          `koanf:"incremental"`
	IncrementalOverlap time.Duration `koanf:"incremental_overlap"`

	// FailFast stops a run at the first failed phase and makes the CLI exit non-zero.
	FailFast bool `koanf:"fail_fast"`

	// Interval schedules full runs in serve mode. Zero disables the scheduler.
	Interval time.Duration `koanf:"interval"`

	// RunTimeout bounds one orchestrator run. Zero means no limit.
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// ServerConfig configures the read-only HTTP facade used in serve mode.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds the graceful stop, including syncs started
	// through the API.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
}

// Load reads configuration from defaults, the config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf("")
}
