// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Package config loads BGG Sync configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: optional YAML (CONFIG_PATH, ./config.yaml, /etc/bggsync/config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Example config.yaml:
//
//	bgg:
//	  rate_limit: 1
//	sync:
//	  interval: 30m
//	security:
//	  encryption_key: change-me
//	accounts:
//	  - username: alice
//	    token: xxxxxxxx
//	    log_plays: true
//	    password: secret
//	    games: "13,822"
//
// Accounts can also be seeded from BGG_ACCOUNTS, see ParseAccountSpecs.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	BGG      BGGConfig       `koanf:"bgg"`
	Sync     SyncConfig      `koanf:"sync"`
	Store    StoreConfig     `koanf:"store"`
	Server   ServerConfig    `koanf:"server"`
	Security SecurityConfig  `koanf:"security"`
	Entities EntitiesConfig  `koanf:"entities"`
	Recorder RecorderConfig  `koanf:"recorder"`
	Logging  LoggingConfig   `koanf:"logging"`
	Accounts []AccountConfig `koanf:"accounts"`
}

// BGGConfig configures the upstream BoardGameGeek client.
type BGGConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"user_agent"`

	// RateLimit is the steady request rate in requests per second; RateBurst
	// bounds short bursts. BGG throttles aggressive clients with HTTP 429.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// ThingBatchSize is capped at 20; BGG answers larger batches with HTTP 400.
	ThingBatchSize int `koanf:"thing_batch_size"`

	CircuitBreaker bool `koanf:"circuit_breaker"`

	// AccountsSpec is the BGG_ACCOUNTS seed string.
	AccountsSpec string `koanf:"accounts_spec"`
}

// SyncConfig configures the refresh coordinator.
type SyncConfig struct {
	Interval         time.Duration `koanf:"interval"`
	PendingRetries   int           `koanf:"pending_retries"`
	PendingBaseDelay time.Duration `koanf:"pending_base_delay"`
	CycleTimeout     time.Duration `koanf:"cycle_timeout"`
}

// StoreConfig configures the badger store for accounts and cached metadata.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`

	// GCInterval is how often badger's value log is garbage collected.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// ServerConfig configures the HTTP action API.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds credential encryption and API protection settings.
type SecurityConfig struct {
	// EncryptionKey derives the key that encrypts stored BGG tokens and passwords.
	EncryptionKey     string        `koanf:"encryption_key"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// EntitiesConfig configures the entity reconciler.
type EntitiesConfig struct {
	// TodoTogglePolicy decides what happens when a user ticks a shelf
	// to-do item: "ignore" or "warn". Items are never written back to BGG.
	TodoTogglePolicy string `koanf:"todo_toggle_policy"`
}

// RecorderConfig configures the play recorder's write worker.
type RecorderConfig struct {
	QueueSize     int           `koanf:"queue_size"`
	SubmitTimeout time.Duration `koanf:"submit_timeout"`

	// Timezone names the location used for the default play date. Empty
	// means the process's local zone.
	Timezone string `koanf:"timezone"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// AccountConfig seeds one tracked account from the config file.
type AccountConfig struct {
	Username         string `koanf:"username"`
	Token            string `koanf:"token"`
	Password         string `koanf:"password"`
	TrackCollection  *bool  `koanf:"track_collection"`
	LogPlays         bool   `koanf:"log_plays"`
	ImportCollection bool   `koanf:"import_collection"`
	EnableShelfTodo  *bool  `koanf:"enable_shelf_todo"`

	// Games is the legacy comma-separated list of tracked game IDs.
	Games string `koanf:"games"`

	TrackedGames []TrackedGameConfig `koanf:"tracked_games"`
}

// TrackedGameConfig is a tracked game with optional overrides.
type TrackedGameConfig struct {
	ID          int    `koanf:"id"`
	NFCTag      string `koanf:"nfc_tag"`
	Music       string `koanf:"music"`
	CustomImage string `koanf:"custom_image"`
}

// Address returns the host:port the HTTP server listens on.
func (s ServerConfig) Address() string {
	return joinHostPort(s.Host, s.Port)
}
