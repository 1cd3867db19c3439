// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bggsync/config.yaml",
	"/etc/bggsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultUserAgent is sent on every upstream request; BGG rejects some
// requests that carry no browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 bggsync"

// defaultConfig returns the built-in defaults applied before file and env.
func defaultConfig() *Config {
	return &Config{
		BGG: BGGConfig{
			BaseURL:        "https://boardgamegeek.com",
			Timeout:        30 * time.Second,
			UserAgent:      DefaultUserAgent,
			RateLimit:      1,
			RateBurst:      2,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
			ThingBatchSize: 20,
			CircuitBreaker: true,
		},
		Sync: SyncConfig{
			Interval:         30 * time.Minute,
			PendingRetries:   3,
			PendingBaseDelay: 5 * time.Second,
			CycleTimeout:     10 * time.Minute,
		},
		Store: StoreConfig{
			Path:       "/data/bggsync",
			GCInterval: time.Hour,
		},
		Server: ServerConfig{
			Port:            8765,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Entities: EntitiesConfig{
			TodoTogglePolicy: "ignore",
		},
		Recorder: RecorderConfig{
			QueueSize:     16,
			SubmitTimeout: 90 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration from defaults, the optional YAML file
// and the environment, in that order of increasing priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit config file path. An empty
// path falls back to the default search.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SYNC_INTERVAL -> sync.interval, see envTransformFunc.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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

// findConfigFile returns the first existing config file, or "".
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

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(strVal, ",") {
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

// envMappings maps environment variable names (lower-cased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Upstream
	"bgg_base_url":         "bgg.base_url",
	"bgg_timeout":          "bgg.timeout",
	"bgg_user_agent":       "bgg.user_agent",
	"bgg_rate_limit":       "bgg.rate_limit",
	"bgg_rate_burst":       "bgg.rate_burst",
	"bgg_max_retries":      "bgg.max_retries",
	"bgg_retry_base_delay": "bgg.retry_base_delay",
	"bgg_thing_batch_size": "bgg.thing_batch_size",
	"bgg_circuit_breaker":  "bgg.circuit_breaker",
	"bgg_accounts":         "bgg.accounts_spec",

	// Coordinator
	"sync_interval":           "sync.interval",
	"sync_pending_retries":    "sync.pending_retries",
	"sync_pending_base_delay": "sync.pending_base_delay",
	"sync_cycle_timeout":      "sync.cycle_timeout",

	// Store
	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_gc_interval": "store.gc_interval",

	// Server
	"http_port":               "server.port",
	"http_host":               "server.host",
	"server_timeout":          "server.timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",

	// Security
	"encryption_key":      "security.encryption_key",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Entities and recorder
	"todo_toggle_policy":      "entities.todo_toggle_policy",
	"recorder_queue_size":     "recorder.queue_size",
	"recorder_submit_timeout": "recorder.submit_timeout",
	"play_timezone":           "recorder.timezone",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
//	SYNC_INTERVAL -> sync.interval
//	BGG_ACCOUNTS  -> bgg.accounts_spec
//	HTTP_PORT     -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
