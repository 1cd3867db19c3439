// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/bggsync/internal/logging"
)

// MaxThingBatchSize is the largest id list BGG accepts on the thing endpoint.
const MaxThingBatchSize = 20

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBGG(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateEntities(); err != nil {
		return err
	}
	if err := c.validateRecorder(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateAccounts()
}

func (c *Config) validateBGG() error {
	if err := validateHTTPURL(c.BGG.BaseURL, "BGG_BASE_URL"); err != nil {
		return err
	}
	if c.BGG.Timeout <= 0 {
		return fmt.Errorf("BGG_TIMEOUT must be positive")
	}
	if c.BGG.RateLimit <= 0 {
		return fmt.Errorf("BGG_RATE_LIMIT must be positive")
	}
	if c.BGG.RateBurst < 1 {
		return fmt.Errorf("BGG_RATE_BURST must be at least 1")
	}
	if c.BGG.MaxRetries < 0 {
		return fmt.Errorf("BGG_MAX_RETRIES cannot be negative")
	}
	if c.BGG.ThingBatchSize < 1 || c.BGG.ThingBatchSize > MaxThingBatchSize {
		return fmt.Errorf("BGG_THING_BATCH_SIZE must be between 1 and %d", MaxThingBatchSize)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1m, got %s", c.Sync.Interval)
	}
	if c.Sync.PendingRetries < 0 || c.Sync.PendingRetries > 10 {
		return fmt.Errorf("SYNC_PENDING_RETRIES must be between 0 and 10")
	}
	if c.Sync.PendingBaseDelay < 0 {
		return fmt.Errorf("SYNC_PENDING_BASE_DELAY cannot be negative")
	}
	if c.Sync.CycleTimeout <= 0 {
		return fmt.Errorf("SYNC_CYCLE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	if c.Security.EncryptionKey != "" && len(c.Security.EncryptionKey) < 16 {
		return fmt.Errorf("ENCRYPTION_KEY must be at least 16 characters")
	}
	return nil
}

func (c *Config) validateEntities() error {
	switch strings.ToLower(c.Entities.TodoTogglePolicy) {
	case "ignore", "warn":
		return nil
	default:
		return fmt.Errorf("TODO_TOGGLE_POLICY must be ignore or warn, got %q", c.Entities.TodoTogglePolicy)
	}
}

func (c *Config) validateRecorder() error {
	if c.Recorder.QueueSize < 1 {
		return fmt.Errorf("RECORDER_QUEUE_SIZE must be at least 1")
	}
	if c.Recorder.SubmitTimeout <= 0 {
		return fmt.Errorf("RECORDER_SUBMIT_TIMEOUT must be positive")
	}
	if c.Recorder.Timezone != "" {
		if _, err := time.LoadLocation(c.Recorder.Timezone); err != nil {
			return fmt.Errorf("PLAY_TIMEZONE is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

func (c *Config) validateAccounts() error {
	_, err := c.SeedAccounts()
	return err
}

// validateHTTPURL checks for an http(s) base URL without path or query.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, u.Path)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}

// PlayLocation returns the location used for default play dates.
func (c *Config) PlayLocation() *time.Location {
	if c.Recorder.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Recorder.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
