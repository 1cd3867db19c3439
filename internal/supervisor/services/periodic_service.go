// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package services

import (
	"context"
	"time"

	"github.com/tomtom215/bggsync/internal/logging"
)

// PeriodicService runs a maintenance task on a fixed interval, for example
// badger value log GC. A failing run is logged and retried on the next tick;
// it never makes the supervisor restart the service.
type PeriodicService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewPeriodicService creates a service that calls task every interval.
// A non-positive interval means one hour.
func NewPeriodicService(name string, interval time.Duration, task func(ctx context.Context) error) *PeriodicService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := p.task(ctx); err != nil {
				logging.Warn().Err(err).Str("service", p.name).Msg("Periodic task failed")
				continue
			}
			logging.Debug().Str("service", p.name).Dur("took", time.Since(start)).Msg("Periodic task completed")
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (p *PeriodicService) String() string {
	return p.name
}
