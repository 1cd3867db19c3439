// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/bggsync/internal/models"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status        string                   `json:"status"`
	Version       string                   `json:"version"`
	SyncRunning   bool                     `json:"sync_running"`
	Accounts      []AccountHealth          `json:"accounts"`
	States        map[models.SyncState]int `json:"states"`
	WSConnections int                      `json:"ws_connections"`
	Uptime        float64                  `json:"uptime_seconds"`
}

// AccountHealth summarizes one account's last cycle.
type AccountHealth struct {
	Username      string     `json:"username"`
	State         string     `json:"state"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Available     bool       `json:"available"`
	Stale         bool       `json:"stale"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
}

// Version is reported by the health endpoint. Set at build time with
// -ldflags "-X github.com/tomtom215/bggsync/internal/api.Version=...".
var Version = "dev"

// Health handles GET /api/v1/health.
//
// Status is "healthy" when every account is available, "degraded" when at
// least one account's credentials were rejected or its last cycle failed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:      "healthy",
		Version:     Version,
		SyncRunning: h.coordinator.Running(),
		States:      map[models.SyncState]int{},
		Uptime:      time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		health.WSConnections = h.wsHub.GetClientCount()
	}

	for _, a := range h.coordinator.Accounts() {
		ah := AccountHealth{Username: a.Username, State: string(models.StateIdle), Available: true}
		if snap, ok := h.coordinator.Snapshot(a.Username); ok && snap != nil {
			ah.State = string(snap.State)
			ah.FailureReason = snap.FailureReason
			ah.Available = snap.Available
			ah.Stale = snap.Stale
			if !snap.LastSync.IsZero() {
				last := snap.LastSync
				ah.LastSync = &last
			}
			if snap.State == models.StateFailed || !snap.Available {
				health.Status = "degraded"
			}
		}
		health.States[models.SyncState(ah.State)]++
		health.Accounts = append(health.Accounts, ah)
	}

	NewResponseWriter(w, r).Success(health)
}

// HealthLive handles liveness probes. It answers 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probes. The service is ready once the
// refresh coordinator is running.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.coordinator.Running() {
		rw.ServiceUnavailable("Refresh coordinator is not running")
		return
	}
	rw.Success(map[string]interface{}{
		"status": "ready",
	})
}
