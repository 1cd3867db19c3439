// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/bggsync/internal/entities"
)

// ListEntities handles GET /api/v1/entities[?username=U][&kind=K].
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		NewResponseWriter(w, r).ServiceUnavailable("Entity registry is not configured")
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username != "" {
		// Registry keys use the configured spelling of the username.
		if account, ok := h.coordinator.Account(username); ok {
			username = account.Username
		}
	}
	kind := entities.Kind(r.URL.Query().Get("kind"))

	records, err := h.registry.List(r.Context(), username)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if kind != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Kind == kind {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	NewResponseWriter(w, r).SuccessList(records, len(records))
}

// SetTodoStatus handles POST /api/v1/entities/todo/{uid}/status.
//
// Shelf items are read-only mirrors of the BGG collection; the toggle is
// acknowledged and handled by the configured policy, never sent upstream.
// To-do unique IDs contain a slash, so clients send them path-escaped.
func (h *Handler) SetTodoStatus(w http.ResponseWriter, r *http.Request) {
	if h.todos == nil {
		NewResponseWriter(w, r).ServiceUnavailable("Entity reconciler is not configured")
		return
	}

	uid, err := url.PathUnescape(chi.URLParam(r, "uid"))
	if err != nil {
		NewResponseWriter(w, r).ValidationError("Invalid entity id", nil)
		return
	}

	var req TodoStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.todos.SetTodoStatus(r.Context(), uid, entities.TodoStatus(req.Status)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"unique_id": uid,
		"status":    req.Status,
		"sent":      false,
	})
}
