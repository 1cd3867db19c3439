// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
	syncer "github.com/tomtom215/bggsync/internal/sync"
)

// ListAccounts handles GET /api/v1/accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	all := h.coordinator.Accounts()
	views := make([]AccountView, 0, len(all))
	for _, a := range all {
		snap, _ := h.coordinator.Snapshot(a.Username)
		views = append(views, viewAccount(a, snap))
	}
	NewResponseWriter(w, r).SuccessList(views, len(views))
}

// CreateAccount handles POST /api/v1/accounts.
//
// The token is checked against BGG before anything is stored, so a typo
// surfaces as 401 instead of a Failed snapshot half an hour later.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	ctx := logging.ContextWithAccount(r.Context(), req.Username)

	if _, exists := h.coordinator.Account(req.Username); exists {
		respondDomainError(w, r, fmt.Errorf("%w: %s", syncer.ErrDuplicateAccount, req.Username))
		return
	}

	if h.validator != nil {
		if err := h.validator.ValidateAuth(ctx, req.Username, req.Token); err != nil {
			respondDomainError(w, r, fmt.Errorf("validate auth: %w", err))
			return
		}
	}

	account := models.NewTrackedAccount(req.Username)
	account.Token = req.Token
	account.Password = req.Password
	account.LogPlays = req.LogPlays
	account.ImportCollection = req.ImportCollection
	if req.TrackCollection != nil {
		account.TrackCollection = *req.TrackCollection
	}
	if req.EnableShelfTodo != nil {
		account.EnableShelfTodo = *req.EnableShelfTodo
	}
	for _, id := range req.Games {
		account.Games[id] = models.GameOverride{}
	}

	if h.accounts != nil {
		if err := h.accounts.Put(ctx, account); err != nil {
			respondDomainError(w, r, fmt.Errorf("save account: %w", err))
			return
		}
	}
	if err := h.coordinator.AddAccount(account); err != nil {
		if h.accounts != nil {
			if derr := h.accounts.Delete(ctx, account.Username); derr != nil {
				logging.CtxWarn(ctx).Err(derr).Msg("Failed to roll back stored account")
			}
		}
		respondDomainError(w, r, err)
		return
	}

	logging.CtxInfo(ctx).Int("games", len(account.Games)).Msg("Account added")
	NewResponseWriter(w, r).Created(viewAccount(account, nil))
}

// DeleteAccount handles DELETE /api/v1/accounts/{username}. The
// coordinator publishes account.removed, which drops the account's entities.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	ctx := logging.ContextWithAccount(r.Context(), username)

	if err := h.coordinator.RemoveAccount(username); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if h.accounts != nil {
		if err := h.accounts.Delete(ctx, username); err != nil {
			respondDomainError(w, r, fmt.Errorf("delete account: %w", err))
			return
		}
	}
	if h.recorder != nil {
		h.recorder.Forget(username)
	}

	logging.CtxInfo(ctx).Msg("Account removed")
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"username": username,
		"removed":  true,
	})
}

// RefreshAccount handles POST /api/v1/accounts/{username}/refresh.
// With ?metadata=true the cached game metadata of the account is dropped
// first, so the refresh fetches it again from BGG.
func (h *Handler) RefreshAccount(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	metadata := false
	if raw := r.URL.Query().Get("metadata"); raw != "" {
		var err error
		if metadata, err = strconv.ParseBool(raw); err != nil {
			NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeValidation, "metadata must be true or false")
			return
		}
	}

	var err error
	if metadata {
		err = h.coordinator.RefreshMetadata(r.Context(), username)
	} else {
		err = h.coordinator.ForceRefresh(username)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"username":  username,
		"requested": true,
		"metadata":  metadata,
	})
}

// AccountSnapshot handles GET /api/v1/accounts/{username}/snapshot.
func (h *Handler) AccountSnapshot(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	snap, ok := h.coordinator.Snapshot(username)
	if !ok {
		respondDomainError(w, r, fmt.Errorf("%w: %s", syncer.ErrUnknownAccount, username))
		return
	}
	NewResponseWriter(w, r).Success(snap)
}
