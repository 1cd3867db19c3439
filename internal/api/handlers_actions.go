// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
	syncer "github.com/tomtom215/bggsync/internal/sync"
)

// TrackGame handles POST /api/v1/actions/track_game.
//
// The game is added to the account, or its overrides replaced when it is
// already tracked. The change and its persistence happen inside
// Coordinator.ModifyAccount, so concurrent calls for one account do not
// overwrite each other. A refresh is then requested so the game's sensor
// appears without waiting for the next tick.
func (h *Handler) TrackGame(w http.ResponseWriter, r *http.Request) {
	var req TrackGameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := h.resolveAccount(req.Username)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	ctx := logging.ContextWithAccount(r.Context(), target.Username)

	override := models.GameOverride{
		NFCTag:      strings.TrimSpace(req.NFCTag),
		Music:       strings.TrimSpace(req.Music),
		CustomImage: strings.TrimSpace(req.CustomImage),
	}
	var created bool
	account, err := h.coordinator.ModifyAccount(target.Username, func(a *models.TrackedAccount) error {
		created = a.UpsertGame(req.BGGID, override)
		if h.accounts == nil {
			return nil
		}
		if err := h.accounts.Put(ctx, *a); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		return nil
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.coordinator.ForceRefresh(account.Username); err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Failed to request refresh after track_game")
	}

	logging.CtxInfo(ctx).Int("game_id", req.BGGID).Bool("created", created).Msg("Game tracked")
	NewResponseWriter(w, r).Success(TrackGameResponse{
		Username: account.Username,
		GameID:   req.BGGID,
		Created:  created,
	})
}

// resolveAccount returns the named account, or the default account when
// username is empty.
func (h *Handler) resolveAccount(username string) (models.TrackedAccount, error) {
	username = strings.TrimSpace(username)
	if username != "" {
		account, ok := h.coordinator.Account(username)
		if !ok {
			return models.TrackedAccount{}, fmt.Errorf("%w: %s", syncer.ErrUnknownAccount, username)
		}
		return account, nil
	}
	all := h.coordinator.Accounts()
	if len(all) == 0 {
		return models.TrackedAccount{}, ErrNoAccounts
	}
	return all[0], nil
}

// RecordPlay handles POST /api/v1/actions/record_play.
func (h *Handler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		NewResponseWriter(w, r).ServiceUnavailable("Play recording is not configured")
		return
	}

	var req models.PlayRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.recorder.Record(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(res)
}
