// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
errors.go - Domain Error to Envelope Mapping

respondDomainError is the single place where errors returned by the sync,
recorder, store and entities packages are turned into envelope codes.
*/

//nolint:staticcheck // File documentation, not package doc
package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/entities"
	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/recorder"
	"github.com/tomtom215/bggsync/internal/store"
	syncer "github.com/tomtom215/bggsync/internal/sync"
)

var (
	// ErrNoAccounts is returned when an action omits the username and no
	// account is tracked.
	ErrNoAccounts = errors.New("no BGG account is configured")

	// ErrHubUnavailable is returned when the WebSocket hub is not wired.
	ErrHubUnavailable = errors.New("websocket hub unavailable")
)

// respondDomainError writes the envelope for err.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *recorder.ValidationError
	if errors.As(err, &verr) {
		apiErr := verr.Err.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, err.Error(), apiErr.Details)
		return
	}

	switch {
	case errors.Is(err, syncer.ErrUnknownAccount),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, entities.ErrEntityNotFound),
		errors.Is(err, ErrNoAccounts):
		rw.NotFound(err.Error())
		return
	case errors.Is(err, syncer.ErrDuplicateAccount):
		rw.Conflict(err.Error())
		return
	case errors.Is(err, entities.ErrNotTodoItem):
		rw.Error(http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	case errors.Is(err, recorder.ErrQueueFull),
		errors.Is(err, recorder.ErrWorkerStopped),
		errors.Is(err, ErrHubUnavailable):
		rw.ServiceUnavailable(err.Error())
		return
	}

	switch recorder.Classify(err) {
	case recorder.KindConfig:
		rw.Error(http.StatusBadRequest, ErrCodeValidation, err.Error())
	case recorder.KindAuth:
		rw.Unauthorized(err.Error())
	case recorder.KindSubmit, recorder.KindNetwork:
		rw.ExternalServiceError("bgg", err)
	default:
		if bgg.IsTransient(err) {
			rw.ExternalServiceError("bgg", err)
			return
		}
		logging.CtxError(r.Context()).Err(err).Msg("Request failed")
		rw.InternalError("Internal error")
	}
}
