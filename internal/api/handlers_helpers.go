// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/config"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/validation"
)

// maxBodyBytes bounds request bodies. A play with 50 players fits easily.
const maxBodyBytes = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// decodeBody decodes a JSON request body into v and validates it. On failure
// the error envelope has been written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	rw := NewResponseWriter(w, r)

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeValidation, "Request body too large")
		case errors.Is(err, io.EOF):
			rw.ValidationError("Request body is empty", nil)
		default:
			rw.ValidationError("Invalid JSON body: "+sanitizeLogValue(err.Error()), nil)
		}
		return false
	}

	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// viewAccount converts an account for output with its token masked.
func viewAccount(a models.TrackedAccount, snap *models.CoordinatorSnapshot) AccountView {
	v := AccountView{
		Username:         a.Username,
		HasPassword:      a.Password != "",
		TrackCollection:  a.TrackCollection,
		LogPlays:         a.LogPlays,
		ImportCollection: a.ImportCollection,
		EnableShelfTodo:  a.EnableShelfTodo,
		Games:            a.TrackedGameIDs(),
	}
	if a.Token != "" {
		v.Token = config.MaskCredential(a.Token)
	}
	if snap != nil {
		v.State = string(snap.State)
	}
	return v
}
