// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package bgg

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/bggsync/internal/normalize"
)

var (
	// ErrProcessingPending is returned when BGG answers HTTP 202 or a
	// <message> document: the request was queued and should be retried later.
	// It is the same value as normalize.ErrProcessingPending.
	ErrProcessingPending = normalize.ErrProcessingPending

	// ErrRateLimited is returned when BGG keeps answering HTTP 429 after the
	// retry budget is spent.
	ErrRateLimited = errors.New("bgg rate limit exceeded")

	// ErrNoPassword is returned by NewSession when the account has no password.
	ErrNoPassword = errors.New("bgg session requires a password")
)

// AuthError reports rejected credentials (HTTP 401 or 403).
type AuthError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bgg %s: authentication rejected (HTTP %d)", e.Endpoint, e.StatusCode)
}

// NetworkError reports a transient failure: timeout, connection error or an
// unexpected HTTP status. StatusCode is 0 when no response was received.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bgg %s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("bgg %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// LoginError reports a failed login to the write API.
type LoginError struct {
	StatusCode int
	Body       string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("bgg login failed (HTTP %d)", e.StatusCode)
}

// SubmitError reports a play submission BGG did not accept. Body holds the
// response verbatim, truncated to 64KB.
type SubmitError struct {
	StatusCode int
	Body       string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("bgg rejected play submission (HTTP %d)", e.StatusCode)
}

// IsAuth reports whether err is an authentication or login failure.
func IsAuth(err error) bool {
	var ae *AuthError
	var le *LoginError
	return errors.As(err, &ae) || errors.As(err, &le)
}

// IsTransient reports whether err is worth retrying on a later cycle.
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.DeadlineExceeded)
}
