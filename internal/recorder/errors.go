// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package recorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/validation"
)

// ErrorKind groups recorder failures for callers and metrics.
type ErrorKind string

// Error kinds.
const (
	KindValidation ErrorKind = "validation"
	KindConfig     ErrorKind = "config"
	KindAuth       ErrorKind = "auth"
	KindNetwork    ErrorKind = "network"
	KindSubmit     ErrorKind = "submit"
	KindInternal   ErrorKind = "internal"
)

var (
	// ErrLoggingDisabled is returned when the account has play logging off.
	ErrLoggingDisabled = errors.New("play logging is not enabled for this account")

	// ErrMissingCredentials is returned when the account has no password.
	ErrMissingCredentials = errors.New("account has no BGG password configured")
)

// ValidationError reports a malformed play request.
type ValidationError struct {
	Err *validation.RequestValidationError
}

func (e *ValidationError) Error() string {
	return "invalid play: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, tag, message string) *ValidationError {
	return &ValidationError{Err: validation.NewRequestValidationError(field, tag, message)}
}

// ConfigError reports an account that cannot log plays.
type ConfigError struct {
	Username string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("account %q: %v", e.Username, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by Record to its kind.
func Classify(err error) ErrorKind {
	var ve *ValidationError
	var ce *ConfigError
	var se *bgg.SubmitError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce), errors.Is(err, bgg.ErrNoPassword):
		return KindConfig
	case bgg.IsAuth(err):
		return KindAuth
	case errors.As(err, &se):
		return KindSubmit
	case bgg.IsTransient(err), errors.Is(err, ErrQueueFull), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	default:
		return KindInternal
	}
}
