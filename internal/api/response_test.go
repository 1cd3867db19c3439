// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/bgg"
	"github.com/tomtom215/bggsync/internal/logging"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return response
}

func TestResponseWriter_Success(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	data := map[string]string{"message": "hello"}
	NewResponseWriter(w, r).Success(data)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	response := decodeEnvelope(t, w)
	if !response.Success {
		t.Error("Expected Success to be true")
	}
	if response.Error != nil {
		t.Error("Expected Error to be nil")
	}
	if response.Meta == nil {
		t.Fatal("Expected Meta to not be nil")
	}
	if response.Meta.Timestamp.IsZero() {
		t.Error("Expected Timestamp to be set")
	}
}

func TestResponseWriter_SuccessList(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	NewResponseWriter(w, r).SuccessList([]string{"a", "b"}, 2)

	response := decodeEnvelope(t, w)
	if response.Meta == nil || response.Meta.Count == nil {
		t.Fatal("Expected count in meta")
	}
	if *response.Meta.Count != 2 {
		t.Errorf("Count = %d, want 2", *response.Meta.Count)
	}
}

func TestResponseWriter_Created(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/test", nil)
	NewResponseWriter(w, r).Created(map[string]int{"play_id": 1})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if !decodeEnvelope(t, w).Success {
		t.Error("Expected Success to be true")
	}
}

func TestResponseWriter_ErrorIncludesRequestID(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r = r.WithContext(logging.ContextWithRequestID(context.Background(), "req-123"))

	NewResponseWriter(w, r).NotFound("missing")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	response := decodeEnvelope(t, w)
	if response.Success {
		t.Error("Expected Success to be false")
	}
	if response.Error == nil {
		t.Fatal("Expected Error to be set")
	}
	if response.Error.Code != ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", response.Error.Code, ErrCodeNotFound)
	}
	if response.Error.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want req-123", response.Error.RequestID)
	}
}

func TestResponseWriter_ErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		write      func(rw *ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"not found", func(rw *ResponseWriter) { rw.NotFound("x") }, http.StatusNotFound, ErrCodeNotFound},
		{"validation", func(rw *ResponseWriter) { rw.ValidationError("x", nil) }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unauthorized", func(rw *ResponseWriter) { rw.Unauthorized("x") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"conflict", func(rw *ResponseWriter) { rw.Conflict("x") }, http.StatusConflict, ErrCodeConflict},
		{"too many", func(rw *ResponseWriter) { rw.TooManyRequests("x") }, http.StatusTooManyRequests, ErrCodeTooManyRequests},
		{"internal", func(rw *ResponseWriter) { rw.InternalError("x") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"unavailable", func(rw *ResponseWriter) { rw.ServiceUnavailable("x") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.write(NewResponseWriter(w, r))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeEnvelope(t, w).Error.Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestResponseWriter_ExternalServiceError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/test", nil)
	NewResponseWriter(w, r).ExternalServiceError("bgg", &bgg.SubmitError{StatusCode: 200, Body: "Error: bad game"})

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
	response := decodeEnvelope(t, w)
	if response.Error.Code != ErrCodeExternalServiceFail {
		t.Errorf("Code = %q", response.Error.Code)
	}
	details, ok := response.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("Details = %#v, want object", response.Error.Details)
	}
	if details["kind"] != "submit" {
		t.Errorf("kind = %v, want submit", details["kind"])
	}
}
