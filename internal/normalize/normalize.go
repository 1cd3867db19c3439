// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Package normalize turns raw BGG XML API 2 payloads into the models types.
//
// All functions are pure: they perform no I/O, hold no state and return the
// same result for the same input. Optional fields that BGG omits become zero
// values, "" or models.NotRanked. Malformed documents yield *ParseError.
package normalize

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Endpoint names used in ParseError.
const (
	EndpointPlays      = "plays"
	EndpointCollection = "collection"
	EndpointThing      = "thing"
	EndpointPlayAck    = "geekplay"
)

// ErrProcessingPending reports that BGG accepted a collection request but is
// still building the response. The caller should retry later.
var ErrProcessingPending = errors.New("bgg is processing the request, retry later")

// ParseError reports a payload that could not be decoded.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// errorsXML is the <errors> document BGG returns for bad parameters, e.g. an
// unknown username.
type errorsXML struct {
	Errors []struct {
		Message string `xml:"message"`
	} `xml:"error"`
}

// rootName returns the local name of the document element.
func rootName(raw []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

// decode unmarshals raw into v after checking the root element. A <message>
// root is BGG's "still processing" response; an <errors> root carries an API
// error message.
func decode(endpoint string, raw []byte, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &ParseError{Endpoint: endpoint, Err: errors.New("empty document")}
	}
	root, err := rootName(raw)
	if err != nil {
		return &ParseError{Endpoint: endpoint, Err: err}
	}
	switch root {
	case "message":
		return ErrProcessingPending
	case "errors", "error":
		var e errorsXML
		_ = xml.Unmarshal(raw, &e)
		msg := "unknown error"
		if len(e.Errors) > 0 && e.Errors[0].Message != "" {
			msg = strings.TrimSpace(e.Errors[0].Message)
		}
		return &ParseError{Endpoint: endpoint, Err: fmt.Errorf("bgg error: %s", msg)}
	}
	if err := xml.Unmarshal(raw, v); err != nil {
		return &ParseError{Endpoint: endpoint, Err: err}
	}
	return nil
}

// IsProcessingMessage reports whether raw is BGG's <message> "request
// accepted" document.
func IsProcessingMessage(raw []byte) bool {
	root, err := rootName(raw)
	return err == nil && root == "message"
}

// valueAttr matches elements of the form <minplayers value="2"/>.
type valueAttr struct {
	Value string `xml:"value,attr"`
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// flag reports BGG's "1" boolean encoding.
func flag(s string) bool {
	return strings.TrimSpace(s) == "1"
}
