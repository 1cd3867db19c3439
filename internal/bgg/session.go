// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package bgg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
	"github.com/tomtom215/bggsync/internal/normalize"
)

// Session is an authenticated write session for one account. BGG's play
// endpoint is not part of the XML API; it needs the cookie set by a JSON
// login. A Session logs in lazily and serializes login and submission.
type Session struct {
	client   *Client
	username string
	password string
	http     *http.Client

	mu       sync.Mutex
	loggedIn bool
}

// NewSession creates a session with its own cookie jar.
func (c *Client) NewSession(username, password string) (*Session, error) {
	if password == "" {
		return nil, ErrNoPassword
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Session{
		client:   c,
		username: username,
		password: password,
		http: &http.Client{
			Timeout:   c.http.Timeout,
			Transport: c.http.Transport,
			Jar:       jar,
		},
	}, nil
}

// Username returns the account the session belongs to.
func (s *Session) Username() string {
	return s.username
}

type loginRequest struct {
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"credentials"`
}

// Login authenticates the session. HTTP 200 and 204 are success.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx)
}

func (s *Session) login(ctx context.Context) error {
	var payload loginRequest
	payload.Credentials.Username = s.username
	payload.Credentials.Password = s.password
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	loginURL := s.client.baseURL + "/login/api/v1"
	resp, err := s.client.do(ctx, s.http, EndpointLogin, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		s.client.setHeaders(req, "")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Referer", s.client.baseURL+"/login")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody := readBodyForError(resp.Body)
		s.loggedIn = false
		logging.Warn().
			Str("username", s.username).
			Int("status", resp.StatusCode).
			Msg("BGG login failed, check the account password")
		return &LoginError{StatusCode: resp.StatusCode, Body: logging.Scrub(string(respBody), s.password)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	s.loggedIn = true
	logging.Debug().Str("username", s.username).Msg("BGG login succeeded")
	return nil
}

// SubmitPlay logs a play. The request must already be validated and carry a
// date. On HTTP 401 the session logs in again once and retries; a second 401
// is returned as *AuthError.
func (s *Session) SubmitPlay(ctx context.Context, req models.PlayRecordRequest) (models.PlayAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		if err := s.login(ctx); err != nil {
			return models.PlayAck{}, err
		}
	}

	status, body, err := s.postPlay(ctx, req)
	if err != nil {
		return models.PlayAck{}, err
	}
	if status == http.StatusUnauthorized {
		logging.Debug().Str("username", s.username).Msg("BGG session expired, logging in again")
		s.loggedIn = false
		if err := s.login(ctx); err != nil {
			return models.PlayAck{}, err
		}
		status, body, err = s.postPlay(ctx, req)
		if err != nil {
			return models.PlayAck{}, err
		}
		if status == http.StatusUnauthorized {
			s.loggedIn = false
			return models.PlayAck{}, &AuthError{Endpoint: EndpointSubmitPlay, StatusCode: status, Body: string(body)}
		}
	}

	if status != http.StatusOK || strings.Contains(strings.ToLower(string(body)), "error") {
		return models.PlayAck{}, &SubmitError{StatusCode: status, Body: string(body)}
	}

	ack, err := normalize.ParsePlayAck(body)
	if err != nil {
		// The play is saved; only the acknowledgement is unreadable.
		logging.Warn().Err(err).Str("username", s.username).Msg("Could not parse play acknowledgement")
		return models.PlayAck{}, nil
	}
	return ack, nil
}

// postPlay sends the geekplay form and returns the status and at most 64KB of body.
func (s *Session) postPlay(ctx context.Context, req models.PlayRecordRequest) (int, []byte, error) {
	form := PlayForm(req)
	playURL := s.client.baseURL + "/geekplay.php"
	referer := fmt.Sprintf("%s/boardgame/%d", s.client.baseURL, req.GameID)

	resp, err := s.client.do(ctx, s.http, EndpointSubmitPlay, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, playURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		s.client.setHeaders(r, "")
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		r.Header.Set("Referer", referer)
		r.Header.Set("X-Requested-With", "XMLHttpRequest")
		return r, nil
	})
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, readBodyForError(resp.Body), nil
}

// PlayForm builds the geekplay.php form for a play.
func PlayForm(req models.PlayRecordRequest) url.Values {
	form := url.Values{}
	form.Set("action", "save")
	form.Set("objectid", strconv.Itoa(req.GameID))
	form.Set("objecttype", "thing")
	form.Set("playdate", req.Date)
	form.Set("quantity", "1")
	form.Set("ajax", "1")
	form.Set("comments", req.Comments)
	form.Set("location", req.Location)
	form.Set("incomplete", boolFlag(req.Incomplete))
	form.Set("nowinstats", boolFlag(req.NoWinStats))
	if req.Length > 0 {
		form.Set("length", strconv.Itoa(req.Length))
	} else {
		form.Set("length", "")
	}

	for i, p := range req.Players {
		prefix := fmt.Sprintf("players[%d]", i)
		form.Set(prefix+"[name]", p.Name)
		form.Set(prefix+"[username]", p.Username)
		form.Set(prefix+"[win]", boolFlag(p.Win))
		if p.Score != "" {
			form.Set(prefix+"[score]", p.Score)
		}
		if p.Position != "" {
			form.Set(prefix+"[position]", p.Position)
		}
		if p.Color != "" {
			form.Set(prefix+"[color]", p.Color)
		}
		if p.Rating != "" {
			form.Set(prefix+"[rating]", p.Rating)
		}
	}
	return form
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
