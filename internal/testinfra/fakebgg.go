// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package testinfra

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

const sessionCookie = "SessionID"

// Capture is one request received by FakeBGG.
type Capture struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// FakeBGG is an in-process stand-in for boardgamegeek.com.
type FakeBGG struct {
	Server *httptest.Server

	mu       sync.Mutex
	captures []Capture

	tokens      map[string]string
	passwords   map[string]string
	plays       map[string][]byte
	gamePlays   map[string]map[int]int
	collections map[string]map[string][]byte
	things      map[int]ThingFixture

	collectionPending int
	pendingServed     map[string]int

	submitStatus       int
	submitBody         []byte
	submitUnauthorized int
	submissions        []url.Values
	nextPlayID         int
	sessions           map[string]string

	// Intercept, when set, sees every request first. Returning true means
	// the request was answered.
	Intercept func(w http.ResponseWriter, r *http.Request) bool
}

// NewFakeBGG starts a fake server that is closed when the test ends.
func NewFakeBGG(t *testing.T) *FakeBGG {
	t.Helper()

	f := &FakeBGG{
		tokens:        map[string]string{},
		passwords:     map[string]string{},
		plays:         map[string][]byte{},
		gamePlays:     map[string]map[int]int{},
		collections:   map[string]map[string][]byte{},
		things:        map[int]ThingFixture{},
		pendingServed: map[string]int{},
		sessions:      map[string]string{},
		submitStatus:  http.StatusOK,
		nextPlayID:    90000,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/xmlapi2/plays", f.handlePlays)
	mux.HandleFunc("/xmlapi2/collection", f.handleCollection)
	mux.HandleFunc("/xmlapi2/thing", f.handleThing)
	mux.HandleFunc("/login/api/v1", f.handleLogin)
	mux.HandleFunc("/geekplay.php", f.handleGeekPlay)

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		f.mu.Lock()
		f.captures = append(f.captures, Capture{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: r.Header.Clone(),
			Body:    body,
		})
		intercept := f.Intercept
		f.mu.Unlock()

		if intercept != nil && intercept(w, r) {
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

// SetIntercept installs fn as the Intercept hook.
func (f *FakeBGG) SetIntercept(fn func(w http.ResponseWriter, r *http.Request) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Intercept = fn
}

// URL returns the server's base URL.
func (f *FakeBGG) URL() string {
	return f.Server.URL
}

// SetToken requires token for username's XML API requests.
func (f *FakeBGG) SetToken(username, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[strings.ToLower(username)] = token
}

// SetPassword sets the password accepted by the login endpoint.
func (f *FakeBGG) SetPassword(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[strings.ToLower(username)] = password
}

// SetPlays sets the plays document served for username.
func (f *FakeBGG) SetPlays(username string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays[strings.ToLower(username)] = body
}

// SetGamePlays sets the per-game play count served for username.
func (f *FakeBGG) SetGamePlays(username string, gameID, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := strings.ToLower(username)
	if f.gamePlays[u] == nil {
		f.gamePlays[u] = map[int]int{}
	}
	f.gamePlays[u][gameID] = total
}

// SetCollection sets the collection document served for one sub type.
func (f *FakeBGG) SetCollection(username, subType string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := strings.ToLower(username)
	if f.collections[u] == nil {
		f.collections[u] = map[string][]byte{}
	}
	f.collections[u][subType] = body
}

// SetCollectionPending makes every (user, sub type) collection answer HTTP
// 202 n times before serving the document. A negative n answers 202 forever.
func (f *FakeBGG) SetCollectionPending(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collectionPending = n
	f.pendingServed = map[string]int{}
}

// AddThings registers thing records. Unregistered IDs are served with
// generated names.
func (f *FakeBGG) AddThings(things ...ThingFixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, th := range things {
		f.things[th.ID] = th
	}
}

// SetSubmitResponse overrides the geekplay.php answer.
func (f *FakeBGG) SetSubmitResponse(status int, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitStatus = status
	f.submitBody = body
}

// ExpireSessions makes the next n play submissions answer HTTP 401.
func (f *FakeBGG) ExpireSessions(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitUnauthorized = n
}

// Captures returns a copy of all captured requests.
func (f *FakeBGG) Captures() []Capture {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Capture, len(f.captures))
	copy(out, f.captures)
	return out
}

// CapturesFor returns captured requests for one path.
func (f *FakeBGG) CapturesFor(path string) []Capture {
	var out []Capture
	for _, c := range f.Captures() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Submissions returns the play forms accepted so far.
func (f *FakeBGG) Submissions() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]url.Values, len(f.submissions))
	copy(out, f.submissions)
	return out
}

// authorized checks the bearer token for the request's username.
func (f *FakeBGG) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	want, ok := f.tokens[strings.ToLower(r.URL.Query().Get("username"))]
	if !ok {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+want
}

func writeXML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (f *FakeBGG) handlePlays(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	user := strings.ToLower(q.Get("username"))

	if idStr := q.Get("id"); idStr != "" {
		id, _ := strconv.Atoi(idStr)
		f.mu.Lock()
		total := f.gamePlays[user][id]
		f.mu.Unlock()
		writeXML(w, http.StatusOK, PlaysXML(total))
		return
	}

	f.mu.Lock()
	body, ok := f.plays[user]
	f.mu.Unlock()
	if !ok {
		body = PlaysXML(0)
	}
	writeXML(w, http.StatusOK, body)
}

func (f *FakeBGG) handleCollection(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	if q.Get("brief") == "1" {
		writeXML(w, http.StatusOK, CollectionXML())
		return
	}

	user := strings.ToLower(q.Get("username"))
	subType := q.Get("subtype")
	key := user + "/" + subType

	f.mu.Lock()
	pending := f.collectionPending < 0 || f.pendingServed[key] < f.collectionPending
	if pending {
		f.pendingServed[key]++
	}
	body, ok := f.collections[user][subType]
	f.mu.Unlock()

	if pending {
		writeXML(w, http.StatusAccepted, []byte(ProcessingXML))
		return
	}
	if !ok {
		body = CollectionXML()
	}
	writeXML(w, http.StatusOK, body)
}

func (f *FakeBGG) handleThing(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("id"), ",")
	if len(ids) > 20 {
		writeXML(w, http.StatusBadRequest, []byte(`<?xml version="1.0" encoding="utf-8"?><error><message>Cannot load more than 20 items</message></error>`))
		return
	}

	f.mu.Lock()
	things := make([]ThingFixture, 0, len(ids))
	for _, s := range ids {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || id <= 0 {
			continue
		}
		th, ok := f.things[id]
		if !ok {
			th = ThingFixture{ID: id, MinPlayers: 1, MaxPlayers: 4}
		}
		things = append(things, th)
	}
	f.mu.Unlock()

	writeXML(w, http.StatusOK, ThingsXML(things...))
}

func (f *FakeBGG) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Credentials struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	user := strings.ToLower(payload.Credentials.Username)
	f.mu.Lock()
	want, ok := f.passwords[user]
	if !ok || want != payload.Credentials.Password {
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":{"message":"Invalid username or password"}}`))
		return
	}
	session := fmt.Sprintf("sess-%s-%d", user, len(f.sessions)+1)
	f.sessions[session] = user
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: session, Path: "/"})
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBGG) handleGeekPlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie(sessionCookie)

	f.mu.Lock()
	known := false
	if err == nil {
		_, known = f.sessions[cookie.Value]
	}
	if !known || f.submitUnauthorized > 0 {
		if f.submitUnauthorized > 0 {
			f.submitUnauthorized--
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("You must login to save plays"))
		return
	}

	if err := r.ParseForm(); err != nil {
		f.mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	status, body := f.submitStatus, f.submitBody
	if status == http.StatusOK && body == nil {
		f.nextPlayID++
		f.submissions = append(f.submissions, r.PostForm)
		body = []byte(fmt.Sprintf(`{"playid":"%d","numplays":%d,"html":"Played <b>1</b> time"}`, f.nextPlayID, len(f.submissions)))
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
