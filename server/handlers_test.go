/*
 * Copyright 2020 Kopano and its licensors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License, version 3,
 * as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package server

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/identifier"
	"stash.kopano.io/kc/itventory/itventory"
	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

var testUser = &session.Session{
	ID:       "u1",
	Email:    "jane@example.com",
	Username: "jane",
	Token:    "tok-1",
}

func newSession() *session.Session {
	s := *testUser
	return &s
}

func (ts *testServer) do(t *testing.T, method string, p string, body io.Reader, cookie *http.Cookie, secure bool) *http.Response {
	req, err := http.NewRequest(method, ts.URL+p, body)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if secure {
		req.Header.Set("Origin", ts.URL)
		req.Header.Set(identifier.XSRFHeader, "1")
	}

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	response, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return response
}

func readBody(t *testing.T, response *http.Response) string {
	defer response.Body.Close()
	b, err := ioutil.ReadAll(response.Body)
	if err != nil {
		t.Fatal(err)
	}

	return string(b)
}

func decodeError(t *testing.T, response *http.Response) *utils.ErrorResponse {
	defer response.Body.Close()
	var e utils.ErrorResponse
	if err := json.NewDecoder(response.Body).Decode(&e); err != nil {
		t.Fatal(err)
	}

	return &e
}

func TestHealthCheckHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create our server.
	ts := newTestServer(ctx, t, "", "", "")
	defer ts.Close()

	// Prepare the request to pass to our handler.
	req, err := http.NewRequest("GET", "/health-check", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Create response recorder to record the response.
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	// Check the status code is what we expect.
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
}

func TestProxyHandlerAttachesToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/itventory/employee" || req.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected backend request %s", req.URL)
		}
		rw.Header().Set("Content-Type", "application/json")
		if req.Header.Get("Authorization") != "Bearer tok-1" {
			rw.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(rw, `[{"id":"e1"}]`)
	}))
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	cookie := ts.signIn(t, newSession())
	response := ts.do(t, http.MethodGet, "/api/v1/itventory/employee?page=2", nil, cookie, false)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}
	if ct := response.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if body := readBody(t, response); body != `[{"id":"e1"}]` {
		t.Errorf("unexpected body %q", body)
	}

	// Anonymous requests are sent without token.
	response = ts.do(t, http.MethodGet, "/api/v1/itventory/employee?page=2", nil, nil, false)
	readBody(t, response)
	if response.StatusCode != http.StatusForbidden {
		t.Errorf("expected backend rejection for anonymous request, got %d", response.StatusCode)
	}
}

func TestProxyHandlerRelaysClientErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost || req.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected backend request %s %s", req.Method, req.Header.Get("Content-Type"))
		}
		b, _ := ioutil.ReadAll(req.Body)
		if string(b) != `{"name":""}` {
			t.Errorf("unexpected backend body %q", b)
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusBadRequest)
		io.WriteString(rw, `{"message":"Name is required.","errors":{"name":["required"]}}`)
	}))
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	cookie := ts.signIn(t, newSession())
	response := ts.do(t, http.MethodPost, "/api/v1/itventory/department", strings.NewReader(`{"name":""}`), cookie, true)
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}
	e := decodeError(t, response)
	if e.Message != "Name is required." || len(e.Errors["name"]) != 1 {
		t.Errorf("unexpected error response %+v", e)
	}
}

func TestProxyHandlerRequiresXSRF(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	called := false
	backend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		called = true
	}))
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	cookie := ts.signIn(t, newSession())
	response := ts.do(t, http.MethodDelete, "/api/v1/itventory/department/d1", nil, cookie, false)
	readBody(t, response)
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status %d", response.StatusCode)
	}
	if called {
		t.Error("backend must not be called")
	}
}

func TestProxyHandlerUnauthorized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusUnauthorized)
	}))
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	cookie := ts.signIn(t, newSession())
	if ts.sessions.Store().Count() != 1 {
		t.Fatalf("expected one session record")
	}

	response := ts.do(t, http.MethodGet, "/api/v1/itventory/hardware", nil, cookie, false)
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}
	cleared := false
	for _, c := range response.Cookies() {
		if c.Name == cookie.Name && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be expired")
	}
	if e := decodeError(t, response); e.Redirect != "/" {
		t.Errorf("expected navigation to landing page, got %q", e.Redirect)
	}
	if ts.sessions.Store().Count() != 0 {
		t.Errorf("expected session record to be removed")
	}
}

func TestProxyHandlerServerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
		io.WriteString(rw, "stack trace")
	}))
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	response := ts.do(t, http.MethodGet, "/api/v1/itventory/software", nil, ts.signIn(t, newSession()), false)
	if response.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}
	if e := decodeError(t, response); e.Message != api.MessageServerError {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func newSummaryBackend(t *testing.T, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if status != http.StatusOK {
			rw.WriteHeader(status)
			return
		}
		if req.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("missing bearer token for %s", req.URL.Path)
		}

		rw.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/itventory/employee":
			io.WriteString(rw, `[{"id":"e1"},{"id":"e2"}]`)
		case "/itventory/hardware":
			io.WriteString(rw, `[{"id":"h1","isActive":true},{"id":"h2","isActive":false}]`)
		case "/itventory/software":
			io.WriteString(rw, `[{"id":"s1"}]`)
		case "/itventory/department":
			io.WriteString(rw, `[]`)
		case "/itventory/office":
			io.WriteString(rw, `[{"id":"o1"}]`)
		default:
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestDashboardHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := newSummaryBackend(t, http.StatusOK)
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	response := ts.do(t, http.MethodGet, "/api/v1/dashboard", nil, nil, false)
	readBody(t, response)
	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected anonymous request to be rejected, got %d", response.StatusCode)
	}

	response = ts.do(t, http.MethodGet, "/api/v1/dashboard", nil, ts.signIn(t, newSession()), false)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}
	defer response.Body.Close()

	var dashboard DashboardResponse
	if err := json.NewDecoder(response.Body).Decode(&dashboard); err != nil {
		t.Fatal(err)
	}
	if dashboard.User == nil || dashboard.User.ID != "u1" || dashboard.User.Email != "jane@example.com" {
		t.Errorf("unexpected user %+v", dashboard.User)
	}
	expected := itventory.Summary{
		Employees:      2,
		Hardware:       2,
		Software:       1,
		Departments:    0,
		Offices:        1,
		ActiveHardware: 1,
	}
	if dashboard.Summary == nil || *dashboard.Summary != expected {
		t.Errorf("unexpected summary %+v", dashboard.Summary)
	}
}

func TestDashboardHandlerUnauthorized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := newSummaryBackend(t, http.StatusUnauthorized)
	defer backend.Close()

	ts := newTestServer(ctx, t, backend.URL, "", "")
	defer ts.Close()

	cookie := ts.signIn(t, newSession())
	response := ts.do(t, http.MethodGet, "/api/v1/dashboard", nil, cookie, false)
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}
	// Server side invalidation never requests a navigation.
	if e := decodeError(t, response); e.Redirect != "/login" {
		t.Errorf("unexpected redirect %q", e.Redirect)
	}
	if ts.sessions.Store().Count() != 0 {
		t.Errorf("expected session record to be removed")
	}

	// The stale cookie no longer resolves.
	response = ts.do(t, http.MethodGet, "/api/v1/dashboard", nil, cookie, false)
	readBody(t, response)
	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected status %d", response.StatusCode)
	}
}

func TestChatHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aiBackend := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("missing bearer token for %s", req.URL.Path)
		}
		rw.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/conversations":
			if userID := req.URL.Query().Get("userId"); userID != "u1" {
				t.Errorf("unexpected user id %q", userID)
			}
			io.WriteString(rw, `{"conversations":[{"id":"t1","title":"Laptops"}]}`)
		case "/thread/t1/messages":
			io.WriteString(rw, `{"conversations":[{"text":"hi","role":"user"},{"text":"hello","role":"assistant"}]}`)
		case "/ask-ai":
			var r map[string]string
			json.NewDecoder(req.Body).Decode(&r)
			if r["resourceId"] != "u1" || r["question"] != "How many laptops?" || r["threadId"] != "t1" {
				t.Errorf("unexpected ask request %v", r)
			}
			io.WriteString(rw, `{"answer":"Twelve.","threadId":"t1","resourceId":"u1"}`)
		default:
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	defer aiBackend.Close()

	ts := newTestServer(ctx, t, "", aiBackend.URL, "")
	defer ts.Close()

	cookie := ts.signIn(t, newSession())

	response := ts.do(t, http.MethodGet, "/api/v1/chat/conversations", nil, cookie, false)
	if body := readBody(t, response); response.StatusCode != http.StatusOK || !strings.Contains(body, `"Laptops"`) {
		t.Errorf("unexpected conversations response %d %s", response.StatusCode, body)
	}

	response = ts.do(t, http.MethodGet, "/api/v1/chat/threads/t1/messages", nil, cookie, false)
	if body := readBody(t, response); response.StatusCode != http.StatusOK || !strings.Contains(body, `"t1-1"`) {
		t.Errorf("unexpected messages response %d %s", response.StatusCode, body)
	}

	// A client provided resource id is ignored.
	response = ts.do(t, http.MethodPost, "/api/v1/chat/ask", strings.NewReader(`{"question":"How many laptops?","threadId":"t1","resourceId":"u2"}`), cookie, true)
	if body := readBody(t, response); response.StatusCode != http.StatusOK || !strings.Contains(body, `"Twelve."`) {
		t.Errorf("unexpected ask response %d %s", response.StatusCode, body)
	}

	response = ts.do(t, http.MethodPost, "/api/v1/chat/ask", strings.NewReader(`{"question":"  "}`), cookie, true)
	readBody(t, response)
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("expected empty question to be rejected, got %d", response.StatusCode)
	}

	response = ts.do(t, http.MethodGet, "/api/v1/chat/conversations", nil, nil, false)
	readBody(t, response)
	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected anonymous request to be rejected, got %d", response.StatusCode)
	}
}

func TestStaticHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir, err := ioutil.TempDir("", "itventory-static")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if err = os.MkdirAll(filepath.Join(dir, "static"), 0700); err != nil {
		t.Fatal(err)
	}
	if err = ioutil.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0600); err != nil {
		t.Fatal(err)
	}
	if err = ioutil.WriteFile(filepath.Join(dir, "static", "app.js"), []byte("console.log(1)"), 0600); err != nil {
		t.Fatal(err)
	}

	ts := newTestServer(ctx, t, "", "", dir)
	defer ts.Close()

	cookie := ts.signIn(t, newSession())

	for _, test := range []struct {
		path     string
		cookie   *http.Cookie
		status   int
		body     string
		location string
	}{
		{"/", nil, http.StatusOK, "<html>app</html>", ""},
		{"/register", nil, http.StatusOK, "<html>app</html>", ""},
		{"/app/employees", nil, http.StatusFound, "", "/login?continue=%2Fapp%2Femployees"},
		{"/app/employees", cookie, http.StatusOK, "<html>app</html>", ""},
		{"/login", cookie, http.StatusFound, "", "/app"},
		{"/static/app.js", nil, http.StatusOK, "console.log(1)", ""},
		{"/static/missing.js", nil, http.StatusNotFound, "", ""},
		{"/api/v1/unknown", cookie, http.StatusNotFound, "", ""},
	} {
		response := ts.do(t, http.MethodGet, test.path, nil, test.cookie, false)
		body := readBody(t, response)
		if response.StatusCode != test.status {
			t.Errorf("%s: unexpected status %d", test.path, response.StatusCode)
			continue
		}
		if test.body != "" && body != test.body {
			t.Errorf("%s: unexpected body %q", test.path, body)
		}
		if location := response.Header.Get("Location"); location != test.location {
			t.Errorf("%s: unexpected location %q", test.path, location)
		}
	}
}
