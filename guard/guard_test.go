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

package guard

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/session"
)

var logger = &logrus.Logger{
	Out:       ioutil.Discard,
	Formatter: &logrus.TextFormatter{DisableColors: true},
	Level:     logrus.DebugLevel,
}

func staticReader(result session.Result) session.Reader {
	return session.ReaderFunc(func(ctx context.Context) session.Result {
		return result
	})
}

var authenticated = session.Found(&session.Session{ID: "u1", Token: "tok123"})

func TestDecide(t *testing.T) {
	for _, test := range []struct {
		authenticated bool
		path          string
		decision      Decision
	}{
		{false, "/app/employees", RedirectToLogin},
		{false, "/app", RedirectToLogin},
		{false, "/app/", RedirectToLogin},
		{true, "/login", RedirectToApp},
		{true, "/register", RedirectToApp},
		{true, "/login/", RedirectToApp},
		{false, "/", Allow},
		{false, "/login", Allow},
		{false, "/register", Allow},
		{false, "/apple", Allow},
		{false, "/pricing", Allow},
		{true, "/", Allow},
		{true, "/app/hardware/3", Allow},
		{true, "/loginx", Allow},
		{false, "//app//employees", RedirectToLogin},
		{false, "/static/../app", RedirectToLogin},
		{false, "app", RedirectToLogin},
	} {
		if decision := Decide(test.authenticated, test.path); decision != test.decision {
			t.Errorf("(%v, %q): expected %v, got %v", test.authenticated, test.path, test.decision, decision)
		}
	}
}

func TestDecideIsTotal(t *testing.T) {
	for _, p := range []string{"", ".", "..", "/", "\x00", "%2e%2e", "/app/\xff", "/ä/ö", "////", "/app?x=1"} {
		for _, a := range []bool{true, false} {
			switch decision := Decide(a, p); decision {
			case Allow, RedirectToLogin, RedirectToApp:
			default:
				t.Errorf("(%v, %q): unexpected decision %v", a, p, decision)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	for _, test := range []struct {
		path  string
		class Class
	}{
		{"/", ClassOpen},
		{"/login", ClassAuth},
		{"/register", ClassAuth},
		{"/app", ClassProtected},
		{"/app/chat", ClassProtected},
		{"/application", ClassOpen},
	} {
		if class := Classify(test.path); class != test.class {
			t.Errorf("%q: expected %v, got %v", test.path, test.class, class)
		}
	}
}

func TestParseRoutesConfig(t *testing.T) {
	rc, err := ParseRoutesConfig([]byte(`
login_uri: /signin
protected:
  - /app
  - /admin
`))
	if err != nil {
		t.Fatal(err)
	}

	if rc.LoginURI != "/signin" || rc.AppURI != DefaultAppURI {
		t.Errorf("unexpected targets: %s %s", rc.LoginURI, rc.AppURI)
	}

	routes := NewRoutes(rc.Auth, rc.Protected)
	if routes.Decide(false, "/admin/users") != RedirectToLogin {
		t.Error("expected configured prefix to be protected")
	}
	if routes.Decide(true, "/register") != RedirectToApp {
		t.Error("expected default auth pages")
	}

	if _, err := ParseRoutesConfig([]byte("unknown: true")); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestNewRejectsAbsoluteTargets(t *testing.T) {
	rc := DefaultRoutesConfig()
	rc.LoginURI = "https://evil.example/login"
	if _, err := New(&Config{Routes: rc, Reader: staticReader(session.Absent()), Logger: logger}); err == nil {
		t.Error("expected error")
	}
}

func newTestGuard(t *testing.T, result session.Result, metrics *Metrics) *Guard {
	g, err := New(&Config{
		Reader:  staticReader(result),
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		t.Fatal(err)
	}

	return g
}

func serve(g *Guard, method string, target string) (*httptest.ResponseRecorder, bool) {
	called := false
	next := http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		called = true
	})

	rr := httptest.NewRecorder()
	g.Handler(next).ServeHTTP(rr, httptest.NewRequest(method, target, nil))

	return rr, called
}

func TestHandlerRedirectsToLogin(t *testing.T) {
	g := newTestGuard(t, session.Absent(), nil)

	rr, called := serve(g, http.MethodGet, "/app/employees?page=2")
	if called {
		t.Error("next must not be called")
	}
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if location := rr.Header().Get("Location"); location != "/login?continue=%2Fapp%2Femployees%3Fpage%3D2" {
		t.Errorf("unexpected location %q", location)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected no-store cache header")
	}
}

func TestHandlerRedirectsToApp(t *testing.T) {
	g := newTestGuard(t, authenticated, nil)

	rr, called := serve(g, http.MethodGet, "/login")
	if called {
		t.Error("next must not be called")
	}
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/app" {
		t.Errorf("expected redirect to /app, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestHandlerAllows(t *testing.T) {
	g := newTestGuard(t, session.Absent(), nil)

	for _, target := range []string{"/", "/login", "/api/v1/session", "/static/js/main.js", "/app/logo.png", "/health-check"} {
		rr, called := serve(g, http.MethodGet, target)
		if !called {
			t.Errorf("%s: expected next to be called, got %d", target, rr.Code)
		}
	}
}

func TestHandlerTreatsFailedLookupAsAnonymous(t *testing.T) {
	g := newTestGuard(t, session.Failed(errors.New("broken cookie")), nil)

	rr, called := serve(g, http.MethodPost, "/app")
	if called {
		t.Error("next must not be called")
	}
	if rr.Header().Get("Location") != "/login" {
		t.Errorf("expected redirect without continue, got %q", rr.Header().Get("Location"))
	}
}

func TestDecisionMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	g := newTestGuard(t, session.Absent(), metrics)

	serve(g, http.MethodGet, "/app")
	serve(g, http.MethodGet, "/")
	serve(g, http.MethodGet, "/api/v1/session")

	if v := testutil.ToFloat64(metrics.Decisions.WithLabelValues(RedirectToLogin.String())); v != 1 {
		t.Errorf("expected one login redirect, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.Decisions.WithLabelValues(Allow.String())); v != 1 {
		t.Errorf("expected one allow, got %v", v)
	}
}
