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

package utils

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newProxies(t *testing.T) *Proxies {
	ip := net.ParseIP("10.0.0.1")
	_, ipNet, err := net.ParseCIDR("192.168.0.0/16")
	if err != nil {
		t.Fatal(err)
	}

	return &Proxies{
		IPs:  []*net.IP{&ip},
		Nets: []*net.IPNet{ipNet},
	}
}

func TestProxies(t *testing.T) {
	proxies := newProxies(t)

	for _, test := range []struct {
		remoteAddr string
		trusted    bool
		clientIP   string
		host       string
	}{
		{"10.0.0.1:1234", true, "203.0.113.7", "dashboard.example.com"},
		{"192.168.4.2:1234", true, "203.0.113.7", "dashboard.example.com"},
		{"10.0.0.2:1234", false, "10.0.0.2", "internal:8780"},
		{"invalid", false, "invalid", "internal:8780"},
	} {
		req := httptest.NewRequest(http.MethodGet, "http://internal:8780/app", nil)
		req.RemoteAddr = test.remoteAddr
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		req.Header.Set("X-Forwarded-Host", "dashboard.example.com")

		if trusted := proxies.Trusted(req); trusted != test.trusted {
			t.Errorf("%s: trusted got %v want %v", test.remoteAddr, trusted, test.trusted)
		}
		if clientIP := proxies.ClientIP(req); clientIP != test.clientIP {
			t.Errorf("%s: client ip got %v want %v", test.remoteAddr, clientIP, test.clientIP)
		}
		if host := proxies.Host(req, false); host != test.host {
			t.Errorf("%s: host got %v want %v", test.remoteAddr, host, test.host)
		}
		if host := proxies.Host(req, true); host != "dashboard.example.com" {
			t.Errorf("%s: trusted host got %v", test.remoteAddr, host)
		}
	}
}

func TestOriginHost(t *testing.T) {
	for _, test := range []struct {
		origin   string
		referer  string
		expected string
	}{
		{"https://dashboard.example.com", "", "dashboard.example.com"},
		{"", "https://dashboard.example.com/login?continue=%2Fapp", "dashboard.example.com"},
		{"null", "https://dashboard.example.com/login", "dashboard.example.com"},
		{"https://a.example.com", "https://b.example.com/", "a.example.com"},
		{"", "", ""},
		{"%zz", "", ""},
	} {
		header := make(http.Header)
		if test.origin != "" {
			header.Set("Origin", test.origin)
		}
		if test.referer != "" {
			header.Set("Referer", test.referer)
		}
		if host := OriginHost(header); host != test.expected {
			t.Errorf("origin %q referer %q: got %q want %q", test.origin, test.referer, host, test.expected)
		}
	}
}

type describedError struct{}

func (describedError) Error() string       { return "request failed" }
func (describedError) Description() string { return "Email already in use" }

func TestDescribeError(t *testing.T) {
	err := fmt.Errorf("register: %w", describedError{})

	if described := DescribeError(err); described.Error() != "register: request failed - Email already in use" {
		t.Errorf("unexpected description %q", described)
	}
	plain := errors.New("plain")
	if DescribeError(plain) != plain {
		t.Error("errors without description must be returned as is")
	}

	fields := ErrorAsFields(err)
	if fields["desc"] != "Email already in use" || fields["cause"] != "request failed" {
		t.Errorf("unexpected fields %v", fields)
	}
	if ErrorAsFields(nil) != nil {
		t.Error("expected no fields for nil error")
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	if err := WriteJSON(rr, http.StatusCreated, map[string]bool{"success": true}, ""); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusCreated || rr.Header().Get("Content-Type") != defaultJSONContentType {
		t.Errorf("unexpected response %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if body := rr.Body.String(); body != "{\n  \"success\": true\n}\n" {
		t.Errorf("unexpected body %q", body)
	}

	rr = httptest.NewRecorder()
	if err := WriteJSON(rr, http.StatusOK, make(chan int), ""); err == nil {
		t.Error("expected encoding error")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("unexpected status %d", rr.Code)
	}
}

func TestWriteRedirect(t *testing.T) {
	uri, _ := url.Parse("/login")

	rr := httptest.NewRecorder()
	err := WriteRedirect(rr, http.StatusFound, uri, &struct {
		Continue string `url:"continue,omitempty"`
		Error    string `url:"error,omitempty"`
	}{
		Continue: "/app/hardware?q=dell xps",
	})
	if err != nil {
		t.Fatal(err)
	}

	if location := rr.Header().Get("Location"); location != "/login?continue=%2Fapp%2Fhardware%3Fq%3Ddell%20xps" {
		t.Errorf("unexpected location %q", location)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("redirects must not be cached")
	}
}
