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

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/session"
)

// A RequestInterceptor is called with every outgoing request before it is
// sent. It returns the request to continue with. Returning an error stops
// the pipeline and the request is not sent.
type RequestInterceptor func(req *http.Request) (*http.Request, error)

// A ResponseInterceptor is called with the outcome of every request. It can
// transform the response or react to the error and returns the outcome which
// is passed to the next interceptor and finally to the caller.
type ResponseInterceptor func(req *http.Request, response *http.Response, err error) (*http.Response, error)

// An Invalidator destroys the current session.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// InvalidatorFunc is an adapter to allow the use of ordinary functions as
// Invalidator.
type InvalidatorFunc func(ctx context.Context) error

// Invalidate implements the Invalidator interface.
func (f InvalidatorFunc) Invalidate(ctx context.Context) error {
	return f(ctx)
}

// A Navigator instructs the client to perform a full navigation.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// Headers returns a RequestInterceptor which sets the provided headers on
// every request unless already set, plus a unique X-Request-Id.
func Headers(header http.Header) RequestInterceptor {
	return func(req *http.Request) (*http.Request, error) {
		for name, values := range header {
			if req.Header.Get(name) == "" {
				req.Header[name] = values
			}
		}
		if req.Header.Get("X-Request-Id") == "" {
			req.Header.Set("X-Request-Id", uuid.NewV4().String())
		}

		return req, nil
	}
}

// BearerToken returns a RequestInterceptor which resolves the current session
// with the provided reader and attaches its token as bearer authorization.
// Session lookup is best-effort. Failures are logged and the request proceeds
// without authorization, it never fails because of the session.
func BearerToken(reader session.Reader, logger logrus.FieldLogger) RequestInterceptor {
	return func(req *http.Request) (*http.Request, error) {
		result := reader.ReadSession(req.Context())
		switch result.Status {
		case session.StatusFailed:
			logger.WithError(result.Err).Warnln("failed to resolve session, continuing without token")
		case session.StatusFound:
			if token := result.Token(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}

		return req, nil
	}
}

// Unauthorized returns a ResponseInterceptor which destroys the current
// session when the backend responds with an authorization failure.
//
// In the browser environment the session is cleared and a full navigation to
// the provided landing target is requested, also when clearing failed. In the
// server environment only the session record is cleared. The original error
// is always passed on to the caller.
func Unauthorized(env session.Environment, invalidator Invalidator, navigator Navigator, landing string, logger logrus.FieldLogger) ResponseInterceptor {
	return func(req *http.Request, response *http.Response, err error) (*http.Response, error) {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
			return response, err
		}

		ctx := req.Context()
		if invalidator != nil {
			if clearErr := invalidator.Invalidate(ctx); clearErr != nil {
				logger.WithError(clearErr).WithField("environment", env).Errorln("failed to clear session after unauthorized response")
			}
		}

		if env == session.EnvironmentBrowser && navigator != nil {
			navigator.Navigate(ctx, landing)
		}

		return response, err
	}
}
