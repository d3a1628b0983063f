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

package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"stash.kopano.io/kgol/rndm"

	"stash.kopano.io/kc/itventory/encryption"
)

const (
	// DefaultCookieName is the name of the session cookie.
	DefaultCookieName = "__Secure-ITV" // ItVentory session
	// DefaultLifetime is the session lifetime used when the backend token has
	// no expiry of its own.
	DefaultLifetime = 12 * time.Hour

	sessionIDLength = 32
)

// Config defines a Manager's configuration settings.
type Config struct {
	CookieName   string
	CookieSecure bool
	CookieKey    []byte
	StoreKey     *[encryption.KeySize]byte
	Lifetime     time.Duration

	Logger logrus.FieldLogger
}

// Manager is the session and identity provider of itventoryd. It creates,
// resolves and destroys sessions.
type Manager struct {
	store *Store
	codec *CookieCodec

	lifetime time.Duration
	logger   logrus.FieldLogger
}

// NewManager creates a new Manager with the provided configuration. The
// session store is purged until the provided context is done.
func NewManager(ctx context.Context, c *Config) (*Manager, error) {
	if c.StoreKey == nil {
		return nil, fmt.Errorf("session store key is required")
	}

	cookieName := c.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	codec, err := NewCookieCodec(cookieName, c.CookieKey, c.CookieSecure)
	if err != nil {
		return nil, err
	}

	lifetime := c.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return &Manager{
		store: NewStore(ctx, c.StoreKey, c.Logger),
		codec: codec,

		lifetime: lifetime,
		logger:   c.Logger,
	}, nil
}

// Store returns the accociated manager's server side session Store.
func (m *Manager) Store() *Store {
	return m.store
}

// Handler returns a http.Handler which resolves the session cookie of every
// request and binds the result to the request context before calling next.
func (m *Manager) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ex := NewExchange(rw, req)

		if value := m.codec.Read(req); value != "" {
			s, err := m.resolve(value)
			if err != nil {
				m.logger.WithError(err).Debugln("ignoring invalid session cookie")
			}
			if s == nil && err == nil {
				// Server side record is gone, drop the stale cookie.
				m.codec.Remove(rw)
			}
			ex.set(s, err)
		}

		req = req.WithContext(NewContext(req.Context(), ex))
		ex.Request = req
		next.ServeHTTP(rw, req)
	})
}

// resolve decodes the provided cookie value and checks that the server side
// record of the session still exists.
func (m *Manager) resolve(value string) (*Session, error) {
	s, err := m.codec.Decode(value, time.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid session cookie: %v", err)
	}

	record, err := m.store.Get(s.SessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	return s, nil
}

// Create persists the provided session and sets the session cookie on the
// response of the request bound to ctx. A new session id is assigned when
// the session has none yet.
func (m *Manager) Create(ctx context.Context, s *Session) error {
	ex, ok := FromContext(ctx)
	if !ok {
		return ErrNoExchange
	}

	now := time.Now()
	if s.SessionID == "" {
		s.SessionID = rndm.GenerateRandomString(sessionIDLength)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(m.lifetime)
		if tokenExpiry, ok := TokenExpiry(s.Token); ok && tokenExpiry.Before(s.ExpiresAt) {
			s.ExpiresAt = tokenExpiry
		}
	}

	if err := m.store.Set(s); err != nil {
		return err
	}
	if err := m.codec.Write(ex.ResponseWriter, s); err != nil {
		m.store.Delete(s.SessionID)
		return fmt.Errorf("failed to serialize session cookie: %v", err)
	}

	// Replacing a previous session of the same client.
	if previous := ex.SessionID(); previous != "" && previous != s.SessionID {
		m.store.Delete(previous)
	}
	ex.set(s, nil)

	m.logger.WithFields(logrus.Fields{
		"user":    s.ID,
		"expires": s.ExpiresAt,
	}).Debugln("session created")

	return nil
}

// Clear destroys the session of the request bound to ctx by removing the
// server side record and expiring the session cookie. Clear never redirects.
// Clearing an already cleared session is a no-op.
func (m *Manager) Clear(ctx context.Context) error {
	ex, ok := FromContext(ctx)
	if !ok {
		return ErrNoExchange
	}

	sid, first := ex.clear()
	if !first {
		return nil
	}

	m.store.Delete(sid)
	m.codec.Remove(ex.ResponseWriter)

	m.logger.WithField("session", sid != "").Debugln("session cleared")
	return nil
}

// Reader returns the session Reader for the provided environment.
func (m *Manager) Reader(env Environment) Reader {
	if env == EnvironmentServer {
		return &StoreReader{Store: m.store}
	}

	return ContextReader{}
}

// Invalidator returns the function which destroys the session in the
// provided environment.
func (m *Manager) Invalidator(env Environment) func(ctx context.Context) error {
	if env == EnvironmentServer {
		return m.clearRecord
	}

	return m.Clear
}

// clearRecord removes the server side session record of the request bound
// to ctx only. Further reads through any Reader return no session.
func (m *Manager) clearRecord(ctx context.Context) error {
	ex, ok := FromContext(ctx)
	if !ok {
		return ErrNoExchange
	}

	sid, first := ex.clear()
	if first {
		m.store.Delete(sid)
	}

	return nil
}
