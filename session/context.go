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
	"net/http"
	"sync"
)

// key is an unexported type for keys defined in this package.
// This prevents collisions with keys defined in other packages.
type key int

// exchangeKey is the key for *Exchange in Contexts. It is unexported; clients
// use session.NewContext and session.FromContext instead of using this key
// directly.
var exchangeKey key

// An Exchange binds the session state of a single incoming HTTP request. It
// is created by Manager.Handler and carries the session as decoded from the
// client held cookie, the session id and the pending navigation instruction.
// Exchange methods are safe to call from multiple Go routines.
type Exchange struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter

	mutex      sync.RWMutex
	session    *Session
	sessionID  string
	err        error
	cleared    bool
	navigateTo string
}

// NewExchange creates a new Exchange for the provided request and response.
func NewExchange(rw http.ResponseWriter, req *http.Request) *Exchange {
	return &Exchange{
		Request:        req,
		ResponseWriter: rw,
	}
}

// NewContext returns a new Context that carries value ex.
func NewContext(ctx context.Context, ex *Exchange) context.Context {
	return context.WithValue(ctx, exchangeKey, ex)
}

// FromContext returns the Exchange value stored in ctx, if any.
func FromContext(ctx context.Context) (*Exchange, bool) {
	ex, ok := ctx.Value(exchangeKey).(*Exchange)
	return ex, ok
}

// Session returns the accociated session or nil if there is none.
func (ex *Exchange) Session() *Session {
	ex.mutex.RLock()
	defer ex.mutex.RUnlock()

	return ex.session
}

func (ex *Exchange) state() (*Session, bool, error) {
	ex.mutex.RLock()
	defer ex.mutex.RUnlock()

	return ex.session, ex.cleared, ex.err
}

// SessionID returns the server side session id of the accociated exchange.
func (ex *Exchange) SessionID() string {
	ex.mutex.RLock()
	defer ex.mutex.RUnlock()

	return ex.sessionID
}

func (ex *Exchange) set(s *Session, err error) {
	ex.mutex.Lock()
	ex.session = s
	ex.err = err
	ex.cleared = false
	if s != nil {
		ex.sessionID = s.SessionID
	}
	ex.mutex.Unlock()
}

// clear marks the accociated exchange as cleared and returns the session id
// plus true if it was not cleared before.
func (ex *Exchange) clear() (string, bool) {
	ex.mutex.Lock()
	defer ex.mutex.Unlock()

	if ex.cleared {
		return ex.sessionID, false
	}
	ex.cleared = true
	ex.session = nil
	ex.err = nil

	return ex.sessionID, true
}

// Navigate records that the client should perform a full navigation to the
// provided target. Repeated calls keep the first target.
func (ex *Exchange) Navigate(target string) {
	ex.mutex.Lock()
	if ex.navigateTo == "" {
		ex.navigateTo = target
	}
	ex.mutex.Unlock()
}

// NavigateTo returns the recorded navigation target, if any.
func (ex *Exchange) NavigateTo() (string, bool) {
	ex.mutex.RLock()
	defer ex.mutex.RUnlock()

	return ex.navigateTo, ex.navigateTo != ""
}

// Navigator records navigation instructions on the Exchange bound to the
// provided context.
type Navigator struct{}

// Navigate implements the api.Navigator interface.
func (Navigator) Navigate(ctx context.Context, target string) {
	if ex, ok := FromContext(ctx); ok {
		ex.Navigate(target)
	}
}
