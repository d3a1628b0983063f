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
	"errors"
	"time"
)

// Status is the outcome of a session lookup.
type Status int

// Lookup outcomes.
const (
	StatusAbsent Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "absent"
	}
}

// Result is the result of a best-effort session lookup. It distinguishes
// "no session" from "lookup failed".
type Result struct {
	Status  Status
	Session *Session
	Err     error
}

// Found returns a Result for the provided session.
func Found(s *Session) Result {
	return Result{Status: StatusFound, Session: s}
}

// Absent returns a Result which tells that there is no session.
func Absent() Result {
	return Result{Status: StatusAbsent}
}

// Failed returns a Result for a lookup which failed with the provided error.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// Token returns the bearer token of the found session or an empty string.
func (r Result) Token() string {
	if r.Status != StatusFound || r.Session == nil {
		return ""
	}

	return r.Session.Token
}

// Authenticated returns true if a session was found.
func (r Result) Authenticated() bool {
	return r.Status == StatusFound && r.Session != nil
}

// A Reader resolves the current session.
type Reader interface {
	ReadSession(ctx context.Context) Result
}

// ReaderFunc is an adapter to allow the use of ordinary functions as Reader.
type ReaderFunc func(ctx context.Context) Result

// ReadSession implements the Reader interface.
func (f ReaderFunc) ReadSession(ctx context.Context) Result {
	return f(ctx)
}

// ErrNoExchange is returned when a session operation requires an incoming
// request but the context has none.
var ErrNoExchange = errors.New("no session exchange in context")

// ContextReader reads the session which was decoded from the client held
// session cookie and bound to the request context by Manager.Handler.
type ContextReader struct{}

// ReadSession implements the Reader interface.
func (ContextReader) ReadSession(ctx context.Context) Result {
	ex, ok := FromContext(ctx)
	if !ok {
		return Absent()
	}

	s, cleared, err := ex.state()
	switch {
	case cleared:
		return Absent()
	case err != nil:
		return Failed(err)
	case s == nil:
		return Absent()
	case s.Expired(time.Now()):
		return Absent()
	}

	return Found(s)
}

// StoreReader resolves the session from the server side Store using the
// session id of the request context.
type StoreReader struct {
	Store *Store
}

// ReadSession implements the Reader interface.
func (r *StoreReader) ReadSession(ctx context.Context) Result {
	ex, ok := FromContext(ctx)
	if !ok {
		return Absent()
	}

	if _, cleared, _ := ex.state(); cleared {
		return Absent()
	}

	sid := ex.SessionID()
	if sid == "" {
		return Absent()
	}

	s, err := r.Store.Get(sid)
	if err != nil {
		return Failed(err)
	}
	if s == nil {
		return Absent()
	}

	return Found(s)
}
