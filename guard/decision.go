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
	"path"
	"strings"

	mapset "github.com/deckarep/golang-set"
)

// Class is the classification of a request path.
type Class int

// Path classes.
const (
	ClassOpen Class = iota
	ClassAuth
	ClassProtected
)

func (c Class) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassProtected:
		return "protected"
	default:
		return "open"
	}
}

// Decision is the outcome of a route check.
type Decision int

// Decisions.
const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToApp
)

func (d Decision) String() string {
	switch d {
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToApp:
		return "redirect_app"
	default:
		return "allow"
	}
}

// Routes holds the route sets used to classify request paths. Paths are
// matched by segments, so an entry of /app matches /app and /app/employees
// but not /apple. Paths which are in neither set are open.
type Routes struct {
	auth      mapset.Set
	protected mapset.Set
}

// NewRoutes creates Routes with the provided auth pages and protected
// prefixes.
func NewRoutes(auth []string, protected []string) *Routes {
	r := &Routes{
		auth:      mapset.NewSet(),
		protected: mapset.NewSet(),
	}
	for _, p := range auth {
		r.auth.Add(cleanPath(p))
	}
	for _, p := range protected {
		r.protected.Add(cleanPath(p))
	}

	return r
}

// DefaultRoutes returns the routes of the dashboard: the login and register
// pages and the application below /app.
func DefaultRoutes() *Routes {
	return NewRoutes([]string{"/login", "/register"}, []string{"/app"})
}

var defaultRoutes = DefaultRoutes()

// Classify returns the Class of the provided path.
func (r *Routes) Classify(p string) Class {
	p = cleanPath(p)

	auth := false
	protected := false
	forEachPrefix(p, func(prefix string) {
		if r.auth.Contains(prefix) {
			auth = true
		}
		if r.protected.Contains(prefix) {
			protected = true
		}
	})

	switch {
	case auth:
		return ClassAuth
	case protected:
		return ClassProtected
	default:
		return ClassOpen
	}
}

// Decide returns the Decision for a request to the provided path.
func (r *Routes) Decide(authenticated bool, p string) Decision {
	switch r.Classify(p) {
	case ClassAuth:
		if authenticated {
			return RedirectToApp
		}
	case ClassProtected:
		if !authenticated {
			return RedirectToLogin
		}
	}

	return Allow
}

// Classify returns the Class of the provided path using the default routes.
func Classify(p string) Class {
	return defaultRoutes.Classify(p)
}

// Decide returns the Decision for the provided path using the default routes.
func Decide(authenticated bool, p string) Decision {
	return defaultRoutes.Decide(authenticated, p)
}

func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return path.Clean(p)
}

// forEachPrefix calls fn with every segment prefix of the provided clean
// path, for example /app, /app/employees and /app/employees/3 for
// /app/employees/3.
func forEachPrefix(p string, fn func(string)) {
	if p == "/" {
		fn(p)
		return
	}

	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			fn(p[:i])
		}
	}
	fn(p)
}
