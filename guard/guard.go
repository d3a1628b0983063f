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
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

var defaultExemptPrefixes = []string{
	"/api/",
	"/static/",
	"/health-check",
	"/metrics",
	"/favicon.ico",
}

var exemptExtensions = map[string]bool{
	".svg":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// RedirectError is returned by Check if the request must be redirected.
type RedirectError struct {
	decision    Decision
	redirectURI *url.URL
}

// Error implements the error interface.
func (err *RedirectError) Error() string {
	return err.decision.String()
}

// Decision returns the decision of the accociated error.
func (err *RedirectError) Decision() Decision {
	return err.decision
}

// RedirectURI returns the redirection URL of the accociated error.
func (err *RedirectError) RedirectURI() *url.URL {
	return err.redirectURI
}

// Guard gates page requests by authentication state.
type Guard struct {
	routes *Routes
	exempt []string

	loginURI *url.URL
	appURI   *url.URL

	reader  session.Reader
	logger  logrus.FieldLogger
	metrics *Metrics
}

type loginParams struct {
	Continue string `url:"continue,omitempty"`
}

// New creates a new Guard with the provided configuration.
func New(c *Config) (*Guard, error) {
	if c.Reader == nil {
		return nil, fmt.Errorf("guard: session reader is required")
	}
	if c.Routes == nil {
		c.Routes = DefaultRoutesConfig()
	}

	loginURI, appURI, err := c.targets()
	if err != nil {
		return nil, fmt.Errorf("guard: %v", err)
	}

	return &Guard{
		routes: NewRoutes(c.Routes.Auth, c.Routes.Protected),
		exempt: c.Routes.Exempt,

		loginURI: loginURI,
		appURI:   appURI,

		reader:  c.Reader,
		logger:  c.Logger,
		metrics: c.Metrics,
	}, nil
}

// Exempt returns true if requests to the provided path are not guarded.
func (g *Guard) Exempt(p string) bool {
	for _, prefix := range g.exempt {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}

	return exemptExtensions[strings.ToLower(path.Ext(p))]
}

// Check decides the provided request. It returns nil if the request is
// allowed and a *RedirectError otherwise.
func (g *Guard) Check(req *http.Request) error {
	result := g.reader.ReadSession(req.Context())
	if result.Status == session.StatusFailed {
		g.logger.WithError(result.Err).Debugln("guard failed to read session, treating as anonymous")
	}

	decision := g.routes.Decide(result.Authenticated(), req.URL.Path)
	g.metrics.observe(decision)

	switch decision {
	case RedirectToLogin:
		return &RedirectError{decision: decision, redirectURI: g.loginURI}
	case RedirectToApp:
		return &RedirectError{decision: decision, redirectURI: g.appURI}
	}

	return nil
}

// Handler returns a http.Handler which checks every request which is not
// exempt before passing it to next. The session must already be bound to
// the request context.
func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if g.Exempt(req.URL.Path) {
			next.ServeHTTP(rw, req)
			return
		}

		err := g.Check(req)
		if err == nil {
			next.ServeHTTP(rw, req)
			return
		}

		redirectErr, ok := err.(*RedirectError)
		if !ok {
			utils.WriteErrorPage(rw, http.StatusInternalServerError, "", "")
			return
		}

		var params interface{}
		if redirectErr.Decision() == RedirectToLogin && req.Method == http.MethodGet {
			params = &loginParams{
				Continue: req.URL.RequestURI(),
			}
		}

		g.logger.WithFields(logrus.Fields{
			"path":     req.URL.Path,
			"decision": redirectErr.Decision(),
		}).Debugln("guard redirect")

		if err = utils.WriteRedirect(rw, http.StatusFound, redirectErr.RedirectURI(), params); err != nil {
			g.logger.WithError(err).Errorln("guard failed to write redirect")
			utils.WriteErrorPage(rw, http.StatusInternalServerError, "", "")
		}
	})
}
