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

package identifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/config"
	"stash.kopano.io/kc/itventory/managers"
	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

// Default logon rate limit per client.
const (
	DefaultLogonRateLimit = rate.Limit(1.0 / 6)
	DefaultLogonRateBurst = 5
)

// Config defines a Identifier's configuration settings.
type Config struct {
	Config *config.Config

	// API is the business API client used to relay registrations.
	API      *api.Client
	Sessions *session.Manager

	AppURI       string
	Timeout      time.Duration
	APIMetrics   *api.Metrics
	LogonLimit   rate.Limit
	LogonBurst   int
}

// Identifier exchanges credentials for sessions and provides the HTTP
// endpoints to sign in, sign out and register.
type Identifier struct {
	Config *Config

	uriPrefix string
	appURI    string

	backend  *api.Client
	api      *api.Client
	sessions *session.Manager
	reader   session.Reader
	limiter  *clientLimiter
	proxies  *utils.Proxies

	logger logrus.FieldLogger
}

// NewIdentifier returns a new Identifier. Logon requests are rate limited
// per client until the provided context is done.
func NewIdentifier(ctx context.Context, c *Config) (*Identifier, error) {
	if c.Config == nil || c.Config.BackendURI == nil {
		return nil, fmt.Errorf("identifier: backend uri is required")
	}
	if c.Sessions == nil {
		return nil, fmt.Errorf("identifier: session manager is required")
	}

	// Credential exchange goes to the backend root, not to the API base.
	backend, err := api.New(&api.Config{
		Name:      "identifier",
		BaseURI:   c.Config.BackendURI,
		Timeout:   c.Timeout,
		Transport: c.Config.HTTPTransport,
		Logger:    c.Config.Logger,
		Metrics:   c.APIMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("identifier: %v", err)
	}

	limit := c.LogonLimit
	if limit == 0 {
		limit = DefaultLogonRateLimit
	}
	burst := c.LogonBurst
	if burst <= 0 {
		burst = DefaultLogonRateBurst
	}
	appURI := c.AppURI
	if appURI == "" {
		appURI = "/app"
	}

	i := &Identifier{
		Config: c,

		uriPrefix: "/api/v1",
		appURI:    appURI,

		backend:  backend,
		api:      c.API,
		sessions: c.Sessions,
		reader:   c.Sessions.Reader(session.EnvironmentBrowser),
		limiter:  newClientLimiter(ctx, limit, burst),
		proxies: &utils.Proxies{
			IPs:  c.Config.TrustedProxyIPs,
			Nets: c.Config.TrustedProxyNets,
		},

		logger: c.Config.Logger,
	}

	return i, nil
}

// RegisterManagers implements the managers.ServiceUsesManagers interface. A
// registered "register" API client is used to relay registrations unless the
// accociated Identifier was created with one.
func (i *Identifier) RegisterManagers(mgrs *managers.Managers) error {
	if i.api != nil {
		return nil
	}

	if m, ok := mgrs.Get("register"); ok {
		client, ok := m.(*api.Client)
		if !ok {
			return fmt.Errorf("identifier: register manager is not an API client")
		}
		i.api = client
	}

	return nil
}

// AddRoutes adds the endpoint routes of the accociated Identifier to the
// provided router.
func (i *Identifier) AddRoutes(ctx context.Context, router *mux.Router) {
	r := router.PathPrefix(i.uriPrefix).Subrouter()

	r.Handle("/logon", i.SecureHandler(http.HandlerFunc(i.handleLogon))).Methods(http.MethodPost)
	r.Handle("/logoff", i.SecureHandler(http.HandlerFunc(i.handleLogoff))).Methods(http.MethodPost)
	r.Handle("/session", http.HandlerFunc(i.handleSession)).Methods(http.MethodGet)
	if i.api != nil {
		r.Handle("/register", i.SecureHandler(http.HandlerFunc(i.handleRegister))).Methods(http.MethodPost)
	}

	router.Handle("/login", i.sameOriginHandler(http.HandlerFunc(i.handleLoginForm))).Methods(http.MethodPost)
}

// ErrorPage writes a HTML error page to the provided ResponseWriter.
func (i *Identifier) ErrorPage(rw http.ResponseWriter, code int, title string, message string) {
	utils.WriteErrorPage(rw, code, title, message)
}

// continueURI returns the provided target if it is a local path and the
// application root otherwise.
func (i *Identifier) continueURI(target string) string {
	if target == "" {
		return i.appURI
	}

	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" || u.Opaque != "" {
		return i.appURI
	}
	if len(u.Path) == 0 || u.Path[0] != '/' || (len(u.Path) > 1 && (u.Path[1] == '/' || u.Path[1] == '\\')) {
		return i.appURI
	}

	return u.RequestURI()
}
