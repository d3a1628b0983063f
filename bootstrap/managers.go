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

package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/ai"
	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/guard"
	"stash.kopano.io/kc/itventory/identifier"
	"stash.kopano.io/kc/itventory/itventory"
	"stash.kopano.io/kc/itventory/managers"
	"stash.kopano.io/kc/itventory/session"
)

const apiBasePath = "/itventory"

func newManagers(ctx context.Context, bs *bootstrap) (*managers.Managers, error) {
	logger := bs.cfg.Logger

	var err error
	mgrs := managers.New()

	// Session manager.
	sessions, err := session.NewManager(ctx, &session.Config{
		CookieName:   bs.cookieName,
		CookieSecure: bs.cookieSecure,
		CookieKey:    bs.cookieKey,
		StoreKey:     bs.storeKey,
		Lifetime:     bs.sessionLifetime,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %v", err)
	}
	mgrs.Set("sessions", sessions)

	// Route guard.
	routes := guard.DefaultRoutesConfig()
	if bs.guardRoutesConf != "" {
		logger.WithField("file", bs.guardRoutesConf).Infoln("loading guard routes")
		routes, err = guard.LoadRoutesConfig(bs.guardRoutesConf)
		if err != nil {
			return nil, fmt.Errorf("failed to load guard routes: %v", err)
		}
	}
	routeGuard, err := guard.New(&guard.Config{
		Routes: routes,
		Reader: sessions.Reader(session.EnvironmentBrowser),

		Logger:  logger,
		Metrics: guard.NewMetrics(bs.registry),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create route guard: %v", err)
	}
	mgrs.Set("guard", routeGuard)

	// API clients.
	apiMetrics := api.NewMetrics(bs.registry)
	apiURI := withPath(bs.cfg.BackendURI, apiBasePath)

	proxy, err := bs.newClient("itventory", apiURI, session.EnvironmentBrowser, sessions, apiMetrics, 0)
	if err != nil {
		return nil, err
	}
	mgrs.Set("itventory", proxy)

	dashboard, err := bs.newClient("dashboard", apiURI, session.EnvironmentServer, sessions, apiMetrics, 0)
	if err != nil {
		return nil, err
	}
	mgrs.Set("dashboard", itventory.NewClient(dashboard))

	register, err := bs.newClient("register", apiURI, "", nil, apiMetrics, 0)
	if err != nil {
		return nil, err
	}
	mgrs.Set("register", register)

	if bs.cfg.AIURI != nil {
		chat, errChat := bs.newClient("ai", bs.cfg.AIURI, session.EnvironmentBrowser, sessions, apiMetrics, ai.DefaultTimeout)
		if errChat != nil {
			return nil, errChat
		}
		mgrs.Set("ai", ai.NewClient(chat))
	}

	// Credential exchange.
	i, err := identifier.NewIdentifier(ctx, &identifier.Config{
		Config: bs.cfg,

		Sessions:   sessions,
		AppURI:     routes.AppURI,
		APIMetrics: apiMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create identifier: %v", err)
	}
	mgrs.Set("identifier", i)

	return mgrs, nil
}

// newClient creates an API client for the provided environment. Without a
// session manager the client sends anonymous requests.
func (bs *bootstrap) newClient(name string, baseURI *url.URL, env session.Environment, sessions *session.Manager, metrics *api.Metrics, timeout time.Duration) (*api.Client, error) {
	c := &api.Config{
		Name:    name,
		BaseURI: baseURI,
		Timeout: timeout,

		Transport: bs.cfg.HTTPTransport,
		Logger:    bs.cfg.Logger,
		Metrics:   metrics,
	}
	if sessions != nil {
		c.Environment = env
		c.Reader = sessions.Reader(env)
		c.Invalidator = api.InvalidatorFunc(sessions.Invalidator(env))
		if env == session.EnvironmentBrowser {
			c.Navigator = session.Navigator{}
		}
	}

	client, err := api.New(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %v", name, err)
	}

	bs.cfg.Logger.WithFields(logrus.Fields{
		"client":      name,
		"uri":         baseURI.String(),
		"environment": env,
	}).Debugln("api client set up")

	return client, nil
}

func withPath(base *url.URL, p string) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + p

	return &u
}
