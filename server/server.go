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

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/ai"
	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/guard"
	"stash.kopano.io/kc/itventory/identifier"
	"stash.kopano.io/kc/itventory/itventory"
	"stash.kopano.io/kc/itventory/session"
)

const (
	apiPrefix = "/api/v1"

	shutdownTimeout = 10 * time.Second
)

// Server is our HTTP server implementation.
type Server struct {
	Config *Config

	listenAddr        string
	metricsListenAddr string
	staticFolder      string
	allowedOrigins    []string

	sessions   *session.Manager
	guard      *guard.Guard
	identifier *identifier.Identifier
	proxy      *api.Client
	dashboard  *itventory.Client
	chat       *ai.Client
	gatherer   prometheus.Gatherer

	logger logrus.FieldLogger
}

// NewServer constructs a server from the provided parameters.
func NewServer(c *Config) (*Server, error) {
	if c.Config == nil || c.Managers == nil {
		return nil, fmt.Errorf("server: config and managers are required")
	}

	s := &Server{
		Config: c,

		listenAddr:        c.Config.ListenAddr,
		metricsListenAddr: c.Config.MetricsListenAddr,
		staticFolder:      c.StaticFolder,
		allowedOrigins:    c.Config.AllowedOrigins,

		sessions: c.Managers.Must("sessions").(*session.Manager),
		gatherer: c.Gatherer,

		logger: c.Config.Logger,
	}

	if m, ok := c.Managers.Get("guard"); ok {
		s.guard = m.(*guard.Guard)
	}
	if m, ok := c.Managers.Get("identifier"); ok {
		s.identifier = m.(*identifier.Identifier)
	}
	if m, ok := c.Managers.Get("itventory"); ok {
		s.proxy = m.(*api.Client)
	}
	if m, ok := c.Managers.Get("dashboard"); ok {
		s.dashboard = m.(*itventory.Client)
	}
	if m, ok := c.Managers.Get("ai"); ok {
		s.chat = m.(*ai.Client)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	return s, nil
}

// AddRoutes add the accociated Servers URL paths to the provided router.
func (s *Server) AddRoutes(ctx context.Context, router *mux.Router) {
	// Delegate rest of routes to handlers.
	router.HandleFunc("/health-check", s.HealthCheckHandler)

	if s.identifier != nil {
		s.identifier.AddRoutes(ctx, router)
	}

	r := router.PathPrefix(apiPrefix).Subrouter()
	if s.proxy != nil {
		r.Handle("/itventory/{path:.*}", s.secureHandler(http.HandlerFunc(s.ProxyHandler)))
	}
	if s.dashboard != nil {
		r.HandleFunc("/dashboard", s.DashboardHandler).Methods(http.MethodGet)
	}
	if s.chat != nil {
		r.HandleFunc("/chat/conversations", s.ConversationsHandler).Methods(http.MethodGet)
		r.HandleFunc("/chat/threads/{id}/messages", s.ThreadMessagesHandler).Methods(http.MethodGet)
		r.Handle("/chat/ask", s.secureHandler(http.HandlerFunc(s.AskHandler))).Methods(http.MethodPost)
	}

	if s.staticFolder != "" {
		router.PathPrefix("/").Handler(s.StaticHandler()).Methods(http.MethodGet, http.MethodHead)
	}
}

// Handler wraps the provided router with the middlewares of the accociated
// Server. Outermost first: CORS, session resolution, route guard.
func (s *Server) Handler(router http.Handler) http.Handler {
	var handler http.Handler = router
	if s.guard != nil {
		handler = s.guard.Handler(handler)
	}
	handler = s.sessions.Handler(handler)

	if len(s.allowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", identifier.XSRFHeader},
			AllowCredentials: true,
		}).Handler(handler)
	}

	return handler
}

// secureHandler requires the XSRF header for state changing requests when
// the identifier is available.
func (s *Server) secureHandler(handler http.Handler) http.Handler {
	if s.identifier == nil {
		return handler
	}

	secured := s.identifier.SecureHandler(handler)
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			handler.ServeHTTP(rw, req)
		default:
			secured.ServeHTTP(rw, req)
		}
	})
}

// Serve starts all the accociated servers resources and listeners and blocks
// forever until signals or error occurs. Returns error and gracefully stops
// all HTTP listeners before return.
func (s *Server) Serve(ctx context.Context) error {
	serveCtx, serveCtxCancel := context.WithCancel(ctx)
	defer serveCtxCancel()

	logger := s.logger

	errCh := make(chan error, 2)
	exitCh := make(chan bool, 1)
	signalCh := make(chan os.Signal, 1)

	router := mux.NewRouter()
	s.AddRoutes(serveCtx, router)

	srv := &http.Server{
		Handler: s.Handler(router),

		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	logger.WithField("listenAddr", s.listenAddr).Infoln("starting http listener")
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}

	logger.Infoln("ready to handle requests")

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}

		logger.Debugln("http listener stopped")
		close(exitCh)
	}()

	var metricsSrv *http.Server
	if s.metricsListenAddr != "" {
		metricsRouter := http.NewServeMux()
		metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:    s.metricsListenAddr,
			Handler: metricsRouter,
		}

		logger.WithField("listenAddr", s.metricsListenAddr).Infoln("starting metrics http listener")
		go func() {
			serveErr := metricsSrv.ListenAndServe()
			if serveErr != nil && serveErr != http.ErrServerClosed {
				errCh <- serveErr
			}
			logger.Debugln("metrics http listener stopped")
		}()
	}

	// Wait for exit or error.
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case errFromChannel := <-errCh:
		err = errFromChannel
	case reason := <-signalCh:
		logger.WithField("signal", reason).Warnln("received signal")
	case <-ctx.Done():
	}

	// Shutdown, server will stop to accept new connections.
	logger.Infoln("clean server shutdown start")
	shutDownCtx, shutDownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutDownCtxCancel()
	if shutdownErr := srv.Shutdown(shutDownCtx); shutdownErr != nil {
		logger.WithError(shutdownErr).Warn("clean server shutdown failed")
	}
	if metricsSrv != nil {
		if shutdownErr := metricsSrv.Shutdown(shutDownCtx); shutdownErr != nil {
			logger.WithError(shutdownErr).Warn("clean metrics server shutdown failed")
		}
	}

	// Cancel our own context, wait on managers.
	serveCtxCancel()
	func() {
		for {
			select {
			case <-exitCh:
				return
			default:
				// HTTP listener has not quit yet.
				logger.Info("waiting for http listener to exit")
			}
			select {
			case reason := <-signalCh:
				logger.WithField("signal", reason).Warn("received signal")
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}()

	return err
}
