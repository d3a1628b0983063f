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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stash.kopano.io/kc/itventory/bootstrap"
	"stash.kopano.io/kc/itventory/config"
	"stash.kopano.io/kc/itventory/server"
	"stash.kopano.io/kc/itventory/session"
)

const (
	defaultListenAddr     = "127.0.0.1:8780"
	defaultBackendRootURL = "http://localhost:5104"
	defaultAIRootURL      = "http://localhost:3001"
)

func commandServe() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve [...args]",
		Short: "Start server and listen for requests",
		Run: func(cmd *cobra.Command, args []string) {
			if err := serve(cmd, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	serveCmd.Flags().String("listen", envOrDefault("ITVENTORYD_LISTEN", defaultListenAddr), "TCP listen address")
	serveCmd.Flags().String("metrics-listen", os.Getenv("ITVENTORYD_METRICS_LISTEN"), "TCP listen address for the metrics endpoint (disabled when empty)")
	serveCmd.Flags().String("backend-root-url", envOrDefault("BACKEND_ROOT_URL", defaultBackendRootURL), "Root URL of the ItVentory backend")
	serveCmd.Flags().String("ai-root-url", envOrDefault("AI_ROOT_URL", defaultAIRootURL), "Root URL of the AI chat backend (chat is disabled when empty)")
	serveCmd.Flags().String("auth-secret", "", "Secret used to derive the session keys (can also be set via AUTH_SECRET)")
	serveCmd.Flags().String("auth-secret-file", os.Getenv("AUTH_SECRET_FILE"), "Full path to a file containing the session secret")
	serveCmd.Flags().Bool("trust-host", boolEnvOrDefault("AUTH_TRUST_HOST", false), "Trust X-Forwarded-Host and X-Forwarded-Proto request headers")
	serveCmd.Flags().StringArray("trusted-proxy", listEnvArg("ITVENTORYD_TRUSTED_PROXIES"), "Trusted proxy IP or IP network (can be used multiple times)")
	serveCmd.Flags().StringArray("allowed-origin", listEnvArg("ITVENTORYD_ALLOWED_ORIGINS"), "Allowed CORS origin (can be used multiple times)")
	serveCmd.Flags().Bool("insecure", false, "Disable TLS certificate and hostname validation")
	serveCmd.Flags().Bool("cookie-secure", boolEnvOrDefault("ITVENTORYD_COOKIE_SECURE", true), "Send the session cookie over secure connections only")
	serveCmd.Flags().Duration("session-lifetime", session.DefaultLifetime, "Maximum lifetime of a session")
	serveCmd.Flags().String("guard-routes-conf", os.Getenv("ITVENTORYD_GUARD_ROUTES_CONF"), "Path to a guard routes YAML file")
	serveCmd.Flags().String("static-folder", os.Getenv("ITVENTORYD_STATIC_FOLDER"), "Folder with the dashboard web application build")
	serveCmd.Flags().String("log-level", envOrDefault("ITVENTORYD_LOG_LEVEL", "info"), "Log level (one of panic, fatal, error, warn, info or debug)")
	serveCmd.Flags().String("log-format", envOrDefault("ITVENTORYD_LOG_FORMAT", "text"), "Log format (one of text or json)")
	serveCmd.Flags().Bool("log-timestamp", true, "Prefix each log line with timestamp")

	return serveCmd
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")
	logTimestamp, _ := cmd.Flags().GetBool("log-timestamp")

	logger, err := newLogger(!logTimestamp, logLevel, logFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}
	logger.Infoln("serve start")

	bsConf := &bootstrap.Config{}
	bsConf.Listen, _ = cmd.Flags().GetString("listen")
	bsConf.MetricsListen, _ = cmd.Flags().GetString("metrics-listen")
	bsConf.BackendRootURL, _ = cmd.Flags().GetString("backend-root-url")
	bsConf.AIRootURL, _ = cmd.Flags().GetString("ai-root-url")
	bsConf.AuthSecret, _ = cmd.Flags().GetString("auth-secret")
	if bsConf.AuthSecret == "" {
		bsConf.AuthSecret = os.Getenv("AUTH_SECRET")
	}
	bsConf.AuthSecretFile, _ = cmd.Flags().GetString("auth-secret-file")
	bsConf.TrustHost, _ = cmd.Flags().GetBool("trust-host")
	bsConf.TrustedProxy, _ = cmd.Flags().GetStringArray("trusted-proxy")
	bsConf.AllowedOrigins, _ = cmd.Flags().GetStringArray("allowed-origin")
	bsConf.Insecure, _ = cmd.Flags().GetBool("insecure")
	bsConf.CookieSecure, _ = cmd.Flags().GetBool("cookie-secure")
	bsConf.SessionLifetime, _ = cmd.Flags().GetDuration("session-lifetime")
	bsConf.GuardRoutesConf, _ = cmd.Flags().GetString("guard-routes-conf")
	bsConf.StaticFolder, _ = cmd.Flags().GetString("static-folder")

	cfg := &config.Config{
		Logger: logger,
	}

	bs, err := bootstrap.Boot(ctx, bsConf, cfg)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(&server.Config{
		Config: bs.Config(),

		Managers:     bs.Managers(),
		StaticFolder: bsConf.StaticFolder,
		Gatherer:     bs.Gatherer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	logger.Infoln("serve started")
	return srv.Serve(ctx)
}
