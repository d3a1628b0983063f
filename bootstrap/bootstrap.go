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
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/hkdf"
	"stash.kopano.io/kgol/rndm"

	"stash.kopano.io/kc/itventory/config"
	"stash.kopano.io/kc/itventory/encryption"
	"stash.kopano.io/kc/itventory/managers"
	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

// Defaults.
const (
	minAuthSecretSize = 16

	cookieKeyInfo = "itventoryd session cookie"
	storeKeyInfo  = "itventoryd session store"
)

// Config is a typed application config which represents the user accessible config params
type Config struct {
	Listen         string
	MetricsListen  string
	BackendRootURL string
	AIRootURL      string
	AuthSecret     string
	AuthSecretFile string
	TrustHost      bool
	TrustedProxy   []string
	AllowedOrigins []string
	Insecure       bool

	CookieName      string
	CookieSecure    bool
	SessionLifetime time.Duration

	GuardRoutesConf string
	StaticFolder    string
}

// Bootstrap is a data structure to hold configuration required to start
// itventoryd.
type Bootstrap interface {
	Config() *config.Config
	Managers() *managers.Managers
	Gatherer() prometheus.Gatherer
}

// Implementation of the bootstrap interface
type bootstrap struct {
	tlsClientConfig *tls.Config

	authSecret []byte
	cookieKey  []byte
	storeKey   *[encryption.KeySize]byte

	cookieName      string
	cookieSecure    bool
	sessionLifetime time.Duration

	guardRoutesConf string

	registry *prometheus.Registry

	cfg      *config.Config
	managers *managers.Managers
}

// Config returns the server configuration
func (bs *bootstrap) Config() *config.Config {
	return bs.cfg
}

// Managers returns bootstrapped managers
func (bs *bootstrap) Managers() *managers.Managers {
	return bs.managers
}

// Gatherer returns the metrics registry of all bootstrapped managers.
func (bs *bootstrap) Gatherer() prometheus.Gatherer {
	return bs.registry
}

// Boot is the main entry point to bootstrap the itventoryd service after
// validating the given configuration. The resulting Bootstrap struct can be
// used to retrieve configured managers and config.
func Boot(ctx context.Context, bsConf *Config, serverConf *config.Config) (Bootstrap, error) {
	bs := &bootstrap{
		cfg: serverConf,
	}

	err := bs.initialize(bsConf)
	if err != nil {
		return nil, err
	}

	err = bs.setup(ctx, bsConf)
	if err != nil {
		return nil, err
	}

	return bs, nil
}

// initialize, parsed parameters from commandline with validation and adds them
// to the accociated Bootstrap data.
func (bs *bootstrap) initialize(cfg *Config) error {
	logger := bs.cfg.Logger
	var err error

	bs.cfg.BackendURI, err = parseRootURL("backend root", cfg.BackendRootURL)
	if err != nil {
		return err
	}
	if cfg.AIRootURL != "" {
		bs.cfg.AIURI, err = parseRootURL("ai root", cfg.AIRootURL)
		if err != nil {
			return err
		}
	} else {
		logger.Warnln("ai root URL not set, chat is disabled")
	}

	if cfg.Insecure {
		// NOTE(longsleep): This disable http2 client support. See https://github.com/golang/go/issues/14275 for reasons.
		bs.tlsClientConfig = utils.InsecureSkipVerifyTLSConfig()
		logger.Warnln("insecure mode, TLS client connections are susceptible to man-in-the-middle attacks")
	} else {
		bs.tlsClientConfig = utils.DefaultTLSConfig()
	}

	bs.cfg.TrustHost = cfg.TrustHost
	if bs.cfg.TrustHost {
		logger.Infoln("trusting forwarded host headers")
	}
	for _, trustedProxy := range cfg.TrustedProxy {
		if ip := net.ParseIP(trustedProxy); ip != nil {
			bs.cfg.TrustedProxyIPs = append(bs.cfg.TrustedProxyIPs, &ip)
			continue
		}
		if _, ipNet, errParseCIDR := net.ParseCIDR(trustedProxy); errParseCIDR == nil {
			bs.cfg.TrustedProxyNets = append(bs.cfg.TrustedProxyNets, ipNet)
			continue
		}
		logger.WithField("value", trustedProxy).Warnln("ignoring invalid trusted proxy")
	}
	if len(bs.cfg.TrustedProxyIPs) > 0 {
		logger.Infoln("trusted proxy IPs", bs.cfg.TrustedProxyIPs)
	}
	if len(bs.cfg.TrustedProxyNets) > 0 {
		logger.Infoln("trusted proxy networks", bs.cfg.TrustedProxyNets)
	}

	if len(cfg.AllowedOrigins) > 0 {
		bs.cfg.AllowedOrigins = cfg.AllowedOrigins
		logger.Infoln("allowed CORS origins", bs.cfg.AllowedOrigins)
	}

	switch {
	case cfg.AuthSecretFile != "":
		logger.WithField("file", cfg.AuthSecretFile).Infoln("loading auth secret from file")
		bs.authSecret, err = ioutil.ReadFile(cfg.AuthSecretFile)
		if err != nil {
			return fmt.Errorf("failed to load auth secret from file: %v", err)
		}
	case cfg.AuthSecret != "":
		bs.authSecret = []byte(cfg.AuthSecret)
	default:
		logger.Warnf("missing --auth-secret parameter, using random auth secret with %d bytes, sessions will not survive restarts", encryption.KeySize)
		bs.authSecret = rndm.GenerateRandomBytes(encryption.KeySize)
	}
	if len(bs.authSecret) < minAuthSecretSize {
		return fmt.Errorf("invalid auth secret size - must be at least %d bytes", minAuthSecretSize)
	}

	bs.cookieKey, err = deriveKey(bs.authSecret, cookieKeyInfo)
	if err != nil {
		return err
	}
	storeKey, err := deriveKey(bs.authSecret, storeKeyInfo)
	if err != nil {
		return err
	}
	bs.storeKey, err = encryption.KeyFromBytes(storeKey)
	if err != nil {
		return err
	}

	bs.cookieName = cfg.CookieName
	bs.cookieSecure = cfg.CookieSecure
	if bs.cookieName == "" {
		bs.cookieName = session.DefaultCookieName
	}
	if !bs.cookieSecure {
		// Browsers drop prefixed cookies without the secure flag.
		bs.cookieName = strings.TrimPrefix(bs.cookieName, "__Secure-")
		logger.Warnln("session cookie is sent over insecure connections")
	}
	bs.sessionLifetime = cfg.SessionLifetime

	bs.guardRoutesConf = cfg.GuardRoutesConf
	if bs.guardRoutesConf != "" {
		bs.guardRoutesConf, _ = filepath.Abs(bs.guardRoutesConf)
		if _, errStat := os.Stat(bs.guardRoutesConf); errStat != nil {
			return fmt.Errorf("guard-routes-conf file not found or unable to access: %v", errStat)
		}
	}

	bs.cfg.ListenAddr = cfg.Listen
	bs.cfg.MetricsListenAddr = cfg.MetricsListen

	bs.cfg.HTTPTransport = utils.HTTPTransportWithTLSClientConfig(bs.tlsClientConfig)

	return nil
}

// setup takes care of setting up the managers based on the accociated
// Bootstrap's data.
func (bs *bootstrap) setup(ctx context.Context, cfg *Config) error {
	bs.registry = prometheus.NewRegistry()
	bs.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	managers, err := newManagers(ctx, bs)
	if err != nil {
		return err
	}

	err = managers.Apply()
	if err != nil {
		return fmt.Errorf("failed to apply managers: %v", err)
	}

	bs.cfg.Logger.WithFields(logrus.Fields{
		"backend": bs.cfg.BackendURI.String(),
		"ai":      bs.cfg.AIURI != nil,
	}).Infoln("managers set up")

	bs.managers = managers
	return nil
}

func parseRootURL(name string, value string) (*url.URL, error) {
	if value == "" {
		return nil, fmt.Errorf("missing %s URL", name)
	}

	u, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s URL: %v", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid %s URL, must start with http:// or https://", name)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid %s URL, must have a host", name)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u, nil
}

// deriveKey derives a key for the provided purpose from the auth secret.
func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, encryption.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %v", info, err)
	}

	return key, nil
}
