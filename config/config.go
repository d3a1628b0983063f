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

package config

import (
	"net"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Config defines the shared configuration settings which are passed to all
// components of itventoryd.
type Config struct {
	ListenAddr        string
	MetricsListenAddr string

	BackendURI *url.URL
	AIURI      *url.URL

	// TrustHost enables trusting X-Forwarded-Host and X-Forwarded-Proto when
	// building absolute redirect URLs and when checking request origins.
	TrustHost        bool
	TrustedProxyIPs  []*net.IP
	TrustedProxyNets []*net.IPNet

	AllowedOrigins []string

	Logger        logrus.FieldLogger
	HTTPTransport http.RoundTripper
}
