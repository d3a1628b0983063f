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

package utils

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Proxies lists the reverse proxies whose forwarding headers are trusted.
type Proxies struct {
	IPs  []*net.IP
	Nets []*net.IPNet
}

// Trusted returns true if the provided request was received from one of the
// accociated proxies.
func (p *Proxies) Trusted(req *http.Request) bool {
	ip := remoteIP(req)
	if ip == nil {
		return false
	}

	for _, checkIP := range p.IPs {
		if checkIP.Equal(ip) {
			return true
		}
	}
	for _, checkNet := range p.Nets {
		if checkNet.Contains(ip) {
			return true
		}
	}

	return false
}

// ClientIP returns the IP address of the client which sent the provided
// request. The left most X-Forwarded-For value is only used when the request
// was received from a trusted proxy.
func (p *Proxies) ClientIP(req *http.Request) string {
	if p.Trusted(req) {
		forwardedFor := strings.SplitN(req.Header.Get("X-Forwarded-For"), ",", 2)[0]
		if first := strings.TrimSpace(forwardedFor); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return host
}

// Host returns the host which the client used to reach us. X-Forwarded-Host
// is used when trustHost is set or the request came from a trusted proxy.
func (p *Proxies) Host(req *http.Request, trustHost bool) string {
	if trustHost || p.Trusted(req) {
		if forwardedHost := req.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
			return strings.TrimSpace(strings.SplitN(forwardedHost, ",", 2)[0])
		}
	}

	return req.Host
}

// OriginHost returns the host of the Origin request header, falling back to
// the host of the Referer. An empty string is returned if neither is usable.
func OriginHost(header http.Header) string {
	origin := header.Get("Origin")
	if origin == "" || origin == "null" {
		origin = header.Get("Referer")
	}
	if origin == "" {
		return ""
	}

	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}

	return u.Host
}

func remoteIP(req *http.Request) net.IP {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return nil
	}

	return net.ParseIP(host)
}
