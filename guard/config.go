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
	"io/ioutil"
	"net/url"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"stash.kopano.io/kc/itventory/session"
)

// Default targets for redirects.
const (
	DefaultLoginURI = "/login"
	DefaultAppURI   = "/app"
)

// RoutesConfig is the YAML representation of the guarded routes.
type RoutesConfig struct {
	LoginURI  string   `yaml:"login_uri"`
	AppURI    string   `yaml:"app_uri"`
	Auth      []string `yaml:"auth"`
	Protected []string `yaml:"protected"`
	Exempt    []string `yaml:"exempt"`
}

// LoadRoutesConfig reads a RoutesConfig from the YAML file at the provided
// path. Unset values are filled with defaults.
func LoadRoutesConfig(fn string) (*RoutesConfig, error) {
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to read guard routes file: %v", err)
	}

	return ParseRoutesConfig(b)
}

// ParseRoutesConfig parses a RoutesConfig from the provided YAML data.
func ParseRoutesConfig(b []byte) (*RoutesConfig, error) {
	rc := &RoutesConfig{}
	if err := yaml.UnmarshalStrict(b, rc); err != nil {
		return nil, fmt.Errorf("failed to parse guard routes: %v", err)
	}
	rc.withDefaults()

	return rc, nil
}

// DefaultRoutesConfig returns the RoutesConfig of the dashboard.
func DefaultRoutesConfig() *RoutesConfig {
	rc := &RoutesConfig{}
	rc.withDefaults()

	return rc
}

func (rc *RoutesConfig) withDefaults() {
	if rc.LoginURI == "" {
		rc.LoginURI = DefaultLoginURI
	}
	if rc.AppURI == "" {
		rc.AppURI = DefaultAppURI
	}
	if len(rc.Auth) == 0 {
		rc.Auth = []string{"/login", "/register"}
	}
	if len(rc.Protected) == 0 {
		rc.Protected = []string{"/app"}
	}
	if len(rc.Exempt) == 0 {
		rc.Exempt = append(rc.Exempt, defaultExemptPrefixes...)
	}
}

// Config defines a Guard's configuration settings.
type Config struct {
	Routes *RoutesConfig
	Reader session.Reader

	Logger  logrus.FieldLogger
	Metrics *Metrics
}

func (c *Config) targets() (*url.URL, *url.URL, error) {
	loginURI, err := url.Parse(c.Routes.LoginURI)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid login uri: %v", err)
	}
	appURI, err := url.Parse(c.Routes.AppURI)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid app uri: %v", err)
	}
	if loginURI.IsAbs() || appURI.IsAbs() {
		return nil, nil, fmt.Errorf("redirect targets must be local")
	}

	return loginURI, appURI, nil
}
