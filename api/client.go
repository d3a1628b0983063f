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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

const (
	// DefaultTimeout is the request timeout used for the business API.
	DefaultTimeout = 10 * time.Second
	// DefaultLandingURI is the public route where clients are sent to after
	// their session was destroyed.
	DefaultLandingURI = "/"

	maxErrorBodySize = 1 << 20
)

// Config defines a Client's configuration settings.
type Config struct {
	Name    string
	BaseURI *url.URL
	Timeout time.Duration

	Environment session.Environment
	Reader      session.Reader
	Invalidator Invalidator
	Navigator   Navigator
	LandingURI  string

	Transport http.RoundTripper
	Logger    logrus.FieldLogger
	Metrics   *Metrics
}

// Client sends requests to a remote REST API. Every request passes through
// the associated request interceptors before it is sent and every outcome
// passes through the response interceptors before it is returned. The
// Client's methods are safe to call from multiple Go routines once set up.
type Client struct {
	name    string
	baseURI *url.URL
	client  *http.Client

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor

	logger  logrus.FieldLogger
	metrics *Metrics
}

// New creates a new Client from the provided configuration. When a session
// reader is configured, bearer token attachment and unauthorized response
// handling are installed.
func New(c *Config) (*Client, error) {
	if c.BaseURI == nil || !c.BaseURI.IsAbs() {
		return nil, fmt.Errorf("api: base URI must be absolute")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := c.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	landingURI := c.LandingURI
	if landingURI == "" {
		landingURI = DefaultLandingURI
	}

	logger := c.Logger
	if logger == nil {
		discard := logrus.New()
		discard.Out = ioutil.Discard
		logger = discard
	}

	baseURI := *c.BaseURI
	baseURI.Path = strings.TrimSuffix(baseURI.Path, "/")

	client := &Client{
		name:    c.Name,
		baseURI: &baseURI,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},

		logger:  logger,
		metrics: c.Metrics,
	}

	header := make(http.Header)
	header.Set("User-Agent", utils.DefaultHTTPUserAgent)
	header.Set("Accept", "application/json")
	client.UseRequest(Headers(header))

	if c.Reader != nil {
		client.UseRequest(BearerToken(c.Reader, logger))
		client.UseResponse(Unauthorized(c.Environment, c.Invalidator, c.Navigator, landingURI, logger))
	}

	return client, nil
}

// Name returns the name of the associated client.
func (c *Client) Name() string {
	return c.name
}

// UseRequest appends the provided interceptors to the request pipeline.
func (c *Client) UseRequest(interceptors ...RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptors...)
}

// UseResponse appends the provided interceptors to the response pipeline.
func (c *Client) UseResponse(interceptors ...ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptors...)
}

// URL returns the absolute URL for the provided path relative to the base URI
// of the associated client.
func (c *Client) URL(path string) *url.URL {
	u := *c.baseURI
	ref, err := url.Parse(path)
	if err != nil {
		u.Path = u.Path + "/" + strings.TrimPrefix(path, "/")
		return &u
	}

	u.Path = u.Path + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return &u
}

// NewRequest creates a new request for the provided path. A non nil body is
// sent JSON encoded unless it is an io.Reader.
func (c *Client) NewRequest(ctx context.Context, method string, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

// Do sends the provided request through the interceptor pipelines. Responses
// with a HTTP status code of 400 or above are returned together with an
// *APIError. Their body is read and replaced, so it can still be read by the
// caller. The caller must close the body of a non nil response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var err error
	for _, interceptor := range c.requestInterceptors {
		req, err = interceptor(req)
		if err != nil {
			return nil, err
		}
	}

	started := time.Now()
	response, err := c.client.Do(req)
	if err != nil {
		c.metrics.observe(c.name, 0, started)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"client": c.name,
			"method": req.Method,
			"url":    req.URL.String(),
		}).Debugln("api request failed")
		err = fmt.Errorf("request failed: %v", err)
	} else {
		c.metrics.observe(c.name, response.StatusCode, started)
		if response.StatusCode >= http.StatusBadRequest {
			body, readErr := ioutil.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
			response.Body.Close()
			if readErr != nil {
				c.logger.WithError(readErr).Debugln("failed to read api error response body")
			}
			response.Body = ioutil.NopCloser(bytes.NewReader(body))

			apiErr := newAPIError(response, body)
			c.logger.WithFields(logrus.Fields{
				"client": c.name,
				"method": req.Method,
				"url":    req.URL.String(),
				"status": response.StatusCode,
			}).Debugln("api request returned error status")
			err = apiErr
		}
	}

	for _, interceptor := range c.responseInterceptors {
		response, err = interceptor(req, response, err)
	}

	return response, err
}

// Fetch sends a request with the provided method, path and body and decodes
// a JSON response into out if it is not nil.
func (c *Client) Fetch(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	response, err := c.Do(req)
	if response != nil {
		defer response.Body.Close()
	}
	if err != nil {
		return err
	}

	if out == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}

	if err = json.NewDecoder(response.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	return nil
}

// Get fetches the provided path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Fetch(ctx, http.MethodGet, path, nil, out)
}

// Post sends the provided body JSON encoded and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.Fetch(ctx, http.MethodPost, path, body, out)
}

// Put sends the provided body JSON encoded and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.Fetch(ctx, http.MethodPut, path, body, out)
}

// Delete sends a DELETE request for the provided path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Fetch(ctx, http.MethodDelete, path, nil, nil)
}
