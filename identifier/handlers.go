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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

// XSRFHeader must be set to "1" on all state changing JSON requests.
const XSRFHeader = "Kopano-ItVentory-XSRF"

// User facing logon messages.
const (
	MessageInvalidCredentials = "Invalid login credentials."
	MessageLogonFailed        = "An error occurred while signing in."
	MessageTooManyAttempts    = "Too many login attempts. Please try again later."
	MessageRegistered         = "Registration successful."
)

// Error ids passed to the login page.
const (
	errorIDInvalidRequest     = "invalid_request"
	errorIDInvalidCredentials = "invalid_credentials"
	errorIDLogonFailed        = "logon_failed"
	errorIDRateLimited        = "rate_limited"
)

var farPastExpiryHTTPHeaderString = time.Unix(0, 0).UTC().Format(http.TimeFormat)

func addResponseHeaders(header http.Header) {
	header.Set("X-Frame-Options", "DENY")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Referrer-Policy", "origin")
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", farPastExpiryHTTPHeaderString)
}

func (i *Identifier) SecureHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if req.Header.Get(XSRFHeader) != "1" {
			i.rejectRequest(rw, req, fmt.Errorf("missing xsrf header"))
			return
		}

		i.sameOriginHandler(handler).ServeHTTP(rw, req)
	})
}

// sameOriginHandler requires the Origin or Referer of the request to match
// the host which the request was sent to. This follows
// https://www.owasp.org/index.php/Cross-Site_Request_Forgery_(CSRF)_Prevention_Cheat_Sheet
func (i *Identifier) sameOriginHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		var err error

		requiredHost := i.proxies.Host(req, i.Config.Config.TrustHost)
		switch originHost := utils.OriginHost(req.Header); {
		case originHost == "":
			err = fmt.Errorf("missing origin or referer header")
		case originHost != requiredHost:
			err = fmt.Errorf("origin does not match request URL")
		default:
			handler.ServeHTTP(rw, req)
			return
		}

		i.rejectRequest(rw, req, err)
	})
}

func (i *Identifier) rejectRequest(rw http.ResponseWriter, req *http.Request, err error) {
	i.logger.WithError(err).WithFields(logrus.Fields{
		"host":       req.Host,
		"referer":    req.Referer(),
		"user-agent": req.UserAgent(),
		"origin":     req.Header.Get("Origin"),
	}).Warnln("rejecting identifier HTTP request")

	i.ErrorPage(rw, http.StatusBadRequest, "", "")
}

func (i *Identifier) clientIP(req *http.Request) string {
	return i.proxies.ClientIP(req)
}

// signIn validates and exchanges the provided credentials and persists the
// resulting session. It returns the HTTP status code, an error id and the
// field errors on failure.
func (i *Identifier) signIn(req *http.Request, credentials *Credentials) (*session.Session, int, string, FieldErrors) {
	if !i.limiter.Allow(i.clientIP(req)) {
		return nil, http.StatusTooManyRequests, errorIDRateLimited, nil
	}

	if errs := credentials.Validate(); len(errs) > 0 {
		return nil, http.StatusBadRequest, errorIDInvalidRequest, errs
	}

	s, err := i.Logon(req.Context(), credentials)
	switch err {
	case nil:
	case ErrInvalidCredentials:
		return nil, http.StatusUnauthorized, errorIDInvalidCredentials, nil
	default:
		return nil, http.StatusBadGateway, errorIDLogonFailed, nil
	}

	if err = i.sessions.Create(req.Context(), s); err != nil {
		i.logger.WithError(err).Errorln("identifier failed to create session")
		return nil, http.StatusInternalServerError, errorIDLogonFailed, nil
	}

	i.logger.WithFields(logrus.Fields{
		"user":   s.ID,
		"remote": i.clientIP(req),
	}).Debugln("identifier logon success")

	return s, http.StatusOK, "", nil
}

func messageForErrorID(id string) string {
	switch id {
	case errorIDInvalidCredentials:
		return MessageInvalidCredentials
	case errorIDRateLimited:
		return MessageTooManyAttempts
	case errorIDInvalidRequest:
		return api.MessageInvalidData
	default:
		return MessageLogonFailed
	}
}

func (i *Identifier) handleLogon(rw http.ResponseWriter, req *http.Request) {
	addResponseHeaders(rw.Header())

	decoder := json.NewDecoder(req.Body)
	var r LogonRequest
	err := decoder.Decode(&r)
	if err != nil {
		i.logger.WithError(err).Debugln("identifier failed to decode logon request")
		i.ErrorPage(rw, http.StatusBadRequest, "", "failed to decode request JSON")
		return
	}

	s, code, errorID, errs := i.signIn(req, &r.Credentials)
	if s == nil {
		if code == http.StatusTooManyRequests {
			rw.Header().Set("Retry-After", "60")
		}
		err = utils.WriteErrorJSON(rw, code, &utils.ErrorResponse{
			Error:   errorID,
			Message: messageForErrorID(errorID),
			Errors:  errs,
		})
		if err != nil {
			i.logger.WithError(err).Errorln("logon request failed writing response")
		}
		return
	}

	err = utils.WriteJSON(rw, http.StatusOK, &LogonResponse{
		Success:  true,
		User:     s.Profile(),
		Continue: i.continueURI(r.Continue),
	}, "")
	if err != nil {
		i.logger.WithError(err).Errorln("logon request failed writing response")
	}
}

type loginForm struct {
	Email    string `url:"email"`
	Password string `url:"password"`
	Continue string `url:"continue"`
}

type loginPageParams struct {
	Error    string `url:"error,omitempty"`
	Continue string `url:"continue,omitempty"`
}

func (i *Identifier) handleLoginForm(rw http.ResponseWriter, req *http.Request) {
	addResponseHeaders(rw.Header())

	var form loginForm
	err := DecodeForm(&form, req)
	if err != nil {
		i.logger.WithError(err).Debugln("identifier failed to decode login form")
		i.ErrorPage(rw, http.StatusBadRequest, "", "failed to decode request form")
		return
	}

	s, _, errorID, _ := i.signIn(req, &Credentials{
		Email:    form.Email,
		Password: form.Password,
	})

	var target *url.URL
	var params interface{}
	if s == nil {
		target, _ = url.Parse(req.URL.Path)
		params = &loginPageParams{
			Error:    errorID,
			Continue: form.Continue,
		}
	} else {
		target, _ = url.Parse(i.continueURI(form.Continue))
	}

	if err = utils.WriteRedirect(rw, http.StatusSeeOther, target, params); err != nil {
		i.logger.WithError(err).Errorln("login request failed writing redirect")
		i.ErrorPage(rw, http.StatusInternalServerError, "", "")
	}
}

func (i *Identifier) handleLogoff(rw http.ResponseWriter, req *http.Request) {
	addResponseHeaders(rw.Header())

	if err := i.sessions.Clear(req.Context()); err != nil {
		i.logger.WithError(err).Errorln("identifier failed to clear session")
		i.ErrorPage(rw, http.StatusInternalServerError, "", "")
		return
	}

	err := utils.WriteJSON(rw, http.StatusOK, &StateResponse{
		Success: true,
	}, "")
	if err != nil {
		i.logger.WithError(err).Errorln("logoff request failed writing response")
	}
}

func (i *Identifier) handleSession(rw http.ResponseWriter, req *http.Request) {
	addResponseHeaders(rw.Header())

	result := i.reader.ReadSession(req.Context())
	if !result.Authenticated() {
		rw.WriteHeader(http.StatusNoContent)
		return
	}

	err := utils.WriteJSON(rw, http.StatusOK, result.Session.Profile(), "")
	if err != nil {
		i.logger.WithError(err).Errorln("session request failed writing response")
	}
}

func (i *Identifier) handleRegister(rw http.ResponseWriter, req *http.Request) {
	addResponseHeaders(rw.Header())

	decoder := json.NewDecoder(req.Body)
	var r RegisterRequest
	err := decoder.Decode(&r)
	if err != nil {
		i.logger.WithError(err).Debugln("identifier failed to decode register request")
		i.ErrorPage(rw, http.StatusBadRequest, "", "failed to decode request JSON")
		return
	}

	if errs := r.Validate(); len(errs) > 0 {
		err = utils.WriteErrorJSON(rw, http.StatusBadRequest, &utils.ErrorResponse{
			Error:   errorIDInvalidRequest,
			Message: api.MessageInvalidData,
			Errors:  errs,
		})
		if err != nil {
			i.logger.WithError(err).Errorln("register request failed writing response")
		}
		return
	}

	err = i.api.Post(req.Context(), "/Identity", &identityRequest{
		Email:    r.Email,
		Password: r.Password,
		Username: r.Email,
	}, nil)
	if err != nil {
		i.writeAPIError(rw, err)
		return
	}

	err = utils.WriteJSON(rw, http.StatusCreated, &StateResponse{
		Success: true,
		Message: MessageRegistered,
	}, "")
	if err != nil {
		i.logger.WithError(err).Errorln("register request failed writing response")
	}
}

// writeAPIError writes the user facing representation of the provided
// business API error.
func (i *Identifier) writeAPIError(rw http.ResponseWriter, err error) {
	message, userErr := api.HandleError(err)

	code := http.StatusBadGateway
	response := &utils.ErrorResponse{
		Message: message,
	}

	var ue *api.UserError
	if errors.As(userErr, &ue) {
		code = ue.StatusCode
		response.Message = ue.Message
		response.Errors = ue.Errors
		if code >= http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
	}

	i.logger.WithError(utils.DescribeError(err)).Debugln("identifier backend request failed")
	if writeErr := utils.WriteErrorJSON(rw, code, response); writeErr != nil {
		i.logger.WithError(writeErr).Errorln("failed writing error response")
	}
}
