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
	"net/mail"
	"strings"

	"stash.kopano.io/kc/itventory/session"
)

// MinPasswordLength is the minimal number of characters of a password.
const MinPasswordLength = 5

// Field validation messages.
const (
	MessageEmailInvalid     = "Invalid email format."
	MessagePasswordRequired = "Password is required."
	MessagePasswordTooShort = "Password must be at least 5 characters."
	MessagePasswordMismatch = "Passwords do not match."
)

// Credentials is the email and password pair of a logon attempt. It is
// never persisted.
type Credentials struct {
	Email    string `json:"email" url:"email"`
	Password string `json:"password" url:"password"`
}

// FieldErrors maps field names to validation messages.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field string, message string) {
	fe[field] = append(fe[field], message)
}

// Validate checks the accociated credentials locally and returns the field
// errors. An empty result means the credentials are well formed.
func (c *Credentials) Validate() FieldErrors {
	errs := make(FieldErrors)
	validateEmail(errs, c.Email)
	validatePassword(errs, c.Password)

	return errs
}

func validateEmail(errs FieldErrors, email string) {
	if email == "" || strings.TrimSpace(email) != email {
		errs.add("email", MessageEmailInvalid)
		return
	}
	address, err := mail.ParseAddress(email)
	if err != nil || address.Address != email || address.Name != "" {
		errs.add("email", MessageEmailInvalid)
		return
	}
	// Require a domain with a top level part like the frontend does.
	domain := email[strings.LastIndex(email, "@")+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		errs.add("email", MessageEmailInvalid)
	}
}

func validatePassword(errs FieldErrors, password string) {
	switch {
	case password == "":
		errs.add("password", MessagePasswordRequired)
	case len([]rune(password)) < MinPasswordLength:
		errs.add("password", MessagePasswordTooShort)
	}
}

// A LogonRequest is the request data as sent to the logon endpoints.
type LogonRequest struct {
	Credentials

	Continue string `json:"continue" url:"continue"`
}

// A LogonResponse holds a response as sent by the logon endpoint.
type LogonResponse struct {
	Success  bool             `json:"success"`
	User     *session.Profile `json:"user,omitempty"`
	Continue string           `json:"continue,omitempty"`
}

// A RegisterRequest is the request data as sent to the register endpoint.
type RegisterRequest struct {
	Email           string `json:"email" url:"email"`
	Password        string `json:"password" url:"password"`
	ConfirmPassword string `json:"confirmPassword" url:"confirmPassword"`
}

// Validate checks the accociated register request locally and returns the
// field errors.
func (r *RegisterRequest) Validate() FieldErrors {
	errs := make(FieldErrors)
	validateEmail(errs, r.Email)
	validatePassword(errs, r.Password)
	if r.Password != r.ConfirmPassword {
		errs.add("confirmPassword", MessagePasswordMismatch)
	}

	return errs
}

// identityRequest is the body of the backend's user creation endpoint.
type identityRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// A StateResponse holds a generic response of the identifier endpoints.
type StateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type meResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}
