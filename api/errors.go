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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// User facing messages returned by HandleError.
const (
	MessageInvalidData = "Invalid data."
	MessageServerError = "Server error. Please try again later."
	MessageUnexpected  = "An unexpected error occurred. Please try again later."
)

// APIError is returned by the Client for every response with a HTTP status
// code of 400 or above.
type APIError struct {
	StatusCode int    `json:"-"`
	Status     string `json:"-"`
	Method     string `json:"-"`
	URL        string `json:"-"`

	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`

	Body []byte `json:"-"`
}

func newAPIError(response *http.Response, body []byte) *APIError {
	err := &APIError{
		StatusCode: response.StatusCode,
		Status:     response.Status,

		Body: body,
	}
	if response.Request != nil {
		err.Method = response.Request.Method
		err.URL = response.Request.URL.String()
	}

	// Best effort, the body might not be JSON at all.
	_ = json.Unmarshal(body, err)

	return err
}

// Error implements the error interface.
func (err *APIError) Error() string {
	return fmt.Sprintf("%s %s failed with status %s", err.Method, err.URL, err.Status)
}

// Description implements the utils.ErrorWithDescription interface.
func (err *APIError) Description() string {
	return err.Message
}

// Unauthorized returns true when the accociated error is an authorization
// failure.
func (err *APIError) Unauthorized() bool {
	return err.StatusCode == http.StatusUnauthorized
}

// UserError carries a message which is safe to show to users.
type UserError struct {
	StatusCode int
	Message    string
	Errors     map[string][]string

	err error
}

// Error implements the error interface.
func (err *UserError) Error() string {
	return err.Message
}

// Unwrap returns the error which caused the accociated UserError.
func (err *UserError) Unwrap() error {
	return err.err
}

// HandleError maps errors returned by the Client to user facing messages.
//
// For HTTP status codes 400 to 499 it returns a *UserError with the message
// provided by the backend or MessageInvalidData. For status codes of 500 and
// above it returns a *UserError with MessageServerError. These are the only
// cases where an error is returned and callers must handle it. All other
// errors yield MessageUnexpected and a nil error.
func HandleError(err error) (string, error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch status := apiErr.StatusCode; {
		case status >= 400 && status < 500:
			message := apiErr.Message
			if message == "" {
				message = MessageInvalidData
			}
			return "", &UserError{
				StatusCode: status,
				Message:    message,
				Errors:     apiErr.Errors,
				err:        err,
			}
		case status >= 500:
			return "", &UserError{
				StatusCode: status,
				Message:    MessageServerError,
				err:        err,
			}
		}
	}

	return MessageUnexpected, nil
}
