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
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestHandleError(t *testing.T) {
	for _, test := range []struct {
		name       string
		err        error
		message    string
		userError  string
		statusCode int
	}{
		{
			name:       "backend message",
			err:        &APIError{StatusCode: http.StatusBadRequest, Message: "Email taken"},
			userError:  "Email taken",
			statusCode: http.StatusBadRequest,
		},
		{
			name:       "client error without message",
			err:        &APIError{StatusCode: http.StatusNotFound},
			userError:  MessageInvalidData,
			statusCode: http.StatusNotFound,
		},
		{
			name:       "server error",
			err:        &APIError{StatusCode: http.StatusInternalServerError, Message: "stack trace"},
			userError:  MessageServerError,
			statusCode: http.StatusInternalServerError,
		},
		{
			name:       "bad gateway",
			err:        &APIError{StatusCode: http.StatusBadGateway},
			userError:  MessageServerError,
			statusCode: http.StatusBadGateway,
		},
		{
			name:    "transport",
			err:     errors.New("dial tcp: connection refused"),
			message: MessageUnexpected,
		},
		{
			name:    "timeout",
			err:     context.DeadlineExceeded,
			message: MessageUnexpected,
		},
	} {
		message, err := HandleError(test.err)
		if message != test.message {
			t.Errorf("%s: expected message %q, got %q", test.name, test.message, message)
		}

		if test.userError == "" {
			if err != nil {
				t.Errorf("%s: expected no error, got %v", test.name, err)
			}
			continue
		}

		var userErr *UserError
		if !errors.As(err, &userErr) {
			t.Errorf("%s: expected user error, got %v", test.name, err)
			continue
		}
		if userErr.Message != test.userError || userErr.StatusCode != test.statusCode {
			t.Errorf("%s: unexpected user error %+v", test.name, userErr)
		}
		if !errors.Is(err, test.err) {
			t.Errorf("%s: expected user error to wrap cause", test.name)
		}
	}
}

func TestHandleErrorKeepsFieldErrors(t *testing.T) {
	_, err := HandleError(&APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Errors:     map[string][]string{"password": {"too short"}},
	})

	var userErr *UserError
	if !errors.As(err, &userErr) {
		t.Fatalf("expected user error, got %v", err)
	}
	if userErr.Message != MessageInvalidData {
		t.Errorf("unexpected message %q", userErr.Message)
	}
	if len(userErr.Errors["password"]) != 1 {
		t.Errorf("expected field errors, got %v", userErr.Errors)
	}
}
