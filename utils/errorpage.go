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
	"fmt"
	"net/http"
)

// WriteErrorPage create a formatted error page response containing the provided
// information and writes it to the provided http.ResponseWriter.
func WriteErrorPage(rw http.ResponseWriter, code int, title string, message string) {
	if title == "" {
		title = http.StatusText(code)
	}

	text := fmt.Sprintf("%d %s", code, title)
	if message != "" {
		text = text + " - " + message
	}

	http.Error(rw, text, code)
}

// ErrorResponse is the JSON body written by WriteErrorJSON.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`

	Redirect string `json:"redirect,omitempty"`
}

// WriteErrorJSON writes the provided ErrorResponse as JSON with the provided
// HTTP status code. If the response has no Error set, the status text of the
// code is used.
func WriteErrorJSON(rw http.ResponseWriter, code int, response *ErrorResponse) error {
	if response == nil {
		response = &ErrorResponse{}
	}
	if response.Error == "" {
		response.Error = http.StatusText(code)
	}

	return WriteJSON(rw, code, response, "")
}
