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
	"encoding/json"
	"net/http"
)

const (
	defaultJSONContentType = "application/json; encoding=utf-8"
)

// WriteJSON writes the provided data JSON encoded with the provided HTTP
// status code and content-type. The data is encoded before anything is
// written, an encoding error results in a plain 500 response. Errors while
// writing the body should be logged only as the header is already sent.
func WriteJSON(rw http.ResponseWriter, code int, data interface{}, contentType string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	if contentType == "" {
		contentType = defaultJSONContentType
	}
	rw.Header().Set("Content-Type", contentType)
	rw.WriteHeader(code)

	_, err = rw.Write(append(b, '\n'))
	return err
}
