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
	"net/http"

	"github.com/gorilla/schema"
)

// Create a Decoder instance as a package global, because it caches
// meta-data about structs, and an instance can be shared safely.
var formSchemaDecoder = schema.NewDecoder()

// DecodeForm parses the form values of the provided request body into dst.
func DecodeForm(dst interface{}, req *http.Request) error {
	if err := req.ParseForm(); err != nil {
		return err
	}

	return formSchemaDecoder.Decode(dst, req.PostForm)
}

func init() {
	formSchemaDecoder.SetAliasTag("url")
	formSchemaDecoder.IgnoreUnknownKeys(true)
}
