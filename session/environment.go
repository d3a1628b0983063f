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

package session

// Environment selects how the current session is resolved and destroyed.
type Environment string

// Supported environments.
const (
	// EnvironmentBrowser resolves the session from the client held session
	// cookie of the request which is being served. Outbound calls made on
	// behalf of browser code run in this environment.
	EnvironmentBrowser Environment = "browser"
	// EnvironmentServer resolves the session from the server side session
	// store. Calls made while the gateway renders data itself run in this
	// environment.
	EnvironmentServer Environment = "server"
)

func (env Environment) String() string {
	return string(env)
}
