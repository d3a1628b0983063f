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

package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"stash.kopano.io/kc/itventory/config"
	"stash.kopano.io/kc/itventory/managers"
)

// Config defines a Server's configuration settings.
type Config struct {
	Config *config.Config

	// Managers provides the session manager and the optional guard,
	// identifier and backend clients.
	Managers *managers.Managers

	StaticFolder string
	Gatherer     prometheus.Gatherer
}
