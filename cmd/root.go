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

package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd is the base command of itventoryd. Sub commands register
// themselves with it.
var RootCmd = &cobra.Command{
	Use:   "itventoryd [...args]",
	Short: "ItVentory dashboard web gateway",
	Long:  "Serves the ItVentory dashboard, owns user sessions and relays API requests to the ItVentory backend.",

	SilenceUsage: true,
}
