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

package main

import (
	"os"
	"strconv"
	"strings"
)

// envOrDefault returns the value of an env-variable or the default if the env-var is not set
func envOrDefault(name string, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}

	return v
}

// boolEnvOrDefault returns the boolean value of an env-variable or the
// default if the env-var is not set or not a boolean.
func boolEnvOrDefault(name string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	if err != nil {
		return def
	}

	return v
}

// listEnvArg parses an env-arg which has a space separated list as value
func listEnvArg(name string) []string {
	list := make([]string, 0)
	for _, value := range strings.Split(os.Getenv(name), " ") {
		value = strings.TrimSpace(value)
		if value != "" {
			list = append(list, value)
		}
	}

	return list
}
