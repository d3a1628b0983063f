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
	"errors"
	"fmt"
)

// ErrorWithDescription is an error which carries a description that is
// useful in logs, for example the message of a backend error response.
type ErrorWithDescription interface {
	error
	Description() string
}

// DescribeError returns err extended with its description if it has one.
func DescribeError(err error) error {
	var described ErrorWithDescription
	if errors.As(err, &described) && described.Description() != "" {
		return fmt.Errorf("%v - %s", err, described.Description())
	}

	return err
}

// ErrorAsFields returns log fields for the provided error, its description
// and its cause.
func ErrorAsFields(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{
		"error": err.Error(),
	}
	var described ErrorWithDescription
	if errors.As(err, &described) && described.Description() != "" {
		fields["desc"] = described.Description()
	}
	if cause := errors.Unwrap(err); cause != nil {
		fields["cause"] = cause.Error()
	}

	return fields
}
