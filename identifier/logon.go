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
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/session"
)

// Logon errors. Both are generic and never tell which part of the
// credentials was wrong.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLogonFailed        = errors.New("logon failed")
)

// Logon exchanges the provided credentials for a backend bearer token and
// fetches the profile of the accociated user with it. The returned Session
// is not yet persisted.
func (i *Identifier) Logon(ctx context.Context, credentials *Credentials) (*session.Session, error) {
	if errs := credentials.Validate(); len(errs) > 0 {
		return nil, ErrInvalidCredentials
	}

	var token tokenResponse
	err := i.backend.Post(ctx, "/login", credentials, &token)
	if err != nil {
		return nil, i.logonError(err, "login")
	}
	if token.AccessToken == "" {
		i.logger.Warnln("identifier login response without access token")
		return nil, ErrLogonFailed
	}

	req, err := i.backend.NewRequest(ctx, http.MethodGet, "/itventory/Identity/me", nil)
	if err != nil {
		return nil, i.logonError(err, "me")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	response, err := i.backend.Do(req)
	if response != nil {
		defer response.Body.Close()
	}
	if err != nil {
		return nil, i.logonError(err, "me")
	}

	var me meResponse
	if err = json.NewDecoder(response.Body).Decode(&me); err != nil {
		return nil, i.logonError(err, "me")
	}
	if me.ID == "" {
		i.logger.Warnln("identifier profile response without id")
		return nil, ErrLogonFailed
	}

	return &session.Session{
		ID:       me.ID,
		Email:    me.Email,
		Username: me.Username,
		Token:    token.AccessToken,
	}, nil
}

// logonError maps the provided error of the provided logon step to one of
// the generic logon errors.
func (i *Identifier) logonError(err error, step string) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		i.logger.WithFields(logrus.Fields{
			"step":   step,
			"status": apiErr.StatusCode,
		}).Debugln("identifier logon rejected by backend")
		return ErrInvalidCredentials
	}

	i.logger.WithError(err).WithField("step", step).Errorln("identifier logon failed")
	return ErrLogonFailed
}
