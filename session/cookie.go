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

import (
	"fmt"
	"net/http"
	"time"

	jose "gopkg.in/square/go-jose.v2"
	jwt "gopkg.in/square/go-jose.v2/jwt"
)

var farPastExpiryTime = time.Unix(0, 0)

// CookieCodec serializes sessions into encrypted cookies and back.
type CookieCodec struct {
	name   string
	path   string
	secure bool

	encrypter jose.Encrypter
	key       []byte
}

type cookieClaims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"tok,omitempty"`
}

// NewCookieCodec creates a new CookieCodec which writes cookies with the
// provided name and encrypts them with the provided key. The key size must
// be 16, 24 or 32 bytes.
func NewCookieCodec(name string, key []byte, secure bool) (*CookieCodec, error) {
	var ce jose.ContentEncryption
	var algo jose.KeyAlgorithm
	switch len(key) {
	case 16:
		ce = jose.A128GCM
		algo = jose.A128GCMKW
	case 24:
		ce = jose.A192GCM
		algo = jose.A192GCMKW
	case 32:
		ce = jose.A256GCM
		algo = jose.A256GCMKW
	default:
		return nil, fmt.Errorf("invalid cookie encryption key size, need 16, 24 or 32 bytes")
	}

	encrypter, err := jose.NewEncrypter(ce, jose.Recipient{
		Algorithm: algo,
		Key:       key,
	}, nil)
	if err != nil {
		return nil, err
	}

	return &CookieCodec{
		name:   name,
		path:   "/",
		secure: secure,

		encrypter: encrypter,
		key:       key,
	}, nil
}

// Name returns the cookie name of the accociated codec.
func (c *CookieCodec) Name() string {
	return c.name
}

// Encode serializes the provided session into an encrypted JWT.
func (c *CookieCodec) Encode(session *Session) (string, error) {
	claims := jwt.Claims{
		Subject:  session.ID,
		ID:       session.SessionID,
		IssuedAt: jwt.NewNumericDate(session.CreatedAt),
	}
	if !session.ExpiresAt.IsZero() {
		claims.Expiry = jwt.NewNumericDate(session.ExpiresAt)
	}

	return jwt.Encrypted(c.encrypter).Claims(claims).Claims(&cookieClaims{
		Email:    session.Email,
		Username: session.Username,
		Token:    session.Token,
	}).CompactSerialize()
}

// Decode parses and validates the provided encrypted JWT into a session.
func (c *CookieCodec) Decode(value string, now time.Time) (*Session, error) {
	token, err := jwt.ParseEncrypted(value)
	if err != nil {
		return nil, err
	}

	var claims jwt.Claims
	var extra cookieClaims
	if err = token.Claims(c.key, &claims, &extra); err != nil {
		return nil, err
	}
	if err = claims.ValidateWithLeeway(jwt.Expected{Time: now}, 0); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid subject in session cookie")
	}

	session := &Session{
		ID:       claims.Subject,
		Email:    extra.Email,
		Username: extra.Username,
		Token:    extra.Token,

		SessionID: claims.ID,
	}
	if claims.IssuedAt != nil {
		session.CreatedAt = claims.IssuedAt.Time()
	}
	if claims.Expiry != nil {
		session.ExpiresAt = claims.Expiry.Time()
	}

	return session, nil
}

// Read returns the session cookie value of the provided request. If the
// request has no session cookie, an empty string is returned.
func (c *CookieCodec) Read(req *http.Request) string {
	cookie, err := req.Cookie(c.name)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// Write sets the session cookie for the provided session.
func (c *CookieCodec) Write(rw http.ResponseWriter, session *Session) error {
	serialized, err := c.Encode(session)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:  c.name,
		Value: serialized,

		Path:     c.path,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(rw, cookie)

	return nil
}

// Remove expires the session cookie.
func (c *CookieCodec) Remove(rw http.ResponseWriter) {
	http.SetCookie(rw, &http.Cookie{
		Name: c.name,

		Path:     c.path,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,

		Expires: farPastExpiryTime,
		MaxAge:  -1,
	})
}
