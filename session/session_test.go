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
	"context"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"stash.kopano.io/kc/itventory/encryption"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	expiry, ok := TokenExpiry(token)
	if !ok {
		t.Fatal("expected expiry from JWT")
	}
	if !expiry.Equal(exp) {
		t.Errorf("wrong expiry: got %v want %v", expiry, exp)
	}

	for _, opaque := range []string{"", "tok123", "a.b.c"} {
		if _, ok := TokenExpiry(opaque); ok {
			t.Errorf("opaque token %q must not have an expiry", opaque)
		}
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	if (&Session{}).Expired(now) {
		t.Error("session without expiry must not expire")
	}
	if !(&Session{ExpiresAt: now}).Expired(now) {
		t.Error("session must be expired at its expiry time")
	}
	if (&Session{ExpiresAt: now.Add(time.Second)}).Expired(now) {
		t.Error("session must not be expired before its expiry time")
	}
}

func TestStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key, _ := encryption.GenerateKey()
	store := NewStore(ctx, key, logger)

	if err := store.Set(&Session{ID: "u1"}); err == nil {
		t.Error("session without session id must be rejected")
	}

	err := store.Set(&Session{ID: "u1", Token: "tok123", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	err = store.Set(&Session{ID: "u2", Token: "tok456", SessionID: "s2", ExpiresAt: time.Now().Add(-time.Second)})
	if err != nil {
		t.Fatal(err)
	}

	s, err := store.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if s == nil || s.Token != "tok123" {
		t.Fatalf("unexpected session: %+v", s)
	}

	if purged := store.purgeExpired(time.Now()); purged != 1 {
		t.Errorf("wrong number of purged sessions: got %v want 1", purged)
	}
	if s, _ := store.Get("s2"); s != nil {
		t.Error("expired session must not be returned")
	}

	if !store.Delete("s1") {
		t.Error("delete must report removed session")
	}
	if store.Delete("s1") {
		t.Error("second delete must be a no-op")
	}
	if s, err := store.Get("s1"); s != nil || err != nil {
		t.Errorf("deleted session must be absent: %v, %v", s, err)
	}
}

func TestCookieCodec(t *testing.T) {
	if _, err := NewCookieCodec("c", []byte("short"), true); err == nil {
		t.Error("invalid key size must be rejected")
	}

	codec, err := NewCookieCodec("c", testCookieKey, true)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	value, err := codec.Encode(&Session{
		ID:        "u1",
		Email:     "a@b.com",
		Username:  "a",
		Token:     "tok123",
		SessionID: "s1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := codec.Decode(value, now)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "u1" || s.Email != "a@b.com" || s.Username != "a" || s.Token != "tok123" || s.SessionID != "s1" {
		t.Errorf("unexpected session: %+v", s)
	}

	if _, err := codec.Decode(value, now.Add(2*time.Hour)); err == nil {
		t.Error("expired cookie must be rejected")
	}

	other, _ := NewCookieCodec("c", []byte("fedcba9876543210fedcba9876543210"), true)
	if _, err := other.Decode(value, now); err == nil {
		t.Error("cookie encrypted with another key must be rejected")
	}
}
