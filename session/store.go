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
	"fmt"
	"time"

	"github.com/orcaman/concurrent-map"
	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/encryption"
)

const (
	storePurgeInterval = 30 * time.Second
)

// Store keeps the server side session records. Bearer tokens are kept
// encrypted while at rest. The Store's methods are safe to call from
// multiple Go routines.
type Store struct {
	table cmap.ConcurrentMap
	key   *[encryption.KeySize]byte

	logger logrus.FieldLogger
}

type storeRecord struct {
	session        Session
	encryptedToken string
}

// NewStore creates a new Store using the provided key to encrypt tokens.
// Expired records are purged until the provided context is done.
func NewStore(ctx context.Context, key *[encryption.KeySize]byte, logger logrus.FieldLogger) *Store {
	s := &Store{
		table: cmap.New(),
		key:   key,

		logger: logger,
	}

	// Cleanup function.
	go func() {
		ticker := time.NewTicker(storePurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.purgeExpired(time.Now())
			case <-ctx.Done():
				return
			}
		}
	}()

	return s
}

func (s *Store) purgeExpired(now time.Time) int {
	var expired []string
	var record *storeRecord
	for entry := range s.table.IterBuffered() {
		record = entry.Val.(*storeRecord)
		if record.session.Expired(now) {
			expired = append(expired, entry.Key)
		}
	}
	for _, sid := range expired {
		s.table.Remove(sid)
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Debugln("purged expired sessions")
	}

	return len(expired)
}

// Set stores the provided session under its session id, replacing any
// existing record with the same id.
func (s *Store) Set(session *Session) error {
	if session.SessionID == "" {
		return fmt.Errorf("session has no session id")
	}

	encryptedToken, err := encryption.EncryptStringToHexString(session.Token, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt session token: %v", err)
	}

	record := &storeRecord{
		session:        *session,
		encryptedToken: encryptedToken,
	}
	record.session.Token = ""
	s.table.Set(session.SessionID, record)

	return nil
}

// Get looks up the session with the provided session id. If no session is
// found, nil is returned without error. Expired sessions are removed and
// treated as not found.
func (s *Store) Get(sid string) (*Session, error) {
	if sid == "" {
		return nil, nil
	}

	stored, found := s.table.Get(sid)
	if !found {
		return nil, nil
	}
	record := stored.(*storeRecord)

	if record.session.Expired(time.Now()) {
		s.table.Remove(sid)
		return nil, nil
	}

	token, err := encryption.DecryptHexToString(record.encryptedToken, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session token: %v", err)
	}

	session := record.session
	session.Token = token

	return &session, nil
}

// Delete removes the session with the provided session id and returns true
// if a session was removed. Deleting an unknown session is a no-op.
func (s *Store) Delete(sid string) bool {
	if sid == "" {
		return false
	}

	_, found := s.table.Pop(sid)
	return found
}

// Count returns the number of stored sessions.
func (s *Store) Count() int {
	return s.table.Count()
}
