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
	"sync/atomic"
	"time"

	"github.com/orcaman/concurrent-map"
	"golang.org/x/time/rate"
)

const (
	limiterPurgeInterval = 5 * time.Minute
	limiterIdleTimeout   = 15 * time.Minute
)

// A clientLimiter rate limits requests per client key, usually the client's
// IP address.
type clientLimiter struct {
	table cmap.ConcurrentMap
	limit rate.Limit
	burst int
}

type clientLimiterRecord struct {
	limiter  *rate.Limiter
	lastSeen int64
}

func newClientLimiter(ctx context.Context, limit rate.Limit, burst int) *clientLimiter {
	l := &clientLimiter{
		table: cmap.New(),
		limit: limit,
		burst: burst,
	}

	// Cleanup function.
	go func() {
		ticker := time.NewTicker(limiterPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.purgeIdle(time.Now())
			case <-ctx.Done():
				return
			}
		}
	}()

	return l
}

// Allow reports whether a request for the provided key may happen now.
func (l *clientLimiter) Allow(key string) bool {
	now := time.Now()
	record := l.table.Upsert(key, nil, func(exist bool, valueInMap interface{}, newValue interface{}) interface{} {
		if exist {
			return valueInMap
		}
		return &clientLimiterRecord{
			limiter: rate.NewLimiter(l.limit, l.burst),
		}
	}).(*clientLimiterRecord)
	atomic.StoreInt64(&record.lastSeen, now.Unix())

	return record.limiter.AllowN(now, 1)
}

func (l *clientLimiter) purgeIdle(now time.Time) int {
	deadline := now.Add(-limiterIdleTimeout).Unix()

	var idle []string
	for entry := range l.table.IterBuffered() {
		record := entry.Val.(*clientLimiterRecord)
		if atomic.LoadInt64(&record.lastSeen) < deadline {
			idle = append(idle, entry.Key)
		}
	}
	for _, key := range idle {
		l.table.Remove(key)
	}

	return len(idle)
}
