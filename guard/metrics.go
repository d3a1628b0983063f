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

package guard

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the route guard.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

// NewMetrics creates and registers the guard metrics with the provided
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "itventoryd",
				Subsystem: "guard",
				Name:      "decisions_total",
				Help:      "Total number of route guard decisions",
			},
			[]string{"decision"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Decisions)
	}

	return m
}

func (m *Metrics) observe(decision Decision) {
	if m == nil {
		return
	}

	m.Decisions.WithLabelValues(decision.String()).Inc()
}
