// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import "github.com/prometheus/client_golang/prometheus"

var applyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "james_sync",
		Subsystem: "connector",
		Name:      "apply_total",
		Help:      "Modifications applied by resource kind, operation and result",
	},
	[]string{"kind", "operation", "result"},
)

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func init() {
	prometheus.MustRegister(applyTotal)
}
