// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricOverlaySearches = "overlay_searches_total"
)

// Values of the "path" label of CounterOverlaySearches.
const (
	PathEmpty   = "empty"
	PathOrdered = "ordered"
	PathRange   = "range"
	PathBitSet  = "bitset"
	PathIndex   = "index"
)

// CounterOverlaySearches counts overlay searches by overlay kind and by
// the evaluation path that produced the result.
var CounterOverlaySearches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "colchain",
		Name:      MetricOverlaySearches,
		Help:      "Overlay searches by overlay kind and evaluation path.",
	},
	[]string{
		"overlay",
		"path",
	},
)

func init() {
	prometheus.MustRegister(CounterOverlaySearches)
}
