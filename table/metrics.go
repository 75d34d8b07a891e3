// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package table

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricQueries        = "queries_total"
	MetricQueryDuration  = "query_duration_seconds"
	MetricSlowQueries    = "slow_queries_total"
	MetricConstraintRows = "constraint_rows"
)

var CounterQueries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "colchain",
		Name:      MetricQueries,
		Help:      "Queries run by the table executor, by outcome.",
	},
	[]string{
		"status",
	},
)

var CounterSlowQueries = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "colchain",
		Name:      MetricSlowQueries,
		Help:      "Queries slower than the configured slow query threshold.",
	},
)

var HistogramQueryDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "colchain",
		Name:      MetricQueryDuration,
		Help:      "Time spent running a query.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	},
)

var HistogramConstraintRows = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "colchain",
		Name:      MetricConstraintRows,
		Help:      "Rows surviving each constraint.",
		Buckets:   prometheus.ExponentialBuckets(1, 8, 8),
	},
)

func init() {
	prometheus.MustRegister(
		CounterQueries,
		CounterSlowQueries,
		HistogramQueryDuration,
		HistogramConstraintRows,
	)
}
