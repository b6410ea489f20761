package sql

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/noderecon/metrics"
)

const subsystem = "database"

// queryDuration is observed only for databases opened WithLatencyMetering.
var queryDuration = metrics.NewHistogramWithBuckets(
	"query_duration_seconds",
	subsystem,
	"Duration of statements in seconds by leading keyword",
	[]string{"statement"},
	prometheus.ExponentialBuckets(0.00005, 2, 20),
)

var connWaitLatency = metrics.NewHistogramWithBuckets(
	"conn_wait_latency",
	subsystem,
	"Time spent waiting for a pooled connection in seconds",
	[]string{},
	prometheus.ExponentialBuckets(0.0001, 2, 16),
).WithLabelValues()
