package source

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/noderecon/metrics"
)

const subsystem = "source"

var (
	fetchDuration = metrics.NewHistogramWithBuckets(
		"fetch_duration_seconds",
		subsystem,
		"Time spent fetching records from a source",
		[]string{"source"},
		prometheus.ExponentialBuckets(0.01, 2, 16),
	)
	fetchedRecords = metrics.NewCounter(
		"fetched_records",
		subsystem,
		"Number of raw records fetched from a source",
		[]string{"source"},
	)
	fetchErrors = metrics.NewCounter(
		"fetch_errors",
		subsystem,
		"Number of failed fetches",
		[]string{"source"},
	)
)
