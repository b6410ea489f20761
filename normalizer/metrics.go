package normalizer

import "github.com/spacemeshos/noderecon/metrics"

const (
	subsystem = "normalizer"

	reasonMissingID     = "missing_id"
	reasonMalformedTime = "malformed_time"
)

var (
	normalizedRecords = metrics.NewCounter(
		"records",
		subsystem,
		"Number of records that passed normalization",
		[]string{"source"},
	)
	droppedRecords = metrics.NewCounter(
		"dropped_records",
		subsystem,
		"Number of records excluded during normalization",
		[]string{"source", "reason"},
	)
	duplicateRecords = metrics.NewCounter(
		"duplicate_records",
		subsystem,
		"Number of records collapsed because of a repeated identifier",
		[]string{"source"},
	)
)
