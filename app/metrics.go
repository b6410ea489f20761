package app

import "github.com/spacemeshos/noderecon/metrics"

const subsystem = "run"

var (
	mergedPeers = metrics.NewGauge(
		"merged_peers",
		subsystem,
		"Number of distinct peers across all sources in the last run",
		[]string{},
	)
	sharedPeers = metrics.NewGauge(
		"shared_peers",
		subsystem,
		"Number of peers shared by a combination of sources",
		[]string{"sources"},
	)
	listOverlap = metrics.NewGauge(
		"list_overlap",
		subsystem,
		"Number of crawled peers that are present in an external peer list",
		[]string{"list"},
	)
	completedRuns = metrics.NewCounter(
		"completed",
		subsystem,
		"Number of completed runs",
		[]string{},
	)
)
