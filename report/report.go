// Package report renders a human readable summary of a reconciliation run.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/normalizer"
	"github.com/spacemeshos/noderecon/sql/runs"
	"github.com/spacemeshos/noderecon/timeseries"
)

// Source is the outcome of processing one source.
type Source struct {
	Normalization normalizer.Report
	Summary       timeseries.Summary
}

// Data is everything shown in a report.
type Data struct {
	RunID       string
	Started     time.Time
	Finished    time.Time
	Sources     []Source
	Merged      timeseries.Summary
	MergedCount int
	// Estimate is zero if it wasn't computed.
	Estimate    uint64
	Subsets     []types.SubsetCount
	Comparisons []runs.ListComparison
}

// Write renders the report as plain text tables.
func Write(w io.Writer, d *Data) error {
	ew := &errWriter{w: w}
	fmt.Fprintf(ew, "run %s finished in %s\n\n", d.RunID, d.Finished.Sub(d.Started).Round(time.Millisecond))

	fmt.Fprintln(ew, "SOURCES")
	sources := newTable(ew, "source", "input", "kept", "dropped", "missing id", "bad time", "duplicates")
	for _, src := range d.Sources {
		r := src.Normalization
		sources.Append([]string{
			r.Source, count(r.Input), count(r.Kept), count(r.Dropped),
			count(r.MissingID), count(r.MalformedTime), count(r.Duplicates),
		})
	}
	sources.Render()

	fmt.Fprintln(ew, "\nOBSERVATIONS")
	obs := newTable(ew, "source", "category", "final", "last seen")
	for _, src := range d.Sources {
		appendSummary(obs, src.Summary, d.Finished)
	}
	if len(d.Sources) > 1 {
		appendSummary(obs, d.Merged, d.Finished)
	}
	obs.Render()

	fmt.Fprintf(ew, "\nMERGED %s distinct peers", count(d.MergedCount))
	if d.Estimate > 0 {
		fmt.Fprintf(ew, " (estimated %s)", humanize.Comma(int64(d.Estimate)))
	}
	fmt.Fprintln(ew)

	if len(d.Subsets) > 0 {
		fmt.Fprintln(ew, "\nSHARED")
		shared := newTable(ew, "sources", "peers")
		for _, subset := range d.Subsets {
			shared.Append([]string{subset.Name(), count(subset.Count)})
		}
		shared.Render()
	}

	if len(d.Comparisons) > 0 {
		fmt.Fprintln(ew, "\nPEER LISTS")
		writeComparisons(ew, d.Comparisons)
	}
	return ew.err
}

// WriteComparisons renders peer list comparisons as a table.
func WriteComparisons(w io.Writer, comparisons []runs.ListComparison) error {
	ew := &errWriter{w: w}
	writeComparisons(ew, comparisons)
	return ew.err
}

func writeComparisons(w io.Writer, comparisons []runs.ListComparison) {
	lists := newTable(w, "list", "key", "overlap", "only crawled", "only listed")
	for _, cmp := range comparisons {
		lists.Append([]string{
			cmp.List, cmp.Key, count(cmp.Overlap),
			count(cmp.UniqueToReference), count(cmp.UniqueToExternal),
		})
	}
	lists.Render()
}

// WriteRuns renders a history of runs, one row per run.
func WriteRuns(w io.Writer, history []*runs.Run, now time.Time) error {
	ew := &errWriter{w: w}
	table := newTable(ew, "id", "started", "took", "sources", "merged", "estimate")
	for _, run := range history {
		estimate := "-"
		if run.Estimate > 0 {
			estimate = humanize.Comma(int64(run.Estimate))
		}
		table.Append([]string{
			run.ID.String(),
			humanize.RelTime(run.Started, now, "ago", "later"),
			run.Finished.Sub(run.Started).Round(time.Millisecond).String(),
			strconv.Itoa(len(run.Sources)),
			count(run.Merged),
			estimate,
		})
	}
	table.Render()
	return ew.err
}

func appendSummary(table *tablewriter.Table, s timeseries.Summary, now time.Time) {
	table.Append(summaryRow(s.Source, s.Total, now))
	for _, label := range s.Labels() {
		table.Append(summaryRow(s.Source, s.Categories[label], now))
	}
	if s.Excluded > 0 {
		table.Append([]string{s.Source, "no time", strconv.Itoa(s.Excluded), "-"})
	}
}

func summaryRow(source string, c timeseries.Category, now time.Time) []string {
	seen := "never"
	if c.HasLast {
		seen = humanize.RelTime(c.LastSeen, now, "ago", "later")
	}
	return []string{source, c.Label, count(c.Final), seen}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderLine(false)
	return table
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
