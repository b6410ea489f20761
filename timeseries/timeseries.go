// Package timeseries builds cumulative counts of peer observations over time.
package timeseries

import (
	"maps"
	"slices"
	"time"

	"github.com/spacemeshos/noderecon/common/types"
)

const (
	TotalLabel   = "total"
	InboundLabel = "inbound"
	DyndialLabel = "dyndial"
)

// Predicate selects records that belong to a category.
type Predicate func(*types.PeerRecord) bool

// DefaultPredicates returns categories for inbound and dynamically dialed peers.
func DefaultPredicates() map[string]Predicate {
	return map[string]Predicate{
		InboundLabel: func(r *types.PeerRecord) bool { return r.IsInbound },
		DyndialLabel: func(r *types.PeerRecord) bool { return r.IsDyndial },
	}
}

// Category is a cumulative series of records matching one predicate.
//
// Final is the cumulative value at the category's own latest observation,
// which may be earlier than the latest observation in the collection.
type Category struct {
	Label    string       `json:"label"`
	Series   types.Series `json:"series"`
	Final    int          `json:"final"`
	LastSeen time.Time    `json:"last_seen,omitempty"`
	HasLast  bool         `json:"has_last"`
}

// Summary of a collection.
type Summary struct {
	Source     string              `json:"source"`
	Total      Category            `json:"total"`
	Categories map[string]Category `json:"categories"`
	// Excluded records have no observation time.
	Excluded int `json:"excluded"`
}

// Labels returns category labels in lexicographic order.
func (s Summary) Labels() []string {
	return slices.Sorted(maps.Keys(s.Categories))
}

// Summarize computes the cumulative series of all records and of every
// category in predicates.
func Summarize(c types.Collection, predicates map[string]Predicate) Summary {
	timed := make([]*types.PeerRecord, 0, len(c.Records))
	for i := range c.Records {
		if _, ok := c.Records[i].Observed(); ok {
			timed = append(timed, &c.Records[i])
		}
	}
	slices.SortStableFunc(timed, func(a, b *types.PeerRecord) int {
		return a.LastTime.Compare(b.LastTime)
	})
	summary := Summary{
		Source:     c.Label,
		Total:      cumulative(TotalLabel, timed, nil),
		Categories: make(map[string]Category, len(predicates)),
		Excluded:   len(c.Records) - len(timed),
	}
	for label, pred := range predicates {
		summary.Categories[label] = cumulative(label, timed, pred)
	}
	return summary
}

// cumulative expects records sorted by observation time. Nil predicate
// matches every record.
func cumulative(label string, records []*types.PeerRecord, pred Predicate) Category {
	category := Category{Label: label}
	total := 0
	for _, r := range records {
		if pred != nil && !pred(r) {
			continue
		}
		total++
		last := len(category.Series) - 1
		if last >= 0 && category.Series[last].Time.Equal(r.LastTime) {
			category.Series[last].Count = total
			continue
		}
		category.Series = append(category.Series, types.Point{Time: r.LastTime, Count: total})
	}
	if p, ok := category.Series.Last(); ok {
		category.Final = p.Count
		category.LastSeen = p.Time
		category.HasLast = true
	}
	return category
}
