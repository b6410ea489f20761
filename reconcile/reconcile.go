// Package reconcile computes set relationships between peer collections
// obtained from independent sources.
package reconcile

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/spacemeshos/noderecon/common/types"
)

var (
	// ErrEmptyInput is returned when an operation receives no collections
	// or an empty subset.
	ErrEmptyInput = errors.New("reconcile: empty input")
	// ErrSubsetIndex is returned when a subset refers to a missing collection.
	ErrSubsetIndex = errors.New("reconcile: subset index out of range")
)

// MergedLabel is the label of a union of several collections.
const MergedLabel = "merged"

// Union concatenates collections in order and removes records with repeated
// identifiers. The first occurrence wins, so ties are broken by the position
// of the collection in the input and then by the position of the record.
//
// A single collection is returned unchanged.
func Union(collections []types.Collection) (types.Collection, int, error) {
	switch len(collections) {
	case 0:
		return types.Collection{}, 0, ErrEmptyInput
	case 1:
		c := types.NewCollection(collections[0].Label, collections[0].Records...)
		return c, c.Len(), nil
	}
	total := lo.SumBy(collections, types.Collection.Len)
	seen := make(map[string]struct{}, total)
	merged := types.Collection{
		Label:   MergedLabel,
		Records: make([]types.PeerRecord, 0, total),
	}
	for _, c := range collections {
		for _, rec := range c.Records {
			if _, exist := seen[rec.ID]; exist {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged.Records = append(merged.Records, rec)
		}
	}
	return merged, merged.Len(), nil
}

// IntersectionCount returns the number of rows produced by joining the
// collections named by subset on the identifier, one after another.
//
// Each collection contributes its own records, not the deduplicated union.
// The join keeps every matching row, so the result is the sum over shared
// identifiers of the product of their multiplicities in each member. For
// collections without repeated identifiers this is the size of the plain
// intersection. Repeated identifiers inflate the count; run the normalizer
// with dedup enabled to avoid that.
//
// Indices may repeat, which joins a collection with itself.
func IntersectionCount(collections []types.Collection, subset []int) (int, error) {
	if len(collections) == 0 || len(subset) == 0 {
		return 0, ErrEmptyInput
	}
	for _, i := range subset {
		if i < 0 || i >= len(collections) {
			return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrSubsetIndex, i, len(collections))
		}
	}
	return joinCount(lo.Map(subset, func(i, _ int) map[string]int {
		return collections[i].Multiplicity()
	})), nil
}

// IntersectionAll is IntersectionCount over every collection.
func IntersectionAll(collections []types.Collection) (int, error) {
	if len(collections) == 0 {
		return 0, ErrEmptyInput
	}
	return IntersectionCount(collections, lo.Range(len(collections)))
}

// joinCount multiplies row counts of every identifier across joined members.
func joinCount(members []map[string]int) int {
	// iterate over the smallest member, everything else is a lookup
	smallest := slices.MinFunc(members, func(a, b map[string]int) int {
		return len(a) - len(b)
	})
	total := 0
	for id := range smallest {
		rows := 1
		for _, m := range members {
			rows *= m[id]
			if rows == 0 {
				break
			}
		}
		total += rows
	}
	return total
}
