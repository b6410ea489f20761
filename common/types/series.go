package types

import (
	"slices"
	"time"
)

// Point is a cumulative count at a timestamp.
type Point struct {
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
}

// Series is a cumulative count of records ordered by observation time.
// Timestamps are strictly increasing and counts never decrease.
type Series []Point

// Last returns the last point of the series.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// At returns cumulative count at exactly t.
func (s Series) At(t time.Time) (int, bool) {
	i, found := slices.BinarySearchFunc(s, t, func(p Point, t time.Time) int {
		return p.Time.Compare(t)
	})
	if !found {
		return 0, false
	}
	return s[i].Count, true
}
