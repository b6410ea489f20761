package types

import (
	"slices"
	"strings"
)

// Collection is an ordered list of peer records obtained from one source.
// Order only matters for display and for union tie-breaking.
type Collection struct {
	Label   string
	Records []PeerRecord
}

// NewCollection creates a collection with a copy of records.
func NewCollection(label string, records ...PeerRecord) Collection {
	return Collection{Label: label, Records: slices.Clone(records)}
}

// Len returns number of records in the collection.
func (c Collection) Len() int {
	return len(c.Records)
}

// IDs returns the set of record identifiers.
func (c Collection) IDs() IdentifierSet {
	set := make(IdentifierSet, len(c.Records))
	for i := range c.Records {
		set.Add(c.Records[i].ID)
	}
	return set
}

// IPs returns the set of non-empty record IP addresses.
func (c Collection) IPs() IdentifierSet {
	set := make(IdentifierSet, len(c.Records))
	for i := range c.Records {
		if c.Records[i].IP != "" {
			set.Add(c.Records[i].IP)
		}
	}
	return set
}

// Multiplicity counts occurrences of every identifier.
func (c Collection) Multiplicity() map[string]int {
	counts := make(map[string]int, len(c.Records))
	for i := range c.Records {
		counts[c.Records[i].ID]++
	}
	return counts
}

// IdentifierSet is a set of peer identifiers (node ids or IP addresses).
type IdentifierSet map[string]struct{}

// NewIdentifierSet creates a set from the given identifiers.
func NewIdentifierSet(ids ...string) IdentifierSet {
	set := make(IdentifierSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

// Add inserts id into the set.
func (s IdentifierSet) Add(id string) {
	s[id] = struct{}{}
}

// Contains returns true if id is in the set.
func (s IdentifierSet) Contains(id string) bool {
	_, exist := s[id]
	return exist
}

// Len returns the size of the set.
func (s IdentifierSet) Len() int {
	return len(s)
}

// Sorted returns identifiers in lexicographic order.
func (s IdentifierSet) Sorted() []string {
	rst := make([]string, 0, len(s))
	for id := range s {
		rst = append(rst, id)
	}
	slices.Sort(rst)
	return rst
}

// SubsetCount is the number of identifiers shared by every member of a subset
// of collections.
type SubsetCount struct {
	Indices []int
	Labels  []string
	Count   int
}

// Name joins labels of the subset members.
func (s SubsetCount) Name() string {
	return strings.Join(s.Labels, " & ")
}
