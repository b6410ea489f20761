// Package compare measures overlap between the peers found by the crawlers
// and externally sourced peer lists.
//
// Identifiers are compared byte for byte. Callers must normalize both sides
// the same way, for example with NormalizeIdentifier, otherwise formatting
// differences such as a trailing delimiter after an IP address silently show
// up as unique entries on both sides.
package compare

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/spacemeshos/noderecon/common/types"
)

// Comparison is the result of comparing a reference set with an external set.
type Comparison struct {
	Overlap           int `json:"overlap"`
	UniqueToReference int `json:"unique_to_reference"`
	UniqueToExternal  int `json:"unique_to_external"`
}

// Compare returns the overlap between reference and external identifier sets
// and the number of identifiers unique to each side.
func Compare(reference, external types.IdentifierSet) Comparison {
	small, large := reference, external
	if len(small) > len(large) {
		small, large = large, small
	}
	overlap := lo.CountBy(lo.Keys(small), large.Contains)
	return Comparison{
		Overlap:           overlap,
		UniqueToReference: len(reference) - overlap,
		UniqueToExternal:  len(external) - overlap,
	}
}

// CompareChecked verifies that both sets look normalized before comparing them.
func CompareChecked(reference, external types.IdentifierSet) (Comparison, error) {
	if err := CheckNormalized(reference); err != nil {
		return Comparison{}, fmt.Errorf("reference set: %w", err)
	}
	if err := CheckNormalized(external); err != nil {
		return Comparison{}, fmt.Errorf("external set: %w", err)
	}
	return Compare(reference, external), nil
}
