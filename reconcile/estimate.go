package reconcile

import (
	"fmt"

	"github.com/axiomhq/hyperloglog"

	"github.com/spacemeshos/noderecon/common/types"
)

// EstimateUnion approximates the number of distinct identifiers across all
// collections without materializing the union. Every collection is sketched
// separately and the sketches are merged, so sources may be sketched where
// they are fetched.
func EstimateUnion(collections []types.Collection) (uint64, error) {
	if len(collections) == 0 {
		return 0, ErrEmptyInput
	}
	merged := hyperloglog.New16()
	for _, c := range collections {
		if err := merged.Merge(Sketch(c)); err != nil {
			return 0, fmt.Errorf("merge sketch of %s: %w", c.Label, err)
		}
	}
	return merged.Estimate(), nil
}

// Sketch builds a cardinality sketch of collection identifiers.
func Sketch(c types.Collection) *hyperloglog.Sketch {
	sk := hyperloglog.New16()
	for i := range c.Records {
		sk.Insert([]byte(c.Records[i].ID))
	}
	return sk
}
