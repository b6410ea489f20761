package reconcile

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/spacemeshos/noderecon/common/types"
)

// MaxSubsetSources bounds the number of collections accepted by Subsets.
// The number of subsets grows as 2^n.
const MaxSubsetSources = 16

// Subsets computes intersection counts for every subset of at least two
// collections. Results are ordered by subset size and then lexicographically
// by indices: (0,1), (0,2), (1,2), (0,1,2) for three collections.
func Subsets(collections []types.Collection) ([]types.SubsetCount, error) {
	n := len(collections)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	if n > MaxSubsetSources {
		return nil, fmt.Errorf("too many collections for subset matrix: %d > %d", n, MaxSubsetSources)
	}
	mults := lo.Map(collections, func(c types.Collection, _ int) map[string]int {
		return c.Multiplicity()
	})
	var rst []types.SubsetCount
	for size := 2; size <= n; size++ {
		combinations(n, size, func(indices []int) {
			rst = append(rst, types.SubsetCount{
				Indices: indices,
				Labels: lo.Map(indices, func(i, _ int) string {
					return collections[i].Label
				}),
				Count: joinCount(lo.Map(indices, func(i, _ int) map[string]int {
					return mults[i]
				})),
			})
		})
	}
	return rst, nil
}

// combinations calls fn with every k-combination of [0, n) in lexicographic
// order. fn receives a fresh slice.
func combinations(n, k int, fn func([]int)) {
	idx := lo.Range(k)
	for {
		fn(append([]int(nil), idx...))
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
