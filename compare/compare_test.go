package compare

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/noderecon/common/types"
)

func TestCompare(t *testing.T) {
	got := Compare(
		types.NewIdentifierSet("1.1.1.1", "2.2.2.2"),
		types.NewIdentifierSet("2.2.2.2", "3.3.3.3"),
	)
	require.Equal(t, Comparison{Overlap: 1, UniqueToReference: 1, UniqueToExternal: 1}, got)
}

func TestCompareIdentical(t *testing.T) {
	set := types.NewIdentifierSet("a", "b", "c")
	got := Compare(set, set)
	require.Equal(t, Comparison{Overlap: 3}, got)
}

func TestCompareEmpty(t *testing.T) {
	require.Equal(t, Comparison{UniqueToExternal: 2},
		Compare(types.NewIdentifierSet(), types.NewIdentifierSet("a", "b")))
	require.Equal(t, Comparison{UniqueToReference: 1},
		Compare(types.NewIdentifierSet("a"), nil))
}

func TestCompareCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		ref := types.NewIdentifierSet()
		ext := types.NewIdentifierSet()
		for range rng.Intn(100) {
			ref.Add(fmt.Sprint(rng.Intn(80)))
		}
		for range rng.Intn(100) {
			ext.Add(fmt.Sprint(rng.Intn(80)))
		}
		got := Compare(ref, ext)
		require.Equal(t, ref.Len(), got.Overlap+got.UniqueToReference)
		require.Equal(t, ext.Len(), got.Overlap+got.UniqueToExternal)
	}
}

func TestNonNormalizedUndercount(t *testing.T) {
	ref := types.NewIdentifierSet("1.1.1.1", "2.2.2.2")
	ext := types.NewIdentifierSet("1.1.1.1,", " 2.2.2.2")

	// identifiers are compared as given
	require.Equal(t, Comparison{UniqueToReference: 2, UniqueToExternal: 2}, Compare(ref, ext))

	_, err := CompareChecked(ref, ext)
	var violation *PreconditionViolation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, 2, violation.Count)
	require.Equal(t, []string{" 2.2.2.2", "1.1.1.1,"}, violation.Examples)
	require.ErrorContains(t, err, "external set")

	got, err := CompareChecked(ref, NormalizeSet(ext))
	require.NoError(t, err)
	require.Equal(t, Comparison{Overlap: 2}, got)
}

func TestCheckNormalized(t *testing.T) {
	require.NoError(t, CheckNormalized(types.NewIdentifierSet("1.1.1.1", "enode://abc@1.1.1.1:30303")))
	require.Error(t, CheckNormalized(types.NewIdentifierSet("")))
	require.Error(t, CheckNormalized(types.NewIdentifierSet("1.1.1.1|")))
	require.Error(t, CheckNormalized(types.NewIdentifierSet("1.1.1.1\t")))
	require.NoError(t, CheckNormalized(nil))
}

func TestNormalizeIdentifier(t *testing.T) {
	for in, want := range map[string]string{
		"1.1.1.1":    "1.1.1.1",
		" 1.1.1.1 ":  "1.1.1.1",
		"1.1.1.1,":   "1.1.1.1",
		"1.1.1.1 |":  "1.1.1.1",
		"1.1.1.1;\n": "1.1.1.1",
		",,":         "",
		"a,b":        "a,b",
	} {
		require.Equal(t, want, NormalizeIdentifier(in), "input %q", in)
	}
	require.Equal(t, []string{"1.1.1.1"}, NormalizeSet(types.NewIdentifierSet("1.1.1.1,", "1.1.1.1", ",")).Sorted())
}
