package compare

import (
	"fmt"
	"strings"

	"github.com/spacemeshos/noderecon/common/types"
)

// delimiters left behind by splitting peer list rows.
const delimiters = ",;|"

// maxExamples bounds the number of offending identifiers kept in a violation.
const maxExamples = 5

// PreconditionViolation reports identifiers that were not normalized before
// comparison. Detection is best effort.
type PreconditionViolation struct {
	Count    int
	Examples []string
}

func (e *PreconditionViolation) Error() string {
	return fmt.Sprintf("%d identifiers are not normalized (e.g. %q)", e.Count, e.Examples)
}

// NormalizeIdentifier trims surrounding whitespace and trailing row delimiters.
func NormalizeIdentifier(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimRight(id, delimiters)
	return strings.TrimSpace(id)
}

// NormalizeSet returns a new set with every identifier normalized. Identifiers
// that become empty are skipped.
func NormalizeSet(set types.IdentifierSet) types.IdentifierSet {
	rst := make(types.IdentifierSet, len(set))
	for id := range set {
		if norm := NormalizeIdentifier(id); norm != "" {
			rst.Add(norm)
		}
	}
	return rst
}

// CheckNormalized returns *PreconditionViolation if any identifier would be
// changed by NormalizeIdentifier or is empty.
func CheckNormalized(set types.IdentifierSet) error {
	var violation PreconditionViolation
	for _, id := range set.Sorted() {
		if id != "" && NormalizeIdentifier(id) == id {
			continue
		}
		violation.Count++
		if len(violation.Examples) < maxExamples {
			violation.Examples = append(violation.Examples, id)
		}
	}
	if violation.Count > 0 {
		return &violation
	}
	return nil
}
