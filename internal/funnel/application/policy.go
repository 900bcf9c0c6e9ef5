package application

import (
	"fmt"

	apperrors "compound-site/internal/common/errors"
)

var ErrSelectionLimit = apperrors.Sentinel(apperrors.ErrCodeSelectionLimit, "Too many options selected")

// SelectionPolicy enforces the advertised per-field selection caps ("check up to 3").
// With Enforce false every toggle is accepted.
type SelectionPolicy struct {
	Enforce bool
}

// Check validates next, the draft produced by toggling tag on f. Removals always pass.
func (p SelectionPolicy) Check(next Draft, f Field, tag string) error {
	limit := f.SelectLimit()
	if !p.Enforce || limit == 0 || !next.Has(f, tag) {
		return nil
	}
	if n := len(next.Set(f)); n > limit {
		return fmt.Errorf("%w: %s allows at most %d, got %d", ErrSelectionLimit, f, limit, n)
	}
	return nil
}
