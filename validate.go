package questlock

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned for a patch site whose end isn't past its
	// start.
	ErrInvalidRange = errors.New("invalid patch range")

	// ErrPatchTooSmall is returned for a patch site that can't hold the
	// call instruction.
	ErrPatchTooSmall = errors.New("patch range too small")
)

// Validate checks that the site describes a range that can hold the call
// into its trampoline. Every problem found is reported.
func (s PatchSite) Validate() error {
	errs := []error{}

	if s.End <= s.Start {
		errs = append(errs, fmt.Errorf("%w: end %#x is not after start %#x", ErrInvalidRange, s.End, s.Start))
	} else if size := s.End - s.Start; size < CallWidth {
		errs = append(errs, fmt.Errorf("%w: %d bytes, need at least %d", ErrPatchTooSmall, size, CallWidth))
	}

	if s.Trampoline == nil {
		errs = append(errs, errors.New("no trampoline"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("site %q: %w", s.Name, err)
	}
	return nil
}
