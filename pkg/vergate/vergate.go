// Package vergate compares reported component versions against operation
// minimums. Versions are treated as opaque comparable values once parsed.
package vergate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"ttreset/pkg/errors"
)

// Parse parses a version string into a semver value. It tolerates
// truncated forms ("1.34"), pre-release identifiers ("1.34.1-alpha") and
// build metadata ("1.2.3+build456"), comparing on the core triple only.
func Parse(s string) (*semver.Version, error) {
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	core := strings.SplitN(s, "+", 2)[0]
	core = strings.SplitN(core, "-", 2)[0]

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	nums := [3]uint64{}

	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("version parts must be integers: %q", s)
		}

		nums[i] = n
	}

	return semver.New(nums[0], nums[1], nums[2], "", ""), nil
}

// AtLeast reports whether current satisfies minimum. An exactly-equal
// version satisfies the gate.
func AtLeast(current, minimum string) (bool, error) {
	cur, err := Parse(current)
	if err != nil {
		return false, err
	}

	min, err := Parse(minimum)
	if err != nil {
		return false, err
	}

	return !cur.LessThan(min), nil
}

// Check returns a CapabilityGateError when current does not satisfy
// minimum for the named operation, and the parse error when either
// version string is malformed.
func Check(operation, current, minimum string) error {
	ok, err := AtLeast(current, minimum)
	if err != nil {
		return fmt.Errorf("parsing driver version: %w", err)
	}

	if !ok {
		return errors.CapabilityGateError{
			Operation: operation,
			Current:   current,
			Minimum:   minimum,
		}
	}

	return nil
}
