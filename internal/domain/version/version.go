// Package version provides the Version and VersionRange value types used to
// identify modules and express dependency constraints between them.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([A-Za-z0-9.-]+))?$`)

// Version is an immutable semantic-version value: major.minor.patch[-qualifier].
// Ordering is numeric on the (major, minor, patch) triple; a release
// (empty qualifier) always outranks any pre-release; two pre-releases
// compare lexicographically on their qualifier.
type Version struct {
	Major     uint32
	Minor     uint32
	Patch     uint32
	Qualifier string
}

// Zero is the 0.0.0 version. A range with no lower bound has a nil Min; it
// does not use Zero.
var Zero = Version{}

// Parse parses "MAJOR.MINOR.PATCH[-QUALIFIER]". QUALIFIER, when present,
// must match [A-Za-z0-9.-]+. Any other shape returns a parse error.
func Parse(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, fmt.Errorf("version: invalid format %q", s)
	}

	major, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("version: invalid major in %q: %w", s, err)
	}
	minor, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("version: invalid minor in %q: %w", s, err)
	}
	patch, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("version: invalid patch in %q: %w", s, err)
	}

	return Version{Major: uint32(major), Minor: uint32(minor), Patch: uint32(patch), Qualifier: m[4]}, nil
}

// MustParse is Parse, panicking on error. Intended for static version literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version back to "MAJOR.MINOR.PATCH[-QUALIFIER]".
// Parse(v.String()) == v for every v produced by Parse.
func (v Version) String() string {
	if v.Qualifier == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.Qualifier)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than other.
// A release (empty qualifier) is always greater than any pre-release at the
// same major.minor.patch; two pre-releases compare lexicographically.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return cmpUint(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmpUint(v.Minor, other.Minor)
	}
	if v.Patch != other.Patch {
		return cmpUint(v.Patch, other.Patch)
	}

	switch {
	case v.Qualifier == "" && other.Qualifier == "":
		return 0
	case v.Qualifier == "" && other.Qualifier != "":
		return 1
	case v.Qualifier != "" && other.Qualifier == "":
		return -1
	default:
		return strings.Compare(v.Qualifier, other.Qualifier)
	}
}

func cmpUint(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// GreaterThan reports whether v sorts after other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

// CompatibleWith reports whether v and other share the same major version,
// the compatibility rule used throughout the module host.
func (v Version) CompatibleWith(other Version) bool {
	return v.Major == other.Major
}
