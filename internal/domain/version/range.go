package version

import (
	"fmt"
	"regexp"
	"strings"
)

// Range is a version interval: [min,max], (min,max), [min,), bare "a" (≡
// [a,)), etc. A nil bound means "unbounded on that side".
type Range struct {
	Min          *Version
	Max          *Version
	MinInclusive bool
	MaxInclusive bool
}

var intervalPattern = regexp.MustCompile(`^([\[(])\s*([^,\])]*)\s*,\s*([^,\])]*)\s*([\])])$`)

// ParseRange parses interval notation or a bare version (desugared to
// "[version,)"). An empty string yields the fully unbounded range.
func ParseRange(s string) (Range, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Range{}, nil
	}

	if trimmed[0] != '[' && trimmed[0] != '(' {
		v, err := Parse(trimmed)
		if err != nil {
			return Range{}, fmt.Errorf("version: invalid range %q: %w", s, err)
		}
		return Range{Min: &v, MinInclusive: true}, nil
	}

	m := intervalPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Range{}, fmt.Errorf("version: invalid range format %q", s)
	}

	r := Range{}

	minStr := strings.TrimSpace(m[2])
	if minStr != "" {
		v, err := Parse(minStr)
		if err != nil {
			return Range{}, fmt.Errorf("version: invalid range %q: %w", s, err)
		}
		r.Min = &v
		r.MinInclusive = m[1] == "["
	}

	maxStr := strings.TrimSpace(m[3])
	if maxStr != "" {
		v, err := Parse(maxStr)
		if err != nil {
			return Range{}, fmt.Errorf("version: invalid range %q: %w", s, err)
		}
		r.Max = &v
		r.MaxInclusive = m[4] == "]"
	}

	if r.Min != nil && r.Max != nil {
		if r.Min.GreaterThan(*r.Max) {
			return Range{}, fmt.Errorf("version: invalid range %q: min > max", s)
		}
		if r.Min.Equal(*r.Max) && (!r.MinInclusive || !r.MaxInclusive) {
			return Range{}, fmt.Errorf("version: invalid range %q: empty range", s)
		}
	}

	return r, nil
}

// MustParseRange is ParseRange, panicking on error. Intended for static literals.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Includes evaluates both bounds, short-circuiting when a bound is absent.
func (r Range) Includes(v Version) bool {
	if r.Min != nil {
		if r.MinInclusive {
			if v.LessThan(*r.Min) {
				return false
			}
		} else if !v.GreaterThan(*r.Min) {
			return false
		}
	}

	if r.Max != nil {
		if r.MaxInclusive {
			if v.GreaterThan(*r.Max) {
				return false
			}
		} else if !v.LessThan(*r.Max) {
			return false
		}
	}

	return true
}

// String renders r back to interval notation. ParseRange(r.String()) == r
// for every non-empty range (field-wise; an unbounded Range{} renders as
// "(,)").
func (r Range) String() string {
	var b strings.Builder

	if r.Min != nil {
		if r.MinInclusive {
			b.WriteByte('[')
		} else {
			b.WriteByte('(')
		}
		b.WriteString(r.Min.String())
	} else {
		b.WriteByte('(')
	}

	b.WriteByte(',')

	if r.Max != nil {
		b.WriteString(r.Max.String())
		if r.MaxInclusive {
			b.WriteByte(']')
		} else {
			b.WriteByte(')')
		}
	} else {
		b.WriteByte(')')
	}

	return b.String()
}

// Equal reports whether r and other describe the same interval.
func (r Range) Equal(other Range) bool {
	if (r.Min == nil) != (other.Min == nil) || (r.Max == nil) != (other.Max == nil) {
		return false
	}
	if r.Min != nil && (!r.Min.Equal(*other.Min) || r.MinInclusive != other.MinInclusive) {
		return false
	}
	if r.Max != nil && (!r.Max.Equal(*other.Max) || r.MaxInclusive != other.MaxInclusive) {
		return false
	}
	return true
}
