// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an immutable, totally ordered sequence of integers.
//
// Versions compare component by component; if one is a prefix of the other,
// the shorter one is smaller (so v1.2 < v1.2.1)
type Version struct {
	parts []int
}

var (
	// Unversioned is the version used when the caller requests none and the
	// record type does not discover one
	Unversioned = NewVersion(-1)

	// DefaultMinVer and DefaultMaxVer bound the range of a field declared
	// without an explicit range; every practical version falls inside it
	DefaultMinVer = NewVersion(-1)
	DefaultMaxVer = NewVersion(1000)
)

// NewVersion builds a version from its components
func NewVersion(parts ...int) Version {
	return Version{append([]int(nil), parts...)}
}

// ParseVersion parses a dotted version such as "1.47". A leading "v" is
// accepted
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, fmt.Errorf("bfp: empty version string")
	}

	fields := strings.Split(s, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Version{}, fmt.Errorf("bfp: invalid version %q: %w", s, err)
		}
		parts[i] = n
	}
	return Version{parts}, nil
}

// Parts returns a copy of the components of the version
func (v Version) Parts() []int {
	return append([]int(nil), v.parts...)
}

// IsZero reports whether v has no components
func (v Version) IsZero() bool {
	return len(v.parts) == 0
}

// Compare returns -1, 0 or +1 depending on whether v is less than, equal to
// or greater than o
func (v Version) Compare(o Version) int {
	for i := 0; i < len(v.parts) && i < len(o.parts); i++ {
		switch {
		case v.parts[i] < o.parts[i]:
			return -1
		case v.parts[i] > o.parts[i]:
			return 1
		}
	}

	switch {
	case len(v.parts) < len(o.parts):
		return -1
	case len(v.parts) > len(o.parts):
		return 1
	default:
		return 0
	}
}

func (v Version) Less(o Version) bool  { return v.Compare(o) < 0 }
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Within reports whether min <= v <= max
func (v Version) Within(min, max Version) bool {
	return min.Compare(v) <= 0 && v.Compare(max) <= 0
}

func (v Version) String() string {
	var sb strings.Builder
	sb.WriteByte('v')
	for i, p := range v.parts {
		if i != 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}
