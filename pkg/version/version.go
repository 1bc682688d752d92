// Copyright (c) 2025, The pkgsmith Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version parses and compares dotted release numbers such as recipe
// versions ("1.10.0", "2021.11.0") and tool versions reported by
// `cmake --version`.
package version

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
	ErrNoToolVersion     = errors.New("no version line in tool output")
)

// Version is a release number with up to three numeric components.
// Precision records how many components were given; comparisons stop at the
// lower precision of the two operands so "3.17" matches any 3.17.x.
type Version struct {
	Major int `json:"major" yaml:"major"`
	Minor int `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch int `json:"patch,omitempty" yaml:"patch,omitempty"`

	Precision int `json:"precision,omitempty" yaml:"precision,omitempty"`

	// Extras holds a trailing suffix such as "-rc1" or "+g1234".
	Extras string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// String renders the version at its precision, without extras.
func (v Version) String() string {
	switch v.Precision {
	case 1:
		return strconv.Itoa(v.Major)
	case 2:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
}

// Tag returns the upstream git tag name for this version, e.g. "v1.10.0".
func (v Version) Tag() string {
	return "v" + v.String() + v.Extras
}

// ParseVersion parses "1", "1.2", "1.2.3", with an optional "v" prefix and an
// optional "-suffix" or "+suffix" kept in Extras.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	s = strings.TrimPrefix(s, "v")

	var v Version
	if i := strings.IndexAny(s, "-+"); i > 0 {
		v.Extras = s[i:]
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, ErrTooManyComponents
	}
	nums := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrNonNumeric, part)
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	v.Precision = len(parts)
	return v, nil
}

// MustParseVersion is ParseVersion for compile-time constants; it panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseVersion: %v", err))
	}
	return v
}

// Compare returns -1, 0 or 1, comparing up to the lower precision of v and other.
func (v Version) Compare(other Version) int {
	precision := min(v.precision(), other.precision())
	a := [3]int{v.Major, v.Minor, v.Patch}
	b := [3]int{other.Major, other.Minor, other.Patch}
	for i := 0; i < precision; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v is equal to or newer than floor.
func (v Version) AtLeast(floor Version) bool {
	return v.Compare(floor) >= 0
}

func (v Version) precision() int {
	if v.Precision < 1 || v.Precision > 3 {
		return 3
	}
	return v.Precision
}

// ParseToolOutput extracts the version from the first line of output that
// looks like "<tool> version X.Y.Z", which is how cmake, ninja wrappers and
// git report themselves.
func ParseToolOutput(output string) (Version, error) {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		for i := 0; i+1 < len(fields); i++ {
			if fields[i] == "version" {
				return ParseVersion(fields[i+1])
			}
		}
	}
	return Version{}, ErrNoToolVersion
}
