// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a federation version: a major contract, optionally pinned
// to an exact composition release. The zero value means "not
// specified".
type Version struct {
	Major int
	// Exact is a full release like "2.3.1" without any prefix. Empty
	// means the latest release of Major.
	Exact string
}

var (
	// V1 is the latest federation 1 composition.
	V1 = Version{Major: 1}

	// LatestV2 is the latest federation 2 composition.
	LatestV2 = Version{Major: 2}
)

// Parse accepts "1", "2", "v2", "latest-2", "=2.3.1", "v2.3.1" and
// "2.3.1".
func Parse(input string) (Version, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Version{}, fmt.Errorf("empty federation version")
	}

	exact := false
	switch {
	case strings.HasPrefix(text, "="):
		text = text[1:]
		exact = true
	case strings.HasPrefix(text, "latest-"):
		text = strings.TrimPrefix(text, "latest-")
	case strings.HasPrefix(text, "v"):
		text = text[1:]
	}

	parts := strings.Split(text, ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid federation version %q: major version is not a number", input)
	}
	if major != 1 && major != 2 {
		return Version{}, fmt.Errorf("invalid federation version %q: only federation 1 and 2 exist", input)
	}

	switch len(parts) {
	case 1:
		if exact {
			return Version{}, fmt.Errorf("invalid federation version %q: an exact pin needs major.minor.patch", input)
		}
		return Version{Major: major}, nil
	case 3:
		for _, part := range parts[1:] {
			if _, err := strconv.Atoi(part); err != nil {
				return Version{}, fmt.Errorf("invalid federation version %q: %q is not a number", input, part)
			}
		}
		return Version{Major: major, Exact: text}, nil
	default:
		return Version{}, fmt.Errorf("invalid federation version %q: expected a major version or major.minor.patch", input)
	}
}

// IsZero reports whether the version is unspecified.
func (v Version) IsZero() bool { return v.Major == 0 }

// String renders the version the way the supergraph config file
// spells it: "2" or "=2.3.1".
func (v Version) String() string {
	if v.IsZero() {
		return "unspecified"
	}
	if v.Exact != "" {
		return "=" + v.Exact
	}
	return strconv.Itoa(v.Major)
}

// BinaryVersion is the composition binary release to install. Only the
// major version matters unless the version is pinned exactly.
func (v Version) BinaryVersion() string {
	if v.Exact != "" {
		return "v" + v.Exact
	}
	return fmt.Sprintf("latest-%d", v.Major)
}
