package domain

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions returns -1, 0 or 1 when a is lower than, equal to or
// greater than b. Pre-releases sort before their final release
// (1.2.3-beta < 1.2.3).
//
// Semantic versions are compared with semver precedence. Anything semver
// rejects (four part versions such as 1.2.3.4) falls back to a dotted
// segment comparison.
func CompareVersions(a, b string) int {
	a = strings.TrimPrefix(strings.TrimSpace(a), "v")
	b = strings.TrimPrefix(strings.TrimSpace(b), "v")

	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}

	return compareSegments(splitVersion(a), splitVersion(b))
}

// UpdateAvailable reports whether remote is strictly newer than current.
// A nil or empty remote version never means an update.
func UpdateAvailable(current string, remote *string) bool {
	if remote == nil || strings.TrimSpace(*remote) == "" {
		return false
	}
	return CompareVersions(current, *remote) < 0
}

func splitVersion(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '+' || r == '_'
	})
}

func compareSegments(a, b []string) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		switch {
		case i >= len(a):
			return -trailingWeight(b[i])
		case i >= len(b):
			return trailingWeight(a[i])
		}

		if c := compareSegment(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// trailingWeight decides how an extra segment weighs against nothing:
// 1.2.3.1 > 1.2.3 but 1.2.3-rc < 1.2.3.
func trailingWeight(seg string) int {
	if _, err := strconv.Atoi(seg); err == nil {
		return 1
	}
	return -1
}

func compareSegment(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)

	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
