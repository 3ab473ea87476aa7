package domain

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{name: "lower patch", a: "1.0.0", b: "1.2.3", expected: -1},
		{name: "equal", a: "1.2.3", b: "1.2.3", expected: 0},
		{name: "greater", a: "2.0.0", b: "1.9.9", expected: 1},
		{name: "prerelease before release", a: "1.2.3-beta", b: "1.2.3", expected: -1},
		{name: "release after prerelease", a: "1.2.3", b: "1.2.3-beta.1", expected: 1},
		{name: "v prefix ignored", a: "v1.2.3", b: "1.2.3", expected: 0},
		{name: "short version", a: "1.2", b: "1.2.0", expected: 0},
		{name: "numeric not lexical", a: "1.10.0", b: "1.9.0", expected: 1},
		{name: "four part fallback greater", a: "1.2.3.4", b: "1.2.3", expected: 1},
		{name: "four part fallback lower", a: "1.2.3.4", b: "1.2.3.10", expected: -1},
		{name: "four part fallback equal", a: "1.2.3.4", b: "1.2.3.4", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.expected {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestUpdateAvailable(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		remote   *string
		expected bool
	}{
		{name: "newer remote", current: "1.0.0", remote: StringPtr("1.2.3"), expected: true},
		{name: "same version", current: "1.2.3", remote: StringPtr("1.2.3"), expected: false},
		{name: "absent remote", current: "1.2.3", remote: nil, expected: false},
		{name: "empty remote", current: "1.2.3", remote: StringPtr(""), expected: false},
		{name: "older remote", current: "2.0.0", remote: StringPtr("1.2.3"), expected: false},
		{name: "final after beta install", current: "1.2.3-beta", remote: StringPtr("1.2.3"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpdateAvailable(tt.current, tt.remote); got != tt.expected {
				t.Errorf("UpdateAvailable() = %v, want %v", got, tt.expected)
			}
		})
	}
}
