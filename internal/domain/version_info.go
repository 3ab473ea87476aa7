package domain

import "encoding/json"

// VersionInfo is the normalized answer of the update server about the
// latest release of a product.
//
// Sections and Banners are always plain mappings here; whatever encoding the
// server used on the wire has been resolved before a VersionInfo is built.
type VersionInfo struct {
	// NewVersion is nil when the server did not announce a version
	// (field missing, empty or false).
	NewVersion    *string `json:"new_version,omitempty"`
	StableVersion *string `json:"stable_version,omitempty"`

	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`

	Sections OrderedMap `json:"sections"`
	Banners  OrderedMap `json:"banners"`

	// Package is the download URL. Empty means automatic update is unavailable.
	Package string `json:"package,omitempty"`

	// Message is set when the server signals a soft error (msg on the wire),
	// e.g. asking the user to renew the license.
	Message string `json:"message,omitempty"`

	// License echoes the license state the server saw for this request.
	License string `json:"license,omitempty"`

	Homepage    string `json:"homepage,omitempty"`
	Requires    string `json:"requires,omitempty"`
	Tested      string `json:"tested,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`

	// Extra keeps server specific fields outside the standard set.
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// HasNewVersion reports whether a new version was announced at all.
func (v *VersionInfo) HasNewVersion() bool {
	return v != nil && v.NewVersion != nil && *v.NewVersion != ""
}

// Changelog returns the changelog section, if any.
func (v *VersionInfo) Changelog() (string, bool) {
	if v == nil {
		return "", false
	}
	c, ok := v.Sections.Get("changelog")
	if !ok || c == "" {
		return "", false
	}
	return c, true
}

// StringPtr is a small helper for optional string fields.
func StringPtr(s string) *string { return &s }
