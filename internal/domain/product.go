package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Product is the identity of the installed component whose updates and
// license are managed.
//
// It is supplied once (from the product manifest) and never mutated.
// A new license key means a new Product value, see WithLicenseKey.
type Product struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// Name is the human readable product name, sent as item_name.
	Name string

	// Slug is the unique lowercase identifier.
	// Example: test-plugin
	Slug string

	// Basename identifies the installed product on the host.
	// Example: test-plugin/test-plugin.php
	Basename string

	// Version is the currently installed version.
	Version string

	// ─────────────────────────────
	// Vendor & remote server
	// ─────────────────────────────

	VendorName string

	// UpdateServerURL is the EDD style endpoint every API call is posted to.
	UpdateServerURL string

	// HomeURL is the caller's own origin, sent as url.
	// The update server must never be this origin.
	HomeURL string

	// ─────────────────────────────
	// Entitlement
	// ─────────────────────────────

	LicenseKey string
}

// WithLicenseKey returns a copy of p bound to key.
func (p Product) WithLicenseKey(key string) Product {
	p.LicenseKey = strings.TrimSpace(key)
	return p
}

// UniqueBasename returns Basename, or "<slug>/<slug>.php" when unset.
func (p Product) UniqueBasename() string {
	if p.Basename != "" {
		return p.Basename
	}
	return fmt.Sprintf("%s/%s.php", p.Slug, p.Slug)
}

// LicenseKeyOption is the option name the license key is persisted under.
func (p Product) LicenseKeyOption() string { return p.Slug + "_license_key" }

// StatusOption is the option name the license status is persisted under.
func (p Product) StatusOption() string { return p.Slug + "_status" }

// VendorSlug returns the vendor name lowercased with every run of
// non alphanumeric characters collapsed into a single dash.
func (p Product) VendorSlug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(p.VendorName)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (p Product) LicensePageSlug() string  { return p.VendorSlug() + "/licences" }
func (p Product) LicensePageTitle() string { return p.VendorName + " Licenses" }
