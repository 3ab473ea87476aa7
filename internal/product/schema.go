package product

// Manifest is the on-disk description of the managed product (product.yaml).
// It mirrors the header block a plugin file carries on the host.
//
// Example:
//
//	name: Test Plugin
//	slug: test-plugin
//	version: 1.0.0
//	vendor:
//	  name: Make Web
//	  url: https://updates.example.com
//	home_url: https://shop.example.org
//	license_key: ${UPDATER_LICENSE_KEY}
type Manifest struct {
	Name       string `yaml:"name" validate:"required"`
	Slug       string `yaml:"slug" validate:"required,slug"`
	Basename   string `yaml:"basename" validate:"omitempty"`
	Version    string `yaml:"version" validate:"required"`
	Vendor     Vendor `yaml:"vendor"`
	HomeURL    string `yaml:"home_url" validate:"required,url"`
	LicenseKey string `yaml:"license_key" validate:"omitempty,max=255"`
}

// Vendor holds the author name and the update server URL.
type Vendor struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}
