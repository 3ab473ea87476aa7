package product

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/updater/internal/domain"
)

// Loader handles loading and parsing of the product manifest
type Loader struct {
	filePath string
}

// NewLoader creates a new manifest loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads, parses and validates the manifest, then maps it to a Product.
func (l *Loader) Load() (domain.Product, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to read product file: %w", err)
	}

	return Parse(data)
}

// Parse is Load without the file system.
func Parse(data []byte) (domain.Product, error) {
	// Secrets (license key mostly) are injected as ${VAR} placeholders
	data = expandVariables(data)

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return domain.Product{}, fmt.Errorf("failed to parse product yaml: %w", err)
	}

	if err := Validate(&m); err != nil {
		return domain.Product{}, err
	}

	return m.ToProduct(), nil
}

// ToProduct maps the manifest to the domain identity.
func (m *Manifest) ToProduct() domain.Product {
	p := domain.Product{
		Name:            m.Name,
		Slug:            m.Slug,
		Basename:        m.Basename,
		Version:         m.Version,
		VendorName:      m.Vendor.Name,
		UpdateServerURL: m.Vendor.URL,
		HomeURL:         m.HomeURL,
	}
	p.Basename = p.UniqueBasename()
	return p.WithLicenseKey(m.LicenseKey)
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandVariables replaces ${VAR} with the environment value.
// Unset variables expand to an empty string.
// Example: ${UPDATER_LICENSE_KEY} -> "abc123"
func expandVariables(data []byte) []byte {
	return placeholder.ReplaceAllFunc(data, func(match []byte) []byte {
		name := placeholder.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
