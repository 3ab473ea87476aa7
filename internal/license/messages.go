package license

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
)

// expiryLayouts are tried in order on the expires field.
var expiryLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// formatExpiry renders an expiry date as "January 2, 2006", or returns the
// raw value when it cannot be parsed ("lifetime" for instance).
func formatExpiry(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return raw
}

// rejectionMessage maps a license error code to the message shown to the
// user. ok is false for codes that are not license states.
func rejectionMessage(code string, data *domain.LicenseData, name string) (domain.LicenseStatus, string, bool) {
	status, known := domain.ParseLicenseStatus(code)
	if !known || status == domain.LicenseUnset || status == domain.LicenseValid {
		return domain.LicenseUnset, unknownFailure(name), false
	}

	switch status {
	case domain.LicenseExpired:
		return status, fmt.Sprintf("Your license key expired on %s.", formatExpiry(data.Expires)), true
	case domain.LicenseRevoked:
		return status, fmt.Sprintf("Your license key for %s has been disabled.", name), true
	case domain.LicenseMissing:
		return status, fmt.Sprintf("Invalid license key for %s", name), true
	case domain.LicenseInvalid, domain.LicenseSiteInactive:
		return status, fmt.Sprintf("Your license key for %s is not active for this URL.", name), true
	case domain.LicenseItemNameMismatch:
		return status, fmt.Sprintf("This appears to be an invalid license key for %s.", name), true
	case domain.LicenseNoActivationsLeft:
		return status, fmt.Sprintf("Your license key for %s has reached its activation limit.", name), true
	}
	return domain.LicenseUnset, unknownFailure(name), false
}

func unknownFailure(name string) string {
	return fmt.Sprintf("An error occurred while activating %s, please try again.", name)
}

func requestFailure(name string) string {
	return fmt.Sprintf("An error occurred while trying to activate %s, please try again.", name)
}
