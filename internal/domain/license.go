package domain

// LicenseStatus is the local activation state of a license key.
type LicenseStatus string

const (
	LicenseUnset             LicenseStatus = ""
	LicenseValid             LicenseStatus = "valid"
	LicenseInvalid           LicenseStatus = "invalid"
	LicenseExpired           LicenseStatus = "expired"
	LicenseRevoked           LicenseStatus = "revoked"
	LicenseMissing           LicenseStatus = "missing"
	LicenseSiteInactive      LicenseStatus = "site_inactive"
	LicenseItemNameMismatch  LicenseStatus = "item_name_mismatch"
	LicenseNoActivationsLeft LicenseStatus = "no_activations_left"
)

// AllLicenseStatuses lists every known status, unset first.
var AllLicenseStatuses = []LicenseStatus{
	LicenseUnset,
	LicenseValid,
	LicenseInvalid,
	LicenseExpired,
	LicenseRevoked,
	LicenseMissing,
	LicenseSiteInactive,
	LicenseItemNameMismatch,
	LicenseNoActivationsLeft,
}

// ParseLicenseStatus maps a wire value to a known status.
func ParseLicenseStatus(s string) (LicenseStatus, bool) {
	for _, st := range AllLicenseStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return LicenseUnset, false
}

// String returns "unset" for the empty status.
func (s LicenseStatus) String() string {
	if s == LicenseUnset {
		return "unset"
	}
	return string(s)
}

// LicenseData is the body returned by activate_license, deactivate_license
// and check_license.
type LicenseData struct {
	Success  *bool  `json:"success,omitempty"`
	License  string `json:"license,omitempty"`
	Error    string `json:"error,omitempty"`
	Expires  string `json:"expires,omitempty"`
	ItemName string `json:"item_name,omitempty"`
	Message  string `json:"msg,omitempty"`
}

// Failed reports an explicit success:false.
func (d *LicenseData) Failed() bool {
	return d != nil && d.Success != nil && !*d.Success
}
