package api

// Action is the edd_action sent to the update server.
type Action string

const (
	ActionGetVersion        Action = "get_version"
	ActionPluginInformation Action = "plugin_information"
	ActionActivateLicense   Action = "activate_license"
	ActionDeactivateLicense Action = "deactivate_license"
	ActionCheckLicense      Action = "check_license"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionGetVersion, ActionPluginInformation,
		ActionActivateLicense, ActionDeactivateLicense, ActionCheckLicense:
		return true
	}
	return false
}

// IsLicense reports whether a acts on the license rather than on version data.
func (a Action) IsLicense() bool {
	switch a {
	case ActionActivateLicense, ActionDeactivateLicense, ActionCheckLicense:
		return true
	}
	return false
}

// returnsVersion reports whether a successful body is version data.
func (a Action) returnsVersion() bool {
	return a == ActionGetVersion || a == ActionPluginInformation
}
