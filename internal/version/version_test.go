package version

import "testing"

func TestUserAgent(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v1.4.0"
	if got := UserAgent(); got != "updater/v1.4.0" {
		t.Errorf("UserAgent() = %q", got)
	}
	if got := Get().Version; got != "v1.4.0" {
		t.Errorf("Get().Version = %q", got)
	}
}
