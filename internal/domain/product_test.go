package domain

import "testing"

func TestProductDerivedNames(t *testing.T) {
	p := Product{
		Name:       "Test Plugin",
		Slug:       "test-plugin",
		VendorName: "Make Web  Ltd.",
	}

	if got := p.UniqueBasename(); got != "test-plugin/test-plugin.php" {
		t.Errorf("UniqueBasename() = %q", got)
	}
	if got := p.LicenseKeyOption(); got != "test-plugin_license_key" {
		t.Errorf("LicenseKeyOption() = %q", got)
	}
	if got := p.StatusOption(); got != "test-plugin_status" {
		t.Errorf("StatusOption() = %q", got)
	}
	if got := p.VendorSlug(); got != "make-web-ltd" {
		t.Errorf("VendorSlug() = %q", got)
	}
	if got := p.LicensePageSlug(); got != "make-web-ltd/licences" {
		t.Errorf("LicensePageSlug() = %q", got)
	}
	if got := p.LicensePageTitle(); got != "Make Web  Ltd. Licenses" {
		t.Errorf("LicensePageTitle() = %q", got)
	}
}

func TestProductWithLicenseKey(t *testing.T) {
	p := Product{Slug: "x", LicenseKey: "old"}
	q := p.WithLicenseKey("  new-key ")

	if q.LicenseKey != "new-key" {
		t.Errorf("WithLicenseKey() key = %q", q.LicenseKey)
	}
	if p.LicenseKey != "old" {
		t.Error("WithLicenseKey() mutated the original product")
	}
}

func TestResponseIsError(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{302, false},
		{400, true},
		{404, true},
		{500, true},
	}
	for _, tt := range tests {
		r := &Response{StatusCode: tt.code}
		if r.IsError() != tt.want {
			t.Errorf("IsError() for %d = %v, want %v", tt.code, r.IsError(), tt.want)
		}
	}

	var nilResp *Response
	if !nilResp.IsError() {
		t.Error("nil response should be an error")
	}
	if !NewTransportFailure("boom").IsError() {
		t.Error("transport failure should be an error")
	}
}

func TestResponseTransportFailed(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want bool
	}{
		{name: "no answer", resp: NewTransportFailure("http_request_failed: refused"), want: true},
		{name: "http 500 with body", resp: &Response{StatusCode: 500, Body: []byte("oops")}, want: false},
		{name: "http 500 empty body", resp: &Response{StatusCode: 500, Body: []byte{}}, want: false},
		{name: "http 404", resp: &Response{StatusCode: 404}, want: false},
		{name: "nil", resp: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.TransportFailed(); got != tt.want {
				t.Errorf("TransportFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}
