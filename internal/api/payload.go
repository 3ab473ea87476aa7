package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/updater/internal/domain"
)

// identityFields are the keys of which at least one must be present for a
// body to count as version data.
var identityFields = []string{"new_version", "stable_version", "name", "slug", "sections"}

// standardFields are mapped onto VersionInfo; everything else lands in Extra.
var standardFields = map[string]struct{}{
	"new_version":    {},
	"stable_version": {},
	"name":           {},
	"slug":           {},
	"sections":       {},
	"banners":        {},
	"package":        {},
	"download_link":  {},
	"msg":            {},
	"license":        {},
	"homepage":       {},
	"requires":       {},
	"tested":         {},
	"last_updated":   {},
}

// decodeVersion turns a successful body into a VersionInfo.
// Any error wraps ErrMalformedPayload.
func decodeVersion(body []byte) (*domain.VersionInfo, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedPayload)
	}

	if !hasAny(fields, identityFields) {
		return nil, fmt.Errorf("%w: no version fields", ErrMalformedPayload)
	}

	sections, err := decodeMapping(fields["sections"])
	if err != nil {
		return nil, fmt.Errorf("%w: sections: %v", ErrMalformedPayload, err)
	}
	if sections.Len() == 0 && isSerializedText(fields["sections"]) {
		return nil, fmt.Errorf("%w: serialized sections are empty", ErrMalformedPayload)
	}
	banners, err := decodeMapping(fields["banners"])
	if err != nil {
		return nil, fmt.Errorf("%w: banners: %v", ErrMalformedPayload, err)
	}

	v := &domain.VersionInfo{
		NewVersion:    optionalText(fields["new_version"]),
		StableVersion: optionalText(fields["stable_version"]),
		Name:          text(fields["name"]),
		Slug:          text(fields["slug"]),
		Sections:      sections,
		Banners:       banners,
		Package:       text(fields["package"]),
		Message:       text(fields["msg"]),
		License:       text(fields["license"]),
		Homepage:      text(fields["homepage"]),
		Requires:      text(fields["requires"]),
		Tested:        text(fields["tested"]),
		LastUpdated:   text(fields["last_updated"]),
	}
	if v.Package == "" {
		v.Package = text(fields["download_link"])
	}

	for k, raw := range fields {
		if _, ok := standardFields[k]; ok {
			continue
		}
		if v.Extra == nil {
			v.Extra = make(map[string]json.RawMessage)
		}
		v.Extra[k] = raw
	}

	return v, nil
}

func hasAny(fields map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// isSerializedText reports whether raw is a JSON string holding a PHP
// serialized array.
func isSerializedText(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return isSerialized(s)
}

// decodeMapping accepts a JSON object, a JSON list (keyed by position), null,
// an empty string or a PHP serialized array. Anything else is an error.
func decodeMapping(raw json.RawMessage) (domain.OrderedMap, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.OrderedMap{}, nil
	}

	switch raw[0] {
	case '{', '[', 'n':
		var m domain.OrderedMap
		if err := json.Unmarshal(raw, &m); err != nil {
			return domain.OrderedMap{}, err
		}
		return m, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.OrderedMap{}, err
		}
		if strings.TrimSpace(s) == "" {
			return domain.OrderedMap{}, nil
		}
		if !isSerialized(s) {
			return domain.OrderedMap{}, fmt.Errorf("unknown string encoding")
		}
		return unserializeMapping(s)
	}

	return domain.OrderedMap{}, fmt.Errorf("unexpected JSON value %.20s", raw)
}

// text reads a scalar as a string. Numbers keep their JSON spelling;
// false, null and structures read as "".
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw)
	case 't':
		if string(raw) == "true" {
			return "1"
		}
	}
	return ""
}

// optionalText is text with "" mapped to nil. The server answers
// new_version:false for unknown products.
func optionalText(raw json.RawMessage) *string {
	s := text(raw)
	if s == "" {
		return nil
	}
	return &s
}

// decodeLicense reads a license action body. A body that is not a JSON
// object yields nil.
func decodeLicense(body []byte) *domain.LicenseData {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil
	}

	data := &domain.LicenseData{
		License:  text(fields["license"]),
		Error:    text(fields["error"]),
		Expires:  text(fields["expires"]),
		ItemName: text(fields["item_name"]),
		Message:  text(fields["msg"]),
	}
	if raw, ok := fields["success"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			data.Success = &b
		}
	}
	return data
}
