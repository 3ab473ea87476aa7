package api

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload marks a 2xx body that could not be read as version data.
// It never reaches callers of Call; the Response just carries no Version.
var ErrMalformedPayload = errors.New("malformed version payload")

// ConfigurationError is returned when the client is set up in a way that can
// never work. No request is sent.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("api configuration: %s", e.Reason)
}
