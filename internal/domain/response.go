package domain

import "net/http"

// TransportFailureCode is the status reported when no HTTP response was
// received at all (DNS, refused connection, timeout).
const TransportFailureCode = http.StatusInternalServerError

// Response is the normalized outcome of one call to the update server.
// Success, HTTP errors and transport failures are all represented here;
// none of them is ever returned as a Go error.
type Response struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message,omitempty"`
	Body       []byte `json:"body,omitempty"`

	// Version is present only for successful calls whose body parsed as
	// version data.
	Version *VersionInfo `json:"version,omitempty"`
}

// IsError reports whether the response represents a failure.
func (r *Response) IsError() bool {
	return r == nil || r.StatusCode >= http.StatusBadRequest
}

// TransportFailed reports whether the call never got an HTTP answer.
// An HTTP 500 always carries a body, even an empty one.
func (r *Response) TransportFailed() bool {
	return r != nil && r.StatusCode == TransportFailureCode && r.Body == nil
}

// NewTransportFailure builds the response for a call that never got an
// HTTP answer.
func NewTransportFailure(message string) *Response {
	return &Response{
		StatusCode: TransportFailureCode,
		Message:    message,
	}
}
