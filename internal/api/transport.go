package api

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// newTransport builds the transport used for update server calls.
func newTransport(skipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: skipVerify, //nolint:gosec
		},
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}
}
