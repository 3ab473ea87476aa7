package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
	"github.com/MrSnakeDoc/updater/internal/utils"
)

const (
	// DefaultTimeout bounds version calls.
	DefaultTimeout = 120 * time.Second
	// DefaultLicenseTimeout bounds activate and deactivate calls.
	DefaultLicenseTimeout = 60 * time.Second
	// CheckLicenseTimeout bounds check_license.
	CheckLicenseTimeout = 15 * time.Second

	maxBodyBytes = 8 << 20
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	Timeout        time.Duration
	LicenseTimeout time.Duration
	SkipTLSVerify  bool
	UserAgent      string

	// Transport replaces the default transport (tests).
	Transport http.RoundTripper

	Logger  logger.Logger
	Metrics *metrics.Registry
}

// Client talks to an EDD style update server on behalf of one product.
// One Call is one POST; there are no retries.
type Client struct {
	http           *http.Client
	timeout        atomic.Int64
	licenseTimeout time.Duration
	userAgent      string
	log            logger.Logger
	metrics        *metrics.Registry

	mu      sync.RWMutex
	product domain.Product
}

// NewClient creates a client for product.
func NewClient(product domain.Product, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LicenseTimeout <= 0 {
		opts.LicenseTimeout = DefaultLicenseTimeout
	}
	if opts.Transport == nil {
		opts.Transport = newTransport(opts.SkipTLSVerify)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "updater"
	}

	c := &Client{
		http: &http.Client{
			Transport: opts.Transport,
		},
		licenseTimeout: opts.LicenseTimeout,
		userAgent:      opts.UserAgent,
		log:            opts.Logger.With(logger.String("slug", product.Slug)),
		metrics:        opts.Metrics,
		product:        product,
	}
	c.timeout.Store(int64(opts.Timeout))
	return c
}

// Product returns the product the client currently calls for.
func (c *Client) Product() domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.product
}

// SetLicenseKey rebinds the client to a new license key.
func (c *Client) SetLicenseKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.product = c.product.WithLicenseKey(key)
}

// SetTimeout overrides the timeout of version calls.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout.Store(int64(d))
	}
}

// Timeout returns the timeout of version calls.
func (c *Client) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// Call posts action to the update server with the client timeout.
// See CallWithTimeout.
func (c *Client) Call(ctx context.Context, action Action, extra url.Values) (*domain.Response, error) {
	return c.CallWithTimeout(ctx, action, extra, c.Timeout())
}

// CallWithTimeout posts action to the update server.
//
// The only error is a *ConfigurationError, returned before any request is
// sent. Every network or HTTP failure is reported through the Response.
func (c *Client) CallWithTimeout(ctx context.Context, action Action, extra url.Values, timeout time.Duration) (*domain.Response, error) {
	p := c.Product()

	if err := checkConfig(p, action); err != nil {
		return nil, err
	}

	form := baseParams(p, action)
	for k, vs := range extra {
		form[k] = vs
	}

	start := time.Now()
	resp := c.post(ctx, p.UpdateServerURL, form, timeout)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case resp.TransportFailed():
		outcome = "transport_error"
	case resp.IsError():
		outcome = "http_error"
	case action.returnsVersion():
		v, err := decodeVersion(resp.Body)
		if err != nil {
			outcome = "malformed"
			c.log.Debug("no version data in response",
				logger.String("action", string(action)),
				logger.Error(err),
			)
		}
		resp.Version = v
	}
	c.metrics.RecordAPICall(string(action), outcome, elapsed)

	if resp.IsError() {
		c.log.Warn("update server call failed",
			logger.String("action", string(action)),
			logger.Int("status", resp.StatusCode),
			logger.String("message", resp.Message),
			logger.Duration("elapsed", elapsed),
		)
	} else {
		c.log.Debug("update server call",
			logger.String("action", string(action)),
			logger.Int("status", resp.StatusCode),
			logger.Duration("elapsed", elapsed),
		)
	}

	return resp, nil
}

// GetLatestVersion asks for the latest version, on the beta channel if beta.
func (c *Client) GetLatestVersion(ctx context.Context, beta bool) (*domain.Response, error) {
	return c.Call(ctx, ActionGetVersion, url.Values{
		"beta": {phpBool(beta)},
	})
}

// GetPluginInfo asks for the extended metadata shown in the details view.
func (c *Client) GetPluginInfo(ctx context.Context) (*domain.Response, error) {
	p := c.Product()
	return c.Call(ctx, ActionPluginInformation, url.Values{
		"slug":            {p.Slug},
		"is_ssl":          {phpBool(strings.HasPrefix(strings.ToLower(p.HomeURL), "https://"))},
		"fields[banners]": {""},
		"fields[reviews]": {"0"},
	})
}

// License runs a license action for key and decodes the license payload.
// data is nil when the response is an error or the body is not an object.
func (c *Client) License(ctx context.Context, action Action, key string) (*domain.Response, *domain.LicenseData, error) {
	if !action.IsLicense() {
		return nil, nil, &ConfigurationError{Reason: fmt.Sprintf("%s is not a license action", action)}
	}

	timeout := c.licenseTimeout
	if action == ActionCheckLicense {
		timeout = CheckLicenseTimeout
	}

	resp, err := c.CallWithTimeout(ctx, action, url.Values{
		"license": {strings.TrimSpace(key)},
	}, timeout)
	if err != nil {
		return nil, nil, err
	}
	if resp.IsError() {
		return resp, nil, nil
	}

	data := decodeLicense(resp.Body)
	if data == nil {
		c.log.Debug("license response is not an object", logger.String("action", string(action)))
	}
	return resp, data, nil
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values, timeout time.Duration) *domain.Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.NewTransportFailure("http_request_failed: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return domain.NewTransportFailure(transportMessage(err, timeout))
	}
	defer utils.MustClose(res.Body)

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return domain.NewTransportFailure(transportMessage(err, timeout))
	}

	if res.StatusCode >= http.StatusBadRequest {
		return &domain.Response{
			StatusCode: res.StatusCode,
			Message:    http.StatusText(res.StatusCode),
			Body:       body,
		}
	}

	return &domain.Response{
		StatusCode: res.StatusCode,
		Body:       body,
	}
}

func transportMessage(err error, timeout time.Duration) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("http_request_failed: request timed out after %s: %v", timeout, err)
	}
	return "http_request_failed: " + err.Error()
}

func checkConfig(p domain.Product, action Action) error {
	if !action.Valid() {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown action %q", action)}
	}
	if strings.TrimSpace(p.UpdateServerURL) == "" {
		return &ConfigurationError{Reason: "update server URL is empty"}
	}
	if p.HomeURL != "" && sameSite(p.UpdateServerURL, p.HomeURL) {
		return &ConfigurationError{Reason: "update server must be another server than " + p.HomeURL}
	}
	return nil
}

func baseParams(p domain.Product, action Action) url.Values {
	return url.Values{
		"edd_action": {string(action)},
		"item_name":  {p.Name},
		"slug":       {p.Slug},
		"version":    {p.Version},
		"license":    {p.LicenseKey},
		"author":     {p.VendorName},
		"url":        {p.HomeURL},
	}
}

// sameSite compares two URLs with scheme and host case folded and the
// trailing slash ignored.
func sameSite(a, b string) bool {
	ua, errA := url.Parse(strings.TrimSpace(a))
	ub, errB := url.Parse(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return trailingSlash(a) == trailingSlash(b)
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		trailingSlash(ua.Path) == trailingSlash(ub.Path) &&
		ua.RawQuery == ub.RawQuery
}

func trailingSlash(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/") + "/"
}

// phpBool spells a bool the way the server expects a form value.
func phpBool(b bool) string {
	if b {
		return "1"
	}
	return ""
}
