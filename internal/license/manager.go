package license

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/updater/internal/api"
	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
)

// ErrInvalidAction is returned for a license action other than activate
// or deactivate.
var ErrInvalidAction = errors.New("invalid license key action")

// API is the part of the update server client the manager needs.
type API interface {
	Product() domain.Product
	License(ctx context.Context, action api.Action, key string) (*domain.Response, *domain.LicenseData, error)
}

// Options is the persistent option store.
type Options interface {
	GetOption(ctx context.Context, name string) (string, error)
	SetOption(ctx context.Context, name, value string) error
	DeleteOption(ctx context.Context, name string) error
}

// Outcome is the result of an activation or deactivation as shown to the user.
type Outcome struct {
	Success bool                 `json:"success"`
	Status  domain.LicenseStatus `json:"status"`
	Message string               `json:"message,omitempty"`
}

// Manager activates and deactivates the product license and owns the
// persisted license status.
type Manager struct {
	api     API
	options Options
	log     logger.Logger
	metrics *metrics.Registry

	// OnKeyChange is called with the new key once it is persisted.
	OnKeyChange func(key string)
}

// NewManager creates a manager.
func NewManager(client API, options Options, log logger.Logger, m *metrics.Registry) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		api:     client,
		options: options,
		log:     log,
		metrics: m,
	}
}

// ParseAction maps an admin action name to a client action.
func ParseAction(s string) (api.Action, error) {
	switch strings.TrimSpace(s) {
	case "activate":
		return api.ActionActivateLicense, nil
	case "deactivate":
		return api.ActionDeactivateLicense, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidAction, s)
}

// Key returns the stored license key.
func (m *Manager) Key(ctx context.Context) (string, error) {
	k, err := m.options.GetOption(ctx, m.api.Product().LicenseKeyOption())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(k), nil
}

// Status returns the stored license status.
func (m *Manager) Status(ctx context.Context) (domain.LicenseStatus, error) {
	raw, err := m.options.GetOption(ctx, m.api.Product().StatusOption())
	if err != nil {
		return domain.LicenseUnset, err
	}
	st, _ := domain.ParseLicenseStatus(raw)
	return st, nil
}

// SaveKey persists key. A different key clears the stored status first.
func (m *Manager) SaveKey(ctx context.Context, key string) error {
	p := m.api.Product()
	key = strings.TrimSpace(key)

	current, err := m.Key(ctx)
	if err != nil {
		return err
	}
	if current == key {
		return nil
	}

	if err := m.clearStatus(ctx); err != nil {
		return err
	}
	if err := m.options.SetOption(ctx, p.LicenseKeyOption(), key); err != nil {
		return fmt.Errorf("failed to save license key: %w", err)
	}

	if m.OnKeyChange != nil {
		m.OnKeyChange(key)
	}
	return nil
}

// Activate saves key and activates it on the update server.
// The error is reserved for store and configuration failures; a rejected
// license is an unsuccessful Outcome.
func (m *Manager) Activate(ctx context.Context, key string) (Outcome, error) {
	p := m.api.Product()
	key = strings.TrimSpace(key)

	if err := m.SaveKey(ctx, key); err != nil {
		return Outcome{}, err
	}

	current, err := m.Status(ctx)
	if err != nil {
		return Outcome{}, err
	}

	resp, data, err := m.api.License(ctx, api.ActionActivateLicense, key)
	if err != nil {
		return Outcome{}, err
	}

	if resp.IsError() {
		m.log.Warn("license activation request failed",
			logger.Int("status", resp.StatusCode),
			logger.String("message", resp.Message),
		)
		return Outcome{Status: current, Message: failureMessage(resp, p.Name)}, nil
	}

	if data == nil {
		return Outcome{Status: current, Message: requestFailure(p.Name)}, nil
	}

	if data.Failed() {
		status, msg, known := rejectionMessage(data.Error, data, p.Name)
		if !known {
			m.log.Warn("unknown license error", logger.String("error", data.Error))
			return Outcome{Status: current, Message: msg}, nil
		}
		if err := m.setStatus(ctx, status); err != nil {
			return Outcome{}, err
		}
		m.log.Info("license rejected", logger.String("status", status.String()))
		return Outcome{Status: status, Message: msg}, nil
	}

	status, known := domain.ParseLicenseStatus(data.License)
	if !known || status == domain.LicenseUnset {
		status = domain.LicenseInvalid
	}
	if err := m.setStatus(ctx, status); err != nil {
		return Outcome{}, err
	}

	m.log.Info("license activated", logger.String("status", status.String()))
	return Outcome{Success: status == domain.LicenseValid, Status: status}, nil
}

// Deactivate releases the stored key on the update server. The stored
// status is cleared whenever the server answered, whatever the body says.
func (m *Manager) Deactivate(ctx context.Context) (Outcome, error) {
	p := m.api.Product()

	key, err := m.Key(ctx)
	if err != nil {
		return Outcome{}, err
	}
	current, err := m.Status(ctx)
	if err != nil {
		return Outcome{}, err
	}

	resp, _, err := m.api.License(ctx, api.ActionDeactivateLicense, key)
	if err != nil {
		return Outcome{}, err
	}
	if resp.IsError() {
		msg := resp.Message
		if msg == "" {
			msg = requestFailure(p.Name)
		}
		return Outcome{Status: current, Message: msg}, nil
	}

	if err := m.clearStatus(ctx); err != nil {
		return Outcome{}, err
	}
	m.log.Info("license deactivated")
	return Outcome{Success: true, Status: domain.LicenseUnset}, nil
}

// failureMessage shows the transport error when no answer came back and the
// generic activation failure for any HTTP error.
func failureMessage(resp *domain.Response, name string) string {
	if resp.TransportFailed() && resp.Message != "" {
		return resp.Message
	}
	return requestFailure(name)
}

// Check asks the server whether the stored key is still valid. Nothing is
// cached or persisted.
func (m *Manager) Check(ctx context.Context) (domain.LicenseStatus, error) {
	key, err := m.Key(ctx)
	if err != nil {
		return domain.LicenseUnset, err
	}

	resp, data, err := m.api.License(ctx, api.ActionCheckLicense, key)
	if err != nil {
		return domain.LicenseUnset, err
	}
	if resp.IsError() {
		return domain.LicenseUnset, fmt.Errorf("check license: %s", resp.Message)
	}
	if data != nil && data.License == string(domain.LicenseValid) {
		return domain.LicenseValid, nil
	}
	return domain.LicenseInvalid, nil
}

func (m *Manager) setStatus(ctx context.Context, status domain.LicenseStatus) error {
	if err := m.options.SetOption(ctx, m.api.Product().StatusOption(), string(status)); err != nil {
		return fmt.Errorf("failed to save license status: %w", err)
	}
	m.metrics.SetLicenseStatus(status)
	return nil
}

func (m *Manager) clearStatus(ctx context.Context) error {
	if err := m.options.DeleteOption(ctx, m.api.Product().StatusOption()); err != nil {
		return fmt.Errorf("failed to clear license status: %w", err)
	}
	m.metrics.SetLicenseStatus(domain.LicenseUnset)
	return nil
}
