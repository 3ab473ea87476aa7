package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/updater/internal/api"
	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/license"
	"github.com/MrSnakeDoc/updater/internal/logger"
)

const maxLicenseBody = 16 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

type licenseRequest struct {
	Action  string `json:"action" validate:"required"`
	License string `json:"license" validate:"omitempty,max=256,printascii"`
}

type licenseStatusResponse struct {
	Slug   string `json:"slug"`
	Status string `json:"status"`
	HasKey bool   `json:"has_key"`
	Key    string `json:"key,omitempty"`
}

// LicenseStatus returns the stored license status. The key is masked.
func LicenseStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key, err := d.Licenses.Key(ctx)
		if err != nil {
			d.Logger.Error("failed to read license key", logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to read license key")
			return
		}
		status, err := d.Licenses.Status(ctx)
		if err != nil {
			d.Logger.Error("failed to read license status", logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to read license status")
			return
		}

		writeJSON(w, d.Logger, http.StatusOK, licenseStatusResponse{
			Slug:   d.Checker.Product().Slug,
			Status: status.String(),
			HasKey: key != "",
			Key:    maskKey(key),
		})
	}
}

// LicenseAction activates or deactivates the license. The body is JSON or
// a form with "action" and "license". Activating without a key uses the
// stored one.
func LicenseAction(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		req, err := decodeLicenseRequest(w, r)
		if err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, err.Error())
			return
		}

		action, err := license.ParseAction(req.Action)
		if err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, err.Error())
			return
		}

		var outcome license.Outcome
		switch action {
		case api.ActionActivateLicense:
			key := strings.TrimSpace(req.License)
			if key == "" {
				if key, err = d.Licenses.Key(ctx); err != nil {
					writeLicenseError(w, d, err)
					return
				}
			}
			if key == "" {
				writeError(w, d.Logger, http.StatusBadRequest, "missing license key")
				return
			}
			outcome, err = d.Licenses.Activate(ctx, key)
		default:
			outcome, err = d.Licenses.Deactivate(ctx)
		}
		if err != nil {
			writeLicenseError(w, d, err)
			return
		}

		d.Logger.Info("license action handled",
			logger.String("action", req.Action),
			logger.Bool("success", outcome.Success),
			logger.String("status", outcome.Status.String()),
			logger.String("remote_ip", r.RemoteAddr),
		)
		writeJSON(w, d.Logger, http.StatusOK, outcome)
	}
}

type licenseCheckResponse struct {
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
}

// LicenseCheck asks the update server whether the stored key is valid.
func LicenseCheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := d.Licenses.Check(r.Context())
		if err != nil {
			var cfgErr *api.ConfigurationError
			if errors.As(err, &cfgErr) {
				writeLicenseError(w, d, err)
				return
			}
			d.Logger.Warn("license check failed", logger.Error(err))
			writeError(w, d.Logger, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, licenseCheckResponse{
			Status: status.String(),
			Valid:  status == domain.LicenseValid,
		})
	}
}

func decodeLicenseRequest(w http.ResponseWriter, r *http.Request) (licenseRequest, error) {
	var req licenseRequest

	body := http.MaxBytesReader(w, r.Body, maxLicenseBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, errors.New("invalid JSON body")
		}
	} else {
		r.Body = body
		if err := r.ParseForm(); err != nil {
			return req, errors.New("invalid form body")
		}
		req.Action = r.PostForm.Get("action")
		req.License = r.PostForm.Get("license")
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return req, errors.New("invalid field: " + strings.ToLower(verrs[0].Field()))
		}
		return req, err
	}
	return req, nil
}

func writeLicenseError(w http.ResponseWriter, d deps.Deps, err error) {
	var cfgErr *api.ConfigurationError
	if errors.As(err, &cfgErr) {
		d.Logger.Error("update server client is misconfigured", logger.Error(err))
		writeError(w, d.Logger, http.StatusInternalServerError, cfgErr.Error())
		return
	}
	d.Logger.Error("license store failure", logger.Error(err))
	writeError(w, d.Logger, http.StatusInternalServerError, "license store failure")
}

// maskKey keeps the last four characters of key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
