package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/updater/internal/api"
	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/updates"
)

type updateResponse struct {
	Slug             string                `json:"slug"`
	InstalledVersion string                `json:"installed_version"`
	Beta             bool                  `json:"beta"`
	Result           updates.Result        `json:"result"`
	Notification     *updates.Notification `json:"notification,omitempty"`
	Notice           *updates.Notice       `json:"notice,omitempty"`
}

// Update runs a check against the persisted cycle state and returns the
// decision. A product already found outdated in this cycle is not asked
// again.
func Update(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		state, err := d.States.Load(ctx)
		if err != nil {
			d.Logger.Warn("starting from an empty update state", logger.Error(err))
			state = updates.NewCycleState()
		}

		next, res, err := d.Checker.Check(ctx, state)
		if err != nil {
			writeCheckError(w, d, err)
			return
		}

		if next != state {
			if err := d.States.Save(ctx, next); err != nil {
				d.Logger.Warn("failed to persist update state", logger.Error(err))
			}
		}

		p := d.Checker.Product()
		resp := updateResponse{
			Slug:             p.Slug,
			InstalledVersion: p.Version,
			Beta:             d.Checker.Beta(),
			Result:           res,
			Notification:     d.Checker.Notification(next),
		}
		if n, ok := d.Notices.Get(p.Slug); ok {
			resp.Notice = &n
		}

		writeJSON(w, d.Logger, http.StatusOK, resp)
	}
}

// TriggerCheck starts an update check cycle without waiting for it.
func TriggerCheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.CheckTrigger <- struct{}{}:
			d.Logger.Info("manual update check triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Update check triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("update check already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Update check already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}

// PurgeCache drops the cached server answers and the cycle state, so the
// next check asks the server. With ?all=true every transient of the store
// is flushed.
func PurgeCache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.URL.Query().Get("all") == "true" && d.Transients != nil {
			n, err := d.Transients.FlushTransients(ctx)
			if err != nil {
				d.Logger.Error("failed to flush transients", logger.Error(err))
				writeError(w, d.Logger, http.StatusInternalServerError, "failed to flush transients")
				return
			}
			d.Notices.Clear(d.Checker.Product().Slug)
			d.Logger.Info("transients flushed",
				logger.Int("removed", n),
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := d.Checker.Purge(ctx); err != nil {
			d.Logger.Error("failed to purge version cache", logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to purge version cache")
			return
		}
		if err := d.States.Reset(ctx); err != nil {
			d.Logger.Error("failed to reset update state", logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to reset update state")
			return
		}
		d.Notices.Clear(d.Checker.Product().Slug)

		d.Logger.Info("version cache purged", logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusNoContent)
	}
}

// PluginInfo returns the extended metadata of the product named by ?slug=.
func PluginInfo(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.URL.Query().Get("slug")
		if slug == "" {
			writeError(w, d.Logger, http.StatusBadRequest, "missing slug")
			return
		}

		info, err := d.Checker.PluginInfo(r.Context(), slug)
		switch {
		case err == nil:
			writeJSON(w, d.Logger, http.StatusOK, info)
		case errors.Is(err, updates.ErrUnknownSlug):
			writeError(w, d.Logger, http.StatusNotFound, err.Error())
		case errors.Is(err, updates.ErrNoVersionInfo):
			writeError(w, d.Logger, http.StatusBadGateway, err.Error())
		default:
			writeCheckError(w, d, err)
		}
	}
}

type changelogResponse struct {
	Slug      string `json:"slug"`
	Changelog string `json:"changelog"`
}

// Changelog returns the changelog section of the product. ?slug= is
// optional and must name the product when set.
func Changelog(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := d.Checker.Product()
		if slug := r.URL.Query().Get("slug"); slug != "" && slug != p.Slug {
			writeError(w, d.Logger, http.StatusNotFound, updates.ErrUnknownSlug.Error()+": "+slug)
			return
		}

		text, err := d.Checker.Changelog(r.Context())
		if err != nil {
			writeCheckError(w, d, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, changelogResponse{Slug: p.Slug, Changelog: text})
	}
}

func writeCheckError(w http.ResponseWriter, d deps.Deps, err error) {
	var cfgErr *api.ConfigurationError
	if errors.As(err, &cfgErr) {
		d.Logger.Error("update server client is misconfigured", logger.Error(err))
		writeError(w, d.Logger, http.StatusInternalServerError, cfgErr.Error())
		return
	}
	d.Logger.Error("update check failed", logger.Error(err))
	writeError(w, d.Logger, http.StatusInternalServerError, "update check failed")
}
