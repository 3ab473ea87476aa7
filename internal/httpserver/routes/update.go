package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/updater/internal/httpserver/mw"
)

func init() { Register("update", registerUpdate) }

func registerUpdate(r chi.Router, d deps.Deps) {
	admin := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))

	admin.Get("/api/update", handlers.Update(d))
	admin.Post("/api/update/check", handlers.TriggerCheck(d))
	admin.Delete("/api/update/cache", handlers.PurgeCache(d))
	admin.Get("/api/plugin-info", handlers.PluginInfo(d))
	admin.Get("/api/changelog", handlers.Changelog(d))
}
