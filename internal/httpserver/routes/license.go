package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/updater/internal/httpserver/mw"
)

func init() { Register("license", registerLicense) }

func registerLicense(r chi.Router, d deps.Deps) {
	admin := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
	admin.Get("/api/license", handlers.LicenseStatus(d))

	// Every license call reaches the update server.
	limited := admin.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.LicenseBurst,
		RefillPerIPPerMin: d.LicenseRefillRate,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Logger:            d.Logger,
	}))
	limited.Post("/api/license", handlers.LicenseAction(d))
	limited.Post("/api/license/check", handlers.LicenseCheck(d))
}
