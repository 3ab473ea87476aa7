package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/updater/internal/license"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
	"github.com/MrSnakeDoc/updater/internal/updates"
	"github.com/MrSnakeDoc/updater/internal/version"
)

// TransientFlusher drops every cached transient of the store.
type TransientFlusher interface {
	FlushTransients(ctx context.Context) (int, error)
}

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Build             version.Info
	TimeNow           func() time.Time     // for testing, defaults to time.Now
	AllowedHosts      []string             // Host headers allowed to access the server
	AllowedCIDRS      []string             // IPs allowed to access the admin endpoints
	TrustProxy        bool                 // true if running behind a trusted reverse proxy (e.g., cloudflared)
	StoreBackend      string               // "redis" | "memory"
	Store             Pinger               // backing store, pinged by /readyz; nil skips the check
	Transients        TransientFlusher     // backing store, flushed by DELETE /api/update/cache?all=true
	Checker           *updates.Checker     // update decisions for the configured product
	States            *updates.StateStore  // persisted update cycle state
	Notices           *updates.NoticeBoard // latest update server notice per product
	Licenses          *license.Manager     // license activation and status
	Metrics           *metrics.Registry    // nil disables /metrics
	CheckTrigger      chan struct{}        // Channel to trigger a manual update check
	LicenseBurst      int                  // license endpoint rate limit burst
	LicenseRefillRate int                  // license endpoint tokens per IP per minute
}
