package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/updater/internal/domain"
)

// Registry holds all metrics for the updater.
// Every Record/Set method is safe on a nil *Registry so components can run
// without metrics (tests, embedding).
type Registry struct {
	registry *prometheus.Registry

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	CacheLookupsTotal *prometheus.CounterVec

	CheckCyclesTotal *prometheus.CounterVec
	UpdateAvailable  prometheus.Gauge
	LastCheck        prometheus.Gauge

	LicenseStatus *prometheus.GaugeVec
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.APIRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updater_api_requests_total",
			Help: "Total number of update server calls by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	r.APIRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "updater_api_request_duration_seconds",
			Help:    "Update server call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"action"},
	)

	r.CacheLookupsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updater_version_cache_lookups_total",
			Help: "Version cache lookups by result (hit, miss, expired)",
		},
		[]string{"result"},
	)

	r.CheckCyclesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updater_check_cycles_total",
			Help: "Update check cycles by source (skipped, cache, remote)",
		},
		[]string{"source"},
	)

	r.UpdateAvailable = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "updater_update_available",
			Help: "Whether a newer version is available (1=yes, 0=no)",
		},
	)

	r.LastCheck = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "updater_last_check_timestamp_seconds",
			Help: "Time of the last completed update check as Unix timestamp",
		},
	)

	r.LicenseStatus = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "updater_license_status",
			Help: "Current local license status (1 for the active status)",
		},
		[]string{"status"},
	)

	r.SetLicenseStatus(domain.LicenseUnset)

	return r
}

// Handler exposes the registry over HTTP.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordAPICall records one update server round trip.
func (r *Registry) RecordAPICall(action, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.APIRequestsTotal.WithLabelValues(action, outcome).Inc()
	r.APIRequestDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (r *Registry) RecordCacheLookup(result string) {
	if r == nil {
		return
	}
	r.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordCheck records a finished check cycle.
func (r *Registry) RecordCheck(source string, available bool, at time.Time) {
	if r == nil {
		return
	}
	r.CheckCyclesTotal.WithLabelValues(source).Inc()
	if available {
		r.UpdateAvailable.Set(1)
	} else {
		r.UpdateAvailable.Set(0)
	}
	r.LastCheck.Set(float64(at.Unix()))
}

// SetLicenseStatus flips the gauge of status to 1 and every other to 0.
func (r *Registry) SetLicenseStatus(status domain.LicenseStatus) {
	if r == nil {
		return
	}
	for _, s := range domain.AllLicenseStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		r.LicenseStatus.WithLabelValues(s.String()).Set(v)
	}
}
