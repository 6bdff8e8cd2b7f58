package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backup metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_backups_total",
			Help: "Total number of backup attempts by final status",
		},
		[]string{"status", "tier", "type"},
	)

	BackupBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_backup_bytes_total",
			Help: "Total bytes of uploaded backup artifacts",
		},
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aegis_backup_duration_seconds",
			Help:    "Duration of backup attempts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// Verification metrics
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_verifications_total",
			Help: "Total number of backup verifications by outcome",
		},
		[]string{"outcome"},
	)

	// Retention metrics
	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_retention_deleted_total",
			Help: "Total objects deleted by retention enforcement",
		},
	)

	RetentionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_retention_errors_total",
			Help: "Total errors encountered during retention enforcement",
		},
	)
)

// Handler exposes the default registry for an optional /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
