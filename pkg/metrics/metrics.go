package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/faciam-dev/guidecms/internal/logger"
)

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_api_requests_total",
			Help: "Number of API requests",
		},
		[]string{"method", "path", "status"},
	)
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cms_api_latency_seconds",
			Help:    "API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	Fields = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cms_fields_total",
			Help: "Number of active field templates by post type",
		},
		[]string{"post_type"},
	)
	FieldMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_field_moves_total",
			Help: "Field move requests by outcome",
		},
		[]string{"result"},
	)
	MetaWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_meta_writes_total",
			Help: "Metadata slots written by the save hook",
		},
		[]string{"post_type"},
	)
	OrphanMeta = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cms_orphan_meta_keys",
			Help: "Page metadata keys that match no active field",
		},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cms_schema_cache_hits_total",
			Help: "Schema cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cms_schema_cache_misses_total",
			Help: "Schema cache misses",
		},
	)
	AuditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_audit_events_total",
			Help: "Audit log events",
		},
		[]string{"action"},
	)
	AuditErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_audit_errors_total",
			Help: "Audit write errors",
		},
		[]string{"action"},
	)
	EventFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_event_failures_total",
			Help: "Events that exhausted their retries",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequests,
		APILatency,
		Fields,
		FieldMoves,
		MetaWrites,
		OrphanMeta,
		CacheHits,
		CacheMisses,
		AuditEvents,
		AuditErrors,
		EventFailures,
	)
}

// FieldCounter is implemented by stores able to count active fields per post type.
type FieldCounter interface {
	CountByPostType(ctx context.Context) (map[string]int, error)
}

// RefreshFieldGauge sets the field gauge from repo once.
func RefreshFieldGauge(ctx context.Context, repo FieldCounter) error {
	counts, err := repo.CountByPostType(ctx)
	if err != nil {
		return err
	}
	Fields.Reset()
	for pt, n := range counts {
		Fields.WithLabelValues(pt).Set(float64(n))
	}
	return nil
}

// StartFieldGauge refreshes the field gauge every interval until ctx is done.
func StartFieldGauge(ctx context.Context, repo FieldCounter, interval time.Duration) {
	if repo == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := RefreshFieldGauge(ctx, repo); err != nil {
					logger.L.Error("refresh field gauge", "err", err)
				}
			}
		}
	}()
}
