package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/royalty/pkg/db"
	"gorm.io/gorm"
)

const (
	FetchReasonDeadlineExceeded = "deadline_exceeded"
	FetchReasonCanceled         = "canceled"
	FetchReasonDBLockTimeout    = "db_lock_timeout"
	FetchReasonDBUnavailable    = "db_unavailable"
	FetchReasonNotFound         = "not_found"
	FetchReasonMissingTable     = "missing_table"
	FetchReasonUnknown          = "unknown"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics captures earnings aggregation health signals.
type Metrics struct {
	streamFetchFailures *prometheus.CounterVec
	streamRecords       *prometheus.HistogramVec
	summaries           *prometheus.CounterVec
	summaryDuration     prometheus.Observer
	exports             *prometheus.CounterVec
	staleRefreshes      prometheus.Counter
	withdrawals         *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec
}

// New registers the earnings collectors on registerer.
func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabels(cfg)

	streamFetchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_stream_fetch_failures_total",
		Help:        "Stream fetches that failed and degraded to zero totals.",
		ConstLabels: constLabels,
	}, []string{"stream", "reason"})
	streamRecords := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "royalty_stream_records",
		Help:        "Records fetched per stream for one aggregation.",
		Buckets:     []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		ConstLabels: constLabels,
	}, []string{"stream"})
	summaries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_summaries_total",
		Help:        "Revenue summaries composed by period.",
		ConstLabels: constLabels,
	}, []string{"period"})
	summaryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "royalty_summary_duration_seconds",
		Help:        "Latency of a full revenue summary.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_exports_total",
		Help:        "Earnings exports by stream and format.",
		ConstLabels: constLabels,
	}, []string{"stream", "format"})
	staleRefreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "royalty_stale_refreshes_total",
		Help:        "Dashboard refresh results discarded because a newer request started.",
		ConstLabels: constLabels,
	})
	withdrawals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_withdrawal_requests_total",
		Help:        "Withdrawal requests by method and outcome.",
		ConstLabels: constLabels,
	}, []string{"method", "outcome"})
	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "royalty_rate_limited_total",
		Help:        "Requests rejected by the rate limiter.",
		ConstLabels: constLabels,
	}, []string{"endpoint"})

	streamFetchFailures = registerCounterVec(registerer, streamFetchFailures)
	streamRecords = registerHistogramVec(registerer, streamRecords)
	summaries = registerCounterVec(registerer, summaries)
	summaryDuration = registerHistogram(registerer, summaryDuration)
	exports = registerCounterVec(registerer, exports)
	staleRefreshes = registerCounter(registerer, staleRefreshes)
	withdrawals = registerCounterVec(registerer, withdrawals)
	rateLimited = registerCounterVec(registerer, rateLimited)

	return &Metrics{
		streamFetchFailures: streamFetchFailures,
		streamRecords:       streamRecords,
		summaries:           summaries,
		summaryDuration:     summaryDuration,
		exports:             exports,
		staleRefreshes:      staleRefreshes,
		withdrawals:         withdrawals,
		rateLimited:         rateLimited,
	}
}

func (m *Metrics) RecordStreamFetchFailure(stream string, err error) {
	if m == nil {
		return
	}
	m.streamFetchFailures.WithLabelValues(normalizeLabel(stream), ClassifyFetchReason(err)).Inc()
}

func (m *Metrics) ObserveStreamRecords(stream string, count int) {
	if m == nil {
		return
	}
	m.streamRecords.WithLabelValues(normalizeLabel(stream)).Observe(float64(count))
}

func (m *Metrics) RecordSummary(period string, duration time.Duration) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(normalizeLabel(period)).Inc()
	m.summaryDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordExport(stream, format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(normalizeLabel(stream), normalizeLabel(format)).Inc()
}

func (m *Metrics) RecordStaleRefresh() {
	if m == nil {
		return
	}
	m.staleRefreshes.Inc()
}

func (m *Metrics) RecordWithdrawal(method, outcome string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) RecordRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

// ClassifyFetchReason maps a repository error to a low-cardinality reason.
func ClassifyFetchReason(err error) string {
	if err == nil {
		return FetchReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchReasonDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return FetchReasonCanceled
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FetchReasonNotFound
	}
	if db.IsUndefinedTableErr(err) {
		return FetchReasonMissingTable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "57014":
			return FetchReasonDBLockTimeout
		case "57P01", "57P02", "57P03", "08000", "08003", "08006":
			return FetchReasonDBUnavailable
		}
	}
	return FetchReasonUnknown
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "royalty"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
