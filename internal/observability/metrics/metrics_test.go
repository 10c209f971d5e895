package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyFetchReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("list: %w", context.DeadlineExceeded), want: FetchReasonDeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: FetchReasonCanceled},
		{name: "not_found", err: gorm.ErrRecordNotFound, want: FetchReasonNotFound},
		{name: "lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: FetchReasonDBLockTimeout},
		{name: "unavailable", err: &pgconn.PgError{Code: "57P01"}, want: FetchReasonDBUnavailable},
		{name: "missing_table", err: errors.New("no such table: lesson_sales"), want: FetchReasonMissingTable},
		{name: "unknown", err: errors.New("boom"), want: FetchReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyFetchReason(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestMetricsRecordStreamFetchFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{ServiceName: "royalty", Environment: "test"})

	m.RecordStreamFetchFailure("Lesson", context.DeadlineExceeded)
	m.RecordStreamFetchFailure("lesson", context.DeadlineExceeded)
	m.RecordStreamFetchFailure("sequencer", errors.New("boom"))

	if got := testutil.ToFloat64(m.streamFetchFailures.WithLabelValues("lesson", FetchReasonDeadlineExceeded)); got != 2 {
		t.Fatalf("expected 2 lesson failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.streamFetchFailures.WithLabelValues("sequencer", FetchReasonUnknown)); got != 1 {
		t.Fatalf("expected 1 sequencer failure, got %v", got)
	}
}

func TestMetricsRecordSummaryAndExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{})

	m.RecordSummary("this_month", 20*time.Millisecond)
	m.RecordExport("lesson", "csv")
	m.RecordStaleRefresh()

	if got := testutil.ToFloat64(m.summaries.WithLabelValues("this_month")); got != 1 {
		t.Fatalf("expected 1 summary, got %v", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("lesson", "csv")); got != 1 {
		t.Fatalf("expected 1 export, got %v", got)
	}
	if got := testutil.ToFloat64(m.staleRefreshes); got != 1 {
		t.Fatalf("expected 1 stale refresh, got %v", got)
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg, Config{})
	second := New(reg, Config{})

	first.RecordExport("sequencer", "xlsx")
	if got := testutil.ToFloat64(second.exports.WithLabelValues("sequencer", "xlsx")); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordStreamFetchFailure("lesson", errors.New("boom"))
	m.RecordSummary("all_time", time.Second)
	m.RecordWithdrawal("bank", "accepted")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	hm := NewHTTPMetrics(reg, Config{})

	r := gin.New()
	r.Use(hm.GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := testutil.ToFloat64(hm.requests.WithLabelValues("/health", "GET", "200")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}

func TestRegisterHistogramReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg, Config{})
	second := New(reg, Config{})

	first.RecordSummary("this_month", 20*time.Millisecond)
	second.RecordSummary("this_month", 40*time.Millisecond)

	if got := testutil.CollectAndCount(reg, "royalty_summary_duration_seconds"); got != 1 {
		t.Fatalf("expected one summary duration series, got %d", got)
	}
	if first.summaryDuration != second.summaryDuration {
		t.Fatalf("expected shared summary duration histogram")
	}
}
