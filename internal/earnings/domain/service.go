package domain

import (
	"context"
	"time"
)

type SummaryRequest struct {
	CreatorID string
	Period    Period
	Custom    CustomRange
}

type LessonSummaryCards struct {
	TotalGross    int64   `json:"total_gross"`
	TotalNet      int64   `json:"total_net"`
	TotalPlatform int64   `json:"total_platform"`
	TotalSales    int64   `json:"total_sales"`
	MonthlyNet    int64   `json:"monthly_net"`
	AvgBenefit    float64 `json:"avg_benefit"`
}

type LessonEarnings struct {
	Period       Period             `json:"period"`
	Interval     *Interval          `json:"interval,omitempty"`
	Summary      LessonSummaryCards `json:"summary"`
	Groups       []LessonGroup      `json:"groups"`
	Transactions []LessonSaleRecord `json:"transactions"`
	Degraded     bool               `json:"degraded,omitempty"`
}

type SequencerSummaryCards struct {
	TotalGross    int64 `json:"total_gross"`
	TotalNet      int64 `json:"total_net"`
	TotalPlatform int64 `json:"total_platform"`
	TotalSales    int64 `json:"total_sales"`
	MonthlyNet    int64 `json:"monthly_net"`
}

type SequencerEarnings struct {
	Period   Period                `json:"period"`
	Interval *Interval             `json:"interval,omitempty"`
	Summary  SequencerSummaryCards `json:"summary"`
	Groups   []SequencerGroup      `json:"groups"`
	Sales    []SequencerSale       `json:"sales"`
	Degraded bool                  `json:"degraded,omitempty"`
}

type SummaryResponse struct {
	CreatorID       string         `json:"creator_id"`
	Period          Period         `json:"period"`
	Interval        *Interval      `json:"interval,omitempty"`
	Summary         RevenueSummary `json:"summary"`
	DegradedStreams []Stream       `json:"degraded_streams,omitempty"`
}

type OverviewRequest struct {
	CreatorIDs []string
	Period     Period
	Custom     CustomRange
}

type CreatorSummary struct {
	CreatorID       string         `json:"creator_id"`
	Summary         RevenueSummary `json:"summary"`
	DegradedStreams []Stream       `json:"degraded_streams,omitempty"`
}

type PlatformOverview struct {
	Period     Period           `json:"period"`
	Interval   *Interval        `json:"interval,omitempty"`
	Creators   []CreatorSummary `json:"creators"`
	Totals     StreamTotals     `json:"totals"`
	ByStream   map[Stream]int64 `json:"gross_by_stream"`
	ComputedAt time.Time        `json:"computed_at"`
}

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func ParseExportFormat(value string) (ExportFormat, error) {
	switch ExportFormat(value) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", ErrInvalidFormat
	}
}

type ExportRequest struct {
	SummaryRequest
	Stream Stream
	Format ExportFormat
}

type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service computes creator earnings on read.
type Service interface {
	GetRevenueSummary(ctx context.Context, req SummaryRequest) (SummaryResponse, error)
	Refresh(ctx context.Context, state *DashboardQueryState, req SummaryRequest) (SummaryResponse, bool, error)
	GetLessonEarnings(ctx context.Context, req SummaryRequest) (LessonEarnings, error)
	GetSequencerEarnings(ctx context.Context, req SummaryRequest) (SequencerEarnings, error)
	GetDiscountEarnings(ctx context.Context, creatorID string) (DiscountResult, error)
	GetPlatformOverview(ctx context.Context, req OverviewRequest) (PlatformOverview, error)
	Export(ctx context.Context, req ExportRequest) (ExportFile, error)
}
