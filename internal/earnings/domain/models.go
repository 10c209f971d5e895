package domain

import (
	"context"
	"errors"
	"time"
)

type Stream string

const (
	StreamArrangement Stream = "arrangement"
	StreamLesson      Stream = "lesson"
	StreamSequencer   Stream = "sequencer"
)

// ParseStream accepts the exportable streams.
func ParseStream(value string) (Stream, error) {
	switch Stream(value) {
	case StreamLesson, StreamSequencer:
		return Stream(value), nil
	default:
		return "", ErrInvalidStream
	}
}

type BenefitType string

const (
	BenefitSongPublish  BenefitType = "song_publish"
	BenefitLibraryAdd   BenefitType = "library_add"
	BenefitDiscountCode BenefitType = "discount_code"
)

const PaymentStatusPaid = "paid"

// BenefitRecord is one arrangement royalty ledger entry.
type BenefitRecord struct {
	CreatorID    string
	Amount       *int64
	BenefitType  BenefitType
	CreatedAt    time.Time
	IsProduction bool
}

// LessonSaleRecord is one completed lesson purchase with its creator split.
type LessonSaleRecord struct {
	LessonID          string    `json:"lesson_id"`
	LessonTitle       string    `json:"lesson_title"`
	TransactionDate   time.Time `json:"transaction_date"`
	BuyerName         string    `json:"buyer_name"`
	TotalAmount       *int64    `json:"total_amount"`
	BenefitPercentage *float64  `json:"benefit_percentage"`
	CreatorNetAmount  *int64    `json:"creator_net_amount"`
	PlatformFeeAmount *int64    `json:"platform_fee_amount"`
	Status            string    `json:"status"`
}

// SequencerEnrollmentRecord is one multitrack enrollment joined to its payment
// and song ownership.
type SequencerEnrollmentRecord struct {
	EnrollmentID    string
	SequencerFileID string
	SongTitle       string
	SongCreatorID   string
	BuyerID         string
	Amount          *int64
	PaidAt          *time.Time
	EnrolledAt      time.Time
	PaymentStatus   string
}

// EffectiveDate is the payment time, falling back to enrollment time.
func (r SequencerEnrollmentRecord) EffectiveDate() time.Time {
	if r.PaidAt != nil {
		return *r.PaidAt
	}
	return r.EnrolledAt
}

// DiscountBenefitRecord is one creator payout from a discount code redemption.
type DiscountBenefitRecord struct {
	Code                 string    `json:"code"`
	OriginalAmount       *int64    `json:"original_amount"`
	DiscountAmount       *int64    `json:"discount_amount"`
	CreatorBenefitAmount *int64    `json:"creator_benefit_amount"`
	CreatedAt            time.Time `json:"created_at"`
}

// Value coalesces a nullable amount to zero.
func Value(amount *int64) int64 {
	if amount == nil {
		return 0
	}
	return *amount
}

type Period string

const (
	PeriodAll         Period = "all"
	PeriodThisMonth   Period = "this_month"
	PeriodLastMonth   Period = "last_month"
	PeriodLast3Months Period = "last_3_months"
	PeriodCustom      Period = "custom"
)

// CustomRange carries caller-supplied bounds; nil means unbounded.
type CustomRange struct {
	From *time.Time
	To   *time.Time
}

// Interval is an inclusive date window. A nil *Interval is unbounded.
type Interval struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the interval, inclusive on both ends.
func (i *Interval) Contains(t time.Time) bool {
	if i == nil {
		return true
	}
	if i.From != nil && t.Before(*i.From) {
		return false
	}
	if i.To != nil && t.After(*i.To) {
		return false
	}
	return true
}

type StreamTotals struct {
	Gross int64 `json:"gross"`
	Net   int64 `json:"net"`
	Fee   int64 `json:"fee"`
}

func (t StreamTotals) Add(other StreamTotals) StreamTotals {
	return StreamTotals{
		Gross: t.Gross + other.Gross,
		Net:   t.Net + other.Net,
		Fee:   t.Fee + other.Fee,
	}
}

type ArrangementBreakdown struct {
	SongPublished int64 `json:"songPublished"`
	AddToLibrary  int64 `json:"addToLibrary"`
	DiscountCode  int64 `json:"discountCode"`
}

type ArrangementResult struct {
	Totals    StreamTotals
	Breakdown ArrangementBreakdown
}

// LessonGroup is one per-lesson summary row.
type LessonGroup struct {
	Key               string  `json:"key"`
	Title             string  `json:"title"`
	SaleCount         int64   `json:"sale_count"`
	GrossRevenue      int64   `json:"gross_revenue"`
	PlatformFee       int64   `json:"platform_fee"`
	NetEarnings       int64   `json:"net_earnings"`
	BenefitPercentage float64 `json:"benefit_percentage"`
}

type LessonResult struct {
	Totals                  StreamTotals
	Groups                  []LessonGroup
	Transactions            []LessonSaleRecord
	LatestBenefitPercentage float64
}

// SequencerGroup is one per-file summary row.
type SequencerGroup struct {
	SequencerFileID string `json:"sequencer_file_id"`
	SongTitle       string `json:"song_title"`
	SaleCount       int64  `json:"sale_count"`
	GrossRevenue    int64  `json:"gross_revenue"`
	PlatformFee     int64  `json:"platform_fee"`
	NetEarnings     int64  `json:"net_earnings"`
}

// SequencerSale is one matched enrollment with its derived split.
type SequencerSale struct {
	EnrollmentID    string    `json:"enrollment_id"`
	SequencerFileID string    `json:"sequencer_file_id"`
	SongTitle       string    `json:"song_title"`
	BuyerID         string    `json:"buyer_id"`
	Date            time.Time `json:"date"`
	Amount          int64     `json:"amount"`
	PlatformFee     int64     `json:"platform_fee"`
	NetAmount       int64     `json:"net_amount"`
}

type SequencerResult struct {
	Totals StreamTotals
	Groups []SequencerGroup
	Sales  []SequencerSale
}

type DiscountResult struct {
	TotalEarnings   int64                   `json:"total_earnings"`
	TotalUses       int64                   `json:"total_uses"`
	MonthlyEarnings int64                   `json:"monthly_earnings"`
	Records         []DiscountBenefitRecord `json:"records"`
}

// RevenueSummary is computed fresh on every request and never persisted.
type RevenueSummary struct {
	Arrangement          StreamTotals         `json:"arrangement"`
	Lesson               StreamTotals         `json:"lesson"`
	Sequencer            StreamTotals         `json:"sequencer"`
	ArrangementBreakdown ArrangementBreakdown `json:"arrangement_breakdown"`
	TotalGross           int64                `json:"total_gross"`
	TotalNet             int64                `json:"total_net"`
	TotalFee             int64                `json:"total_fee"`
	LessonMonthToDateNet int64                `json:"lesson_month_to_date_net"`
}

// RecordSource reads the raw rows of each revenue stream.
type RecordSource interface {
	ListBenefitRecords(ctx context.Context, creatorID string, interval *Interval) ([]BenefitRecord, error)
	GetLessonEarningsBreakdown(ctx context.Context, creatorID string) ([]LessonSaleRecord, error)
	ListSequencerEnrollments(ctx context.Context) ([]SequencerEnrollmentRecord, error)
	ListDiscountBenefits(ctx context.Context, creatorID string) ([]DiscountBenefitRecord, error)
}

var (
	ErrInvalidCreator = errors.New("invalid_creator")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidStream  = errors.New("invalid_stream")
	ErrInvalidFormat  = errors.New("invalid_export_format")
	ErrInvalidRange   = errors.New("invalid_date_range")
)
