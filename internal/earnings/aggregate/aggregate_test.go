package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestPlatformFeeRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		amount int64
		share  float64
		want   int64
	}{
		{amount: 100000, share: 70, want: 30000},
		{amount: 5, share: 70, want: 2},
		{amount: 15, share: 70, want: 5},
		{amount: 1, share: 50, want: 1},
		{amount: -5, share: 70, want: -2},
		{amount: 99999, share: 70, want: 30000},
		{amount: 0, share: 70, want: 0},
		{amount: 1000, share: 100, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PlatformFee(tc.amount, tc.share), "amount=%d share=%v", tc.amount, tc.share)
	}
}

func TestArrangementNetEqualsGross(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	types := []domain.BenefitType{domain.BenefitSongPublish, domain.BenefitLibraryAdd, domain.BenefitDiscountCode, "tip"}
	for n := 0; n < 50; n++ {
		var records []domain.BenefitRecord
		for i := 0; i < r.Intn(20); i++ {
			rec := domain.BenefitRecord{BenefitType: types[r.Intn(len(types))]}
			if r.Intn(5) > 0 {
				rec.Amount = i64(r.Int63n(1_000_000))
			}
			records = append(records, rec)
		}
		result := Arrangement(records)
		assert.Equal(t, result.Totals.Gross, result.Totals.Net)
		assert.Zero(t, result.Totals.Fee)
	}
}

func TestArrangementScenario(t *testing.T) {
	result := Arrangement([]domain.BenefitRecord{
		{CreatorID: "c1", Amount: i64(50000), BenefitType: domain.BenefitSongPublish},
		{CreatorID: "c1", Amount: i64(20000), BenefitType: domain.BenefitLibraryAdd},
		{CreatorID: "c1", Amount: nil, BenefitType: domain.BenefitDiscountCode},
		{CreatorID: "c1", Amount: i64(5000), BenefitType: "legacy_bonus"},
	})

	assert.Equal(t, int64(75000), result.Totals.Gross)
	assert.Equal(t, int64(75000), result.Totals.Net)
	assert.Equal(t, domain.ArrangementBreakdown{SongPublished: 50000, AddToLibrary: 20000, DiscountCode: 0}, result.Breakdown)
}

func TestLessonsGrossEqualsNetPlusFee(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for n := 0; n < 50; n++ {
		var records []domain.LessonSaleRecord
		for i := 0; i < 1+r.Intn(15); i++ {
			rec := domain.LessonSaleRecord{
				LessonID:        "l" + string(rune('a'+r.Intn(3))),
				LessonTitle:     "Lesson",
				TransactionDate: date(2024, time.Month(1+r.Intn(12)), 1+r.Intn(28)),
				TotalAmount:     i64(r.Int63n(500_000)),
			}
			if r.Intn(2) == 0 {
				rec.BenefitPercentage = f64(float64(50 + r.Intn(40)))
			}
			records = append(records, rec)
		}
		result := Lessons(records, nil, LessonOptions{})
		assert.Equal(t, result.Totals.Gross, result.Totals.Net+result.Totals.Fee)
		for _, g := range result.Groups {
			assert.Equal(t, g.GrossRevenue, g.NetEarnings+g.PlatformFee)
		}
	}
}

func TestLessonsGroupByTitleCollapses(t *testing.T) {
	records := []domain.LessonSaleRecord{
		{LessonID: "l1", LessonTitle: "Worship Keys", TransactionDate: date(2024, 5, 1), TotalAmount: i64(100000), CreatorNetAmount: i64(70000), BenefitPercentage: f64(70)},
		{LessonID: "l2", LessonTitle: "Worship Keys", TransactionDate: date(2024, 5, 2), TotalAmount: i64(150000), CreatorNetAmount: i64(105000), BenefitPercentage: f64(70)},
		{LessonID: "l3", LessonTitle: "Bass Basics", TransactionDate: date(2024, 5, 3), TotalAmount: i64(80000), CreatorNetAmount: i64(60000), BenefitPercentage: f64(75)},
	}

	result := Lessons(records, nil, LessonOptions{GroupingKey: config.GroupLessonsByTitle})
	require.Len(t, result.Groups, 2)
	assert.Equal(t, "Worship Keys", result.Groups[0].Title)
	assert.Equal(t, int64(2), result.Groups[0].SaleCount)
	assert.Equal(t, int64(250000), result.Groups[0].GrossRevenue)
	assert.Equal(t, int64(75000), result.Groups[0].PlatformFee)
	assert.Equal(t, "Bass Basics", result.Groups[1].Title)
	assert.Equal(t, float64(75), result.LatestBenefitPercentage)

	byID := Lessons(records, nil, LessonOptions{GroupingKey: config.GroupLessonsByID})
	require.Len(t, byID.Groups, 3)
	assert.Equal(t, "l1", byID.Groups[0].Key)
	assert.Equal(t, "Worship Keys", byID.Groups[1].Title)
}

func TestLessonsFiltersByInterval(t *testing.T) {
	from := date(2024, 5, 1)
	to := date(2024, 5, 31)
	records := []domain.LessonSaleRecord{
		{LessonTitle: "A", TransactionDate: date(2024, 4, 30), TotalAmount: i64(100000), CreatorNetAmount: i64(70000)},
		{LessonTitle: "A", TransactionDate: date(2024, 5, 15), TotalAmount: i64(200000), CreatorNetAmount: i64(140000)},
	}

	result := Lessons(records, &domain.Interval{From: &from, To: &to}, LessonOptions{})
	assert.Equal(t, domain.StreamTotals{Gross: 200000, Net: 140000, Fee: 60000}, result.Totals)
	assert.Len(t, result.Transactions, 1)
}

func TestLessonsDerivesMissingNet(t *testing.T) {
	result := Lessons([]domain.LessonSaleRecord{
		{LessonTitle: "A", TransactionDate: date(2024, 1, 1), TotalAmount: i64(15), BenefitPercentage: f64(70)},
		{LessonTitle: "B", TransactionDate: date(2024, 1, 1), TotalAmount: nil},
	}, nil, LessonOptions{})

	assert.Equal(t, domain.StreamTotals{Gross: 15, Net: 10, Fee: 5}, result.Totals)
	assert.Equal(t, float64(70), result.LatestBenefitPercentage)
}

func TestSequencerScenario(t *testing.T) {
	records := []domain.SequencerEnrollmentRecord{
		{EnrollmentID: "e1", SequencerFileID: "f1", SongTitle: "Agnus Dei", SongCreatorID: "c1", Amount: i64(100000), PaidAt: tp(date(2024, 5, 1)), EnrolledAt: date(2024, 5, 1), PaymentStatus: "paid"},
	}

	result := Sequencer("c1", records, nil, SequencerOptions{CreatorSharePercent: 70})
	assert.Equal(t, domain.StreamTotals{Gross: 100000, Net: 70000, Fee: 30000}, result.Totals)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, domain.SequencerGroup{SequencerFileID: "f1", SongTitle: "Agnus Dei", SaleCount: 1, GrossRevenue: 100000, PlatformFee: 30000, NetEarnings: 70000}, result.Groups[0])
}

func TestSequencerFiltersOwnerStatusAndDate(t *testing.T) {
	from := date(2024, 5, 1)
	to := date(2024, 5, 31)
	records := []domain.SequencerEnrollmentRecord{
		{SequencerFileID: "f1", SongCreatorID: "c2", Amount: i64(100000), PaymentStatus: "paid", EnrolledAt: date(2024, 5, 2)},
		{SequencerFileID: "f1", SongCreatorID: "c1", Amount: i64(100000), PaymentStatus: "pending", EnrolledAt: date(2024, 5, 2)},
		{SequencerFileID: "f1", SongCreatorID: "c1", Amount: i64(100000), PaymentStatus: "paid", PaidAt: tp(date(2024, 6, 1)), EnrolledAt: date(2024, 5, 2)},
		{SequencerFileID: "f2", SongCreatorID: "c1", Amount: i64(50001), PaymentStatus: "paid", EnrolledAt: date(2024, 5, 10)},
		{SequencerFileID: "f2", SongCreatorID: "c1", Amount: nil, PaymentStatus: "paid", EnrolledAt: date(2024, 5, 11)},
	}

	result := Sequencer("c1", records, &domain.Interval{From: &from, To: &to}, SequencerOptions{CreatorSharePercent: 70})
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "Unknown", result.Groups[0].SongTitle)
	assert.Equal(t, int64(2), result.Groups[0].SaleCount)
	assert.Equal(t, int64(50001), result.Totals.Gross)
	assert.Equal(t, int64(15000), result.Totals.Fee)
	assert.Equal(t, result.Totals.Gross, result.Totals.Net+result.Totals.Fee)
}

func TestSequencerUsesInjectedShare(t *testing.T) {
	records := []domain.SequencerEnrollmentRecord{
		{SequencerFileID: "f1", SongCreatorID: "c1", Amount: i64(100000), PaymentStatus: "paid", EnrolledAt: date(2024, 1, 1)},
	}
	result := Sequencer("c1", records, nil, SequencerOptions{CreatorSharePercent: 80})
	assert.Equal(t, int64(20000), result.Totals.Fee)
	assert.Equal(t, int64(80000), result.Totals.Net)
}

func TestComposeEmptyStreams(t *testing.T) {
	summary := Compose(Arrangement(nil), Lessons(nil, nil, LessonOptions{}), Sequencer("c1", nil, nil, SequencerOptions{CreatorSharePercent: 70}), 0)
	assert.Equal(t, domain.RevenueSummary{}, summary)
}

func TestComposeTotals(t *testing.T) {
	arr := domain.ArrangementResult{Totals: domain.StreamTotals{Gross: 70000, Net: 70000}}
	lesson := domain.LessonResult{Totals: domain.StreamTotals{Gross: 100000, Net: 70000, Fee: 30000}}
	seq := domain.SequencerResult{Totals: domain.StreamTotals{Gross: 50000, Net: 35000, Fee: 15000}}

	summary := Compose(arr, lesson, seq, 42)
	assert.Equal(t, int64(220000), summary.TotalGross)
	assert.Equal(t, int64(175000), summary.TotalNet)
	assert.Equal(t, int64(45000), summary.TotalFee)
	assert.Equal(t, int64(42), summary.LessonMonthToDateNet)
}

func TestMonthToDateNetIgnoresSelectedPeriod(t *testing.T) {
	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.LessonSaleRecord{
		{TransactionDate: monthStart.Add(-time.Nanosecond), CreatorNetAmount: i64(1000)},
		{TransactionDate: monthStart, CreatorNetAmount: i64(2000)},
		{TransactionDate: date(2024, 5, 20), CreatorNetAmount: i64(3000)},
	}
	assert.Equal(t, int64(5000), MonthToDateNet(records, monthStart))
}

func TestDiscounts(t *testing.T) {
	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result := Discounts([]domain.DiscountBenefitRecord{
		{Code: "WORSHIP10", CreatorBenefitAmount: i64(5000), CreatedAt: date(2024, 5, 3)},
		{Code: "WORSHIP10", CreatorBenefitAmount: i64(4000), CreatedAt: date(2024, 4, 3)},
		{Code: "EASTER", CreatorBenefitAmount: nil, CreatedAt: date(2024, 5, 4)},
	}, monthStart)

	assert.Equal(t, int64(9000), result.TotalEarnings)
	assert.Equal(t, int64(3), result.TotalUses)
	assert.Equal(t, int64(5000), result.MonthlyEarnings)
}
