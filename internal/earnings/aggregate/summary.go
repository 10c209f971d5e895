package aggregate

import (
	"time"

	"github.com/smallbiznis/royalty/internal/earnings/domain"
)

// Compose merges the three stream results into one summary.
func Compose(arrangement domain.ArrangementResult, lesson domain.LessonResult, sequencer domain.SequencerResult, lessonMonthToDateNet int64) domain.RevenueSummary {
	summary := domain.RevenueSummary{
		Arrangement:          arrangement.Totals,
		Lesson:               lesson.Totals,
		Sequencer:            sequencer.Totals,
		ArrangementBreakdown: arrangement.Breakdown,
		LessonMonthToDateNet: lessonMonthToDateNet,
	}
	summary.TotalGross = arrangement.Totals.Gross + lesson.Totals.Gross + sequencer.Totals.Gross
	summary.TotalNet = arrangement.Totals.Net + lesson.Totals.Net + sequencer.Totals.Net
	summary.TotalFee = summary.TotalGross - summary.TotalNet
	return summary
}

// MonthToDateNet sums lesson net for sales on or after monthStart, regardless
// of the period the caller selected.
func MonthToDateNet(records []domain.LessonSaleRecord, monthStart time.Time) int64 {
	var total int64
	for _, record := range records {
		if !record.TransactionDate.Before(monthStart) {
			total += LessonNet(record)
		}
	}
	return total
}

// Discounts totals discount-code payouts and their month-to-date share.
func Discounts(records []domain.DiscountBenefitRecord, monthStart time.Time) domain.DiscountResult {
	result := domain.DiscountResult{Records: []domain.DiscountBenefitRecord{}}
	for _, record := range records {
		amount := domain.Value(record.CreatorBenefitAmount)
		result.TotalEarnings += amount
		result.TotalUses++
		if !record.CreatedAt.Before(monthStart) {
			result.MonthlyEarnings += amount
		}
		result.Records = append(result.Records, record)
	}
	return result
}
