package aggregate

import (
	"strings"

	"github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/internal/earnings/domain"
)

// DefaultBenefitPercentage is reported when no lesson sale carries a share.
const DefaultBenefitPercentage = 70

type LessonOptions struct {
	// GroupingKey is config.GroupLessonsByTitle or config.GroupLessonsByID.
	GroupingKey string
}

// LessonNet returns the creator net of one sale. Rows without a stored net
// derive it from the benefit percentage.
func LessonNet(record domain.LessonSaleRecord) int64 {
	if record.CreatorNetAmount != nil {
		return *record.CreatorNetAmount
	}
	gross := domain.Value(record.TotalAmount)
	share := float64(DefaultBenefitPercentage)
	if record.BenefitPercentage != nil {
		share = *record.BenefitPercentage
	}
	_, net := Split(gross, share)
	return net
}

// Lessons filters sales to interval by transaction date and folds them into
// totals and per-lesson groups in first-seen order.
func Lessons(records []domain.LessonSaleRecord, interval *domain.Interval, opts LessonOptions) domain.LessonResult {
	result := domain.LessonResult{
		Groups:                  []domain.LessonGroup{},
		Transactions:            []domain.LessonSaleRecord{},
		LatestBenefitPercentage: DefaultBenefitPercentage,
	}
	index := make(map[string]int)

	for _, record := range records {
		if !interval.Contains(record.TransactionDate) {
			continue
		}
		gross := domain.Value(record.TotalAmount)
		net := LessonNet(record)

		result.Totals.Gross += gross
		result.Totals.Net += net
		result.Transactions = append(result.Transactions, record)
		if record.BenefitPercentage != nil {
			result.LatestBenefitPercentage = *record.BenefitPercentage
		}

		key := lessonGroupKey(record, opts.GroupingKey)
		pos, ok := index[key]
		if !ok {
			pos = len(result.Groups)
			index[key] = pos
			group := domain.LessonGroup{
				Key:               key,
				Title:             record.LessonTitle,
				BenefitPercentage: DefaultBenefitPercentage,
			}
			if record.BenefitPercentage != nil {
				group.BenefitPercentage = *record.BenefitPercentage
			}
			result.Groups = append(result.Groups, group)
		}
		group := &result.Groups[pos]
		group.SaleCount++
		group.GrossRevenue += gross
		group.NetEarnings += net
		group.PlatformFee = group.GrossRevenue - group.NetEarnings
	}

	result.Totals.Fee = result.Totals.Gross - result.Totals.Net
	return result
}

func lessonGroupKey(record domain.LessonSaleRecord, groupingKey string) string {
	if groupingKey == config.GroupLessonsByID && strings.TrimSpace(record.LessonID) != "" {
		return record.LessonID
	}
	return record.LessonTitle
}
