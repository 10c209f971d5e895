package aggregate

import "github.com/smallbiznis/royalty/internal/earnings/domain"

// Arrangement folds royalty ledger entries. The arrangement stream carries no
// platform fee, so net always equals gross. Unknown benefit types count toward
// gross but not the breakdown.
func Arrangement(records []domain.BenefitRecord) domain.ArrangementResult {
	var result domain.ArrangementResult
	for _, record := range records {
		amount := domain.Value(record.Amount)
		result.Totals.Gross += amount

		switch record.BenefitType {
		case domain.BenefitSongPublish:
			result.Breakdown.SongPublished += amount
		case domain.BenefitLibraryAdd:
			result.Breakdown.AddToLibrary += amount
		case domain.BenefitDiscountCode:
			result.Breakdown.DiscountCode += amount
		}
	}
	result.Totals.Net = result.Totals.Gross
	return result
}
