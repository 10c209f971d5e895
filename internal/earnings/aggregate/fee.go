package aggregate

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PlatformFee returns the platform's cut of amount when the creator keeps
// sharePercent, rounded half away from zero to whole currency units.
func PlatformFee(amount int64, sharePercent float64) int64 {
	platformShare := hundred.Sub(decimal.NewFromFloat(sharePercent))
	return decimal.NewFromInt(amount).
		Mul(platformShare).
		Div(hundred).
		Round(0).
		IntPart()
}

// Split returns the fee and net for amount so that amount == net + fee.
func Split(amount int64, sharePercent float64) (fee, net int64) {
	fee = PlatformFee(amount, sharePercent)
	return fee, amount - fee
}
