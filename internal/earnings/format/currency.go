package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrencyPrefix = "Rp"

var idPrinter = message.NewPrinter(language.Indonesian)

// Currency renders a whole-rupiah amount as Rp70.000.
func Currency(amount int64) string {
	return CurrencyWithPrefix(DefaultCurrencyPrefix, amount)
}

// CurrencyWithPrefix groups amount with Indonesian separators behind prefix.
func CurrencyWithPrefix(prefix string, amount int64) string {
	return prefix + idPrinter.Sprintf("%d", amount)
}
