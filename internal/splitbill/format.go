package splitbill

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Russian)

// FormatAmount renders a soum amount with digit grouping and no decimals.
// Rounding happens here only; stored amounts and balances keep full
// precision.
func FormatAmount(v float64) string {
	return printer.Sprintf("%.0f", v)
}
