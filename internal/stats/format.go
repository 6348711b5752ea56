package stats

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Spanish)

// FormatNumber groups thousands the Spanish way: 1.234.567,5.
func FormatNumber(d decimal.Decimal, places int32) string {
	f := d.Round(places).InexactFloat64()
	if places == 0 {
		return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(0)))
	}
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(int(places))))
}

// FormatCurrency renders a whole-peso amount: $ 1.234.567.
func FormatCurrency(d decimal.Decimal) string {
	return "$ " + FormatNumber(d, 0)
}
