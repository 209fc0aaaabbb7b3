// Package report renders ledger and market state as markdown for the
// terminal.
package report

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

func init() {
	// Stablecoins are not ISO currencies; display them like dollars
	// with the code as suffix.
	for _, code := range []string{"USDT", "USDC", "BUSD", "FDUSD"} {
		if money.GetCurrency(code) == nil {
			money.AddCurrency(code, code, "1 $", ".", ",", 2)
		}
	}
}

// Money formats amount in currency with its grouping and fraction
// digits. Unknown currencies fall back to two decimals and the code.
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// Signed is Money with an explicit plus sign for gains.
func Signed(amount decimal.Decimal, currency string) string {
	if amount.IsPositive() {
		return "+" + Money(amount, currency)
	}
	return Money(amount, currency)
}

// Quantity shows four decimals.
func Quantity(q decimal.Decimal) string {
	return q.StringFixed(4)
}

// Price shows between four and eight decimals.
func Price(p decimal.Decimal) string {
	s := p.Round(8).String()
	if i := strings.IndexByte(s, '.'); i < 0 || len(s)-i-1 < 4 {
		return p.StringFixed(4)
	}
	return s
}

// Percent renders a 0..1 fraction as a percentage with one decimal.
func Percent(fraction decimal.Decimal) string {
	return fraction.Shift(2).StringFixed(1) + "%"
}

// Change renders a percent change with sign and two decimals.
func Change(pct decimal.Decimal) string {
	s := pct.StringFixed(2) + "%"
	if !pct.IsNegative() {
		s = "+" + s
	}
	return s
}
