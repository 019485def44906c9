package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for amounts and balances.
const MoneyScale = 2

// ParseAmount converts a user-supplied decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places. Signs, exponents, zero and anything that
// rounds to zero are rejected.
//
// Examples:
//   ParseAmount("12.34") -> 12.34
//   ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundMoney(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBalance is ParseAmount without the sign restriction; account balances
// may be edited directly and may be negative or zero.
func ParseBalance(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return RoundMoney(d), nil
}

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
