package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplyDelta moves the account balance by the signed amount of a transaction.
// Income adds, expense subtracts; reversal flips the sign so that a prior
// application can be undone.
func ApplyDelta(a *Account, amount decimal.Decimal, t TransactionType, reversal bool, now time.Time) {
	sign := t.Sign()
	if reversal {
		sign = sign.Neg()
	}
	a.Balance = a.Balance.Add(amount.Mul(sign))
	a.ModifiedAt = now
}
