package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger account. Balance is never negative and is mutated
// only inside a settlement transaction; accounts are provisioned out of
// band, never created implicitly by settlement.
type Account struct {
	ID        string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanCover reports whether the account balance covers the given amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
