package domain

import (
	"errors"
	"fmt"
	"time"
)

type TokenBalance struct {
	Symbol string
	Ledger LedgerRef
	Amount Amount
}

type LedgerFailure struct {
	Ledger LedgerRef
	Symbol string
	Err    error
}

func (f LedgerFailure) Error() string {
	return fmt.Sprintf("ledger %s (%s): %v", f.Symbol, f.Ledger, f.Err)
}

func (f LedgerFailure) Unwrap() error {
	return f.Err
}

// BalanceReport is the merged outcome of one aggregation. It is replaced
// wholesale on every refresh.
type BalanceReport struct {
	Owner     Principal
	Balances  []TokenBalance
	Failures  []LedgerFailure
	FetchedAt time.Time
}

// Partial reports whether some ledgers failed while others answered.
func (r BalanceReport) Partial() bool {
	return len(r.Failures) > 0 && len(r.Balances) > 0
}

// Unavailable reports whether no ledger answered.
func (r BalanceReport) Unavailable() bool {
	return len(r.Balances) == 0 && len(r.Failures) > 0
}

// Err joins every ledger failure, or returns nil when all ledgers answered.
func (r BalanceReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

func (r BalanceReport) Lookup(symbol string) (TokenBalance, bool) {
	for _, b := range r.Balances {
		if b.Symbol == symbol {
			return b, true
		}
	}
	return TokenBalance{}, false
}
