package domain

import (
	"fmt"
	"strings"
)

type LedgerRef string

// OwnerKind selects which identity field a ledger keys balances by.
type OwnerKind string

const (
	OwnerPrincipal OwnerKind = "principal"
	OwnerAccountID OwnerKind = "account_id"
)

func (k OwnerKind) Valid() bool {
	return k == OwnerPrincipal || k == OwnerAccountID
}

type Ledger struct {
	Ref      LedgerRef
	Symbol   string
	Decimals uint8
	Owner    OwnerKind
	// Endpoint overrides the query URL derived from the ledger base URL.
	Endpoint string
}

func (l Ledger) Validate() error {
	if strings.TrimSpace(string(l.Ref)) == "" {
		return fmt.Errorf("ledger ref is required")
	}
	if strings.TrimSpace(l.Symbol) == "" {
		return fmt.Errorf("ledger %s: symbol is required", l.Ref)
	}
	if l.Decimals > maxDecimals {
		return fmt.Errorf("ledger %s: decimals %d exceeds %d", l.Ref, l.Decimals, maxDecimals)
	}
	if !l.Owner.Valid() {
		return fmt.Errorf("ledger %s: unknown owner kind %q", l.Ref, l.Owner)
	}
	return nil
}

// DefaultLedgers are the token ledgers shipped with PollRush.
func DefaultLedgers() []Ledger {
	return []Ledger{
		{
			Ref:      "ryjl3-tyaaa-aaaaa-aaaba-cai",
			Symbol:   "ICP",
			Decimals: DefaultDecimals,
			Owner:    OwnerAccountID,
		},
		{
			Ref:      "rrkah-fqaaa-aaaaa-aaaaq-cai",
			Symbol:   "PPS",
			Decimals: DefaultDecimals,
			Owner:    OwnerPrincipal,
		},
	}
}
