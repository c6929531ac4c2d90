package ports

import (
	"context"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

type LedgerClient interface {
	// BalanceOf returns the owner's balance in the ledger's smallest unit.
	BalanceOf(ctx context.Context, ledger domain.Ledger, owner string) (uint64, error)
}

type LedgerRepository interface {
	List(ctx context.Context) ([]domain.Ledger, error)
	GetByRef(ctx context.Context, ref domain.LedgerRef) (domain.Ledger, error)
	Save(ctx context.Context, ledger domain.Ledger) error
	Delete(ctx context.Context, ref domain.LedgerRef) error
}
