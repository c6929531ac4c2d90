package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

const (
	DefaultQueryTimeout   = 10 * time.Second
	DefaultMaxConcurrency = 4
)

type AggregatorOption func(*BalanceAggregator)

func WithQueryTimeout(timeout time.Duration) AggregatorOption {
	return func(a *BalanceAggregator) {
		if timeout > 0 {
			a.queryTimeout = timeout
		}
	}
}

func WithMaxConcurrency(limit int) AggregatorOption {
	return func(a *BalanceAggregator) {
		if limit > 0 {
			a.maxConcurrency = limit
		}
	}
}

func WithAggregatorLogger(logger *zap.Logger) AggregatorOption {
	return func(a *BalanceAggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithAggregatorClock(clock ports.Clock) AggregatorOption {
	return func(a *BalanceAggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// BalanceAggregator queries every configured ledger for one identity and
// merges the answers. A failing ledger never fails the whole report.
type BalanceAggregator struct {
	ledgers        []domain.Ledger
	client         ports.LedgerClient
	logger         *zap.Logger
	clock          ports.Clock
	queryTimeout   time.Duration
	maxConcurrency int
}

func NewBalanceAggregator(ledgers []domain.Ledger, client ports.LedgerClient, opts ...AggregatorOption) *BalanceAggregator {
	a := &BalanceAggregator{
		ledgers:        append([]domain.Ledger(nil), ledgers...),
		client:         client,
		logger:         zap.NewNop(),
		clock:          ports.SystemClock{},
		queryTimeout:   DefaultQueryTimeout,
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *BalanceAggregator) Ledgers() []domain.Ledger {
	return append([]domain.Ledger(nil), a.ledgers...)
}

type ledgerAnswer struct {
	balance *domain.TokenBalance
	failure *domain.LedgerFailure
}

// Balances queries each ledger once, concurrently, each bounded by the query
// timeout. Results keep the configured ledger order. There is no retry.
func (a *BalanceAggregator) Balances(ctx context.Context, identity domain.Identity) (domain.BalanceReport, error) {
	if identity.IsZero() {
		return domain.BalanceReport{}, fmt.Errorf("get balances: %w", domain.ErrNotAuthenticated)
	}
	if len(a.ledgers) == 0 {
		return domain.BalanceReport{}, fmt.Errorf("get balances: %w", domain.ErrNoLedgers)
	}

	answers := make([]ledgerAnswer, len(a.ledgers))

	var g errgroup.Group
	g.SetLimit(a.maxConcurrency)
	for i, ledger := range a.ledgers {
		g.Go(func() error {
			balance, err := a.query(ctx, ledger, identity)
			if err != nil {
				a.logger.Warn("ledger query failed",
					zap.String("ledger", string(ledger.Ref)),
					zap.String("symbol", ledger.Symbol),
					zap.Error(err),
				)
				answers[i] = ledgerAnswer{failure: &domain.LedgerFailure{Ledger: ledger.Ref, Symbol: ledger.Symbol, Err: err}}
				return nil
			}
			answers[i] = ledgerAnswer{balance: &balance}
			return nil
		})
	}
	_ = g.Wait()

	report := domain.BalanceReport{
		Owner:     identity.Principal,
		Balances:  make([]domain.TokenBalance, 0, len(answers)),
		FetchedAt: a.clock.Now(),
	}
	for _, answer := range answers {
		switch {
		case answer.balance != nil:
			report.Balances = append(report.Balances, *answer.balance)
		case answer.failure != nil:
			report.Failures = append(report.Failures, *answer.failure)
		}
	}

	return report, nil
}

func (a *BalanceAggregator) query(ctx context.Context, ledger domain.Ledger, identity domain.Identity) (domain.TokenBalance, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	type result struct {
		units uint64
		err   error
	}
	results := make(chan result, 1)
	go func() {
		units, err := a.client.BalanceOf(queryCtx, ledger, identity.Owner(ledger.Owner))
		results <- result{units: units, err: err}
	}()

	var res result
	select {
	case res = <-results:
	case <-queryCtx.Done():
		res = result{err: queryCtx.Err()}
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			return domain.TokenBalance{}, fmt.Errorf("query balance: %w: %w", domain.ErrTimeout, res.err)
		}
		return domain.TokenBalance{}, fmt.Errorf("query balance: %w", res.err)
	}

	return domain.TokenBalance{
		Symbol: ledger.Symbol,
		Ledger: ledger.Ref,
		Amount: domain.NewAmount(res.units, ledger.Decimals),
	}, nil
}
