package ports

import (
	"context"
	"time"

	"transfer-settlement-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// SettleRequest is the settlement engine's input: a transfer plus the
// idempotency key derived from the event's durable stream position.
type SettleRequest struct {
	IdempotencyKey string
	Transfer       domain.TransferRequest
}

// SettlementService is the only writer of account balances.
//
// Settle returns:
//   - (entry, nil) when the transfer was committed,
//   - (nil, nil) when the idempotency key was already settled (replay),
//   - (nil, VAL_* error) for terminal business rejections, no mutation,
//   - (nil, ENR_*/SYS_* error) for transient failures, no mutation; the
//     caller decides between retry and dead-lettering via apperror.IsRetryable.
type SettlementService interface {
	Settle(ctx context.Context, req SettleRequest) (*domain.LedgerEntry, error)
}

// IncentiveClient computes the incentive for a candidate transfer via the
// external enrichment service. The call is side-effect free and safe to
// retry; it must only be made after local validation succeeds.
type IncentiveClient interface {
	ComputeIncentive(ctx context.Context, req domain.TransferRequest) (domain.Incentive, error)
}

// DedupCache is the fast-path replay check in front of the durable dedup
// record. Best effort: a cache miss or error falls through to the store.
type DedupCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

// BalanceService is the read path. It never takes locks and never blocks
// behind an in-flight settlement.
type BalanceService interface {
	// GetBalance returns the account balance, or zero when the account is
	// absent (kept as the historical policy of the read endpoint).
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
}
