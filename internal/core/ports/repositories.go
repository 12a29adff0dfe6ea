package ports

import (
	"context"

	"transfer-settlement-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside settlement transactions for
// pessimistic row locking.
type AccountRepository interface {
	Create(ctx context.Context, acct *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error
}

// LedgerRepository defines persistence for the append-only settled history.
type LedgerRepository interface {
	// Insert appends an entry within a settlement transaction and returns
	// the store-assigned id (commit order).
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
}

// DedupRepository records settled idempotency keys. The insert happens in
// the same transaction as the balance mutation so replayed deliveries can
// never double-settle.
type DedupRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Insert records the key. Returns false if it was already recorded.
	Insert(ctx context.Context, tx pgx.Tx, key string) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
