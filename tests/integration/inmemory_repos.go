package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"transfer-settlement-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// inMemoryStore backs all in-memory repositories. Transactions acquire
// txMu for their whole lifetime, which gives the same serializable
// behaviour the production path gets from SELECT FOR UPDATE row locks.
// Rollback restores the snapshot taken at Begin.
type inMemoryStore struct {
	txMu   sync.Mutex
	dataMu sync.RWMutex

	accounts  map[string]*domain.Account
	entries   []domain.LedgerEntry
	nextID    int64
	processed map[string]bool
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		accounts:  make(map[string]*domain.Account),
		nextID:    1,
		processed: make(map[string]bool),
	}
}

func (s *inMemoryStore) seedAccount(id string, balance string) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	now := time.Now().UTC()
	s.accounts[id] = &domain.Account{
		ID:        id,
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *inMemoryStore) balance(id string) decimal.Decimal {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero
	}
	return a.Balance
}

func (s *inMemoryStore) snapshot() storeSnapshot {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	accounts := make(map[string]*domain.Account, len(s.accounts))
	for id, a := range s.accounts {
		copied := *a
		accounts[id] = &copied
	}
	processed := make(map[string]bool, len(s.processed))
	for k := range s.processed {
		processed[k] = true
	}
	return storeSnapshot{
		accounts:   accounts,
		entriesLen: len(s.entries),
		nextID:     s.nextID,
		processed:  processed,
	}
}

func (s *inMemoryStore) restore(snap storeSnapshot) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.accounts = snap.accounts
	s.entries = s.entries[:snap.entriesLen]
	s.nextID = snap.nextID
	s.processed = snap.processed
}

type storeSnapshot struct {
	accounts   map[string]*domain.Account
	entriesLen int
	nextID     int64
	processed  map[string]bool
}

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	store *inMemoryStore
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	if _, ok := r.store.accounts[a.ID]; ok {
		return fmt.Errorf("account already exists")
	}
	copied := *a
	r.store.accounts[a.ID] = &copied
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.dataMu.RLock()
	defer r.store.dataMu.RUnlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *inMemoryAccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance decimal.Decimal) error {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	store *inMemoryStore
}

func (r *inMemoryLedgerRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) (int64, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	id := r.store.nextID
	r.store.nextID++
	stored := *e
	stored.ID = id
	r.store.entries = append(r.store.entries, stored)
	return id, nil
}

func (r *inMemoryLedgerRepo) ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	r.store.dataMu.RLock()
	defer r.store.dataMu.RUnlock()
	n := len(r.store.entries)
	if limit > n {
		limit = n
	}
	out := make([]domain.LedgerEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.store.entries[i])
	}
	return out, nil
}

// --- In-Memory Dedup Repo ---

type inMemoryDedupRepo struct {
	store *inMemoryStore
}

func (r *inMemoryDedupRepo) Exists(ctx context.Context, key string) (bool, error) {
	r.store.dataMu.RLock()
	defer r.store.dataMu.RUnlock()
	return r.store.processed[key], nil
}

func (r *inMemoryDedupRepo) Insert(ctx context.Context, tx pgx.Tx, key string) (bool, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	if r.store.processed[key] {
		return false, nil
	}
	r.store.processed[key] = true
	return true, nil
}

// --- In-Memory Dedup Cache ---

type inMemoryDedupCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newInMemoryDedupCache() *inMemoryDedupCache {
	return &inMemoryDedupCache{seen: make(map[string]bool)}
}

func (c *inMemoryDedupCache) Seen(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[key], nil
}

func (c *inMemoryDedupCache) Mark(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = true
	return nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct {
	store *inMemoryStore
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.store.txMu.Lock()
	return &memTx{
		store: t.store,
		snap:  t.store.snapshot(),
	}, nil
}

// memTx serializes settlements through the store's transaction mutex and
// restores the Begin-time snapshot on rollback.
type memTx struct {
	store *inMemoryStore
	snap  storeSnapshot
	done  bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// --- Stub Incentive Client ---

// stubIncentiveClient mirrors the real incentive service's payout rule:
// ten percent of the amount, capped at 15.
type stubIncentiveClient struct{}

func (c *stubIncentiveClient) ComputeIncentive(ctx context.Context, req domain.TransferRequest) (domain.Incentive, error) {
	bonus := req.Amount.Mul(decimal.RequireFromString("0.1"))
	if ceiling := decimal.RequireFromString("15"); bonus.GreaterThan(ceiling) {
		bonus = ceiling
	}
	return domain.Incentive{Amount: bonus}, nil
}
