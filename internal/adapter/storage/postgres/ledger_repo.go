package postgres

import (
	"context"
	"fmt"

	"transfer-settlement-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository over the append-only
// ledger_entries table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Insert appends a settled entry within a settlement transaction and
// returns the id the store assigned in commit order.
func (r *LedgerRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) (int64, error) {
	query := `INSERT INTO ledger_entries (sender_id, recipient_id, amount, incentive, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	var id int64
	err := tx.QueryRow(ctx, query, e.SenderID, e.RecipientID, e.Amount, e.Incentive, e.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	return id, nil
}

// ListRecent fetches the most recent entries, newest first.
func (r *LedgerRepo) ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT id, sender_id, recipient_id, amount, incentive, created_at
		FROM ledger_entries ORDER BY id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		if err := rows.Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.Amount, &e.Incentive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
