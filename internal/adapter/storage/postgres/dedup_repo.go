package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DedupRepo implements ports.DedupRepository over the processed_keys table.
type DedupRepo struct {
	pool Pool
}

// NewDedupRepo creates a new DedupRepo.
func NewDedupRepo(pool Pool) *DedupRepo {
	return &DedupRepo{pool: pool}
}

// Exists reports whether the idempotency key has already been settled.
func (r *DedupRepo) Exists(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM processed_keys WHERE key = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed key: %w", err)
	}
	return exists, nil
}

// Insert records the key within a settlement transaction. Returns false
// when the key was already recorded, which makes the race between two
// consumers settling the same delivery lose cleanly at commit time.
func (r *DedupRepo) Insert(ctx context.Context, tx pgx.Tx, key string) (bool, error) {
	query := `INSERT INTO processed_keys (key, created_at) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`

	tag, err := tx.Exec(ctx, query, key, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert processed key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
