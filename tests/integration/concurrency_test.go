package integration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentSettlements fires many settlements against a small set of
// accounts in parallel and verifies the outcome is equivalent to some
// serial order: no lost updates, no negative balances, and money is
// conserved up to the incentives the settlements minted.
func TestConcurrentSettlements(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("a", "1000")
	app.store.seedAccount("b", "1000")
	app.store.seedAccount("c", "1000")

	pairs := [][2]string{
		{"a", "b"}, {"b", "c"}, {"c", "a"},
		{"b", "a"}, {"c", "b"}, {"a", "c"},
	}

	concurrency := 60
	amount := decimal.RequireFromString("10")
	incentive := decimal.RequireFromString("1") // 10% of 10

	var wg sync.WaitGroup
	var settled atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			pair := pairs[idx%len(pairs)]

			entry, err := app.settlement.Settle(context.Background(), ports.SettleRequest{
				IdempotencyKey: fmt.Sprintf("transfers:0:%d", idx),
				Transfer: domain.TransferRequest{
					SenderID:    pair[0],
					RecipientID: pair[1],
					Amount:      amount,
				},
			})
			if err != nil {
				t.Errorf("settle %d: %v", idx, err)
				return
			}
			if entry == nil {
				t.Errorf("settle %d: unexpected replay", idx)
				return
			}
			settled.Add(1)
		}(i)
	}

	wg.Wait()
	require.Equal(t, int64(concurrency), settled.Load())

	// Each settlement moves 10 and mints 1, so the pool grows by exactly
	// one incentive per settlement.
	total := app.store.balance("a").Add(app.store.balance("b")).Add(app.store.balance("c"))
	expected := decimal.RequireFromString("3000").
		Add(incentive.Mul(decimal.NewFromInt(int64(concurrency))))
	assert.True(t, total.Equal(expected), "expected pool %s, got %s", expected, total)

	for _, id := range []string{"a", "b", "c"} {
		assert.False(t, app.store.balance(id).IsNegative(), "account %s went negative", id)
	}
}

// TestConcurrentReplays settles the same stream position from many
// goroutines at once. Exactly one must win; the rest observe a replay.
func TestConcurrentReplays(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "100")
	app.store.seedAccount("bob", "50")

	concurrency := 20
	var wg sync.WaitGroup
	var committed atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := app.settlement.Settle(context.Background(), ports.SettleRequest{
				IdempotencyKey: "transfers:0:99",
				Transfer: domain.TransferRequest{
					SenderID:    "alice",
					RecipientID: "bob",
					Amount:      decimal.RequireFromString("20"),
				},
			})
			if err != nil {
				t.Errorf("settle: %v", err)
				return
			}
			if entry != nil {
				committed.Add(1)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int64(1), committed.Load(), "exactly one delivery must settle")
	assert.InDelta(t, 80.0, app.getBalance(t, "alice"), 1e-9)
	assert.InDelta(t, 72.0, app.getBalance(t, "bob"), 1e-9)
}

// TestConcurrentDrain races settlements that together exceed the sender's
// funds. The winners drain the account to exactly zero and the rest are
// rejected for insufficient balance; the balance never goes negative.
func TestConcurrentDrain(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "100")
	app.store.seedAccount("bob", "0")

	concurrency := 20 // 20 * 10 = 200 requested from a balance of 100
	var wg sync.WaitGroup
	var succeeded, rejected atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := app.settlement.Settle(context.Background(), ports.SettleRequest{
				IdempotencyKey: fmt.Sprintf("transfers:1:%d", idx),
				Transfer: domain.TransferRequest{
					SenderID:    "alice",
					RecipientID: "bob",
					Amount:      decimal.RequireFromString("10"),
				},
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperror.Code(err) == "VAL_003":
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()
	assert.Equal(t, int64(10), succeeded.Load(), "exactly the affordable settlements succeed")
	assert.Equal(t, int64(10), rejected.Load())
	assert.Equal(t, 0.0, app.getBalance(t, "alice"))
	assert.InDelta(t, 110.0, app.getBalance(t, "bob"), 1e-9) // 100 moved + 10 incentives of 1
}
