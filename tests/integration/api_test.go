package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	httpHandler "transfer-settlement-service/internal/adapter/http/handler"
	redisStorage "transfer-settlement-service/internal/adapter/storage/redis"
	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/internal/service"
	"transfer-settlement-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires the full stack over in-memory storage: real settlement
// and balance services, real HTTP layer, miniredis for the dedup cache.
type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	store      *inMemoryStore
	settlement ports.SettlementService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	dedupCache := redisStorage.NewDedupCache(rdb)

	store := newInMemoryStore()
	accountRepo := &inMemoryAccountRepo{store: store}
	ledgerRepo := &inMemoryLedgerRepo{store: store}
	dedupRepo := &inMemoryDedupRepo{store: store}
	transactor := &inMemoryTransactor{store: store}

	log := logger.New("debug", false)
	settlementSvc := service.NewSettlementService(
		accountRepo, ledgerRepo, dedupRepo, dedupCache,
		&stubIncentiveClient{}, transactor, log,
	)
	balanceSvc := service.NewBalanceService(accountRepo, ledgerRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		BalanceSvc: balanceSvc,
		Logger:     log,
	})

	return &testApp{
		server:     httptest.NewServer(router),
		redis:      mr,
		store:      store,
		settlement: settlementSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func (a *testApp) settle(t *testing.T, key, sender, recipient, amount string) *domain.LedgerEntry {
	t.Helper()
	entry, err := a.settlement.Settle(context.Background(), ports.SettleRequest{
		IdempotencyKey: key,
		Transfer: domain.TransferRequest{
			SenderID:    sender,
			RecipientID: recipient,
			Amount:      decimal.RequireFromString(amount),
		},
	})
	require.NoError(t, err)
	return entry
}

func (a *testApp) getBalance(t *testing.T, userID string) float64 {
	t.Helper()
	resp, err := http.Get(a.server.URL + "/balance?userId=" + userID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Balance float64 `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Balance
}

// --- Integration Tests ---

func TestIntegration_SettleThenReadBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "100")
	app.store.seedAccount("bob", "50")

	// 20 transferred, 10% incentive = 2 minted for the recipient.
	entry := app.settle(t, "transfers:0:1", "alice", "bob", "20")
	require.NotNil(t, entry)
	assert.True(t, entry.Incentive.Equal(decimal.RequireFromString("2")))

	assert.InDelta(t, 80.0, app.getBalance(t, "alice"), 1e-9)
	assert.InDelta(t, 72.0, app.getBalance(t, "bob"), 1e-9)
}

func TestIntegration_UnknownAccountReadsAsZero(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	assert.Equal(t, 0.0, app.getBalance(t, "nobody"))
}

func TestIntegration_ReplayDoesNotDoubleSettle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "100")
	app.store.seedAccount("bob", "50")

	first := app.settle(t, "transfers:0:1", "alice", "bob", "20")
	require.NotNil(t, first)

	// Same stream position redelivered: no entry, no balance change.
	replay := app.settle(t, "transfers:0:1", "alice", "bob", "20")
	assert.Nil(t, replay)

	assert.InDelta(t, 80.0, app.getBalance(t, "alice"), 1e-9)
	assert.InDelta(t, 72.0, app.getBalance(t, "bob"), 1e-9)
}

func TestIntegration_ReplaySurvivesCacheLoss(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "100")
	app.store.seedAccount("bob", "50")

	first := app.settle(t, "transfers:0:1", "alice", "bob", "20")
	require.NotNil(t, first)

	// Wipe the fast-path cache; the durable record must still hold.
	app.redis.FlushAll()

	replay := app.settle(t, "transfers:0:1", "alice", "bob", "20")
	assert.Nil(t, replay)
	assert.InDelta(t, 80.0, app.getBalance(t, "alice"), 1e-9)
}

func TestIntegration_InsufficientBalanceRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "10")
	app.store.seedAccount("bob", "50")

	_, err := app.settlement.Settle(context.Background(), ports.SettleRequest{
		IdempotencyKey: "transfers:0:1",
		Transfer: domain.TransferRequest{
			SenderID:    "alice",
			RecipientID: "bob",
			Amount:      decimal.RequireFromString("20"),
		},
	})
	require.Error(t, err)

	// Nothing moved, and the key is free for a corrected retry.
	assert.InDelta(t, 10.0, app.getBalance(t, "alice"), 1e-9)
	assert.InDelta(t, 50.0, app.getBalance(t, "bob"), 1e-9)
}

func TestIntegration_IncentiveCappedAt15(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "1000")
	app.store.seedAccount("bob", "0")

	// 10% of 500 would be 50; the payout rule caps it at exactly 15.
	entry := app.settle(t, "transfers:0:1", "alice", "bob", "500")
	require.NotNil(t, entry)
	assert.True(t, entry.Incentive.Equal(decimal.RequireFromString("15")))

	assert.InDelta(t, 500.0, app.getBalance(t, "alice"), 1e-9)
	assert.InDelta(t, 515.0, app.getBalance(t, "bob"), 1e-9)
}

func TestIntegration_ExactBalanceTransfer(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "20")
	app.store.seedAccount("bob", "0")

	entry := app.settle(t, "transfers:0:1", "alice", "bob", "20")
	require.NotNil(t, entry)

	assert.Equal(t, 0.0, app.getBalance(t, "alice"))
	assert.InDelta(t, 22.0, app.getBalance(t, "bob"), 1e-9)
}

func TestIntegration_EntriesEndpoint(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.store.seedAccount("alice", "100")
	app.store.seedAccount("bob", "50")

	app.settle(t, "transfers:0:1", "alice", "bob", "10")
	app.settle(t, "transfers:0:2", "bob", "alice", "5")

	resp, err := http.Get(app.server.URL + "/entries")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Entries []struct {
			ID       int64  `json:"id"`
			SenderID string `json:"sender_id"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 2)
	// Newest first.
	assert.Equal(t, "bob", body.Entries[0].SenderID)
	assert.Equal(t, "alice", body.Entries[1].SenderID)
}

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
