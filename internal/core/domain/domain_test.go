package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_CanCover(t *testing.T) {
	acct := &Account{ID: "alice", Balance: decimal.NewFromInt(100)}

	assert.True(t, acct.CanCover(decimal.NewFromInt(99)))
	assert.True(t, acct.CanCover(decimal.NewFromInt(100)))
	assert.False(t, acct.CanCover(decimal.NewFromInt(101)))
}

func TestTransferRequest_UnmarshalNumberAmount(t *testing.T) {
	// The stream payload carries amount as a JSON number.
	payload := []byte(`{"sender_id":"alice","recipient_id":"bob","amount":20.5}`)

	var req TransferRequest
	require.NoError(t, json.Unmarshal(payload, &req))
	assert.Equal(t, "alice", req.SenderID)
	assert.Equal(t, "bob", req.RecipientID)
	assert.True(t, req.Amount.Equal(decimal.NewFromFloat(20.5)))
}

func TestBuildIdempotencyKey(t *testing.T) {
	key := BuildIdempotencyKey("transfers", 3, 1042)
	assert.Equal(t, "transfers:3:1042", key)

	// Distinct positions must never collide.
	assert.NotEqual(t, key, BuildIdempotencyKey("transfers", 31, 42))
	assert.NotEqual(t, key, BuildIdempotencyKey("transfers", 3, 1043))
}
