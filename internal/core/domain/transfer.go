package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is the inbound stream event describing a transfer.
// It is immutable once received and not yet trusted: validation happens
// against current account state at settlement time.
type TransferRequest struct {
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// Incentive is the externally computed enrichment for a transfer.
// It is minted, not transferred: the recipient gains it on top of the
// amount without any matching debit.
type Incentive struct {
	Amount decimal.Decimal `json:"amount"`
}

// LedgerEntry is the settled, append-only record of a transfer. ID is
// assigned by the store in commit order and is the durable ordering key.
type LedgerEntry struct {
	ID          int64
	SenderID    string
	RecipientID string
	Amount      decimal.Decimal
	Incentive   decimal.Decimal
	CreatedAt   time.Time
}

// BuildIdempotencyKey derives the settlement dedup key from a message's
// durable stream position. The broker may redeliver the same position
// after a crash; the key makes the replay a no-op.
func BuildIdempotencyKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}
