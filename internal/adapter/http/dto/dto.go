// Package dto defines the wire types of the read API.
package dto

import (
	"time"

	"transfer-settlement-service/internal/core/domain"
)

// BalanceResponse is the GET /balance payload.
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// LedgerEntryResponse is one settled transfer in GET /entries.
type LedgerEntryResponse struct {
	ID          int64   `json:"id"`
	SenderID    string  `json:"sender_id"`
	RecipientID string  `json:"recipient_id"`
	Amount      float64 `json:"amount"`
	Incentive   float64 `json:"incentive"`
	CreatedAt   string  `json:"created_at"`
}

// EntriesResponse is the GET /entries payload.
type EntriesResponse struct {
	Entries []LedgerEntryResponse `json:"entries"`
}

// ToLedgerEntryResponse converts a domain entry to its wire form.
func ToLedgerEntryResponse(e domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:          e.ID,
		SenderID:    e.SenderID,
		RecipientID: e.RecipientID,
		Amount:      e.Amount.InexactFloat64(),
		Incentive:   e.Incentive.InexactFloat64(),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
