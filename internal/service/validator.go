package service

import (
	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/pkg/apperror"
)

// ValidateTransfer decides whether a transfer may settle against the given
// account states. Pure function: no side effects, no I/O, so the decision
// can be re-run against locked state inside the settlement transaction.
//
// Returns nil on accept, or a terminal VAL_* apperror on reject.
func ValidateTransfer(req domain.TransferRequest, sender, recipient *domain.Account) error {
	if !req.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if sender == nil {
		return apperror.ErrAccountNotFound(req.SenderID)
	}
	if recipient == nil {
		return apperror.ErrAccountNotFound(req.RecipientID)
	}
	if !sender.CanCover(req.Amount) {
		return apperror.ErrInsufficientBalance()
	}
	return nil
}
