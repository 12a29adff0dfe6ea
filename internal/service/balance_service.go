package service

import (
	"context"
	"fmt"

	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BalanceServiceImpl implements ports.BalanceService. Plain pool reads
// only: the read path is independent of any in-flight settlement's locks.
type BalanceServiceImpl struct {
	accountRepo ports.AccountRepository
	ledgerRepo  ports.LedgerRepository
	log         zerolog.Logger
}

// NewBalanceService creates a new BalanceServiceImpl.
func NewBalanceService(accountRepo ports.AccountRepository, ledgerRepo ports.LedgerRepository, log zerolog.Logger) *BalanceServiceImpl {
	return &BalanceServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		log:         log,
	}
}

// GetBalance returns the account's balance. An absent account reads as
// zero, indistinguishable on the wire from an existing zero-balance
// account; the log carries the distinction for strict callers.
func (s *BalanceServiceImpl) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, apperror.ErrDatabase(fmt.Errorf("get balance: %w", err))
	}
	if acct == nil {
		s.log.Debug().Str("account_id", accountID).Bool("account_exists", false).Msg("balance queried for unknown account")
		return decimal.Zero, nil
	}
	return acct.Balance, nil
}

// ListEntries returns the most recently settled ledger entries.
func (s *BalanceServiceImpl) ListEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("list entries: %w", err))
	}
	return entries, nil
}
