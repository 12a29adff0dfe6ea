package service

import (
	"context"
	"fmt"
	"time"

	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const dedupCacheTTL = 24 * time.Hour

// SettlementServiceImpl implements ports.SettlementService. It is the only
// writer of account balances: all mutation funnels through Settle's single
// storage transaction.
type SettlementServiceImpl struct {
	accountRepo ports.AccountRepository
	ledgerRepo  ports.LedgerRepository
	dedupRepo   ports.DedupRepository
	dedupCache  ports.DedupCache
	incentive   ports.IncentiveClient
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	accountRepo ports.AccountRepository,
	ledgerRepo ports.LedgerRepository,
	dedupRepo ports.DedupRepository,
	dedupCache ports.DedupCache,
	incentive ports.IncentiveClient,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		dedupRepo:   dedupRepo,
		dedupCache:  dedupCache,
		incentive:   incentive,
		transactor:  transactor,
		log:         log,
	}
}

// Settle runs validate -> enrich -> atomic mutation for one transfer.
// The enrichment call happens before the storage transaction and outside
// any lock: it has no side effects on shared state and must not block
// unrelated settlements during a slow external call.
func (s *SettlementServiceImpl) Settle(ctx context.Context, req ports.SettleRequest) (*domain.LedgerEntry, error) {
	key := req.IdempotencyKey
	transfer := req.Transfer

	// Layer 1: Redis replay check (best effort).
	seen, err := s.dedupCache.Seen(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis dedup check failed, falling through to store")
	}
	if seen {
		return nil, nil
	}

	// Layer 2: durable dedup record.
	exists, err := s.dedupRepo.Exists(ctx, key)
	if err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("dedup check: %w", err))
	}
	if exists {
		return nil, nil
	}

	// Pre-validate against unlocked state so doomed requests never pay
	// for enrichment.
	sender, err := s.accountRepo.GetByID(ctx, transfer.SenderID)
	if err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("load sender: %w", err))
	}
	recipient, err := s.accountRepo.GetByID(ctx, transfer.RecipientID)
	if err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("load recipient: %w", err))
	}
	if err := ValidateTransfer(transfer, sender, recipient); err != nil {
		return nil, err
	}

	incentive, err := s.incentive.ComputeIncentive(ctx, transfer)
	if err != nil {
		return nil, err
	}

	// Atomic unit: lock both accounts, re-validate, record the dedup key,
	// move the money, append the ledger entry.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sender, recipient, err = s.lockAccounts(ctx, dbTx, transfer.SenderID, transfer.RecipientID)
	if err != nil {
		return nil, err
	}

	// The balance may have changed between the unlocked read and the lock.
	if err := ValidateTransfer(transfer, sender, recipient); err != nil {
		return nil, err
	}

	inserted, err := s.dedupRepo.Insert(ctx, dbTx, key)
	if err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("record dedup key: %w", err))
	}
	if !inserted {
		// A concurrent consumer settled this delivery first.
		s.log.Info().Str("key", key).Msg("idempotency key raced, skipping")
		return nil, nil
	}

	if sender.ID == recipient.ID {
		// Self-transfer: debit and credit cancel out, only the incentive lands.
		newBalance := sender.Balance.Add(incentive.Amount)
		if err := s.accountRepo.UpdateBalance(ctx, dbTx, sender.ID, newBalance); err != nil {
			return nil, apperror.ErrDatabase(fmt.Errorf("update balance: %w", err))
		}
	} else {
		newSenderBalance := sender.Balance.Sub(transfer.Amount)
		newRecipientBalance := recipient.Balance.Add(transfer.Amount).Add(incentive.Amount)

		if err := s.accountRepo.UpdateBalance(ctx, dbTx, sender.ID, newSenderBalance); err != nil {
			return nil, apperror.ErrDatabase(fmt.Errorf("debit sender: %w", err))
		}
		if err := s.accountRepo.UpdateBalance(ctx, dbTx, recipient.ID, newRecipientBalance); err != nil {
			return nil, apperror.ErrDatabase(fmt.Errorf("credit recipient: %w", err))
		}
	}

	entry := &domain.LedgerEntry{
		SenderID:    transfer.SenderID,
		RecipientID: transfer.RecipientID,
		Amount:      transfer.Amount,
		Incentive:   incentive.Amount,
		CreatedAt:   time.Now().UTC(),
	}
	entryID, err := s.ledgerRepo.Insert(ctx, dbTx, entry)
	if err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("append ledger entry: %w", err))
	}
	entry.ID = entryID

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabase(fmt.Errorf("commit settlement: %w", err))
	}

	// Post-commit: mark the key in Redis (best effort).
	if err := s.dedupCache.Mark(ctx, key, dedupCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to mark dedup key in redis")
	}

	s.log.Info().
		Int64("entry_id", entry.ID).
		Str("sender", transfer.SenderID).
		Str("recipient", transfer.RecipientID).
		Str("amount", transfer.Amount.String()).
		Str("incentive", incentive.Amount.String()).
		Msg("transfer settled")

	return entry, nil
}

// lockAccounts acquires FOR UPDATE row locks on both accounts in
// lexicographic id order so two settlements over the same pair can never
// deadlock, and returns them as (sender, recipient).
func (s *SettlementServiceImpl) lockAccounts(ctx context.Context, tx pgx.Tx, senderID, recipientID string) (*domain.Account, *domain.Account, error) {
	first, second := senderID, recipientID
	if second < first {
		first, second = second, first
	}

	firstAcct, err := s.accountRepo.GetForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, apperror.ErrDatabase(fmt.Errorf("lock account %s: %w", first, err))
	}

	var secondAcct *domain.Account
	if first == second {
		secondAcct = firstAcct
	} else {
		secondAcct, err = s.accountRepo.GetForUpdate(ctx, tx, second)
		if err != nil {
			return nil, nil, apperror.ErrDatabase(fmt.Errorf("lock account %s: %w", second, err))
		}
	}

	if first == senderID {
		return firstAcct, secondAcct, nil
	}
	return secondAcct, firstAcct, nil
}
