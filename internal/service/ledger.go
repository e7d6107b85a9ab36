package service

import (
	"context"
	"errors"
	"fmt"

	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// applyLedger is the single primitive behind every balance change: it locks
// the account row, moves the balance, and appends exactly one matching ledger
// entry, all on the caller's transaction. Debits on blocked accounts and
// debits past zero are rejected before anything is written.
func applyLedger(ctx context.Context, tx pgx.Tx, accounts repository.AccountRepository,
	accountID int64, amount decimal.Decimal, direction model.LedgerDirection, reason string, reference *string) (decimal.Decimal, error) {

	acc, err := accounts.GetAccountForUpdate(ctx, accountID, tx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account for update: %w", err)
	}

	var newBalance decimal.Decimal
	switch direction {
	case model.DirectionCredit:
		newBalance = acc.Balance.Add(amount)
	case model.DirectionDebit:
		if acc.Blocked {
			return decimal.Zero, model.ErrAccountBlocked
		}
		newBalance = acc.Balance.Sub(amount)
	default:
		return decimal.Zero, model.ErrInvalidDirection
	}

	if newBalance.IsNegative() {
		return decimal.Zero, model.ErrInsufficientFunds
	}

	if err := accounts.UpdateBalance(ctx, accountID, newBalance, tx); err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	entry := &model.LedgerEntry{
		AccountID:    accountID,
		Amount:       amount,
		Direction:    direction,
		Reason:       reason,
		Reference:    reference,
		BalanceAfter: newBalance,
	}
	if err := accounts.InsertLedgerEntry(ctx, entry, tx); err != nil {
		// Duplicate reference propagates untouched so callers can treat a
		// replayed deposit as already processed.
		if errors.Is(err, model.ErrDuplicateReference) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("insert ledger entry: %w", err)
	}

	return newBalance, nil
}

// parseAmount validates the positive-amount contract shared by all ledger
// operations.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", model.ErrInvalidAmount, err.Error())
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", model.ErrInvalidAmount)
	}
	return amount, nil
}

type LedgerServiceImpl struct {
	accountRepo repository.AccountRepository
	dbManager   repository.DBManager
	logger      zerolog.Logger
}

func NewLedgerService(
	accountRepo repository.AccountRepository,
	dbManager repository.DBManager,
	logger zerolog.Logger,
) LedgerService {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		dbManager:   dbManager,
		logger:      logger,
	}
}

func (s *LedgerServiceImpl) Credit(ctx context.Context, accountID int64, req *model.LedgerRequest) (*model.LedgerResponse, error) {
	return s.apply(ctx, accountID, req, model.DirectionCredit)
}

func (s *LedgerServiceImpl) Debit(ctx context.Context, accountID int64, req *model.LedgerRequest) (*model.LedgerResponse, error) {
	return s.apply(ctx, accountID, req, model.DirectionDebit)
}

func (s *LedgerServiceImpl) apply(ctx context.Context, accountID int64, req *model.LedgerRequest, direction model.LedgerDirection) (*model.LedgerResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	var reference *string
	if req.Reference != "" {
		reference = &req.Reference
	}

	var newBalance decimal.Decimal
	err = s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		newBalance, err = applyLedger(ctx, tx, s.accountRepo, accountID, amount, direction, req.Reason, reference)
		return err
	})

	// A replayed external reference means the money already moved; report the
	// current balance instead of failing the webhook retry.
	if errors.Is(err, model.ErrDuplicateReference) {
		balance, balErr := s.accountRepo.GetBalance(ctx, accountID)
		if balErr != nil {
			return nil, fmt.Errorf("get balance after duplicate: %w", balErr)
		}
		s.logger.Info().Int64("account_id", accountID).Str("reference", req.Reference).
			Msg("ledger reference already processed")
		return &model.LedgerResponse{
			Msg:     "already processed",
			Balance: balance.StringFixed(2),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("account_id", accountID).
		Str("direction", direction.String()).
		Str("amount", amount.String()).
		Str("reason", req.Reason).
		Str("new_balance", newBalance.StringFixed(2)).
		Msg("balance updated")

	return &model.LedgerResponse{
		Msg:     "balance updated",
		Balance: newBalance.StringFixed(2),
	}, nil
}

func (s *LedgerServiceImpl) GetBalance(ctx context.Context, accountID int64) (*model.BalanceResponse, error) {
	balance, err := s.accountRepo.GetBalance(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	return &model.BalanceResponse{
		AccountID: accountID,
		Balance:   balance.StringFixed(2),
	}, nil
}

func (s *LedgerServiceImpl) GetLedgerEntries(ctx context.Context, accountID int64, limit, offset int) ([]*model.LedgerEntry, error) {
	entries, err := s.accountRepo.ListLedgerEntries(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
