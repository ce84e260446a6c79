package service

import (
	"context"
	"fmt"
	"strings"

	"finengine/config"
	"finengine/events"
	"finengine/models"

	log "github.com/sirupsen/logrus"
)

// withdrawalService implements the WithdrawalService interface
type withdrawalService struct {
	uowFactory UnitOfWorkFactory
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory) WithdrawalService {
	return &withdrawalService{uowFactory: uowFactory}
}

// CreateWithdrawal records a pending withdrawal with its charge. The balance
// is only debited when an admin approves it.
func (s *withdrawalService) CreateWithdrawal(ctx context.Context, userID, amount int64, bankAccount string) (*models.Withdrawal, error) {
	cfg := config.Get()

	bankAccount = strings.TrimSpace(bankAccount)
	if bankAccount == "" {
		return nil, fmt.Errorf("%w: bank account is required", models.ErrValidation)
	}
	if amount < cfg.MinWithdrawalAmount {
		return nil, fmt.Errorf("%w: amount %d is below the minimum of %d", models.ErrValidation, amount, cfg.MinWithdrawalAmount)
	}
	charge := ComputeCharge(amount, cfg.WithdrawalChargeRate)
	if charge >= amount {
		return nil, fmt.Errorf("%w: charge %d leaves nothing to pay out", models.ErrValidation, charge)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}

	withdrawal := models.NewWithdrawal(userID, amount, charge, bankAccount)
	if err := uow.WithdrawalRepository().Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalCreatedEvent{
		WithdrawalID: withdrawal.ID,
		UserID:       userID,
		Amount:       amount,
		Charge:       charge,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawal.ID,
		"userID":       userID,
		"amount":       amount,
		"charge":       charge,
	}).Info("Withdrawal requested")
	return withdrawal, nil
}

func (s *withdrawalService) GetWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := uow.WithdrawalRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	if withdrawal == nil {
		return nil, fmt.Errorf("%w: withdrawal %d", models.ErrNotFound, id)
	}
	return withdrawal, nil
}

func (s *withdrawalService) ListWithdrawals(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown withdrawal status %q", models.ErrValidation, *status)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawals, err := uow.WithdrawalRepository().List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}
