package service

import (
	"context"
	"fmt"
	"strings"

	"finengine/events"
	"finengine/models"

	log "github.com/sirupsen/logrus"
)

// SystemActor is recorded as the actor of audit records the engine writes on
// its own behalf
const SystemActor = "system"

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
	guard      *BalanceGuard
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, guard *BalanceGuard) UserService {
	return &userService{
		uowFactory: uowFactory,
		guard:      guard,
	}
}

// CreateUser registers a user. A positive initial balance is credited through
// the balance guard and audited as an initial transaction.
func (s *userService) CreateUser(ctx context.Context, username string, initialBalance int64) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if initialBalance < 0 {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", models.ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user := &models.User{Username: username, Status: models.UserStatusActive}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if initialBalance > 0 {
		key := IdempotencyKey(models.EntityTypeUser, user.ID, string(models.TransactionTypeInitial))
		res, err := s.guard.ApplyDelta(ctx, uow, user.ID, initialBalance, key)
		if err != nil {
			return nil, fmt.Errorf("failed to credit initial balance: %w", err)
		}
		user.Balance = res.BalanceAfter

		txn := &models.Transaction{
			Reference:         NewTransactionReference(),
			UserID:            user.ID,
			Type:              models.TransactionTypeInitial,
			Flow:              models.TransactionFlowCredit,
			Amount:            initialBalance,
			Status:            models.TransactionStatusSuccess,
			RelatedEntityType: models.EntityTypeUser,
			RelatedEntityID:   user.ID,
			Action:            string(models.TransactionTypeInitial),
			ActorID:           SystemActor,
			BalanceAfter:      &res.BalanceAfter,
		}
		if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
			return nil, fmt.Errorf("failed to append transaction: %w", err)
		}
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		UserID:         user.ID,
		Username:       user.Username,
		InitialBalance: initialBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":         user.ID,
		"username":       user.Username,
		"initialBalance": initialBalance,
	}).Info("User created")
	return user, nil
}

// GetUser returns a user or ErrNotFound
func (s *userService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return user, nil
}
