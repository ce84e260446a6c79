package service

import (
	"context"
	"fmt"
	"math"

	"finengine/events"
	"finengine/models"

	log "github.com/sirupsen/logrus"
)

// BalanceResult describes the effect of a balance mutation
type BalanceResult struct {
	UserID        int64
	Delta         int64
	BalanceBefore int64
	BalanceAfter  int64
	Replayed      bool // The key was already applied; nothing changed
}

// BalanceGuard is the single entry point for balance changes in the system.
// It runs inside the caller's unit of work so the mutation commits or rolls
// back together with the rest of the action.
type BalanceGuard struct {
	metrics MetricsRecorder
}

// NewBalanceGuard creates a balance guard. metrics may be nil.
func NewBalanceGuard(metrics MetricsRecorder) *BalanceGuard {
	return &BalanceGuard{metrics: metrics}
}

// IdempotencyKey builds the balance key of an admin action
func IdempotencyKey(entityType models.EntityType, entityID int64, action string) string {
	return fmt.Sprintf("%s:%d:%s", entityType, entityID, action)
}

// ApplyDelta adds delta to the user's balance exactly once per key. The user
// row is locked before the key is checked, so concurrent calls for the same
// user serialize and a replayed key returns the recorded result.
func (g *BalanceGuard) ApplyDelta(ctx context.Context, uow UnitOfWork, userID, delta int64, key string) (*BalanceResult, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", models.ErrValidation)
	}

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}

	existing, err := uow.BalanceMutationRepository().GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if existing != nil {
		if existing.UserID != userID || existing.Delta != delta {
			return nil, fmt.Errorf("%w: idempotency key %q was used for a different mutation", models.ErrValidation, key)
		}
		log.WithFields(log.Fields{
			"userID": userID,
			"key":    key,
		}).Debug("Balance mutation replayed")
		g.record(delta, true)
		return &BalanceResult{
			UserID:        userID,
			Delta:         existing.Delta,
			BalanceBefore: existing.BalanceBefore,
			BalanceAfter:  existing.BalanceAfter,
			Replayed:      true,
		}, nil
	}

	if delta > 0 && user.Balance > math.MaxInt64-delta {
		return nil, fmt.Errorf("%w: credit of %d overflows the balance of user %d", models.ErrValidation, delta, userID)
	}
	newBalance := user.Balance + delta
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: user %d has %d, needs %d", models.ErrInsufficientBalance, userID, user.Balance, -delta)
	}

	if err := uow.UserRepository().UpdateBalance(ctx, userID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	mutation := &models.BalanceMutation{
		IdempotencyKey: key,
		UserID:         userID,
		Delta:          delta,
		BalanceBefore:  user.Balance,
		BalanceAfter:   newBalance,
	}
	if err := uow.BalanceMutationRepository().Record(ctx, mutation); err != nil {
		return nil, fmt.Errorf("failed to record balance mutation: %w", err)
	}

	// Flushed only after the transaction commits
	if delta != 0 {
		uow.EventBus().Publish(events.BalanceChangeEvent{
			UserID:         userID,
			OldBalance:     user.Balance,
			NewBalance:     newBalance,
			ChangeAmount:   delta,
			IdempotencyKey: key,
		})
	}
	g.record(delta, false)

	return &BalanceResult{
		UserID:        userID,
		Delta:         delta,
		BalanceBefore: user.Balance,
		BalanceAfter:  newBalance,
	}, nil
}

func (g *BalanceGuard) record(delta int64, replayed bool) {
	if g.metrics == nil {
		return
	}
	direction := "credit"
	if delta < 0 {
		direction = "debit"
	}
	g.metrics.RecordBalanceMutation(direction, replayed)
}
