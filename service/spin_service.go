package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finengine/config"
	"finengine/events"
	"finengine/models"
	"finengine/prize"

	log "github.com/sirupsen/logrus"
)

// spinService implements the SpinService interface
type spinService struct {
	uowFactory UnitOfWorkFactory
	selector   *prize.Selector
	metrics    MetricsRecorder
	now        func() time.Time
}

// NewSpinService creates a new spin service. metrics may be nil.
func NewSpinService(uowFactory UnitOfWorkFactory, selector *prize.Selector, metrics MetricsRecorder) SpinService {
	return &spinService{
		uowFactory: uowFactory,
		selector:   selector,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func validatePrize(p *models.SpinPrize) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: prize name is required", models.ErrValidation)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown prize type %q", models.ErrValidation, p.Type)
	}
	if p.Amount < 0 {
		return fmt.Errorf("%w: prize amount cannot be negative", models.ErrValidation)
	}
	if p.ChanceWeight <= 0 {
		return fmt.Errorf("%w: chance weight must be positive", models.ErrValidation)
	}
	if p.Status == "" {
		p.Status = models.PrizeStatusActive
	}
	if p.Status != models.PrizeStatusActive && p.Status != models.PrizeStatusInactive {
		return fmt.Errorf("%w: unknown prize status %q", models.ErrValidation, p.Status)
	}
	return nil
}

// UpsertPrize saves a prize and recalculates the whole set under the prize
// set lock. An edit that leaves no active prize is rejected.
func (s *spinService) UpsertPrize(ctx context.Context, p *models.SpinPrize) ([]*models.SpinPrize, error) {
	if err := validatePrize(p); err != nil {
		return nil, err
	}

	return s.editPrizeSet(ctx, func(uow UnitOfWork) error {
		repo := uow.SpinPrizeRepository()
		if p.ID != 0 {
			existing, err := repo.GetByID(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to get prize: %w", err)
			}
			if existing == nil {
				return fmt.Errorf("%w: prize %d", models.ErrNotFound, p.ID)
			}
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("failed to save prize: %w", err)
		}
		return nil
	})
}

// DeletePrize removes a prize and recalculates the remaining set
func (s *spinService) DeletePrize(ctx context.Context, id int64) ([]*models.SpinPrize, error) {
	return s.editPrizeSet(ctx, func(uow UnitOfWork) error {
		if err := uow.SpinPrizeRepository().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete prize %d: %w", id, err)
		}
		return nil
	})
}

func (s *spinService) editPrizeSet(ctx context.Context, edit func(uow UnitOfWork) error) ([]*models.SpinPrize, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.SpinPrizeRepository()
	if err := repo.LockPrizeSet(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize set: %w", err)
	}

	if err := edit(uow); err != nil {
		return nil, err
	}

	prizes, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prize set: %w", err)
	}
	if _, err := prize.Recalculate(prizes); err != nil {
		return nil, err
	}
	if err := repo.SaveChances(ctx, prizes); err != nil {
		return nil, fmt.Errorf("failed to save chances: %w", err)
	}

	active := 0
	for _, p := range prizes {
		if p.IsActive() {
			active++
		}
	}
	uow.EventBus().Publish(events.PrizeSetChangedEvent{
		ActivePrizes: active,
		TotalWeight:  prize.TotalWeight(prizes),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"prizeCount":  len(prizes),
		"activeCount": active,
	}).Info("Prize set recalculated")
	return prizes, nil
}

func (s *spinService) ListPrizes(ctx context.Context) ([]*models.SpinPrize, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prizes, err := uow.SpinPrizeRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	return prizes, nil
}

// DrawSpin draws a prize for the user and stores a pending result carrying a
// snapshot of the prize. Spins per UTC day are capped by DailySpinLimit.
func (s *spinService) DrawSpin(ctx context.Context, userID int64) (*models.SpinResult, error) {
	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Locking the user serializes the daily limit check per user
	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}

	now := s.now()
	if cfg.DailySpinLimit > 0 {
		dayStart, _ := DayBounds(now)
		count, err := uow.SpinResultRepository().CountByUserSince(ctx, userID, dayStart)
		if err != nil {
			return nil, fmt.Errorf("failed to count spins: %w", err)
		}
		if count >= cfg.DailySpinLimit {
			return nil, fmt.Errorf("%w: daily spin limit of %d reached, resets at %s",
				models.ErrValidation, cfg.DailySpinLimit, GetNextResetTime(now).Format(time.RFC3339))
		}
	}

	prizeRepo := uow.SpinPrizeRepository()
	if err := prizeRepo.LockPrizeSet(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock prize set: %w", err)
	}
	prizes, err := prizeRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prize set: %w", err)
	}

	won, err := s.selector.Draw(prizes)
	if err != nil {
		return nil, err
	}

	result := &models.SpinResult{
		UserID:      userID,
		PrizeID:     won.ID,
		PrizeName:   won.Name,
		PrizeAmount: won.Amount,
		PrizeType:   won.Type,
		Status:      models.SpinResultStatusPending,
		SpinDate:    now,
	}
	if err := uow.SpinResultRepository().Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to record spin result: %w", err)
	}

	uow.EventBus().Publish(events.SpinDrawnEvent{
		SpinResultID: result.ID,
		UserID:       userID,
		PrizeID:      won.ID,
		PrizeType:    won.Type,
		PrizeAmount:  won.Amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSpinDraw(string(won.Type))
	}
	log.WithFields(log.Fields{
		"userID":       userID,
		"spinResultID": result.ID,
		"prizeID":      won.ID,
		"prizeType":    won.Type,
	}).Info("Spin drawn")
	return result, nil
}

func (s *spinService) GetSpinResult(ctx context.Context, id int64) (*models.SpinResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := uow.SpinResultRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get spin result: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: spin result %d", models.ErrNotFound, id)
	}
	return result, nil
}
