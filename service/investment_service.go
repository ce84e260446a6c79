package service

import (
	"context"
	"fmt"

	"finengine/events"
	"finengine/models"

	log "github.com/sirupsen/logrus"
)

// investmentService implements the InvestmentService interface
type investmentService struct {
	uowFactory UnitOfWorkFactory
}

// NewInvestmentService creates a new investment service
func NewInvestmentService(uowFactory UnitOfWorkFactory) InvestmentService {
	return &investmentService{uowFactory: uowFactory}
}

// CreateInvestment opens a pending investment. No money moves until an admin
// acts on it; the expected return is taken from the product.
func (s *investmentService) CreateInvestment(ctx context.Context, userID, productID, amount int64, durationMonths int) (*models.Investment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if durationMonths <= 0 {
		return nil, fmt.Errorf("%w: duration must be at least one month", models.ErrValidation)
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

	product, err := uow.ProductRepository().GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product %d", models.ErrNotFound, productID)
	}
	if product.Status != models.ProductStatusActive {
		return nil, fmt.Errorf("%w: product %d is not open for investment", models.ErrValidation, productID)
	}
	if !product.AcceptsAmount(amount) {
		return nil, fmt.Errorf("%w: amount %d outside product bounds [%d, %d]", models.ErrValidation, amount, product.MinAmount, product.MaxAmount)
	}

	investment := &models.Investment{
		UserID:            userID,
		ProductID:         productID,
		Amount:            amount,
		DurationMonths:    durationMonths,
		ExpectedReturnPct: product.ReturnPct,
		Status:            models.InvestmentStatusPending,
		CurrentValue:      amount,
	}
	if err := uow.InvestmentRepository().Create(ctx, investment); err != nil {
		return nil, fmt.Errorf("failed to create investment: %w", err)
	}

	uow.EventBus().Publish(events.InvestmentCreatedEvent{
		InvestmentID: investment.ID,
		UserID:       userID,
		ProductID:    productID,
		Amount:       amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"investmentID": investment.ID,
		"userID":       userID,
		"productID":    productID,
		"amount":       amount,
	}).Info("Investment requested")
	return investment, nil
}

func (s *investmentService) GetInvestment(ctx context.Context, id int64) (*models.Investment, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	investment, err := uow.InvestmentRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	if investment == nil {
		return nil, fmt.Errorf("%w: investment %d", models.ErrNotFound, id)
	}
	return investment, nil
}

func (s *investmentService) ListInvestments(ctx context.Context, status *models.InvestmentStatus, limit int) ([]*models.Investment, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown investment status %q", models.ErrValidation, *status)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	investments, err := uow.InvestmentRepository().List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return investments, nil
}
