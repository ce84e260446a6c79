package service

import (
	"context"
	"time"

	"finengine/events"
	"finengine/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	args := m.Called(ctx, id, newBalance)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

// MockInvestmentRepository is a mock implementation of InvestmentRepository
type MockInvestmentRepository struct {
	mock.Mock
}

func (m *MockInvestmentRepository) Create(ctx context.Context, investment *models.Investment) error {
	args := m.Called(ctx, investment)
	return args.Error(0)
}

func (m *MockInvestmentRepository) GetByID(ctx context.Context, id int64) (*models.Investment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Investment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) Update(ctx context.Context, investment *models.Investment, expectedVersion int64) error {
	args := m.Called(ctx, investment, expectedVersion)
	return args.Error(0)
}

func (m *MockInvestmentRepository) List(ctx context.Context, status *models.InvestmentStatus, limit int) ([]*models.Investment, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Investment), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) Update(ctx context.Context, withdrawal *models.Withdrawal, expectedVersion int64) error {
	args := m.Called(ctx, withdrawal, expectedVersion)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Withdrawal, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Withdrawal), args.Error(1)
}

// MockSpinPrizeRepository is a mock implementation of SpinPrizeRepository
type MockSpinPrizeRepository struct {
	mock.Mock
}

func (m *MockSpinPrizeRepository) LockPrizeSet(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSpinPrizeRepository) GetAll(ctx context.Context) ([]*models.SpinPrize, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SpinPrize), args.Error(1)
}

func (m *MockSpinPrizeRepository) GetByID(ctx context.Context, id int64) (*models.SpinPrize, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpinPrize), args.Error(1)
}

func (m *MockSpinPrizeRepository) Upsert(ctx context.Context, prize *models.SpinPrize) error {
	args := m.Called(ctx, prize)
	return args.Error(0)
}

func (m *MockSpinPrizeRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSpinPrizeRepository) SaveChances(ctx context.Context, prizes []*models.SpinPrize) error {
	args := m.Called(ctx, prizes)
	return args.Error(0)
}

// MockSpinResultRepository is a mock implementation of SpinResultRepository
type MockSpinResultRepository struct {
	mock.Mock
}

func (m *MockSpinResultRepository) Create(ctx context.Context, result *models.SpinResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockSpinResultRepository) GetByID(ctx context.Context, id int64) (*models.SpinResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpinResult), args.Error(1)
}

func (m *MockSpinResultRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.SpinResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpinResult), args.Error(1)
}

func (m *MockSpinResultRepository) Update(ctx context.Context, result *models.SpinResult, expectedVersion int64) error {
	args := m.Called(ctx, result, expectedVersion)
	return args.Error(0)
}

func (m *MockSpinResultRepository) CountByUserSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockSpinResultRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.SpinResult, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SpinResult), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByRelatedEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.Transaction, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockBalanceMutationRepository is a mock implementation of BalanceMutationRepository
type MockBalanceMutationRepository struct {
	mock.Mock
}

func (m *MockBalanceMutationRepository) GetByKey(ctx context.Context, key string) (*models.BalanceMutation, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceMutation), args.Error(1)
}

func (m *MockBalanceMutationRepository) Record(ctx context.Context, mutation *models.BalanceMutation) error {
	args := m.Called(ctx, mutation)
	return args.Error(0)
}

func (m *MockBalanceMutationRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceMutation, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceMutation), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordWorkflowAction(entityType, action, outcome string) {
	m.Called(entityType, action, outcome)
}

func (m *MockMetricsRecorder) RecordBalanceMutation(direction string, replayed bool) {
	m.Called(direction, replayed)
}

func (m *MockMetricsRecorder) RecordSpinDraw(prizeType string) {
	m.Called(prizeType)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests only wire what they touch.
type MockUnitOfWork struct {
	mock.Mock

	Users            *MockUserRepository
	Products         *MockProductRepository
	Investments      *MockInvestmentRepository
	Withdrawals      *MockWithdrawalRepository
	SpinPrizes       *MockSpinPrizeRepository
	SpinResults      *MockSpinResultRepository
	Transactions     *MockTransactionRepository
	BalanceMutations *MockBalanceMutationRepository
	Events           *MockEventPublisher
}

// NewMockUnitOfWork creates a mock unit of work with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Users:            new(MockUserRepository),
		Products:         new(MockProductRepository),
		Investments:      new(MockInvestmentRepository),
		Withdrawals:      new(MockWithdrawalRepository),
		SpinPrizes:       new(MockSpinPrizeRepository),
		SpinResults:      new(MockSpinResultRepository),
		Transactions:     new(MockTransactionRepository),
		BalanceMutations: new(MockBalanceMutationRepository),
		Events:           new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository                       { return m.Users }
func (m *MockUnitOfWork) ProductRepository() ProductRepository                 { return m.Products }
func (m *MockUnitOfWork) InvestmentRepository() InvestmentRepository           { return m.Investments }
func (m *MockUnitOfWork) WithdrawalRepository() WithdrawalRepository           { return m.Withdrawals }
func (m *MockUnitOfWork) SpinPrizeRepository() SpinPrizeRepository             { return m.SpinPrizes }
func (m *MockUnitOfWork) SpinResultRepository() SpinResultRepository           { return m.SpinResults }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository         { return m.Transactions }
func (m *MockUnitOfWork) BalanceMutationRepository() BalanceMutationRepository { return m.BalanceMutations }
func (m *MockUnitOfWork) EventBus() EventPublisher                             { return m.Events }

// AssertAllExpectations verifies the unit of work and every repository mock
func (m *MockUnitOfWork) AssertAllExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.Users.AssertExpectations(t)
	m.Products.AssertExpectations(t)
	m.Investments.AssertExpectations(t)
	m.Withdrawals.AssertExpectations(t)
	m.SpinPrizes.AssertExpectations(t)
	m.SpinResults.AssertExpectations(t)
	m.Transactions.AssertExpectations(t)
	m.BalanceMutations.AssertExpectations(t)
	m.Events.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
