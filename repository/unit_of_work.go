package repository

import (
	"context"
	"errors"
	"fmt"

	"finengine/database"
	"finengine/events"
	"finengine/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface over one pgx transaction
type unitOfWork struct {
	db                  *database.DB
	tx                  pgx.Tx
	ctx                 context.Context
	transactionalBus    *events.TransactionalBus
	userRepo            service.UserRepository
	productRepo         service.ProductRepository
	investmentRepo      service.InvestmentRepository
	withdrawalRepo      service.WithdrawalRepository
	spinPrizeRepo       service.SpinPrizeRepository
	spinResultRepo      service.SpinResultRepository
	transactionRepo     service.TransactionRepository
	balanceMutationRepo service.BalanceMutationRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepositoryWithTx(tx)
	u.productRepo = newProductRepositoryWithTx(tx)
	u.investmentRepo = newInvestmentRepositoryWithTx(tx)
	u.withdrawalRepo = newWithdrawalRepositoryWithTx(tx)
	u.spinPrizeRepo = newSpinPrizeRepositoryWithTx(tx)
	u.spinResultRepo = newSpinResultRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.balanceMutationRepo = newBalanceMutationRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and then releases pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Flush()

	return nil
}

// Rollback rolls back the transaction. It is a no-op after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) ProductRepository() service.ProductRepository {
	if u.productRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.productRepo
}

func (u *unitOfWork) InvestmentRepository() service.InvestmentRepository {
	if u.investmentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.investmentRepo
}

func (u *unitOfWork) WithdrawalRepository() service.WithdrawalRepository {
	if u.withdrawalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.withdrawalRepo
}

func (u *unitOfWork) SpinPrizeRepository() service.SpinPrizeRepository {
	if u.spinPrizeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.spinPrizeRepo
}

func (u *unitOfWork) SpinResultRepository() service.SpinResultRepository {
	if u.spinResultRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.spinResultRepo
}

func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

func (u *unitOfWork) BalanceMutationRepository() service.BalanceMutationRepository {
	if u.balanceMutationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceMutationRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
