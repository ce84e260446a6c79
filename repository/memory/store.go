// Package memory is an in-process LedgerStore for tests and local runs. A
// unit of work holds the store slot from Begin until Commit or Rollback and
// works on a private copy of the data. Begin gives up waiting for the slot
// when its context is cancelled, so commits are atomic and a rollback
// leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"time"

	"finengine/events"
	"finengine/models"
	"finengine/service"
)

type dataset struct {
	nextID int64

	users            map[int64]models.User
	products         map[int64]models.Product
	investments      map[int64]models.Investment
	withdrawals      map[int64]models.Withdrawal
	spinPrizes       map[int64]models.SpinPrize
	spinResults      map[int64]models.SpinResult
	transactions     map[int64]models.Transaction
	balanceMutations map[int64]models.BalanceMutation
}

func newDataset() *dataset {
	return &dataset{
		users:            make(map[int64]models.User),
		products:         make(map[int64]models.Product),
		investments:      make(map[int64]models.Investment),
		withdrawals:      make(map[int64]models.Withdrawal),
		spinPrizes:       make(map[int64]models.SpinPrize),
		spinResults:      make(map[int64]models.SpinResult),
		transactions:     make(map[int64]models.Transaction),
		balanceMutations: make(map[int64]models.BalanceMutation),
	}
}

func cloneMap[V any](in map[int64]V) map[int64]V {
	out := make(map[int64]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (d *dataset) clone() *dataset {
	return &dataset{
		nextID:           d.nextID,
		users:            cloneMap(d.users),
		products:         cloneMap(d.products),
		investments:      cloneMap(d.investments),
		withdrawals:      cloneMap(d.withdrawals),
		spinPrizes:       cloneMap(d.spinPrizes),
		spinResults:      cloneMap(d.spinResults),
		transactions:     cloneMap(d.transactions),
		balanceMutations: cloneMap(d.balanceMutations),
	}
}

func (d *dataset) newID() int64 {
	d.nextID++
	return d.nextID
}

// Store holds the committed data
type Store struct {
	sem  chan struct{} // single slot held by the active unit of work
	data *dataset
	now  func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sem:  make(chan struct{}, 1),
		data: newDataset(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the clock used for CreatedAt and UpdatedAt
func (s *Store) SetClock(now func() time.Time) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.now = now
}

// NewUnitOfWorkFactory creates a UnitOfWork factory backed by store
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{store: store, eventBus: eventBus}
}

type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// unitOfWork implements service.UnitOfWork over a Store
type unitOfWork struct {
	store            *Store
	tx               *dataset
	transactionalBus *events.TransactionalBus
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	select {
	case u.store.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("failed to begin transaction: %w", ctx.Err())
	}
	u.tx = u.store.data.clone()
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	u.store.data = u.tx
	u.tx = nil
	<-u.store.sem

	u.transactionalBus.Flush()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	u.tx = nil
	<-u.store.sem

	u.transactionalBus.Discard()
	return nil
}

func (u *unitOfWork) data() *dataset {
	if u.tx == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tx
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	return &userRepository{uow: u}
}

func (u *unitOfWork) ProductRepository() service.ProductRepository {
	return &productRepository{uow: u}
}

func (u *unitOfWork) InvestmentRepository() service.InvestmentRepository {
	return &investmentRepository{uow: u}
}

func (u *unitOfWork) WithdrawalRepository() service.WithdrawalRepository {
	return &withdrawalRepository{uow: u}
}

func (u *unitOfWork) SpinPrizeRepository() service.SpinPrizeRepository {
	return &spinPrizeRepository{uow: u}
}

func (u *unitOfWork) SpinResultRepository() service.SpinResultRepository {
	return &spinResultRepository{uow: u}
}

func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	return &transactionRepository{uow: u}
}

func (u *unitOfWork) BalanceMutationRepository() service.BalanceMutationRepository {
	return &balanceMutationRepository{uow: u}
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
