package memory

import (
	"context"
	"testing"
	"time"

	"finengine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitPublishesData(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	user := &models.User{Username: "alice"}
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	require.NoError(t, uow.UserRepository().UpdateBalance(ctx, user.ID, 500))
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback(), "rollback after commit is a no-op")

	reader := factory.Create()
	require.NoError(t, reader.Begin(ctx))
	defer reader.Rollback()

	got, err := reader.UserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(500), got.Balance)
	assert.Equal(t, int64(2), got.Version)
}

func TestUnitOfWork_RollbackDiscardsData(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	user := &models.User{Username: "bob"}
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	require.NoError(t, uow.Rollback())

	reader := factory.Create()
	require.NoError(t, reader.Begin(ctx))
	defer reader.Rollback()

	got, err := reader.UserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnitOfWork_ReturnedEntitiesAreCopies(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	w := models.NewWithdrawal(1, 10000, 10, "acct")
	require.NoError(t, uow.WithdrawalRepository().Create(ctx, w))

	loaded, err := uow.WithdrawalRepository().GetByID(ctx, w.ID)
	require.NoError(t, err)
	loaded.Status = models.WithdrawalStatusApproved

	again, err := uow.WithdrawalRepository().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, again.Status)
}

func TestWithdrawalRepository_VersionCheck(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	repo := uow.WithdrawalRepository()
	w := models.NewWithdrawal(1, 10000, 10, "acct")
	require.NoError(t, repo.Create(ctx, w))
	assert.Equal(t, int64(1), w.Version)

	w.Status = models.WithdrawalStatusApproved
	require.NoError(t, repo.Update(ctx, w, 1))
	assert.Equal(t, int64(2), w.Version)

	err := repo.Update(ctx, w, 1)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestWithdrawalRepository_RejectsInconsistentFinalAmount(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	w := &models.Withdrawal{UserID: 1, Amount: 100, Charge: 10, FinalAmount: 100, Status: models.WithdrawalStatusPending}
	assert.ErrorIs(t, uow.WithdrawalRepository().Create(ctx, w), models.ErrValidation)
}

func TestTransactionRepository_UniqueReference(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	repo := uow.TransactionRepository()
	require.NoError(t, repo.Create(ctx, &models.Transaction{Reference: "TRX-1", Type: models.TransactionTypeWithdrawal}))
	assert.Error(t, repo.Create(ctx, &models.Transaction{Reference: "TRX-1", Type: models.TransactionTypeWithdrawal}))

	got, err := repo.GetByReference(ctx, "TRX-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.TransactionTypeWithdrawal, got.Type)
}

func TestSpinPrizeRepository_DeleteUnknown(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	assert.ErrorIs(t, uow.SpinPrizeRepository().Delete(ctx, 99), models.ErrNotFound)
}

func TestUnitOfWork_RepositoryBeforeBeginPanics(t *testing.T) {
	uow := NewUnitOfWorkFactory(NewStore(), nil).Create()

	assert.Panics(t, func() {
		_, _ = uow.UserRepository().GetByID(context.Background(), 1)
	})
}

func TestUnitOfWork_BeginStopsWaitingOnCancel(t *testing.T) {
	factory := NewUnitOfWorkFactory(NewStore(), nil)

	holder := factory.Create()
	require.NoError(t, holder.Begin(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	waiter := factory.Create()
	err := waiter.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, waiter.Rollback(), "rollback of an unstarted unit of work is a no-op")

	require.NoError(t, holder.Rollback())

	next := factory.Create()
	require.NoError(t, next.Begin(context.Background()))
	require.NoError(t, next.Rollback())
}
