package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"finengine/config"
	"finengine/events"
	"finengine/models"
	"finengine/repository/testutil"
	"finengine/service"
	"finengine/statemachine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTx runs fn inside a committed unit of work
func inTx(t *testing.T, factory service.UnitOfWorkFactory, fn func(uow service.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	fn(uow)
	require.NoError(t, uow.Commit())
}

func seedUser(t *testing.T, factory service.UnitOfWorkFactory, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()
	user := testutil.CreateTestUser()
	inTx(t, factory, func(uow service.UnitOfWork) {
		require.NoError(t, uow.UserRepository().Create(ctx, user))
		require.NoError(t, uow.UserRepository().UpdateBalance(ctx, user.ID, balance))
	})
	user.Balance = balance
	return user
}

func TestUserRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	t.Run("missing user returns nil", func(t *testing.T) {
		user, err := NewUserRepository(testDB.DB).GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create starts at zero balance", func(t *testing.T) {
		user := testutil.CreateTestUser()
		inTx(t, factory, func(uow service.UnitOfWork) {
			require.NoError(t, uow.UserRepository().Create(ctx, user))
		})

		stored, err := NewUserRepository(testDB.DB).GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, int64(0), stored.Balance)
		assert.Equal(t, models.UserStatusActive, stored.Status)
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("duplicate username", func(t *testing.T) {
		user := testutil.CreateTestUser()
		inTx(t, factory, func(uow service.UnitOfWork) {
			require.NoError(t, uow.UserRepository().Create(ctx, user))
		})

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		err := uow.UserRepository().Create(ctx, &models.User{Username: user.Username})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("negative balance rejected", func(t *testing.T) {
		user := seedUser(t, factory, 100)

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		err := uow.UserRepository().UpdateBalance(ctx, user.ID, -1)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	})
}

func TestWithdrawalRepository_VersionedUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	user := seedUser(t, factory, 1000000)
	w := testutil.CreateTestWithdrawal(user.ID, 50000)
	inTx(t, factory, func(uow service.UnitOfWork) {
		require.NoError(t, uow.WithdrawalRepository().Create(ctx, w))
	})
	assert.Equal(t, int64(1), w.Version)
	assert.Equal(t, int64(49950), w.FinalAmount)

	t.Run("stale version", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		stale := *w
		stale.Status = models.WithdrawalStatusApproved
		err := uow.WithdrawalRepository().Update(ctx, &stale, w.Version+1)
		assert.ErrorIs(t, err, models.ErrConcurrentModification)
	})

	t.Run("missing row", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		ghost := *w
		ghost.ID = 999999
		err := uow.WithdrawalRepository().Update(ctx, &ghost, 1)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("rejection needs a reason", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		rejected := *w
		rejected.Status = models.WithdrawalStatusRejected
		err := uow.WithdrawalRepository().Update(ctx, &rejected, w.Version)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("matching version bumps", func(t *testing.T) {
		approved := *w
		approved.Status = models.WithdrawalStatusApproved
		now := time.Now().UTC()
		approved.ApprovedAt = &now
		inTx(t, factory, func(uow service.UnitOfWork) {
			require.NoError(t, uow.WithdrawalRepository().Update(ctx, &approved, w.Version))
		})
		assert.Equal(t, int64(2), approved.Version)

		got, err := newWithdrawalRepositoryWithTx(testDB.DB.Pool).GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusApproved, got.Status)
		require.NotNil(t, got.ApprovedAt)
	})

	t.Run("list filters by status", func(t *testing.T) {
		pending := models.WithdrawalStatusPending
		approved := models.WithdrawalStatusApproved

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		list, err := uow.WithdrawalRepository().List(ctx, &pending, 10)
		require.NoError(t, err)
		assert.Empty(t, list)

		list, err = uow.WithdrawalRepository().List(ctx, &approved, 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = uow.WithdrawalRepository().List(ctx, nil, 0)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestTransactionRepository_AppendOnly(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	user := seedUser(t, factory, 0)
	tx := testutil.CreateTestTransaction("TRX-TEST-1", user.ID, models.EntityTypeWithdrawal, 42)
	inTx(t, factory, func(uow service.UnitOfWork) {
		require.NoError(t, uow.TransactionRepository().Create(ctx, tx))
	})

	_, err := testDB.DB.Exec(ctx, `UPDATE transactions SET amount = 1 WHERE id = $1`, tx.ID)
	assert.Error(t, err)

	_, err = testDB.DB.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, tx.ID)
	assert.Error(t, err)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	got, err := uow.TransactionRepository().GetByReference(ctx, "TRX-TEST-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1000), got.Amount)

	trail, err := uow.TransactionRepository().GetByRelatedEntity(ctx, models.EntityTypeWithdrawal, 42)
	require.NoError(t, err)
	assert.Len(t, trail, 1)

	err = uow.TransactionRepository().Create(ctx, testutil.CreateTestTransaction("TRX-TEST-1", user.ID, models.EntityTypeWithdrawal, 43))
	assert.Error(t, err, "reference is unique")
}

func TestSpinPrizeRepository_SaveChances(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	var prizes []*models.SpinPrize
	inTx(t, factory, func(uow service.UnitOfWork) {
		repo := uow.SpinPrizeRepository()
		require.NoError(t, repo.LockPrizeSet(ctx))
		for i, w := range []int64{1, 3} {
			p := testutil.CreateTestSpinPrize("p", int64(100*(i+1)), w)
			require.NoError(t, repo.Upsert(ctx, p))
			prizes = append(prizes, p)
		}
		prizes[0].ChancePercentage = 25
		prizes[1].ChancePercentage = 75
		require.NoError(t, repo.SaveChances(ctx, prizes))
	})

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	all, err := uow.SpinPrizeRepository().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 25.0, all[0].ChancePercentage)
	assert.Equal(t, 75.0, all[1].ChancePercentage)

	assert.ErrorIs(t, uow.SpinPrizeRepository().Delete(ctx, 999999), models.ErrNotFound)
}

func TestBalanceMutationRepository_UniqueKey(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	user := seedUser(t, factory, 0)
	inTx(t, factory, func(uow service.UnitOfWork) {
		require.NoError(t, uow.BalanceMutationRepository().Record(ctx, &models.BalanceMutation{
			IdempotencyKey: "withdrawal:1:approve",
			UserID:         user.ID,
			Delta:          -100,
			BalanceBefore:  100,
			BalanceAfter:   0,
		}))
	})

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	got, err := uow.BalanceMutationRepository().GetByKey(ctx, "withdrawal:1:approve")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(-100), got.Delta)

	err = uow.BalanceMutationRepository().Record(ctx, &models.BalanceMutation{
		IdempotencyKey: "withdrawal:1:approve",
		UserID:         user.ID,
		BalanceBefore:  0,
		BalanceAfter:   0,
	})
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestUnitOfWork_RollbackDiscardsEvents(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeUserCreated, func(ctx context.Context, e events.Event) {
		received <- e
	})
	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	user := testutil.CreateTestUser()
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	uow.EventBus().Publish(events.UserCreatedEvent{UserID: user.ID, Username: user.Username})
	require.NoError(t, uow.Rollback())

	stored, err := NewUserRepository(testDB.DB).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	select {
	case <-received:
		t.Fatal("event published for rolled back work")
	case <-time.After(100 * time.Millisecond):
	}

	assert.NoError(t, uow.Rollback(), "second rollback is a no-op")
}

func TestApprovalWorkflow_ConcurrentApprovalsOnPostgres(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	config.SetTestConfig(config.NewTestConfig())
	defer config.ResetConfig()

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	guard := service.NewBalanceGuard(nil)
	workflow := service.NewApprovalWorkflow(factory, statemachine.NewEngine(nil), guard, nil)
	users := service.NewUserService(factory, guard)
	withdrawals := service.NewWithdrawalService(factory)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "concurrent-alice", 3000000)
	require.NoError(t, err)
	w, err := withdrawals.CreateWithdrawal(ctx, user.ID, 2500000, "BANK-001")
	require.NoError(t, err)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = workflow.ApproveWithdrawal(ctx, "admin", w.ID, w.Version)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)

	stored, err := users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), stored.Balance)

	var auditCount int
	require.NoError(t, testDB.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE related_entity_type = 'withdrawal' AND related_entity_id = $1`, w.ID,
	).Scan(&auditCount))
	assert.Equal(t, 1, auditCount)
}
