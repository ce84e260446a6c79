package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finengine/config"
	"finengine/events"
	"finengine/models"
	"finengine/prize"
	"finengine/repository/memory"
	"finengine/service"
	"finengine/statemachine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	factory     service.UnitOfWorkFactory
	users       service.UserService
	products    service.ProductService
	investments service.InvestmentService
	withdrawals service.WithdrawalService
	spins       service.SpinService
	workflow    service.ApprovalWorkflow
	reports     service.ReportService
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), events.NewBus())
	guard := service.NewBalanceGuard(nil)
	return &engineFixture{
		factory:     factory,
		users:       service.NewUserService(factory, guard),
		products:    service.NewProductService(factory),
		investments: service.NewInvestmentService(factory),
		withdrawals: service.NewWithdrawalService(factory),
		spins:       service.NewSpinService(factory, prize.NewSelector(prize.NewSeededSource(7)), nil),
		workflow:    service.NewApprovalWorkflow(factory, statemachine.NewEngine(nil), guard, nil),
		reports:     service.NewReportService(factory),
	}
}

func (f *engineFixture) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	user, err := f.users.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Balance
}

func (f *engineFixture) auditTrail(t *testing.T, entityType models.EntityType, id int64) []*models.Transaction {
	t.Helper()
	ctx := context.Background()
	uow := f.factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	txs, err := uow.TransactionRepository().GetByRelatedEntity(ctx, entityType, id)
	require.NoError(t, err)
	return txs
}

func TestWithdrawal_CreateComputesCharge(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 5000000)
	require.NoError(t, err)

	w, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 2500000, "BANK-001")
	require.NoError(t, err)

	assert.Equal(t, int64(2500), w.Charge)
	assert.Equal(t, int64(2497500), w.FinalAmount)
	assert.Equal(t, models.WithdrawalStatusPending, w.Status)
	assert.Equal(t, int64(5000000), f.balance(t, user.ID), "creation does not debit")
}

func TestWithdrawal_CreateValidation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 0)
	require.NoError(t, err)

	_, err = f.withdrawals.CreateWithdrawal(ctx, user.ID, 9999, "BANK-001")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.withdrawals.CreateWithdrawal(ctx, user.ID, 20000, " ")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.withdrawals.CreateWithdrawal(ctx, 9999, 20000, "BANK-001")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWithdrawal_DoubleApprovalDebitsOnce(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 3000000)
	require.NoError(t, err)
	w, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 2500000, "BANK-001")
	require.NoError(t, err)

	outcome, err := f.workflow.ApproveWithdrawal(ctx, "admin-1", w.ID, w.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2500000), outcome.Transaction.Amount)
	assert.Equal(t, models.TransactionFlowDebit, outcome.Transaction.Flow)

	_, err = f.workflow.ApproveWithdrawal(ctx, "admin-2", w.ID, w.Version)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)

	assert.Equal(t, int64(500000), f.balance(t, user.ID))

	trail := f.auditTrail(t, models.EntityTypeWithdrawal, w.ID)
	require.Len(t, trail, 1)
	assert.Equal(t, "approve", trail[0].Action)
	assert.Equal(t, w.Amount, trail[0].Amount)
}

func TestWithdrawal_ConcurrentApprovalsHaveOneWinner(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 1000000)
	require.NoError(t, err)
	w, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 100000, "BANK-001")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.workflow.ApproveWithdrawal(ctx, "admin", w.ID, w.Version)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, int64(900000), f.balance(t, user.ID))
	assert.Len(t, f.auditTrail(t, models.EntityTypeWithdrawal, w.ID), 1)
}

func TestWithdrawal_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 50000)
	require.NoError(t, err)
	w, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 60000, "BANK-001")
	require.NoError(t, err)

	_, err = f.workflow.ApproveWithdrawal(ctx, "admin-1", w.ID, w.Version)
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	stored, err := f.withdrawals.GetWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, stored.Status)
	assert.Equal(t, w.Version, stored.Version)
	assert.Equal(t, int64(50000), f.balance(t, user.ID))
	assert.Empty(t, f.auditTrail(t, models.EntityTypeWithdrawal, w.ID))
}

func TestWithdrawal_RejectRecordsReason(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 50000)
	require.NoError(t, err)
	w, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 20000, "BANK-001")
	require.NoError(t, err)

	outcome, err := f.workflow.RejectWithdrawal(ctx, "admin-1", w.ID, w.Version, "account mismatch")
	require.NoError(t, err)

	require.NotNil(t, outcome.Withdrawal.RejectionReason)
	assert.Equal(t, "account mismatch", *outcome.Withdrawal.RejectionReason)
	assert.NotNil(t, outcome.Withdrawal.RejectedAt)
	assert.Equal(t, models.TransactionFlowNone, outcome.Transaction.Flow)
	assert.Equal(t, int64(50000), f.balance(t, user.ID))

	_, err = f.workflow.ApproveWithdrawal(ctx, "admin-1", w.ID, outcome.Withdrawal.Version)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestWithdrawal_StaleVersion(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 50000)
	require.NoError(t, err)
	w, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 20000, "BANK-001")
	require.NoError(t, err)

	_, err = f.workflow.ApproveWithdrawal(ctx, "admin-1", w.ID, w.Version+1)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestInvestment_Lifecycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 1000)
	require.NoError(t, err)
	product, err := f.products.UpsertProduct(ctx, &models.Product{Name: "Gold 12M", MinAmount: 100000, MaxAmount: 10000000, ReturnPct: 12})
	require.NoError(t, err)

	_, err = f.investments.CreateInvestment(ctx, user.ID, product.ID, 50000, 12)
	assert.ErrorIs(t, err, models.ErrValidation, "below product minimum")

	inv, err := f.investments.CreateInvestment(ctx, user.ID, product.ID, 500000, 12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, inv.ExpectedReturnPct)
	assert.Equal(t, models.InvestmentStatusPending, inv.Status)

	outcome, err := f.workflow.ApproveInvestment(ctx, "admin-1", inv.ID, inv.Version)
	require.NoError(t, err)
	inv = outcome.Investment
	require.NotNil(t, inv.StartDate)
	assert.Equal(t, statemachine.AddMonths(*inv.StartDate, 12), *inv.EndDate)
	assert.Equal(t, int64(1000), f.balance(t, user.ID), "investment actions move no money")

	outcome, err = f.workflow.SuspendInvestment(ctx, "admin-1", inv.ID, inv.Version, "kyc review")
	require.NoError(t, err)
	inv = outcome.Investment
	require.NotNil(t, inv.ReasonText)
	assert.Equal(t, "kyc review", *inv.ReasonText)

	outcome, err = f.workflow.ReactivateInvestment(ctx, "admin-1", inv.ID, inv.Version)
	require.NoError(t, err)
	inv = outcome.Investment
	assert.Equal(t, models.InvestmentStatusActive, inv.Status)
	assert.Nil(t, inv.ReasonText)

	outcome, err = f.workflow.CancelInvestment(ctx, "admin-1", inv.ID, inv.Version, "client request")
	require.NoError(t, err)
	assert.Equal(t, models.InvestmentStatusCancelled, outcome.Investment.Status)

	assert.Len(t, f.auditTrail(t, models.EntityTypeInvestment, inv.ID), 4)
}

func TestInvestment_CompletedRejectsApprove(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	uow := f.factory.Create()
	require.NoError(t, uow.Begin(ctx))
	inv := &models.Investment{UserID: 1, ProductID: 1, Amount: 1000, DurationMonths: 6, Status: models.InvestmentStatusCompleted}
	require.NoError(t, uow.InvestmentRepository().Create(ctx, inv))
	require.NoError(t, uow.Commit())

	_, err := f.workflow.ApproveInvestment(ctx, "admin-1", inv.ID, inv.Version)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	stored, err := f.investments.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvestmentStatusCompleted, stored.Status)
	assert.Equal(t, inv.Version, stored.Version)
}

func seedPrizes(t *testing.T, f *engineFixture, weights ...int64) []*models.SpinPrize {
	t.Helper()
	var set []*models.SpinPrize
	for i, w := range weights {
		var err error
		set, err = f.spins.UpsertPrize(context.Background(), &models.SpinPrize{
			Name:         "prize",
			Amount:       int64(1000 * (i + 1)),
			Type:         models.PrizeTypeCash,
			ChanceWeight: w,
		})
		require.NoError(t, err)
	}
	return set
}

func TestPrizes_UpsertRecalculatesSet(t *testing.T) {
	f := newEngineFixture(t)

	set := seedPrizes(t, f, 1, 3, 15, 50, 80, 51)

	want := []float64{0.5, 1.5, 7.5, 25, 40, 25.5}
	require.Len(t, set, len(want))
	for i, p := range set {
		assert.InDelta(t, want[i], p.ChancePercentage, 1e-9)
	}

	listed, err := f.spins.ListPrizes(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 40.0, listed[4].ChancePercentage, 1e-9, "percentages are persisted")
}

func TestPrizes_CannotDisableLastActivePrize(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	set := seedPrizes(t, f, 10)

	only := *set[0]
	only.Status = models.PrizeStatusInactive
	_, err := f.spins.UpsertPrize(ctx, &only)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.spins.DeletePrize(ctx, only.ID)
	assert.ErrorIs(t, err, models.ErrValidation)

	listed, err := f.spins.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.PrizeStatusActive, listed[0].Status)
}

func TestPrizes_DeleteRenormalizes(t *testing.T) {
	f := newEngineFixture(t)

	set := seedPrizes(t, f, 25, 25, 50)
	remaining, err := f.spins.DeletePrize(context.Background(), set[2].ID)
	require.NoError(t, err)

	require.Len(t, remaining, 2)
	assert.InDelta(t, 50.0, remaining[0].ChancePercentage, 1e-9)
	assert.InDelta(t, 50.0, remaining[1].ChancePercentage, 1e-9)
}

func TestPrizes_ToggleRecalculatesWholeSet(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	set := seedPrizes(t, f, 25, 25, 50)

	disabled := *set[2]
	disabled.Status = models.PrizeStatusInactive
	set, err := f.spins.UpsertPrize(ctx, &disabled)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.InDelta(t, 50.0, set[0].ChancePercentage, 1e-9)
	assert.InDelta(t, 50.0, set[1].ChancePercentage, 1e-9)
	assert.Zero(t, set[2].ChancePercentage, "inactive prizes have no chance")

	listed, err := f.spins.ListPrizes(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, listed[0].ChancePercentage, 1e-9)
	assert.Zero(t, listed[2].ChancePercentage)

	enabled := *set[2]
	enabled.Status = models.PrizeStatusActive
	set, err = f.spins.UpsertPrize(ctx, &enabled)
	require.NoError(t, err)

	want := []float64{25, 25, 50}
	require.Len(t, set, len(want))
	for i, p := range set {
		assert.InDelta(t, want[i], p.ChancePercentage, 1e-9)
		assert.Equal(t, models.PrizeStatusActive, p.Status)
	}

	listed, err = f.spins.ListPrizes(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, listed[2].ChancePercentage, 1e-9, "re-enabled chances are persisted")
}

func TestSpin_DrawAndClaim(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 0)
	require.NoError(t, err)

	_, err = f.spins.DrawSpin(ctx, user.ID)
	assert.ErrorIs(t, err, models.ErrConflictingWeightConfiguration, "no prizes configured")

	seedPrizes(t, f, 1, 1)

	result, err := f.spins.DrawSpin(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SpinResultStatusPending, result.Status)
	assert.NotZero(t, result.PrizeAmount)

	outcome, err := f.workflow.ClaimSpin(ctx, "admin-1", result.ID, result.Version)
	require.NoError(t, err)
	assert.Equal(t, result.PrizeAmount, f.balance(t, user.ID))
	assert.Equal(t, models.SpinResultStatusClaimed, outcome.SpinResult.Status)

	_, err = f.workflow.ClaimSpin(ctx, "admin-1", result.ID, result.Version)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
	assert.Equal(t, result.PrizeAmount, f.balance(t, user.ID))
}

func TestSpin_SnapshotSurvivesPrizeEdit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 0)
	require.NoError(t, err)
	set := seedPrizes(t, f, 5)

	result, err := f.spins.DrawSpin(ctx, user.ID)
	require.NoError(t, err)

	edited := *set[0]
	edited.Amount = 999999
	_, err = f.spins.UpsertPrize(ctx, &edited)
	require.NoError(t, err)

	_, err = f.workflow.ClaimSpin(ctx, "admin-1", result.ID, result.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.balance(t, user.ID))
}

func TestSpin_DailyLimit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 0)
	require.NoError(t, err)
	seedPrizes(t, f, 1)

	for i := 0; i < config.Get().DailySpinLimit; i++ {
		_, err := f.spins.DrawSpin(ctx, user.ID)
		require.NoError(t, err)
	}
	_, err = f.spins.DrawSpin(ctx, user.ID)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSpin_CancelNeedsReason(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 0)
	require.NoError(t, err)
	seedPrizes(t, f, 1)
	result, err := f.spins.DrawSpin(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.workflow.CancelSpin(ctx, "admin-1", result.ID, result.Version, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	outcome, err := f.workflow.CancelSpin(ctx, "admin-1", result.ID, result.Version, "duplicate account")
	require.NoError(t, err)
	assert.Equal(t, models.SpinResultStatusCancelled, outcome.SpinResult.Status)
	assert.Equal(t, int64(0), f.balance(t, user.ID))
}

func TestReport_DailyAggregates(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 10000000)
	require.NoError(t, err)
	w1, err := f.withdrawals.CreateWithdrawal(ctx, user.ID, 2500000, "BANK-001")
	require.NoError(t, err)
	_, err = f.withdrawals.CreateWithdrawal(ctx, user.ID, 10000, "BANK-001")
	require.NoError(t, err)
	_, err = f.workflow.ApproveWithdrawal(ctx, "admin-1", w1.ID, w1.Version)
	require.NoError(t, err)

	report, err := f.reports.DailyReport(ctx, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count)
	assert.Equal(t, int64(2510000), report.TotalAmount)
	assert.Equal(t, int64(2510), report.TotalCharges)
	assert.Equal(t, 1, report.CountByStatus[models.WithdrawalStatusApproved])
	assert.Equal(t, 1, report.CountByStatus[models.WithdrawalStatusPending])
	assert.Equal(t, 2, report.Transactions.Count)
	assert.Equal(t, int64(10000000), report.Transactions.TotalByType[models.TransactionTypeInitial])

	empty, err := f.reports.DailyReport(ctx, time.Now().AddDate(0, 0, -3))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
}

func TestUser_CreateAuditsInitialCredit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", 700)
	require.NoError(t, err)
	assert.Equal(t, int64(700), user.Balance)

	trail := f.auditTrail(t, models.EntityTypeUser, user.ID)
	require.Len(t, trail, 1)
	assert.Equal(t, models.TransactionTypeInitial, trail[0].Type)
	assert.Equal(t, service.SystemActor, trail[0].ActorID)

	_, err = f.users.CreateUser(ctx, "", 10)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.users.GetUser(ctx, 424242)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
