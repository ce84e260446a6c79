package service

import (
	"testing"
	"time"

	"finengine/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeCharge(t *testing.T) {
	rate := decimal.RequireFromString("0.001")

	assert.Equal(t, int64(2500), ComputeCharge(2500000, rate))
	assert.Equal(t, int64(10), ComputeCharge(10000, rate))
	assert.Equal(t, int64(1), ComputeCharge(1499, rate))
	assert.Equal(t, int64(2), ComputeCharge(1500, rate))
	assert.Equal(t, int64(0), ComputeCharge(2500000, decimal.Zero))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	start, end := DayBounds(time.Date(2023, 10, 16, 3, 0, 0, 0, loc))

	assert.Equal(t, time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 10, 16, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, end, GetNextResetTime(time.Date(2023, 10, 15, 23, 59, 0, 0, time.UTC)))
}

func TestSummarize(t *testing.T) {
	day := time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC)
	withdrawals := []*models.Withdrawal{
		{Amount: 2500000, Charge: 2500, Status: models.WithdrawalStatusPending},
		{Amount: 10000, Charge: 10, Status: models.WithdrawalStatusApproved},
		{Amount: 20000, Charge: 20, Status: models.WithdrawalStatusApproved},
	}
	transactions := []*models.Transaction{
		{Type: models.TransactionTypeWithdrawal, Amount: 10000},
		{Type: models.TransactionTypeSpinPrize, Amount: 500},
		{Type: models.TransactionTypeSpinPrize, Amount: 700},
	}

	summary := Summarize(day, withdrawals, transactions)

	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, int64(2530000), summary.TotalAmount)
	assert.Equal(t, int64(2530), summary.TotalCharges)
	assert.Equal(t, 2, summary.CountByStatus[models.WithdrawalStatusApproved])
	assert.Equal(t, 1, summary.CountByStatus[models.WithdrawalStatusPending])
	assert.Equal(t, 3, summary.Transactions.Count)
	assert.Equal(t, int64(1200), summary.Transactions.TotalByType[models.TransactionTypeSpinPrize])
	assert.Equal(t, 2, summary.Transactions.CountByType[models.TransactionTypeSpinPrize])
}

func TestSummarize_EmptyDay(t *testing.T) {
	summary := Summarize(time.Now(), nil, nil)

	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, int64(0), summary.TotalAmount)
	assert.NotNil(t, summary.CountByStatus)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "success", ErrorKind(nil))
	assert.Equal(t, "insufficient_balance", ErrorKind(models.ErrInsufficientBalance))
	assert.Equal(t, "internal", ErrorKind(assert.AnError))
}
