package testutil

import (
	"fmt"
	"sync/atomic"

	"finengine/models"
)

var usernameSeq atomic.Int64

// CreateTestUser builds an unsaved user with a unique username
func CreateTestUser() *models.User {
	return &models.User{
		Username: fmt.Sprintf("user-%d", usernameSeq.Add(1)),
		Status:   models.UserStatusActive,
	}
}

// CreateTestProduct builds an unsaved active product
func CreateTestProduct() *models.Product {
	return &models.Product{
		Name:      "Fixed 12M",
		MinAmount: 100000,
		MaxAmount: 10000000,
		ReturnPct: 12,
		Status:    models.ProductStatusActive,
	}
}

// CreateTestInvestment builds an unsaved pending investment
func CreateTestInvestment(userID, productID, amount int64) *models.Investment {
	return &models.Investment{
		UserID:            userID,
		ProductID:         productID,
		Amount:            amount,
		DurationMonths:    12,
		ExpectedReturnPct: 12,
		Status:            models.InvestmentStatusPending,
		CurrentValue:      amount,
	}
}

// CreateTestWithdrawal builds an unsaved pending withdrawal with a 0.1% charge
func CreateTestWithdrawal(userID, amount int64) *models.Withdrawal {
	return models.NewWithdrawal(userID, amount, amount/1000, "BANK-TEST-001")
}

// CreateTestSpinPrize builds an unsaved active cash prize
func CreateTestSpinPrize(name string, amount, weight int64) *models.SpinPrize {
	return &models.SpinPrize{
		Name:         name,
		Amount:       amount,
		Type:         models.PrizeTypeCash,
		ChanceWeight: weight,
		Status:       models.PrizeStatusActive,
	}
}

// CreateTestTransaction builds an unsaved audit record for an entity
func CreateTestTransaction(reference string, userID int64, entityType models.EntityType, entityID int64) *models.Transaction {
	return &models.Transaction{
		Reference:         reference,
		UserID:            userID,
		Type:              models.TransactionTypeWithdrawal,
		Flow:              models.TransactionFlowDebit,
		Amount:            1000,
		Status:            models.TransactionStatusSuccess,
		RelatedEntityType: entityType,
		RelatedEntityID:   entityID,
		Action:            "approve",
		ActorID:           "admin-test",
	}
}
