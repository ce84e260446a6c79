package service

import (
	"context"
	"fmt"
	"time"

	"finengine/models"
)

// reportService implements the ReportService interface
type reportService struct {
	uowFactory UnitOfWorkFactory
}

// NewReportService creates a new report service
func NewReportService(uowFactory UnitOfWorkFactory) ReportService {
	return &reportService{uowFactory: uowFactory}
}

// DailyReport aggregates withdrawals created and transactions recorded on the
// UTC calendar day of date. It never writes.
func (s *reportService) DailyReport(ctx context.Context, date time.Time) (*models.ReportSummary, error) {
	from, to := DayBounds(date)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawals, err := uow.WithdrawalRepository().GetByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawals: %w", err)
	}
	transactions, err := uow.TransactionRepository().GetByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	return Summarize(from, withdrawals, transactions), nil
}

// Summarize folds a day of records into a report
func Summarize(day time.Time, withdrawals []*models.Withdrawal, transactions []*models.Transaction) *models.ReportSummary {
	summary := &models.ReportSummary{
		Date:          day,
		CountByStatus: make(map[models.WithdrawalStatus]int),
		Transactions: models.TransactionSummary{
			TotalByType: make(map[models.TransactionType]int64),
			CountByType: make(map[models.TransactionType]int),
		},
	}

	for _, w := range withdrawals {
		summary.Count++
		summary.TotalAmount += w.Amount
		summary.TotalCharges += w.Charge
		summary.CountByStatus[w.Status]++
	}

	for _, t := range transactions {
		summary.Transactions.Count++
		summary.Transactions.TotalByType[t.Type] += t.Amount
		summary.Transactions.CountByType[t.Type]++
	}
	return summary
}
