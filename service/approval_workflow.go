package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finengine/events"
	"finengine/models"
	"finengine/prize"
	"finengine/statemachine"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// approvalWorkflow implements the ApprovalWorkflow interface
type approvalWorkflow struct {
	uowFactory UnitOfWorkFactory
	engine     *statemachine.Engine
	guard      *BalanceGuard
	metrics    MetricsRecorder
	now        func() time.Time
}

// NewApprovalWorkflow creates the admin action workflow. metrics may be nil.
func NewApprovalWorkflow(uowFactory UnitOfWorkFactory, engine *statemachine.Engine, guard *BalanceGuard, metrics MetricsRecorder) ApprovalWorkflow {
	return &approvalWorkflow{
		uowFactory: uowFactory,
		engine:     engine,
		guard:      guard,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewTransactionReference returns a globally unique audit reference
func NewTransactionReference() string {
	return "TRX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Execute runs one admin action as a single unit of work
func (w *approvalWorkflow) Execute(ctx context.Context, req ActionRequest) (*Outcome, error) {
	req.ActorID = strings.TrimSpace(req.ActorID)
	req.Reason = strings.TrimSpace(req.Reason)

	outcome, err := w.execute(ctx, req)
	w.recordOutcome(req, err)

	fields := log.Fields{
		"actorID":    req.ActorID,
		"entityType": req.EntityType,
		"entityID":   req.EntityID,
		"action":     req.Action,
	}
	switch {
	case err == nil:
		fields["reference"] = outcome.Transaction.Reference
		log.WithFields(fields).Info("Admin action executed")
	case errors.Is(err, models.ErrAlreadyProcessed):
		log.WithFields(fields).Info("Admin action already processed")
	default:
		log.WithFields(fields).WithError(err).Warn("Admin action failed")
	}
	return outcome, err
}

func (w *approvalWorkflow) execute(ctx context.Context, req ActionRequest) (*Outcome, error) {
	if req.ActorID == "" {
		return nil, fmt.Errorf("%w: actor is required", models.ErrValidation)
	}
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", models.ErrValidation, req.Action)
	}
	if req.Action.RequiresReason() && req.Reason == "" {
		return nil, fmt.Errorf("%w: %s requires a reason", models.ErrValidation, req.Action)
	}
	if req.EntityID <= 0 {
		return nil, fmt.Errorf("%w: invalid entity id %d", models.ErrValidation, req.EntityID)
	}

	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var (
		outcome *Outcome
		change  events.EntityStateChangedEvent
		err     error
	)
	switch req.EntityType {
	case models.EntityTypeInvestment:
		outcome, change, err = w.executeInvestment(ctx, uow, req)
	case models.EntityTypeWithdrawal:
		outcome, change, err = w.executeWithdrawal(ctx, uow, req)
	case models.EntityTypeSpinResult:
		outcome, change, err = w.executeSpinResult(ctx, uow, req)
	default:
		return nil, fmt.Errorf("%w: unsupported entity type %q", models.ErrValidation, req.EntityType)
	}
	if err != nil {
		return nil, err
	}

	if err := uow.TransactionRepository().Create(ctx, outcome.Transaction); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	change.Reference = outcome.Transaction.Reference
	uow.EventBus().Publish(change)

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

func (w *approvalWorkflow) executeInvestment(ctx context.Context, uow UnitOfWork, req ActionRequest) (*Outcome, events.EntityStateChangedEvent, error) {
	repo := uow.InvestmentRepository()
	inv, err := repo.GetByIDForUpdate(ctx, req.EntityID)
	if err != nil {
		return nil, events.EntityStateChangedEvent{}, fmt.Errorf("failed to load investment: %w", err)
	}

	var subject *statemachine.Subject
	if inv != nil {
		subject = &statemachine.Subject{
			Type:           models.EntityTypeInvestment,
			ID:             inv.ID,
			Status:         string(inv.Status),
			Version:        inv.Version,
			DurationMonths: inv.DurationMonths,
		}
	}
	result, err := w.engine.Transition(subject, req.Version, req.Action)
	if err != nil {
		return nil, events.EntityStateChangedEvent{}, err
	}

	inv.Status = models.InvestmentStatus(result.To)
	switch req.Action {
	case statemachine.ActionApprove:
		inv.StartDate = result.StartDate
		inv.EndDate = result.EndDate
		inv.CurrentValue = inv.Amount
		inv.ReasonText = nil
	case statemachine.ActionReactivate:
		inv.ReasonText = nil
	default:
		reason := req.Reason
		inv.ReasonText = &reason
	}

	if err := repo.Update(ctx, inv, req.Version); err != nil {
		return nil, events.EntityStateChangedEvent{}, fmt.Errorf("failed to update investment: %w", err)
	}

	txn := w.newTransaction(req, inv.UserID, models.TransactionTypeInvestment, models.TransactionFlowNone, inv.Amount, 0, nil)
	return &Outcome{Transaction: txn, Investment: inv}, w.changeEvent(req, inv.UserID, result), nil
}

func (w *approvalWorkflow) executeWithdrawal(ctx context.Context, uow UnitOfWork, req ActionRequest) (*Outcome, events.EntityStateChangedEvent, error) {
	repo := uow.WithdrawalRepository()
	wd, err := repo.GetByIDForUpdate(ctx, req.EntityID)
	if err != nil {
		return nil, events.EntityStateChangedEvent{}, fmt.Errorf("failed to load withdrawal: %w", err)
	}

	var subject *statemachine.Subject
	if wd != nil {
		subject = &statemachine.Subject{
			Type:    models.EntityTypeWithdrawal,
			ID:      wd.ID,
			Status:  string(wd.Status),
			Version: wd.Version,
		}
	}
	result, err := w.engine.Transition(subject, req.Version, req.Action)
	if err != nil {
		return nil, events.EntityStateChangedEvent{}, err
	}

	now := w.now()
	flow := models.TransactionFlowNone
	var balanceAfter *int64

	switch req.Action {
	case statemachine.ActionApprove:
		key := IdempotencyKey(models.EntityTypeWithdrawal, wd.ID, string(req.Action))
		res, err := w.guard.ApplyDelta(ctx, uow, wd.UserID, -wd.Amount, key)
		if err != nil {
			return nil, events.EntityStateChangedEvent{}, err
		}
		flow = models.TransactionFlowDebit
		balanceAfter = &res.BalanceAfter
		wd.ApprovedAt = &now
	case statemachine.ActionReject:
		reason := req.Reason
		wd.RejectionReason = &reason
		wd.RejectedAt = &now
	}

	actor := req.ActorID
	wd.Status = models.WithdrawalStatus(result.To)
	wd.ProcessedBy = &actor

	if err := repo.Update(ctx, wd, req.Version); err != nil {
		return nil, events.EntityStateChangedEvent{}, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	txn := w.newTransaction(req, wd.UserID, models.TransactionTypeWithdrawal, flow, wd.Amount, wd.Charge, balanceAfter)
	return &Outcome{Transaction: txn, Withdrawal: wd}, w.changeEvent(req, wd.UserID, result), nil
}

func (w *approvalWorkflow) executeSpinResult(ctx context.Context, uow UnitOfWork, req ActionRequest) (*Outcome, events.EntityStateChangedEvent, error) {
	repo := uow.SpinResultRepository()
	sr, err := repo.GetByIDForUpdate(ctx, req.EntityID)
	if err != nil {
		return nil, events.EntityStateChangedEvent{}, fmt.Errorf("failed to load spin result: %w", err)
	}

	var subject *statemachine.Subject
	if sr != nil {
		subject = &statemachine.Subject{
			Type:    models.EntityTypeSpinResult,
			ID:      sr.ID,
			Status:  string(sr.Status),
			Version: sr.Version,
		}
	}
	result, err := w.engine.Transition(subject, req.Version, req.Action)
	if err != nil {
		return nil, events.EntityStateChangedEvent{}, err
	}

	now := w.now()
	flow := models.TransactionFlowNone
	var amount int64
	var balanceAfter *int64

	switch req.Action {
	case statemachine.ActionClaim:
		amount = prize.CreditFor(sr.PrizeType, sr.PrizeAmount)
		key := IdempotencyKey(models.EntityTypeSpinResult, sr.ID, string(req.Action))
		res, err := w.guard.ApplyDelta(ctx, uow, sr.UserID, amount, key)
		if err != nil {
			return nil, events.EntityStateChangedEvent{}, err
		}
		if amount > 0 {
			flow = models.TransactionFlowCredit
		}
		balanceAfter = &res.BalanceAfter
		sr.ClaimedDate = &now
	case statemachine.ActionCancel:
		reason := req.Reason
		sr.CancelReason = &reason
		sr.CancelledDate = &now
	}

	sr.Status = models.SpinResultStatus(result.To)
	if err := repo.Update(ctx, sr, req.Version); err != nil {
		return nil, events.EntityStateChangedEvent{}, fmt.Errorf("failed to update spin result: %w", err)
	}

	txn := w.newTransaction(req, sr.UserID, models.TransactionTypeSpinPrize, flow, amount, 0, balanceAfter)
	return &Outcome{Transaction: txn, SpinResult: sr}, w.changeEvent(req, sr.UserID, result), nil
}

func (w *approvalWorkflow) newTransaction(req ActionRequest, userID int64, txType models.TransactionType, flow models.TransactionFlow, amount, charge int64, balanceAfter *int64) *models.Transaction {
	txn := &models.Transaction{
		Reference:         NewTransactionReference(),
		UserID:            userID,
		Type:              txType,
		Flow:              flow,
		Amount:            amount,
		Charge:            charge,
		Status:            models.TransactionStatusSuccess,
		RelatedEntityType: req.EntityType,
		RelatedEntityID:   req.EntityID,
		Action:            string(req.Action),
		ActorID:           req.ActorID,
		BalanceAfter:      balanceAfter,
	}
	if req.Reason != "" {
		reason := req.Reason
		txn.Message = &reason
	}
	return txn
}

func (w *approvalWorkflow) changeEvent(req ActionRequest, userID int64, result *statemachine.Result) events.EntityStateChangedEvent {
	return events.EntityStateChangedEvent{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		UserID:     userID,
		Action:     string(req.Action),
		OldStatus:  result.From,
		NewStatus:  result.To,
		ActorID:    req.ActorID,
	}
}

func (w *approvalWorkflow) recordOutcome(req ActionRequest, err error) {
	if w.metrics == nil {
		return
	}
	w.metrics.RecordWorkflowAction(string(req.EntityType), string(req.Action), ErrorKind(err))
}

func (w *approvalWorkflow) ApproveInvestment(ctx context.Context, actorID string, id, version int64) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeInvestment, EntityID: id, Version: version, Action: statemachine.ActionApprove})
}

func (w *approvalWorkflow) RejectInvestment(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeInvestment, EntityID: id, Version: version, Action: statemachine.ActionReject, Reason: reason})
}

func (w *approvalWorkflow) SuspendInvestment(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeInvestment, EntityID: id, Version: version, Action: statemachine.ActionSuspend, Reason: reason})
}

func (w *approvalWorkflow) CancelInvestment(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeInvestment, EntityID: id, Version: version, Action: statemachine.ActionCancel, Reason: reason})
}

func (w *approvalWorkflow) ReactivateInvestment(ctx context.Context, actorID string, id, version int64) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeInvestment, EntityID: id, Version: version, Action: statemachine.ActionReactivate})
}

func (w *approvalWorkflow) ApproveWithdrawal(ctx context.Context, actorID string, id, version int64) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeWithdrawal, EntityID: id, Version: version, Action: statemachine.ActionApprove})
}

func (w *approvalWorkflow) RejectWithdrawal(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeWithdrawal, EntityID: id, Version: version, Action: statemachine.ActionReject, Reason: reason})
}

func (w *approvalWorkflow) ClaimSpin(ctx context.Context, actorID string, id, version int64) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeSpinResult, EntityID: id, Version: version, Action: statemachine.ActionClaim})
}

func (w *approvalWorkflow) CancelSpin(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error) {
	return w.Execute(ctx, ActionRequest{ActorID: actorID, EntityType: models.EntityTypeSpinResult, EntityID: id, Version: version, Action: statemachine.ActionCancel, Reason: reason})
}
