package api

import (
	"time"

	"finengine/models"
	"finengine/prize"
	"finengine/service"
	"finengine/statemachine"
)

// Request bodies

type CreateUserRequest struct {
	Username       string `json:"username"`
	InitialBalance int64  `json:"initial_balance"`
}

type ProductRequest struct {
	ID        int64   `json:"id,omitempty"`
	Name      string  `json:"name"`
	MinAmount int64   `json:"min_amount"`
	MaxAmount int64   `json:"max_amount"`
	ReturnPct float64 `json:"return_pct"`
	Status    string  `json:"status,omitempty"`
}

type CreateInvestmentRequest struct {
	UserID         int64 `json:"user_id"`
	ProductID      int64 `json:"product_id"`
	Amount         int64 `json:"amount"`
	DurationMonths int   `json:"duration_months"`
}

type CreateWithdrawalRequest struct {
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
	BankAccount string `json:"bank_account"`
}

type PrizeRequest struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	Amount       int64  `json:"amount"`
	Type         string `json:"type"`
	ChanceWeight int64  `json:"chance_weight"`
	Status       string `json:"status,omitempty"`
}

type DrawSpinRequest struct {
	UserID int64 `json:"user_id"`
}

// ActionRequest is the body of every admin action route
type ActionRequest struct {
	Version int64  `json:"version"`
	Reason  string `json:"reason,omitempty"`
}

// Responses

type UserDTO struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Balance   int64     `json:"balance"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	MinAmount int64   `json:"min_amount"`
	MaxAmount int64   `json:"max_amount"`
	ReturnPct float64 `json:"return_pct"`
	Status    string  `json:"status"`
}

type InvestmentDTO struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	ProductID         int64      `json:"product_id"`
	Amount            int64      `json:"amount"`
	DurationMonths    int        `json:"duration_months"`
	ExpectedReturnPct float64    `json:"expected_return_pct"`
	Status            string     `json:"status"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	CurrentValue      int64      `json:"current_value"`
	ProjectedValue    int64      `json:"projected_value"`
	Reason            *string    `json:"reason,omitempty"`
	Version           int64      `json:"version"`
	AllowedActions    []string   `json:"allowed_actions"`
	CreatedAt         time.Time  `json:"created_at"`
}

type WithdrawalDTO struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Amount          int64      `json:"amount"`
	Charge          int64      `json:"charge"`
	FinalAmount     int64      `json:"final_amount"`
	BankAccount     string     `json:"bank_account"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ProcessedBy     *string    `json:"processed_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	Version         int64      `json:"version"`
	AllowedActions  []string   `json:"allowed_actions"`
	CreatedAt       time.Time  `json:"created_at"`
}

type PrizeDTO struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Amount           int64   `json:"amount"`
	Type             string  `json:"type"`
	ChanceWeight     int64   `json:"chance_weight"`
	ChancePercentage float64 `json:"chance_percentage"`
	ChanceDisplay    string  `json:"chance_display"`
	Status           string  `json:"status"`
}

type SpinResultDTO struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	PrizeID        int64      `json:"prize_id"`
	PrizeName      string     `json:"prize_name"`
	PrizeAmount    int64      `json:"prize_amount"`
	PrizeType      string     `json:"prize_type"`
	Status         string     `json:"status"`
	SpinDate       time.Time  `json:"spin_date"`
	ClaimedDate    *time.Time `json:"claimed_date,omitempty"`
	CancelledDate  *time.Time `json:"cancelled_date,omitempty"`
	CancelReason   *string    `json:"cancel_reason,omitempty"`
	Version        int64      `json:"version"`
	AllowedActions []string   `json:"allowed_actions"`
}

type TransactionDTO struct {
	ID                int64     `json:"id"`
	Reference         string    `json:"reference"`
	UserID            int64     `json:"user_id"`
	Type              string    `json:"type"`
	Flow              string    `json:"flow"`
	Amount            int64     `json:"amount"`
	Charge            int64     `json:"charge"`
	Status            string    `json:"status"`
	RelatedEntityType string    `json:"related_entity_type"`
	RelatedEntityID   int64     `json:"related_entity_id"`
	Action            string    `json:"action"`
	ActorID           string    `json:"actor_id"`
	Message           *string   `json:"message,omitempty"`
	BalanceAfter      *int64    `json:"balance_after,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ActionResponse is returned by admin action routes. On a replayed action
// AlreadyProcessed is set and Transaction is empty.
type ActionResponse struct {
	AlreadyProcessed bool            `json:"already_processed"`
	Transaction      *TransactionDTO `json:"transaction,omitempty"`
	Investment       *InvestmentDTO  `json:"investment,omitempty"`
	Withdrawal       *WithdrawalDTO  `json:"withdrawal,omitempty"`
	SpinResult       *SpinResultDTO  `json:"spin_result,omitempty"`
}

type AllowedActionsDTO struct {
	EntityType string   `json:"entity_type"`
	Status     string   `json:"status"`
	Terminal   bool     `json:"terminal"`
	Actions    []string `json:"actions"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func actionNames(entityType models.EntityType, status string) []string {
	actions := statemachine.AllowedActions(entityType, status)
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return names
}

func toUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Balance:   u.Balance,
		Status:    string(u.Status),
		Version:   u.Version,
		CreatedAt: u.CreatedAt,
	}
}

func toProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		MinAmount: p.MinAmount,
		MaxAmount: p.MaxAmount,
		ReturnPct: p.ReturnPct,
		Status:    string(p.Status),
	}
}

func toInvestmentDTO(inv *models.Investment, now time.Time) *InvestmentDTO {
	return &InvestmentDTO{
		ID:                inv.ID,
		UserID:            inv.UserID,
		ProductID:         inv.ProductID,
		Amount:            inv.Amount,
		DurationMonths:    inv.DurationMonths,
		ExpectedReturnPct: inv.ExpectedReturnPct,
		Status:            string(inv.Status),
		StartDate:         inv.StartDate,
		EndDate:           inv.EndDate,
		CurrentValue:      inv.CurrentValue,
		ProjectedValue:    inv.ProjectedValue(now),
		Reason:            inv.ReasonText,
		Version:           inv.Version,
		AllowedActions:    actionNames(models.EntityTypeInvestment, string(inv.Status)),
		CreatedAt:         inv.CreatedAt,
	}
}

func toWithdrawalDTO(w *models.Withdrawal) *WithdrawalDTO {
	return &WithdrawalDTO{
		ID:              w.ID,
		UserID:          w.UserID,
		Amount:          w.Amount,
		Charge:          w.Charge,
		FinalAmount:     w.FinalAmount,
		BankAccount:     w.BankAccount,
		Status:          string(w.Status),
		RejectionReason: w.RejectionReason,
		ProcessedBy:     w.ProcessedBy,
		ApprovedAt:      w.ApprovedAt,
		RejectedAt:      w.RejectedAt,
		Version:         w.Version,
		AllowedActions:  actionNames(models.EntityTypeWithdrawal, string(w.Status)),
		CreatedAt:       w.CreatedAt,
	}
}

func toPrizeDTOs(prizes []*models.SpinPrize) []PrizeDTO {
	dtos := make([]PrizeDTO, len(prizes))
	for i, p := range prizes {
		dtos[i] = PrizeDTO{
			ID:               p.ID,
			Name:             p.Name,
			Amount:           p.Amount,
			Type:             string(p.Type),
			ChanceWeight:     p.ChanceWeight,
			ChancePercentage: p.ChancePercentage,
			ChanceDisplay:    prize.DisplayPercentage(p.ChancePercentage),
			Status:           string(p.Status),
		}
	}
	return dtos
}

func toSpinResultDTO(sr *models.SpinResult) *SpinResultDTO {
	return &SpinResultDTO{
		ID:             sr.ID,
		UserID:         sr.UserID,
		PrizeID:        sr.PrizeID,
		PrizeName:      sr.PrizeName,
		PrizeAmount:    sr.PrizeAmount,
		PrizeType:      string(sr.PrizeType),
		Status:         string(sr.Status),
		SpinDate:       sr.SpinDate,
		ClaimedDate:    sr.ClaimedDate,
		CancelledDate:  sr.CancelledDate,
		CancelReason:   sr.CancelReason,
		Version:        sr.Version,
		AllowedActions: actionNames(models.EntityTypeSpinResult, string(sr.Status)),
	}
}

func toTransactionDTO(t *models.Transaction) *TransactionDTO {
	return &TransactionDTO{
		ID:                t.ID,
		Reference:         t.Reference,
		UserID:            t.UserID,
		Type:              string(t.Type),
		Flow:              string(t.Flow),
		Amount:            t.Amount,
		Charge:            t.Charge,
		Status:            string(t.Status),
		RelatedEntityType: string(t.RelatedEntityType),
		RelatedEntityID:   t.RelatedEntityID,
		Action:            t.Action,
		ActorID:           t.ActorID,
		Message:           t.Message,
		BalanceAfter:      t.BalanceAfter,
		CreatedAt:         t.CreatedAt,
	}
}

func toActionResponse(outcome *service.Outcome, now time.Time) ActionResponse {
	resp := ActionResponse{}
	if outcome.Transaction != nil {
		resp.Transaction = toTransactionDTO(outcome.Transaction)
	}
	if outcome.Investment != nil {
		resp.Investment = toInvestmentDTO(outcome.Investment, now)
	}
	if outcome.Withdrawal != nil {
		resp.Withdrawal = toWithdrawalDTO(outcome.Withdrawal)
	}
	if outcome.SpinResult != nil {
		resp.SpinResult = toSpinResultDTO(outcome.SpinResult)
	}
	return resp
}
