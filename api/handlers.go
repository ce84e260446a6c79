package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finengine/models"
	"finengine/service"
	"finengine/statemachine"

	"github.com/go-chi/chi/v5"
)

// AdminHeader carries the authenticated admin identity set by the gateway
const AdminHeader = "X-Admin-ID"

const defaultListLimit = 50

// Services groups the engine services the handlers call
type Services struct {
	Users       service.UserService
	Products    service.ProductService
	Investments service.InvestmentService
	Withdrawals service.WithdrawalService
	Spins       service.SpinService
	Workflow    service.ApprovalWorkflow
	Reports     service.ReportService
}

// Handler holds all dependencies for HTTP handlers
type Handler struct {
	svc Services
	now func() time.Time
}

// NewHandler creates a new handler over the given services
func NewHandler(svc Services) *Handler {
	return &Handler{
		svc: svc,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", models.ErrValidation, chi.URLParam(r, "id"))
	}
	return id, nil
}

func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", models.ErrValidation, raw)
	}
	return limit, nil
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// USERS
// =============================================================================

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.svc.Users.CreateUser(r.Context(), req.Username, req.InitialBalance)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	product, err := h.svc.Products.UpsertProduct(r.Context(), &models.Product{
		ID:        req.ID,
		Name:      req.Name,
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		ReturnPct: req.ReturnPct,
		Status:    models.ProductStatus(req.Status),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product))
}

// =============================================================================
// INVESTMENTS
// =============================================================================

func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req CreateInvestmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	inv, err := h.svc.Investments.CreateInvestment(r.Context(), req.UserID, req.ProductID, req.Amount, req.DurationMonths)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvestmentDTO(inv, h.now()))
}

func (h *Handler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	inv, err := h.svc.Investments.GetInvestment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvestmentDTO(inv, h.now()))
}

func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var status *models.InvestmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.InvestmentStatus(raw)
		if !s.Valid() {
			writeServiceError(w, r, fmt.Errorf("%w: unknown status %q", models.ErrValidation, raw))
			return
		}
		status = &s
	}

	investments, err := h.svc.Investments.ListInvestments(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := h.now()
	dtos := make([]*InvestmentDTO, len(investments))
	for i, inv := range investments {
		dtos[i] = toInvestmentDTO(inv, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req CreateWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	wd, err := h.svc.Withdrawals.CreateWithdrawal(r.Context(), req.UserID, req.Amount, req.BankAccount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWithdrawalDTO(wd))
}

func (h *Handler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	wd, err := h.svc.Withdrawals.GetWithdrawal(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalDTO(wd))
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var status *models.WithdrawalStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.WithdrawalStatus(raw)
		if !s.Valid() {
			writeServiceError(w, r, fmt.Errorf("%w: unknown status %q", models.ErrValidation, raw))
			return
		}
		status = &s
	}

	withdrawals, err := h.svc.Withdrawals.ListWithdrawals(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]*WithdrawalDTO, len(withdrawals))
	for i, wd := range withdrawals {
		dtos[i] = toWithdrawalDTO(wd)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PRIZES AND SPINS
// =============================================================================

func (h *Handler) ListPrizes(w http.ResponseWriter, r *http.Request) {
	prizes, err := h.svc.Spins.ListPrizes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrizeDTOs(prizes))
}

func (h *Handler) UpsertPrize(w http.ResponseWriter, r *http.Request) {
	var req PrizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	prizes, err := h.svc.Spins.UpsertPrize(r.Context(), &models.SpinPrize{
		ID:           req.ID,
		Name:         req.Name,
		Amount:       req.Amount,
		Type:         models.PrizeType(req.Type),
		ChanceWeight: req.ChanceWeight,
		Status:       models.PrizeStatus(req.Status),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrizeDTOs(prizes))
}

func (h *Handler) DeletePrize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	prizes, err := h.svc.Spins.DeletePrize(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrizeDTOs(prizes))
}

func (h *Handler) DrawSpin(w http.ResponseWriter, r *http.Request) {
	var req DrawSpinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.svc.Spins.DrawSpin(r.Context(), req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSpinResultDTO(result))
}

func (h *Handler) GetSpinResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.svc.Spins.GetSpinResult(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpinResultDTO(result))
}

// =============================================================================
// ADMIN ACTIONS
// =============================================================================

// ExecuteAction returns a handler running {action} on the {id} entity of
// the given type through the approval workflow
func (h *Handler) ExecuteAction(entityType models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get(AdminHeader))
		if actorID == "" {
			writeServiceError(w, r, fmt.Errorf("%w: %s header is required", models.ErrValidation, AdminHeader))
			return
		}

		id, err := pathID(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		var body ActionRequest
		if err := decodeJSON(r, &body); err != nil {
			writeServiceError(w, r, err)
			return
		}

		outcome, err := h.svc.Workflow.Execute(r.Context(), service.ActionRequest{
			ActorID:    actorID,
			EntityType: entityType,
			EntityID:   id,
			Version:    body.Version,
			Action:     statemachine.Action(chi.URLParam(r, "action")),
			Reason:     body.Reason,
		})
		if errors.Is(err, models.ErrAlreadyProcessed) {
			h.writeAlreadyProcessed(w, r, entityType, id)
			return
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toActionResponse(outcome, h.now()))
	}
}

// writeAlreadyProcessed answers a replayed action with the entity's current
// state
func (h *Handler) writeAlreadyProcessed(w http.ResponseWriter, r *http.Request, entityType models.EntityType, id int64) {
	resp := ActionResponse{AlreadyProcessed: true}
	ctx := r.Context()

	switch entityType {
	case models.EntityTypeInvestment:
		inv, err := h.svc.Investments.GetInvestment(ctx, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp.Investment = toInvestmentDTO(inv, h.now())
	case models.EntityTypeWithdrawal:
		wd, err := h.svc.Withdrawals.GetWithdrawal(ctx, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp.Withdrawal = toWithdrawalDTO(wd)
	case models.EntityTypeSpinResult:
		sr, err := h.svc.Spins.GetSpinResult(ctx, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp.SpinResult = toSpinResultDTO(sr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// AllowedActions lists the actions valid from a status
func (h *Handler) AllowedActions(w http.ResponseWriter, r *http.Request) {
	entityType := models.EntityType(chi.URLParam(r, "entityType"))
	status := chi.URLParam(r, "status")

	switch entityType {
	case models.EntityTypeInvestment:
		if !models.InvestmentStatus(status).Valid() {
			writeServiceError(w, r, fmt.Errorf("%w: unknown investment status %q", models.ErrValidation, status))
			return
		}
	case models.EntityTypeWithdrawal:
		if !models.WithdrawalStatus(status).Valid() {
			writeServiceError(w, r, fmt.Errorf("%w: unknown withdrawal status %q", models.ErrValidation, status))
			return
		}
	case models.EntityTypeSpinResult:
		if !models.SpinResultStatus(status).Valid() {
			writeServiceError(w, r, fmt.Errorf("%w: unknown spin result status %q", models.ErrValidation, status))
			return
		}
	default:
		writeServiceError(w, r, fmt.Errorf("%w: unknown entity type %q", models.ErrValidation, entityType))
		return
	}

	writeJSON(w, http.StatusOK, AllowedActionsDTO{
		EntityType: string(entityType),
		Status:     status,
		Terminal:   statemachine.IsTerminal(entityType, status),
		Actions:    actionNames(entityType, status),
	})
}

// =============================================================================
// REPORTS
// =============================================================================

// DailyReport aggregates the UTC day given as ?date=YYYY-MM-DD, today when
// omitted
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("%w: date must be YYYY-MM-DD", models.ErrValidation))
			return
		}
		date = parsed
	}

	report, err := h.svc.Reports.DailyReport(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
