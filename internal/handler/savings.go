package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fzheng/homepoints/internal/auth"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/push"
	"github.com/fzheng/homepoints/internal/savings"
	"github.com/fzheng/homepoints/internal/store"
	ws "github.com/fzheng/homepoints/internal/websocket"
)

type SavingsHandler struct {
	svc      *savings.Service
	families *store.FamilyStore
	hub      *ws.Hub
	push     *push.Service
	logger   *slog.Logger
}

func NewSavingsHandler(svc *savings.Service, fs *store.FamilyStore, hub *ws.Hub, pushSvc *push.Service, logger *slog.Logger) *SavingsHandler {
	return &SavingsHandler{svc: svc, families: fs, hub: hub, push: pushSvc, logger: logger}
}

// Account handles GET /api/savings/account?user_id=
func (h *SavingsHandler) Account(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	account, err := h.svc.GetAccount(ac.FamilyID, ac.UserID, targetUser(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Transactions handles GET /api/savings/transactions?user_id=
func (h *SavingsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	txs, err := h.svc.ListTransactions(ac.FamilyID, ac.UserID, targetUser(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if txs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type savingsMutationRequest struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Deposit handles POST /api/savings/deposit. Admin only.
func (h *SavingsHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.Deposit, "deposit")
}

// Withdraw handles POST /api/savings/withdraw. Admin only.
func (h *SavingsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.Withdraw, "withdraw")
}

func (h *SavingsHandler) mutate(w http.ResponseWriter, r *http.Request, op func(familyID, actorID, targetUserID int64, amount decimal.Decimal, description string) (*model.SavingsTransaction, error), action string) {
	ac, _ := auth.FromContext(r.Context())

	var req savingsMutationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		req.UserID = ac.UserID
	}

	tx, err := op(ac.FamilyID, ac.UserID, req.UserID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("savings_transaction", action, tx.ID, map[string]any{
		"account_id":    tx.AccountID,
		"amount":        tx.Amount.String(),
		"balance_after": tx.BalanceAfter.String(),
	}))

	writeJSON(w, http.StatusCreated, tx)
}

type savingsRequestRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// SubmitRequest handles POST /api/savings/requests
func (h *SavingsHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req savingsRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.svc.SubmitRequest(ac.FamilyID, ac.UserID, model.SavingsRequestType(req.Type), req.Amount, req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("savings_request", "created", request.ID, map[string]any{
		"user_id": request.UserID,
		"type":    string(request.Type),
	}))

	admins, err := adminUserIDs(h.families, ac.FamilyID)
	if err == nil {
		var targets []int64
		for _, id := range admins {
			if id != ac.UserID {
				targets = append(targets, id)
			}
		}
		h.push.NotifyUsers(targets, push.Payload{
			Title: "Savings request awaiting review",
			Body:  fmt.Sprintf("%s of %s", request.Type, request.Amount.StringFixed(2)),
			URL:   "/savings/review",
			Tag:   fmt.Sprintf("savings-request-%d", request.ID),
		})
	}

	writeJSON(w, http.StatusCreated, request)
}

// ListRequests handles GET /api/savings/requests?status=pending
func (h *SavingsHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	status := model.ReviewStatus(r.URL.Query().Get("status"))
	requests, err := h.svc.ListRequests(ac.FamilyID, ac.UserID, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if requests == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

type reviewSavingsRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ReviewRequest handles POST /api/savings/requests/{id}/review
func (h *SavingsHandler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req reviewSavingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.svc.ReviewRequest(id, ac.UserID, model.ReviewAction(req.Action), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("savings_request", "reviewed", request.ID, map[string]any{
		"user_id": request.UserID,
		"status":  string(request.Status),
	}))

	body := "Your savings request was rejected"
	if request.Status == model.StatusApproved {
		body = fmt.Sprintf("Your %s of %s was approved", request.Type, request.Amount.StringFixed(2))
	}
	h.push.NotifyUsers([]int64{request.UserID}, push.Payload{
		Title: "Savings request reviewed",
		Body:  body,
		URL:   "/savings",
		Tag:   fmt.Sprintf("savings-request-%d", request.ID),
	})

	writeJSON(w, http.StatusOK, request)
}

// PreviewInterest handles GET /api/savings/interest/preview?user_id=
func (h *SavingsHandler) PreviewInterest(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	quote, err := h.svc.PreviewInterest(ac.FamilyID, ac.UserID, targetUser(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type settleInterestRequest struct {
	UserID int64 `json:"user_id"`
}

// SettleInterest handles POST /api/savings/interest/settle. Admin only.
func (h *SavingsHandler) SettleInterest(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req settleInterestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		req.UserID = ac.UserID
	}

	tx, err := h.svc.SettleInterest(ac.FamilyID, ac.UserID, req.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("savings_transaction", "interest", tx.ID, map[string]any{
		"account_id":    tx.AccountID,
		"amount":        tx.Amount.String(),
		"balance_after": tx.BalanceAfter.String(),
	}))

	h.push.NotifyUsers([]int64{req.UserID}, push.Payload{
		Title: "Interest credited",
		Body:  fmt.Sprintf("You earned %s in interest", tx.Amount.StringFixed(2)),
		URL:   "/savings",
		Tag:   fmt.Sprintf("savings-interest-%d", tx.ID),
	})

	writeJSON(w, http.StatusOK, tx)
}

type updateRateRequest struct {
	UserID int64           `json:"user_id"`
	Rate   decimal.Decimal `json:"rate"`
}

// UpdateRate handles PUT /api/savings/rate. Creator only; the new rate
// applies from the next settlement.
func (h *SavingsHandler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updateRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		req.UserID = ac.UserID
	}

	account, err := h.svc.UpdateRate(ac.FamilyID, ac.UserID, req.UserID, req.Rate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}
