package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fzheng/homepoints/internal/auth"
	"github.com/fzheng/homepoints/internal/ledger"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/push"
	"github.com/fzheng/homepoints/internal/store"
	ws "github.com/fzheng/homepoints/internal/websocket"
)

type PointsHandler struct {
	svc      *ledger.Service
	families *store.FamilyStore
	hub      *ws.Hub
	push     *push.Service
	logger   *slog.Logger
}

func NewPointsHandler(svc *ledger.Service, fs *store.FamilyStore, hub *ws.Hub, pushSvc *push.Service, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{svc: svc, families: fs, hub: hub, push: pushSvc, logger: logger}
}

// targetUser resolves the optional user_id query parameter, defaulting to
// the requester.
func targetUser(r *http.Request) int64 {
	if s := r.URL.Query().Get("user_id"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id
		}
	}
	return auth.UserID(r.Context())
}

// Summary handles GET /api/points/summary?user_id=
func (h *PointsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	summary, err := h.svc.Summary(ac.FamilyID, ac.UserID, targetUser(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Transactions handles GET /api/points/transactions?user_id=
func (h *PointsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
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

// Ranking handles GET /api/points/ranking?period=week|month|all
func (h *PointsHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	period := ledger.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = ledger.PeriodAll
	}

	entries, err := h.svc.Ranking(ac.FamilyID, ac.UserID, period)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if entries == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type appendRequest struct {
	UserID      int64  `json:"user_id"`
	Points      int    `json:"points"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Append handles POST /api/points/transactions. Admin only; this is the
// manual path for awarding, redeeming or annotating points outside the
// chore and redemption workflows.
func (h *PointsHandler) Append(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req appendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.svc.Append(ac.FamilyID, ac.UserID, req.UserID, req.Points, model.TxType(req.Type), req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("point_transaction", "created", tx.ID, map[string]any{
		"user_id": tx.UserID,
		"type":    string(tx.Type),
		"points":  tx.Points,
	}))

	writeJSON(w, http.StatusCreated, tx)
}

type submitRedemptionRequest struct {
	Points int    `json:"points"`
	Remark string `json:"remark"`
}

// SubmitRedemption handles POST /api/redemptions
func (h *PointsHandler) SubmitRedemption(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req submitRedemptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.svc.SubmitRedemptionRequest(ac.FamilyID, ac.UserID, req.Points, req.Remark)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("redemption_request", "created", request.ID, map[string]any{
		"user_id": request.UserID,
		"points":  request.Points,
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
			Title: "Redemption awaiting review",
			Body:  fmt.Sprintf("%d points (%s)", request.Points, request.Amount.StringFixed(2)),
			URL:   "/redemptions/review",
			Tag:   fmt.Sprintf("redemption-%d", request.ID),
		})
	}

	writeJSON(w, http.StatusCreated, request)
}

// ListRedemptions handles GET /api/redemptions?status=pending
func (h *PointsHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	status := model.ReviewStatus(r.URL.Query().Get("status"))
	requests, err := h.svc.ListRedemptionRequests(ac.FamilyID, ac.UserID, status)
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

type reviewRedemptionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ReviewRedemption handles POST /api/redemptions/{id}/review
func (h *PointsHandler) ReviewRedemption(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req reviewRedemptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.svc.ReviewRedemptionRequest(id, ac.UserID, model.ReviewAction(req.Action), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(request.FamilyID, ws.NewMessage("redemption_request", "reviewed", request.ID, map[string]any{
		"user_id": request.UserID,
		"status":  string(request.Status),
	}))

	body := "Your redemption request was rejected"
	if request.Status == model.StatusApproved {
		body = fmt.Sprintf("%d points settled for %s", request.Points, request.Amount.StringFixed(2))
	}
	h.push.NotifyUsers([]int64{request.UserID}, push.Payload{
		Title: "Redemption reviewed",
		Body:  body,
		URL:   "/redemptions",
		Tag:   fmt.Sprintf("redemption-%d", request.ID),
	})

	writeJSON(w, http.StatusOK, request)
}
