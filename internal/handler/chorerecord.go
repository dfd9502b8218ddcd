package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fzheng/homepoints/internal/auth"
	"github.com/fzheng/homepoints/internal/chorereview"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/push"
	"github.com/fzheng/homepoints/internal/store"
	ws "github.com/fzheng/homepoints/internal/websocket"
)

type ChoreRecordHandler struct {
	svc      *chorereview.Service
	families *store.FamilyStore
	hub      *ws.Hub
	push     *push.Service
	logger   *slog.Logger
}

func NewChoreRecordHandler(svc *chorereview.Service, fs *store.FamilyStore, hub *ws.Hub, pushSvc *push.Service, logger *slog.Logger) *ChoreRecordHandler {
	return &ChoreRecordHandler{svc: svc, families: fs, hub: hub, push: pushSvc, logger: logger}
}

type submitRecordRequest struct {
	ChoreTypeID int64    `json:"chore_type_id"`
	Note        string   `json:"note"`
	Images      []string `json:"images"`
}

// Submit handles POST /api/chore-records
func (h *ChoreRecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req submitRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.svc.SubmitRecord(ac.FamilyID, ac.UserID, req.ChoreTypeID, req.Note, req.Images)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.FamilyID, ws.NewMessage("chore_record", "created", record.ID, map[string]any{
		"user_id": record.UserID,
		"status":  string(record.Status),
	}))

	// Pending records need a reviewer; approved ones (admin submissions)
	// don't.
	if record.Status == model.StatusPending {
		h.notifyAdmins(ac.FamilyID, ac.UserID, record)
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *ChoreRecordHandler) notifyAdmins(familyID, submitterID int64, record *model.ChoreRecord) {
	admins, err := adminUserIDs(h.families, familyID)
	if err != nil {
		h.logger.Error("list admins for notification", "error", err)
		return
	}
	var targets []int64
	for _, id := range admins {
		if id != submitterID {
			targets = append(targets, id)
		}
	}
	h.push.NotifyUsers(targets, push.Payload{
		Title: "Chore awaiting review",
		Body:  fmt.Sprintf("%s (%d points)", record.ChoreName, record.OriginalPoints),
		URL:   "/chores/review",
		Tag:   fmt.Sprintf("chore-record-%d", record.ID),
	})
}

// List handles GET /api/chore-records?status=pending
func (h *ChoreRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	status := model.ReviewStatus(r.URL.Query().Get("status"))
	records, err := h.svc.ListRecords(ac.FamilyID, ac.UserID, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if records == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Get handles GET /api/chore-records/{id}
func (h *ChoreRecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := h.svc.GetRecord(id, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

type reviewRecordRequest struct {
	Action          string `json:"action"`
	Deduction       int    `json:"deduction"`
	DeductionReason string `json:"deduction_reason"`
	ReviewNote      string `json:"review_note"`
}

// Review handles POST /api/chore-records/{id}/review
func (h *ChoreRecordHandler) Review(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req reviewRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.svc.ReviewRecord(id, ac.UserID, model.ReviewAction(req.Action), req.Deduction, req.DeductionReason, req.ReviewNote)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(record.FamilyID, ws.NewMessage("chore_record", "reviewed", record.ID, map[string]any{
		"user_id": record.UserID,
		"status":  string(record.Status),
	}))

	body := fmt.Sprintf("%s was rejected", record.ChoreName)
	if record.Status == model.StatusApproved {
		body = fmt.Sprintf("%s approved for %d points", record.ChoreName, record.FinalPoints)
	}
	h.push.NotifyUsers([]int64{record.UserID}, push.Payload{
		Title: "Chore reviewed",
		Body:  body,
		URL:   "/chores",
		Tag:   fmt.Sprintf("chore-record-%d", record.ID),
	})

	writeJSON(w, http.StatusOK, record)
}
