package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fzheng/homepoints/internal/auth"
	"github.com/fzheng/homepoints/internal/authz"
	"github.com/fzheng/homepoints/internal/store"
)

type ChoreTypeHandler struct {
	choreTypes *store.ChoreTypeStore
	authz      *authz.Service
	logger     *slog.Logger
}

func NewChoreTypeHandler(cts *store.ChoreTypeStore, az *authz.Service, logger *slog.Logger) *ChoreTypeHandler {
	return &ChoreTypeHandler{choreTypes: cts, authz: az, logger: logger}
}

type choreTypeRequest struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

func (h *ChoreTypeHandler) validate(req *choreTypeRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Points <= 0 {
		return "points must be positive"
	}
	return ""
}

// Create handles POST /api/chore-types
func (h *ChoreTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req choreTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := h.validate(&req); msg != "" {
		errorJSON(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.authz.RequireAdmin(ac.FamilyID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	exists, err := h.choreTypes.ActiveNameExists(ac.FamilyID, req.Name, 0)
	if err != nil {
		h.logger.Error("chore type name check", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		errorJSON(w, http.StatusConflict, "an active chore type with that name already exists")
		return
	}

	ct, err := h.choreTypes.Create(ac.FamilyID, req.Name, req.Points)
	if err != nil {
		h.logger.Error("create chore type", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, ct)
}

// List handles GET /api/chore-types?all=true
func (h *ChoreTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	activeOnly := r.URL.Query().Get("all") != "true"

	types, err := h.choreTypes.List(familyID, activeOnly)
	if err != nil {
		h.logger.Error("list chore types", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if types == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// Update handles PUT /api/chore-types/{id}. Changing the point reward never
// touches records already submitted: they keep their snapshot.
func (h *ChoreTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req choreTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := h.validate(&req); msg != "" {
		errorJSON(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.authz.RequireAdmin(ac.FamilyID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.choreTypes.GetByID(id)
	if err != nil {
		h.logger.Error("get chore type", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		errorJSON(w, http.StatusNotFound, "chore type not found")
		return
	}

	taken, err := h.choreTypes.ActiveNameExists(ac.FamilyID, req.Name, id)
	if err != nil {
		h.logger.Error("chore type name check", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if taken {
		errorJSON(w, http.StatusConflict, "an active chore type with that name already exists")
		return
	}

	ct, err := h.choreTypes.Update(id, req.Name, req.Points)
	if err != nil {
		h.logger.Error("update chore type", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, ct)
}

// Deactivate handles DELETE /api/chore-types/{id}. Chore types are never
// hard-deleted because records reference them; deactivation just removes
// them from the submission list and frees the name.
func (h *ChoreTypeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := h.authz.RequireAdmin(ac.FamilyID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.choreTypes.GetByID(id)
	if err != nil {
		h.logger.Error("get chore type", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		errorJSON(w, http.StatusNotFound, "chore type not found")
		return
	}

	if err := h.choreTypes.Deactivate(id); err != nil {
		h.logger.Error("deactivate chore type", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
