package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fzheng/homepoints/internal/auth"
	"github.com/fzheng/homepoints/internal/authz"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/store"
)

type FamilyHandler struct {
	families *store.FamilyStore
	users    *store.UserStore
	sessions *store.SessionStore
	authz    *authz.Service
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, us *store.UserStore, ss *store.SessionStore, az *authz.Service, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, users: us, sessions: ss, authz: az, logger: logger}
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/families
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req createFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errorJSON(w, http.StatusBadRequest, "family name is required")
		return
	}

	family, err := h.families.Create(req.Name, ac.UserID)
	if err != nil {
		h.logger.Error("create family", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Make the new family the session's active one
	if err := h.sessions.SetFamily(ac.SessionID, family.ID); err != nil {
		h.logger.Error("activate family", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, family)
}

type joinFamilyRequest struct {
	InviteCode string `json:"invite_code"`
}

// Join handles POST /api/families/join
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req joinFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	code := strings.TrimSpace(strings.ToUpper(req.InviteCode))
	if code == "" {
		errorJSON(w, http.StatusBadRequest, "invite code is required")
		return
	}

	family, err := h.families.GetByInviteCode(code)
	if err != nil {
		h.logger.Error("join lookup", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if family == nil {
		errorJSON(w, http.StatusNotFound, "no family with that invite code")
		return
	}

	existing, err := h.families.GetMember(family.ID, ac.UserID)
	if err != nil {
		h.logger.Error("join member lookup", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		errorJSON(w, http.StatusConflict, "already a member of this family")
		return
	}

	if _, err := h.families.AddMember(family.ID, ac.UserID, model.RoleMember); err != nil {
		h.logger.Error("join add member", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.sessions.SetFamily(ac.SessionID, family.ID); err != nil {
		h.logger.Error("activate family", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, family)
}

type switchFamilyRequest struct {
	FamilyID int64 `json:"family_id"`
}

// Switch handles POST /api/families/switch
func (h *FamilyHandler) Switch(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req switchFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.families.GetMember(req.FamilyID, ac.UserID)
	if err != nil {
		h.logger.Error("switch member lookup", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil {
		errorJSON(w, http.StatusForbidden, "not a member of this family")
		return
	}

	if err := h.sessions.SetFamily(ac.SessionID, req.FamilyID); err != nil {
		h.logger.Error("switch family", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// memberView joins membership rows with user identities for display.
type memberView struct {
	model.FamilyMember
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Get handles GET /api/family
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	family, err := h.families.GetByID(familyID)
	if err != nil || family == nil {
		h.logger.Error("get family", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	members, err := h.memberViews(familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"family":  family,
		"members": members,
	})
}

// ListMembers handles GET /api/family/members
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberViews(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *FamilyHandler) memberViews(familyID int64) ([]memberView, error) {
	members, err := h.families.ListMembers(familyID)
	if err != nil {
		return nil, err
	}

	views := make([]memberView, 0, len(members))
	for _, m := range members {
		v := memberView{FamilyMember: m}
		if u, err := h.users.GetByID(m.UserID); err == nil && u != nil {
			v.Name = u.Name
			v.Email = u.Email
		}
		views = append(views, v)
	}
	return views, nil
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole handles PUT /api/family/members/{id}/role where {id} is
// the member's user id. Creator only; the creator's own role is immutable.
func (h *FamilyHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	userID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role := model.Role(req.Role)
	if !role.Valid() || role == model.RoleCreator {
		errorJSON(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	if _, err := h.authz.RequireCreator(ac.FamilyID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	member, err := h.families.UpdateMemberRole(ac.FamilyID, userID, role)
	if errors.Is(err, store.ErrConflict) {
		errorJSON(w, http.StatusConflict, "the creator's role cannot be changed")
		return
	}
	if err != nil {
		h.logger.Error("update member role", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil {
		errorJSON(w, http.StatusNotFound, "member not found")
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// RemoveMember handles DELETE /api/family/members/{id} where {id} is the
// member's user id. Admin only; the creator cannot be removed.
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	userID, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := h.authz.RequireAdmin(ac.FamilyID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	err = h.families.RemoveMember(ac.FamilyID, userID)
	if errors.Is(err, store.ErrConflict) {
		errorJSON(w, http.StatusConflict, "the creator cannot be removed")
		return
	}
	if err != nil {
		h.logger.Error("remove member", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updatePointsValueRequest struct {
	PointsValue decimal.Decimal `json:"points_value"`
}

// UpdatePointsValue handles PUT /api/family/points-value. Creator only.
// The new rate applies to future conversions; settled requests keep the
// amount computed at submission time.
func (h *FamilyHandler) UpdatePointsValue(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updatePointsValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.PointsValue.Sign() <= 0 {
		errorJSON(w, http.StatusBadRequest, "points value must be positive")
		return
	}

	if _, err := h.authz.RequireCreator(ac.FamilyID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	family, err := h.families.UpdatePointsValue(ac.FamilyID, req.PointsValue)
	if err != nil {
		h.logger.Error("update points value", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, family)
}
