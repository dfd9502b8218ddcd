package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fzheng/homepoints/internal/fault"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/store"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON parses the request body into v, answering 400 itself on
// malformed input. Returns false if the caller should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// adminUserIDs returns the user ids holding admin or creator authority in
// the family, for notification fan-out.
func adminUserIDs(families *store.FamilyStore, familyID int64) ([]int64, error) {
	members, err := families.ListMembers(familyID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, m := range members {
		if m.Role.AtLeast(model.RoleAdmin) {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

// writeError maps a workflow error to an HTTP response by its fault kind.
// Unclassified errors are server faults and get logged; classified ones
// carry a message safe to show the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch fault.KindOf(err) {
	case fault.Authorization:
		errorJSON(w, http.StatusForbidden, err.Error())
	case fault.Validation:
		errorJSON(w, http.StatusBadRequest, err.Error())
	case fault.State:
		errorJSON(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
