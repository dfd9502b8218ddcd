package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fzheng/homepoints/internal/backup"
	"github.com/fzheng/homepoints/internal/store"
)

// BackupHandler exposes the backup manager. All routes are mounted behind
// the admin middleware.
type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(mgr *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: mgr, backups: bs, logger: logger}
}

// Status handles GET /api/backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.backups.List(50)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// RunNow handles POST /api/backups
func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		errorJSON(w, http.StatusConflict, "backups are not configured")
		return
	}

	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run backup", "error", err)
		errorJSON(w, http.StatusInternalServerError, "backup failed")
		return
	}

	record, err := h.backups.GetByID(id)
	if err != nil || record == nil {
		h.logger.Error("get backup record", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// Restore handles POST /api/backups/{id}/restore. On success the process
// exits so it restarts on the restored database; the client never sees a
// response body.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.manager.Restore(r.Context(), id); err != nil {
		h.logger.Error("restore backup", "error", err)
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
}

// Download handles GET /api/backups/{id}/download, streaming the encrypted
// archive.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := h.backups.GetByID(id)
	if err != nil {
		h.logger.Error("get backup record", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if record == nil {
		errorJSON(w, http.StatusNotFound, "backup not found")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "error", err)
		errorJSON(w, http.StatusInternalServerError, "download failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	io.Copy(w, body)
}
