// Package mgmt serves the management HTTP API: curation stats, the
// blocked-channel list, and bulk cleanup of hidden posts. It writes the
// same store the session reads, and the store's change notifications
// make the open page pick up every mutation without a reload.
package mgmt

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/snapshot"
	"github.com/redveil/redveil/store"
)

var channelNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// blockRequest is the POST /api/blocked body. Validation runs on the
// normalized name, so "r/Golang" and "golang" are judged identically.
type blockRequest struct {
	Name string `json:"name"`
}

func (r blockRequest) normalized() string {
	return snapshot.NormalizeChannel(r.Name)
}

func (r blockRequest) Validate() error {
	name := r.normalized()
	return validation.Validate(name,
		validation.Required.Error("channel name is required"),
		validation.Length(1, 21),
		validation.Match(channelNameRe).Error("only letters, digits and underscore"),
	)
}

type Handler struct {
	st     *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

func NewHandler(st *store.Store, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{st: st, cfg: cfg, logger: logger}
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.st.HiddenStats(r.Context())
	if err != nil {
		h.logger.Error("mgmt: stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	blocked, err := h.st.ListBlocked(r.Context())
	if err != nil {
		h.logger.Error("mgmt: stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hidden_count":  stats.HiddenCount,
		"approx_bytes":  stats.ApproxBytes,
		"blocked_count": len(blocked),
	})
}

// ListBlocked handles GET /api/blocked.
func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	channels, err := h.st.ListBlocked(r.Context())
	if err != nil {
		h.logger.Error("mgmt: list blocked failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

// AddBlocked handles POST /api/blocked.
func (h *Handler) AddBlocked(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	name := req.normalized()
	added, err := h.st.AddBlocked(r.Context(), name)
	if err != nil {
		h.logger.Error("mgmt: add blocked failed", "channel", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !added {
		writeJSON(w, http.StatusConflict, errorBody("channel already blocked"))
		return
	}
	h.logger.Info("mgmt: channel blocked", "channel", name)
	writeJSON(w, http.StatusCreated, map[string]string{"channel": name})
}

// RemoveBlocked handles DELETE /api/blocked/{name}.
func (h *Handler) RemoveBlocked(w http.ResponseWriter, r *http.Request) {
	name := snapshot.NormalizeChannel(chi.URLParam(r, "name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("channel name is required"))
		return
	}
	removed, err := h.st.RemoveBlocked(r.Context(), name)
	if err != nil {
		h.logger.Error("mgmt: remove blocked failed", "channel", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("channel not blocked"))
		return
	}
	h.logger.Info("mgmt: channel unblocked", "channel", name)
	w.WriteHeader(http.StatusNoContent)
}

// ClearHidden handles POST /api/hidden/clear.
func (h *Handler) ClearHidden(w http.ResponseWriter, r *http.Request) {
	n, err := h.st.ClearHidden(r.Context())
	if err != nil {
		h.logger.Error("mgmt: clear hidden failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.logger.Info("mgmt: hidden posts cleared", "removed", n)
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// ClearOldHidden handles POST /api/hidden/clear-old: drops records older
// than the configured old-post age without touching recent ones.
func (h *Handler) ClearOldHidden(w http.ResponseWriter, r *http.Request) {
	age := time.Duration(h.cfg.Storage.OldPostDays) * 24 * time.Hour
	n, err := h.st.ClearHiddenOlderThan(r.Context(), age)
	if err != nil {
		h.logger.Error("mgmt: clear old hidden failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.logger.Info("mgmt: old hidden posts cleared", "removed", n, "age", age)
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}
