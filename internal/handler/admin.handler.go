package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/internal/repository"
	authservice "github.com/ibtikar-org-tr/membership-app/internal/service/auth"
	memberservice "github.com/ibtikar-org-tr/membership-app/internal/service/members"
	syncservice "github.com/ibtikar-org-tr/membership-app/internal/service/sync"
	"github.com/ibtikar-org-tr/membership-app/internal/service/workers"
	"github.com/ibtikar-org-tr/membership-app/pkg/response"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type AdminHandler struct {
	configs *repository.SheetConfigRepository
	audit   *repository.AuditRepository
	workers *workers.Workers
	members *memberservice.Service
	auth    *authservice.Service
	logger  *zap.Logger
}

func NewAdminHandler(
	configs *repository.SheetConfigRepository,
	audit *repository.AuditRepository,
	workers *workers.Workers,
	members *memberservice.Service,
	auth *authservice.Service,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		configs: configs,
		audit:   audit,
		workers: workers,
		members: members,
		auth:    auth,
		logger:  logger,
	}
}

type sheetConfigRequest struct {
	ResourceID string               `json:"resource_id"`
	Mapping    domain.ColumnMapping `json:"mapping"`
}

// SetFormConfig registers the Google Form response sheet and its column
// mapping.
func (h *AdminHandler) SetFormConfig(w http.ResponseWriter, r *http.Request) {
	h.setConfig(w, r, h.configs.UpsertFormConfig)
}

// SetRosterConfig registers the roster sheet and its column mapping.
func (h *AdminHandler) SetRosterConfig(w http.ResponseWriter, r *http.Request) {
	h.setConfig(w, r, h.configs.UpsertRosterConfig)
}

func (h *AdminHandler) setConfig(
	w http.ResponseWriter,
	r *http.Request,
	upsert func(ctx context.Context, resourceID string, mapping domain.ColumnMapping) (*domain.SheetConfig, error),
) {
	var req sheetConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResourceID == "" {
		response.Error(w, http.StatusBadRequest, "resource_id required")
		return
	}
	if err := syncservice.ValidateMapping(req.Mapping); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := upsert(r.Context(), req.ResourceID, req.Mapping)
	if err != nil {
		h.logger.Error("failed to store sheet config", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	response.JSON(w, http.StatusOK, cfg)
}

// GetFormConfig returns the current form sheet configuration.
func (h *AdminHandler) GetFormConfig(w http.ResponseWriter, r *http.Request) {
	h.getConfig(w, r, h.configs.FormSheetConfig)
}

// GetRosterConfig returns the current roster sheet configuration.
func (h *AdminHandler) GetRosterConfig(w http.ResponseWriter, r *http.Request) {
	h.getConfig(w, r, h.configs.RosterSheetConfig)
}

func (h *AdminHandler) getConfig(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(ctx context.Context) (*domain.SheetConfig, error),
) {
	cfg, err := fetch(r.Context())
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "sheet not configured")
			return
		}
		h.logger.Error("failed to load sheet config", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	response.JSON(w, http.StatusOK, cfg)
}

// Members lists every member on the roster.
func (h *AdminHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context())
	if err != nil {
		h.memberError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, members)
}

// UpdateMember merges field values into a member's roster row. A password
// update also rotates the learning-platform credential.
func (h *AdminHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	membershipNumber := mux.Vars(r)["membershipNumber"]

	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		response.Error(w, http.StatusBadRequest, "no updates given")
		return
	}

	updated, err := h.members.Update(r.Context(), membershipNumber, updates)
	if err != nil {
		h.memberError(w, err)
		return
	}
	h.auth.InvalidateMember(r.Context(), updated)
	response.JSON(w, http.StatusOK, map[string]string{"message": "member updated"})
}

// DeleteMember removes a member from the roster and the learning platform.
func (h *AdminHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	membershipNumber := mux.Vars(r)["membershipNumber"]

	removed, err := h.members.Delete(r.Context(), membershipNumber)
	if err != nil {
		h.memberError(w, err)
		return
	}
	h.auth.InvalidateMember(r.Context(), removed)
	response.JSON(w, http.StatusOK, map[string]string{"message": "member deleted"})
}

func (h *AdminHandler) memberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrMemberNotFound):
		response.Error(w, http.StatusNotFound, "member not found")
	case errors.Is(err, xerrors.ErrMissingConfig):
		response.Error(w, http.StatusBadRequest, "roster sheet not configured")
	case errors.Is(err, xerrors.ErrColumnNotFound):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("member administration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// Logs lists audit log entries, newest first, optionally filtered to one
// actor via ?user=.
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	var entries []domain.LogEntry
	var err error
	if user := r.URL.Query().Get("user"); user != "" {
		entries, err = h.audit.ListByUser(r.Context(), user, limit)
	} else {
		entries, err = h.audit.List(r.Context(), limit, offset)
	}
	if err != nil {
		h.logger.Error("failed to list logs", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// TriggerSync runs a reconciliation pass outside the regular schedule.
func (h *AdminHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	h.workers.TriggerSync()
	response.JSON(w, http.StatusAccepted, map[string]string{"message": "sync triggered"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
