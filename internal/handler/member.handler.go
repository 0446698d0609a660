package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	authservice "github.com/ibtikar-org-tr/membership-app/internal/service/auth"
	"github.com/ibtikar-org-tr/membership-app/pkg/response"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"go.uber.org/zap"
)

type MemberHandler struct {
	auth   *authservice.Service
	logger *zap.Logger
}

func NewMemberHandler(auth *authservice.Service, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{auth: auth, logger: logger}
}

// Me returns the roster record of the authenticated member.
func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	member, err := h.auth.FindMemberByIdentifier(r.Context(), claims.MembershipNumber)
	if err != nil {
		if errors.Is(err, xerrors.ErrMemberNotFound) {
			response.Error(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error("member lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	member.Password = ""
	response.JSON(w, http.StatusOK, member)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the authenticated member's roster password after
// verifying the current one.
func (h *MemberHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		response.Error(w, http.StatusBadRequest, "new password required")
		return
	}

	if _, err := h.auth.AuthenticateMember(r.Context(), claims.MembershipNumber, req.CurrentPassword); err != nil {
		if errors.Is(err, xerrors.ErrInvalidCredentials) || errors.Is(err, xerrors.ErrMemberNotFound) {
			response.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("password verification failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.auth.UpdateMemberPassword(r.Context(), claims.MembershipNumber, req.NewPassword); err != nil {
		h.logger.Error("failed to update password", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
