package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/internal/repository"
	authservice "github.com/ibtikar-org-tr/membership-app/internal/service/auth"
	"github.com/ibtikar-org-tr/membership-app/internal/service/mailer"
	"github.com/ibtikar-org-tr/membership-app/pkg/response"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"go.uber.org/zap"
)

type AuthHandler struct {
	auth     *authservice.Service
	resets   *repository.ResetRepository
	audit    *repository.AuditRepository
	notifier *mailer.Notifier
	logger   *zap.Logger
}

func NewAuthHandler(
	auth *authservice.Service,
	resets *repository.ResetRepository,
	audit *repository.AuditRepository,
	notifier *mailer.Notifier,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{auth: auth, resets: resets, audit: audit, notifier: notifier, logger: logger}
}

type loginRequest struct {
	Field1   string `json:"field1"` // email, phone, membership number or "admin"
	Password string `json:"password"`
}

type loginResponse struct {
	UserType string               `json:"userType"`
	Token    string               `json:"token"`
	Member   *domain.MemberRecord `json:"memberInfo,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()

	if req.Field1 == "admin" {
		if !h.auth.AuthenticateAdmin(req.Password) {
			h.appendLog(ctx, "admin", "admin_login", domain.StatusFailed)
			response.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		token, err := h.auth.Tokens().Issue("admin", "", authservice.SessionTokenTTL)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.appendLog(ctx, "admin", "admin_login", domain.StatusSuccess)
		response.JSON(w, http.StatusOK, loginResponse{UserType: "admin", Token: token})
		return
	}

	member, err := h.auth.AuthenticateMember(ctx, req.Field1, req.Password)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidCredentials) || errors.Is(err, xerrors.ErrMemberNotFound) {
			h.appendLog(ctx, req.Field1, "member_login", domain.StatusFailed)
			response.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("member login failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.auth.Tokens().Issue(member.MembershipNumber, member.Email, authservice.SessionTokenTTL)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	member.Password = "" // never echo the credential
	h.appendLog(ctx, member.MembershipNumber, "member_login", domain.StatusSuccess)
	response.JSON(w, http.StatusOK, loginResponse{UserType: "member", Token: token, Member: member})
}

type forgotPasswordRequest struct {
	Type  string `json:"type"` // email | phone | membership_number
	Value string `json:"value"`
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()

	// Always answer the same way so the endpoint cannot be used to enumerate
	// registered identifiers.
	const neutral = "If the provided information is valid, a reset link will be sent to your email."

	member, err := h.auth.FindMemberByIdentifier(ctx, req.Value)
	if err != nil {
		if errors.Is(err, xerrors.ErrMemberNotFound) {
			h.appendLog(ctx, req.Value, domain.ActionPasswordResetRequested, "failed_user_not_found")
			response.JSON(w, http.StatusOK, map[string]string{"message": neutral})
			return
		}
		h.logger.Error("password reset lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.auth.Tokens().Issue(member.MembershipNumber, member.Email, authservice.ResetTokenTTL)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if _, err := h.resets.Create(ctx, member.MembershipNumber, member.Email, token); err != nil {
		h.logger.Error("failed to persist reset request", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.notifier.SendPasswordReset(ctx, member.Email, token); err != nil {
		h.logger.Error("failed to send reset mail", zap.Error(err))
		h.appendLog(ctx, member.MembershipNumber, domain.ActionPasswordResetRequested, domain.StatusFailed)
		response.Error(w, http.StatusInternalServerError, "failed to send email")
		return
	}

	h.appendLog(ctx, member.MembershipNumber, domain.ActionPasswordResetRequested, domain.StatusSuccess)
	response.JSON(w, http.StatusOK, map[string]string{"message": neutral})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		response.Error(w, http.StatusBadRequest, "new password required")
		return
	}
	ctx := r.Context()

	claims, err := h.auth.Tokens().Verify(req.Token)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	request, err := h.resets.GetPendingByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.auth.UpdateMemberPassword(ctx, claims.MembershipNumber, req.NewPassword); err != nil {
		h.logger.Error("failed to update member password", zap.Error(err))
		h.markReset(ctx, request.ID, domain.ResetFailed)
		response.Error(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	h.markReset(ctx, request.ID, domain.ResetCompleted)
	h.appendLog(ctx, claims.MembershipNumber, domain.ActionPasswordResetCompleted, domain.StatusSuccess)
	response.JSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) markReset(ctx context.Context, id, status string) {
	if err := h.resets.UpdateStatus(ctx, id, status); err != nil {
		h.logger.Warn("failed to update reset request status", zap.String("id", id), zap.Error(err))
	}
}

func (h *AuthHandler) appendLog(ctx context.Context, user, action, status string) {
	if err := h.audit.Append(ctx, user, action, status); err != nil {
		h.logger.Warn("failed to append audit log", zap.String("action", action), zap.Error(err))
	}
}
