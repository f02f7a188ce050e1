package otp

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/httpx"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type ResetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// RequestCode handles POST /api/auth/request-otp.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Issue(r.Context(), req.Email); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "OTP sent to your email")
}

// Reset handles POST /api/auth/verify-otp-change-password.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.svc.VerifyAndReset(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Password changed successfully")
}
