package auth

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/httpx"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Message  string      `json:"message"`
	Token    string      `json:"token"`
	User     UserSummary `json:"user"`
	ClientIP string      `json:"clientIP"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req.EmployeeID, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "employee_id", req.EmployeeID, "err", err)
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Message:  "Login successful",
		Token:    res.Token,
		User:     res.User,
		ClientIP: ClientIP(r),
	})
}

// ClientIP returns the first X-Forwarded-For hop or the peer address,
// with IPv4-mapped and loopback IPv6 forms normalized.
func ClientIP(r *http.Request) string {
	raw := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	if raw == "" {
		raw = r.RemoteAddr
		if host, _, err := net.SplitHostPort(raw); err == nil {
			raw = host
		}
	}
	raw = strings.Replace(raw, "::ffff:", "", 1)
	if raw == "::1" {
		raw = "127.0.0.1"
	}
	return strings.TrimSpace(raw)
}
