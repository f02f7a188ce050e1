package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

var (
	ErrMissingToken  = apperr.New(apperr.KindUnauthenticated, "Unauthorized: Token missing")
	ErrInvalidToken  = apperr.New(apperr.KindForbidden, "Invalid or expired token")
	ErrStaleIdentity = apperr.New(apperr.KindUnauthenticated, "Unauthorized: User not found")
	ErrAdminOnly     = apperr.New(apperr.KindForbidden, "Access denied. Admin only.")
)

// IdentityFinder resolves a token subject to its current identity. A
// missing subject must be reported as an apperr.KindNotFound error.
type IdentityFinder interface {
	FindIdentityByID(ctx context.Context, id string) (*entity.Identity, error)
}

// Gate is the authentication middleware for protected routes.
type Gate struct {
	tokens *TokenService
	store  IdentityFinder
	logger *zap.SugaredLogger
}

func NewGate(tokens *TokenService, store IdentityFinder, logger *zap.SugaredLogger) *Gate {
	return &Gate{tokens: tokens, store: store, logger: logger}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

// Authenticate rejects the request unless it carries a valid token whose
// subject still exists, then attaches the subject's identity to the context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			httpx.WriteError(w, r, g.logger, ErrMissingToken)
			return
		}

		claims, err := g.tokens.Verify(tok)
		if err != nil {
			g.logger.Debugw("jwt verification failed", "path", r.URL.Path, "reason", err)
			httpx.WriteError(w, r, g.logger, ErrInvalidToken)
			return
		}

		id, err := g.store.FindIdentityByID(r.Context(), claims.ID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				httpx.WriteError(w, r, g.logger, ErrStaleIdentity)
				return
			}
			httpx.WriteError(w, r, g.logger, apperr.Wrap(apperr.KindInternal, "Authentication failed", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole only lets through identities with the given role. It must be
// chained after Authenticate; a request without an identity is refused.
func RequireRole(role entity.Role, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	denied := ErrAdminOnly
	if role != entity.RoleAdmin {
		denied = apperr.New(apperr.KindForbidden, "Access denied")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id == nil {
				httpx.WriteError(w, r, logger, ErrMissingToken)
				return
			}
			if id.Role != role {
				httpx.WriteError(w, r, logger, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
