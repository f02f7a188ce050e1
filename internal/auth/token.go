package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

// TokenTTL is the fixed validity window of an issued token.
const TokenTTL = 24 * time.Hour

// Token verification failures. They are kept distinct for logging; the
// HTTP layer collapses all of them into one "invalid or expired" answer.
var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
)

// Claims is the payload of an access token.
type Claims struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employee_id"`
	Role       entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// Config holds token signing settings.
type Config struct {
	Secret []byte
}

// ConfigFromEnv reads JWT_SECRET.
func ConfigFromEnv() (Config, error) {
	s := os.Getenv("JWT_SECRET")
	if s == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return Config{Secret: []byte(s)}, nil
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(cfg Config) *TokenService {
	return &TokenService{secret: cfg.Secret, now: time.Now}
}

// Issue signs a token for the subject valid for TokenTTL.
func (s *TokenService) Issue(subjectID, employeeID string, role entity.Role) (string, error) {
	now := s.now()
	claims := Claims{
		ID:         subjectID,
		EmployeeID: employeeID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, structure and expiry. The returned error is one
// of ErrInvalidSignature, ErrTokenExpired or ErrTokenMalformed, wrapping the
// parser's cause.
func (s *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	return claims, nil
}
