package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

var (
	ErrUserNotFound      = apperr.New(apperr.KindUnauthenticated, "User not found")
	ErrIncorrectPassword = apperr.New(apperr.KindUnauthenticated, "Incorrect password")
	ErrMissingCredential = apperr.InvalidInput("Employee ID and password are required")
)

// CredentialStore is the subset of the staff store used for login.
type CredentialStore interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (*entity.Staff, error)
}

// UserSummary is the part of the account returned on login.
type UserSummary struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employee_id"`
	Name       string      `json:"name"`
	Role       entity.Role `json:"role"`
}

// LoginResult is a freshly issued token plus the account summary.
type LoginResult struct {
	Token string
	User  UserSummary
}

// Service performs password login.
type Service struct {
	store  CredentialStore
	hasher PasswordHasher
	tokens *TokenService
}

func NewService(store CredentialStore, hasher PasswordHasher, tokens *TokenService) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 10}
	}
	return &Service{store: store, hasher: hasher, tokens: tokens}
}

// Login checks the employee identifier and password and issues a token.
func (s *Service) Login(ctx context.Context, employeeID, password string) (*LoginResult, error) {
	if employeeID == "" || password == "" {
		return nil, ErrMissingCredential
	}

	u, err := s.store.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrIncorrectPassword
	}

	tok, err := s.tokens.Issue(u.ID, u.EmployeeID, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token: tok,
		User:  UserSummary{ID: u.ID, EmployeeID: u.EmployeeID, Name: u.Name, Role: u.Role},
	}, nil
}
