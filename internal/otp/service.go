// Package otp implements password reset through emailed one-time codes.
//
// A code is six decimal digits, valid for five minutes, and bound to one
// email address. Issuing a new code replaces the previous one; a code is
// consumed by the first successful verification.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

// CodeTTL is how long an issued code stays valid.
const CodeTTL = 5 * time.Minute

var (
	ErrEmailRequired       = apperr.InvalidInput("Email is required")
	ErrFieldsRequired      = apperr.InvalidInput("All fields are required")
	ErrUserNotFound        = apperr.New(apperr.KindNotFound, "User not found")
	ErrDeliveryUnavailable = apperr.New(apperr.KindUnavailable, "Email service unavailable. Please try again.")
	ErrInvalidOrExpired    = apperr.InvalidInput("Invalid or expired OTP")
)

// CredentialStore is the subset of the staff store used for reset.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*entity.Staff, error)
	UpdatePasswordHashByEmail(ctx context.Context, email, hash string) error
}

// Sender delivers a code to an email address.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// Service issues and redeems reset codes.
type Service struct {
	store    CredentialStore
	codes    *Store
	sender   Sender
	hasher   auth.PasswordHasher
	metrics  *Metrics
	logger   *zap.SugaredLogger
	now      func() time.Time
	generate func() (string, error)
}

func NewService(store CredentialStore, codes *Store, sender Sender, hasher auth.PasswordHasher, metrics *Metrics, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = auth.BcryptHasher{Cost: 10}
	}
	return &Service{
		store:    store,
		codes:    codes,
		sender:   sender,
		hasher:   hasher,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		generate: GenerateCode,
	}
}

// GenerateCode returns a uniformly random code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue creates a code for the account owning email and sends it. When
// delivery fails the stored code is left in place but the call fails with
// ErrDeliveryUnavailable so the client retries.
func (s *Service) Issue(ctx context.Context, email string) error {
	key := normalizeEmail(email)
	if key == "" {
		return ErrEmailRequired
	}

	u, err := s.store.FindByEmail(ctx, key)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return ErrUserNotFound
		}
		return err
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	s.codes.Put(key, Record{Code: code, ExpiresAt: s.now().Add(CodeTTL)})
	s.metrics.issued()

	if err := s.sender.Send(ctx, u.Email, code); err != nil {
		s.metrics.deliveryFailed()
		s.logger.Errorw("otp delivery failed", "email", key, "err", err)
		return apperr.Wrap(apperr.KindUnavailable, ErrDeliveryUnavailable.Message, err)
	}
	s.logger.Infow("otp issued", "email", key)
	return nil
}

// VerifyAndReset redeems code for email and sets newPassword. The match,
// expiry check and removal of the code happen as one step, so a code can
// reset the password at most once.
func (s *Service) VerifyAndReset(ctx context.Context, email, code, newPassword string) error {
	key := normalizeEmail(email)
	if key == "" || code == "" || newPassword == "" {
		return ErrFieldsRequired
	}

	// cheap pre-check so a wrong code never costs a bcrypt round
	if !s.codes.Matches(key, code, s.now()) {
		s.metrics.rejected()
		return ErrInvalidOrExpired
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	rec, ok := s.codes.Consume(key, code, s.now())
	if !ok {
		s.metrics.rejected()
		return ErrInvalidOrExpired
	}
	if err := s.store.UpdatePasswordHashByEmail(ctx, key, hash); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.metrics.rejected()
			return ErrInvalidOrExpired
		}
		s.codes.Restore(key, rec)
		return apperr.Wrap(apperr.KindInternal, "Server error", fmt.Errorf("update password: %w", err))
	}
	s.metrics.verified()
	s.logger.Infow("password reset via otp", "email", key)
	return nil
}
