// Package staff implements employee administration and self-service
// profiles on top of the staff store.
package staff

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/photo"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
	"github.com/ovaphlow/pitchfork/service-staff-go/pkg/utilities"
)

const (
	DefaultDepartment = "IT"
	DefaultLeaveQuota = 12
	MinPasswordLen    = 6
)

var (
	ErrInvalidID       = apperr.InvalidInput("Invalid employee ID format")
	ErrMissingFields   = apperr.InvalidInput("Employee ID, name, email, and password are required")
	ErrInvalidRole     = apperr.InvalidInput("Role must be admin or employee")
	ErrShortPassword   = apperr.InvalidInput("Password must be at least 6 characters long")
	ErrNameRequired    = apperr.InvalidInput("Name is required")
	ErrQueryRequired   = apperr.InvalidInput("Search query is required")
	ErrProfileNotFound = apperr.New(apperr.KindNotFound, "Profile not found")
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, s *entity.Staff) error
	FindByID(ctx context.Context, id string) (*entity.Staff, error)
	List(ctx context.Context) ([]*entity.Staff, error)
	Search(ctx context.Context, term string) ([]*entity.Staff, error)
	Update(ctx context.Context, id string, p entity.StaffPatch) (*entity.Staff, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetPhoto(ctx context.Context, id string, photo *string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*entity.Stats, error)
}

type Service struct {
	store  Store
	photos photo.Store
	hasher auth.PasswordHasher
	newID  func() string
	logger *zap.SugaredLogger
}

func NewService(store Store, photos photo.Store, hasher auth.PasswordHasher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = auth.BcryptHasher{Cost: 10}
	}
	return &Service{store: store, photos: photos, hasher: hasher, newID: utilities.NewSnowflakeID, logger: logger}
}

// ParseID validates a staff id taken from a URL.
func ParseID(raw string) (string, error) {
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return "", ErrInvalidID
	}
	return raw, nil
}

// NewStaff is the input for Create. Zero values take the record defaults.
type NewStaff struct {
	EmployeeID       string
	Name             string
	Email            string
	Password         string
	Phone            string
	Role             entity.Role
	Department       string
	Position         string
	CurrentAddress   string
	PermanentAddress string
	Aadhar           *string
	LeaveQuota       int
	DOB              *time.Time
}

func (s *Service) Create(ctx context.Context, in NewStaff) (*entity.Staff, error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.Email = strings.TrimSpace(in.Email)
	if in.EmployeeID == "" || in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if in.Role == "" {
		in.Role = entity.RoleEmployee
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if in.Department == "" {
		in.Department = DefaultDepartment
	}
	if in.LeaveQuota == 0 {
		in.LeaveQuota = DefaultLeaveQuota
	}
	if in.Aadhar != nil && *in.Aadhar == "" {
		in.Aadhar = nil
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	rec := &entity.Staff{
		ID:               s.newID(),
		EmployeeID:       in.EmployeeID,
		Name:             in.Name,
		Email:            in.Email,
		Phone:            in.Phone,
		PasswordHash:     hash,
		Role:             in.Role,
		Position:         in.Position,
		DOB:              in.DOB,
		CurrentAddress:   in.CurrentAddress,
		PermanentAddress: in.PermanentAddress,
		Department:       in.Department,
		LeaveQuota:       in.LeaveQuota,
		Aadhar:           in.Aadhar,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Infow("employee created", "id", rec.ID, "employee_id", rec.EmployeeID)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Staff, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*entity.Staff, error) {
	return s.store.List(ctx)
}

func (s *Service) Search(ctx context.Context, q string) ([]*entity.Staff, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrQueryRequired
	}
	return s.store.Search(ctx, q)
}

func (s *Service) Stats(ctx context.Context) (*entity.Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) Update(ctx context.Context, id string, p entity.StaffPatch) (*entity.Staff, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}
	if p.Role != nil && !p.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, ErrNameRequired
	}
	if p.Email != nil {
		e := strings.TrimSpace(*p.Email)
		if e == "" {
			p.Email = nil
		} else {
			p.Email = &e
		}
	}
	return s.store.Update(ctx, id, p)
}

// Delete removes the record and, best effort, its photo object.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if rec.Photo != nil {
		s.dropPhoto(ctx, *rec.Photo)
	}
	s.logger.Infow("employee deleted", "id", id, "employee_id", rec.EmployeeID)
	return nil
}

// ResetPassword sets a new password for id on an administrator's behalf.
func (s *Service) ResetPassword(ctx context.Context, id, newPassword string) (*entity.Staff, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}
	if len(newPassword) < MinPasswordLen {
		return nil, ErrShortPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, id, hash); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

// Profile returns the caller's own record.
func (s *Service) Profile(ctx context.Context, id string) (*entity.Staff, error) {
	rec, err := s.store.FindByID(ctx, id)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, ErrProfileNotFound
	}
	return rec, err
}

// ProfileUpdate is the self-service subset of editable fields.
type ProfileUpdate struct {
	Name             string
	Phone            string
	CurrentAddress   string
	PermanentAddress string
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*entity.Staff, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	rec, err := s.store.Update(ctx, id, entity.StaffPatch{
		Name:             &in.Name,
		Phone:            &in.Phone,
		CurrentAddress:   &in.CurrentAddress,
		PermanentAddress: &in.PermanentAddress,
	})
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, ErrProfileNotFound
	}
	return rec, err
}

// Upload is a received photo file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReplacePhoto stores up as id's photo and returns the new object key. The
// previous object is removed once the record points at the new one; if the
// record update fails the new object is removed instead.
func (s *Service) ReplacePhoto(ctx context.Context, id string, up Upload) (string, error) {
	if err := photo.Validate(up.Filename, up.ContentType, int64(len(up.Data))); err != nil {
		return "", err
	}
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	key, err := s.photos.Save(ctx, photo.NewObjectName(id, up.Filename), up.ContentType, up.Data)
	if err != nil {
		return "", err
	}
	if err := s.store.SetPhoto(ctx, id, &key); err != nil {
		s.dropPhoto(ctx, key)
		return "", err
	}
	if rec.Photo != nil {
		s.dropPhoto(ctx, *rec.Photo)
	}
	s.logger.Infow("photo replaced", "id", id, "key", key)
	return key, nil
}

func (s *Service) RemovePhoto(ctx context.Context, id string) error {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Photo == nil {
		return photo.ErrNoPhoto
	}
	if err := s.store.SetPhoto(ctx, id, nil); err != nil {
		return err
	}
	s.dropPhoto(ctx, *rec.Photo)
	return nil
}

func (s *Service) dropPhoto(ctx context.Context, key string) {
	if err := s.photos.Delete(ctx, key); err != nil {
		s.logger.Warnw("photo delete failed", "key", key, "err", err)
	}
}

// PhotoURL resolves a stored key for the client. baseURL is the request's
// scheme://host.
func (s *Service) PhotoURL(ctx context.Context, baseURL, key string) (string, error) {
	return s.photos.URL(ctx, baseURL, key)
}
