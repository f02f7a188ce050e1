package staff

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/photo"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

const dateLayout = "2006-01-02"

var errInvalidDOB = apperr.InvalidInput("dob must be a YYYY-MM-DD date")

// Handler exposes the employee administration and profile endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the body of POST /api/employees.
type CreateRequest struct {
	EmployeeID       string      `json:"employee_id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Password         string      `json:"password"`
	Phone            string      `json:"phone"`
	Role             entity.Role `json:"role"`
	Department       string      `json:"department"`
	Position         string      `json:"position"`
	CurrentAddress   string      `json:"currentAddress"`
	PermanentAddress string      `json:"permanentAddress"`
	Aadhar           *string     `json:"aadhar"`
	LeaveQuota       int         `json:"leave_quota"`
	DOB              string      `json:"dob"`
}

// UpdateRequest is a partial update; absent fields are left alone and
// "dob": null clears the date of birth.
type UpdateRequest struct {
	Name             *string         `json:"name"`
	Email            *string         `json:"email"`
	Phone            *string         `json:"phone"`
	Role             *entity.Role    `json:"role"`
	Department       *string         `json:"department"`
	Position         *string         `json:"position"`
	CurrentAddress   *string         `json:"currentAddress"`
	PermanentAddress *string         `json:"permanentAddress"`
	Aadhar           *string         `json:"aadhar"`
	LeaveQuota       *int            `json:"leave_quota"`
	DOB              json.RawMessage `json:"dob"`
}

func parseDOB(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errInvalidDOB
	}
	t = t.UTC().Truncate(24 * time.Hour)
	return &t, nil
}

func (u UpdateRequest) patch() (entity.StaffPatch, error) {
	p := entity.StaffPatch{
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		Role:             u.Role,
		Department:       u.Department,
		Position:         u.Position,
		CurrentAddress:   u.CurrentAddress,
		PermanentAddress: u.PermanentAddress,
		Aadhar:           u.Aadhar,
		LeaveQuota:       u.LeaveQuota,
	}
	if len(u.DOB) == 0 {
		return p, nil
	}
	p.DOBSet = true
	if string(u.DOB) == "null" {
		return p, nil
	}
	var s string
	if err := json.Unmarshal(u.DOB, &s); err != nil {
		return p, errInvalidDOB
	}
	dob, err := parseDOB(s)
	if err != nil {
		return p, err
	}
	p.DOB = dob
	return p, nil
}

// view returns a copy of rec with the photo key resolved to a URL.
func (h *Handler) view(r *http.Request, rec *entity.Staff) *entity.Staff {
	out := *rec
	if rec.Photo != nil {
		u, err := h.svc.PhotoURL(r.Context(), httpx.BaseURL(r), *rec.Photo)
		if err != nil {
			h.logger.Warnw("resolve photo url", "id", rec.ID, "err", err)
			out.Photo = nil
		} else {
			out.Photo = &u
		}
	}
	return &out
}

func (h *Handler) views(r *http.Request, recs []*entity.Staff) []*entity.Staff {
	out := make([]*entity.Staff, 0, len(recs))
	for _, rec := range recs {
		out = append(out, h.view(r, rec))
	}
	return out
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

// ---- employee administration ----

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	dob, err := parseDOB(req.DOB)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Create(r.Context(), NewStaff{
		EmployeeID:       req.EmployeeID,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		Phone:            req.Phone,
		Role:             req.Role,
		Department:       req.Department,
		Position:         req.Position,
		CurrentAddress:   req.CurrentAddress,
		PermanentAddress: req.PermanentAddress,
		Aadhar:           req.Aadhar,
		LeaveQuota:       req.LeaveQuota,
		DOB:              dob,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Employee added successfully",
		"employee": map[string]any{
			"_id":         rec.ID,
			"employee_id": rec.EmployeeID,
			"name":        rec.Name,
			"email":       rec.Email,
			"role":        rec.Role,
			"department":  rec.Department,
			"position":    rec.Position,
			"dob":         rec.DOB,
		},
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.views(r, recs))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.view(r, rec))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, restrict func(*entity.StaffPatch)) {
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if restrict != nil {
		restrict(&p)
	}
	rec, err := h.svc.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Employee updated successfully",
		"employee": h.view(r, rec),
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, nil)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Employee deleted successfully")
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.ResetPassword(r.Context(), r.PathValue("id"), req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Password reset successfully",
		"employee": map[string]string{
			"_id":         rec.ID,
			"employee_id": rec.EmployeeID,
			"name":        rec.Name,
			"email":       rec.Email,
		},
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.views(r, recs))
}

// ---- profile ----

func callerID(r *http.Request) (string, error) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		return "", auth.ErrMissingToken
	}
	return id.ID, nil
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.view(r, rec))
}

type profileRequest struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	CurrentAddress   string `json:"currentAddress"`
	PermanentAddress string `json:"permanentAddress"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.UpdateProfile(r.Context(), id, ProfileUpdate(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    h.view(r, rec),
	})
}

// readUpload pulls the "photo" part out of a multipart request, capped at
// photo.MaxSize.
func readUpload(w http.ResponseWriter, r *http.Request) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, photo.MaxSize+1<<20)
	f, hdr, err := r.FormFile("photo")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return Upload{}, photo.ErrTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return Upload{}, photo.ErrNoFile
		default:
			return Upload{}, apperr.Wrap(apperr.KindInvalidInput, "Invalid upload", err)
		}
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, photo.MaxSize+1))
	if err != nil {
		return Upload{}, apperr.Wrap(apperr.KindInvalidInput, "Invalid upload", err)
	}
	return Upload{Filename: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}, nil
}

func (h *Handler) uploadPhoto(w http.ResponseWriter, r *http.Request, id string) {
	up, err := readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key, err := h.svc.ReplacePhoto(r.Context(), id, up)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.PhotoURL(r.Context(), httpx.BaseURL(r), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Photo uploaded successfully",
		"photo":   u,
	})
}

func (h *Handler) deletePhoto(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.RemovePhoto(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Photo deleted successfully")
}

func (h *Handler) UploadOwnPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.uploadPhoto(w, r, id)
}

func (h *Handler) DeleteOwnPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.deletePhoto(w, r, id)
}

func (h *Handler) UploadEmployeePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.uploadPhoto(w, r, id)
}

func (h *Handler) DeleteEmployeePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.deletePhoto(w, r, id)
}

// UpdateEmployeeProfile is the admin profile edit; role, leave quota and
// date of birth are managed through the employee endpoints only.
func (h *Handler) UpdateEmployeeProfile(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(p *entity.StaffPatch) {
		p.Role = nil
		p.LeaveQuota = nil
		p.DOBSet, p.DOB = false, nil
	})
}
