package staff

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/photo"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

func newMux(f *fixture) *http.ServeMux {
	h := NewHandler(f.svc, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/employees", h.Create)
	mux.HandleFunc("GET /api/employees/all", h.List)
	mux.HandleFunc("GET /api/employees/{id}", h.Get)
	mux.HandleFunc("PUT /api/employees/{id}", h.Update)
	mux.HandleFunc("DELETE /api/employees/{id}", h.Delete)
	mux.HandleFunc("PUT /api/employees/{id}/reset-password", h.ResetPassword)
	mux.HandleFunc("GET /api/employees/search/query", h.Search)
	mux.HandleFunc("GET /api/profile", h.GetProfile)
	mux.HandleFunc("PUT /api/profile", h.UpdateProfile)
	mux.HandleFunc("POST /api/profile/upload-photo", h.UploadOwnPhoto)
	mux.HandleFunc("DELETE /api/profile/delete-photo", h.DeleteOwnPhoto)
	mux.HandleFunc("PUT /api/profile/employee/{id}", h.UpdateEmployeeProfile)
	return mux
}

func do(mux http.Handler, method, target string, body any, as *entity.Identity) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if as != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), as))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestHandler_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)

	rec := do(mux, http.MethodPost, "/api/employees", map[string]any{
		"employee_id": "E9", "name": "Nina", "email": "nina@example.com", "password": "pw123456", "dob": "1990-04-12",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Employee added successfully", body["message"])
	emp := body["employee"].(map[string]any)
	assert.Equal(t, "E9", emp["employee_id"])
	assert.Equal(t, "IT", emp["department"])
	assert.NotContains(t, rec.Body.String(), "password")

	id := emp["_id"].(string)
	rec = do(mux, http.MethodGet, "/api/employees/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "Nina", got["name"])
	assert.Equal(t, float64(12), got["leave_quota"])
	assert.NotContains(t, got, "password_hash")

	rec = do(mux, http.MethodPost, "/api/employees", map[string]any{
		"employee_id": "E9", "name": "Dup", "email": "dup@example.com", "password": "pw",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"Employee ID already exists"}`, rec.Body.String())
}

func TestHandler_GetErrors(t *testing.T) {
	mux := newMux(newFixture(t))
	rec := do(mux, http.MethodGet, "/api/employees/not-an-id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid employee ID format"}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/employees/12345", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Employee not found"}`, rec.Body.String())
}

func TestHandler_UpdateDOB(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)
	rec0, err := f.svc.Create(context.Background(), NewStaff{EmployeeID: "E1", Name: "A", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	rec := do(mux, http.MethodPut, "/api/employees/"+rec0.ID, `{"dob":"1991-02-03","position":"Lead"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	emp := decode(t, rec)["employee"].(map[string]any)
	assert.Equal(t, "Lead", emp["position"])
	assert.True(t, strings.HasPrefix(emp["dob"].(string), "1991-02-03"))

	rec = do(mux, http.MethodPut, "/api/employees/"+rec0.ID, `{"name":"B"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode(t, rec)["employee"].(map[string]any)["dob"], "absent dob is kept")

	rec = do(mux, http.MethodPut, "/api/employees/"+rec0.ID, `{"dob":null}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["employee"].(map[string]any)["dob"])

	rec = do(mux, http.MethodPut, "/api/employees/"+rec0.ID, `{"dob":"yesterday"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ResetPasswordAndSearch(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)
	a, err := f.svc.Create(context.Background(), NewStaff{EmployeeID: "E1", Name: "Alpha", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	rec := do(mux, http.MethodPut, "/api/employees/"+a.ID+"/reset-password", map[string]string{"newPassword": "abc"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Password must be at least 6 characters long"}`, rec.Body.String())

	rec = do(mux, http.MethodPut, "/api/employees/"+a.ID+"/reset-password", map[string]string{"newPassword": "abcdef"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successfully", decode(t, rec)["message"])

	rec = do(mux, http.MethodGet, "/api/employees/search/query", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, http.MethodGet, "/api/employees/search/query?q=alp", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hits []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "E1", hits[0]["employee_id"])
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandler_ProfilePhotoFlow(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)
	a, err := f.svc.Create(context.Background(), NewStaff{EmployeeID: "E1", Name: "Alpha", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	me := a.Identity()

	body, ct := multipartBody(t, "photo", "me.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "http://staff.local/api/profile/upload-photo", body)
	req.Header.Set("Content-Type", ct)
	req = req.WithContext(auth.WithIdentity(req.Context(), me))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	url := decode(t, rec)["photo"].(string)
	assert.True(t, strings.HasPrefix(url, "http://staff.local"+photo.PublicPrefix+"profile_"+a.ID+"_"), url)

	req = httptest.NewRequest(http.MethodGet, "http://staff.local/api/profile", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), me))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, url, decode(t, rec)["photo"])

	rec = do(mux, http.MethodDelete, "/api/profile/delete-photo", nil, me)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(mux, http.MethodDelete, "/api/profile/delete-photo", nil, me)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"No photo to delete"}`, rec.Body.String())
}

func TestHandler_UploadRejects(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)
	a, err := f.svc.Create(context.Background(), NewStaff{EmployeeID: "E1", Name: "Alpha", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		field  string
		file   string
		ctype  string
		size   int
		status int
	}{
		{"wrong field", "avatar", "me.png", "image/png", 10, http.StatusBadRequest},
		{"not image", "photo", "cv.pdf", "application/pdf", 10, http.StatusBadRequest},
		{"too large", "photo", "me.png", "image/png", photo.MaxSize + 10, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.file, tc.ctype, make([]byte, tc.size))
			req := httptest.NewRequest(http.MethodPost, "/api/profile/upload-photo", body)
			req.Header.Set("Content-Type", ct)
			req = req.WithContext(auth.WithIdentity(req.Context(), a.Identity()))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)
	a, err := f.svc.Create(context.Background(), NewStaff{EmployeeID: "E1", Name: "Alpha", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	rec := do(mux, http.MethodPut, "/api/profile", map[string]string{"phone": "1"}, a.Identity())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Name is required"}`, rec.Body.String())

	rec = do(mux, http.MethodPut, "/api/profile", map[string]string{"name": "Alpha 2", "phone": "1"}, a.Identity())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alpha 2", decode(t, rec)["user"].(map[string]any)["name"])

	rec = do(mux, http.MethodGet, "/api/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateEmployeeProfileIgnoresRole(t *testing.T) {
	f := newFixture(t)
	mux := newMux(f)
	a, err := f.svc.Create(context.Background(), NewStaff{EmployeeID: "E1", Name: "Alpha", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	rec := do(mux, http.MethodPut, "/api/profile/employee/"+a.ID, `{"role":"admin","department":"Ops"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode(t, rec)["employee"].(map[string]any)
	assert.Equal(t, "employee", emp["role"])
	assert.Equal(t, "Ops", emp["department"])
}
