package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/repo"
)

type fakeSender struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (f *fakeSender) Send(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[email] = code
	return nil
}

func (f *fakeSender) last(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[email]
}

// failingUpdates wraps a repo and fails password writes.
type failingUpdates struct {
	*repo.MemoryRepo
	err error
}

func (f failingUpdates) UpdatePasswordHashByEmail(context.Context, string, string) error {
	return f.err
}

var hasher = auth.BcryptHasher{Cost: 4}

type fixture struct {
	svc    *Service
	staff  *repo.MemoryRepo
	codes  *Store
	sender *fakeSender
	now    *time.Time
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	staff := repo.NewMemoryRepo()
	hash, err := hasher.Hash("1234")
	require.NoError(t, err)
	require.NoError(t, staff.Create(context.Background(), &entity.Staff{
		ID: "7", EmployeeID: "ISARED025014", Name: "Rahul", Email: "employee@example.com",
		PasswordHash: hash, Role: entity.RoleEmployee,
	}))

	now := t0
	codes := NewStore()
	sender := &fakeSender{}
	reg := prometheus.NewRegistry()
	svc := NewService(staff, codes, sender, hasher, NewMetrics(reg, codes), zap.NewNop().Sugar())
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, staff: staff, codes: codes, sender: sender, now: &now, reg: reg}
}

func (f *fixture) passwordIs(t *testing.T, pw string) bool {
	t.Helper()
	u, err := f.staff.FindByEmail(context.Background(), "employee@example.com")
	require.NoError(t, err)
	return hasher.Verify(u.PasswordHash, pw)
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, c, 6)
		assert.GreaterOrEqual(t, c, "100000")
		assert.LessOrEqual(t, c, "999999")
	}
}

func TestIssue_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Issue(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 0, f.codes.Len())
}

func TestIssue_EmptyEmail(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Issue(context.Background(), "  "), ErrEmailRequired)
}

func TestIssue_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("smtp down")

	err := f.svc.Issue(context.Background(), "employee@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.Equal(t, "Email service unavailable. Please try again.", apperr.MessageOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.outcomes.WithLabelValues("delivery_failed")))
}

func TestVerifyAndReset_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Issue(ctx, " Employee@Example.com "))
	code := f.sender.last("employee@example.com")
	require.NotEmpty(t, code)

	require.NoError(t, f.svc.VerifyAndReset(ctx, "employee@example.com", code, "n3w-pass"))
	assert.True(t, f.passwordIs(t, "n3w-pass"))
	assert.False(t, f.passwordIs(t, "1234"))

	err := f.svc.VerifyAndReset(ctx, "employee@example.com", code, "other")
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "replay")
	assert.True(t, f.passwordIs(t, "n3w-pass"))
}

func TestVerifyAndReset_WrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))

	wrong := "000000"
	if f.sender.last("employee@example.com") == wrong {
		wrong = "000001"
	}
	assert.ErrorIs(t, f.svc.VerifyAndReset(ctx, "employee@example.com", wrong, "x"), ErrInvalidOrExpired)
	assert.True(t, f.passwordIs(t, "1234"))
	assert.Equal(t, 1, f.codes.Len())
}

func TestVerifyAndReset_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))
	code := f.sender.last("employee@example.com")

	*f.now = t0.Add(CodeTTL)
	assert.ErrorIs(t, f.svc.VerifyAndReset(ctx, "employee@example.com", code, "x"), ErrInvalidOrExpired)
	assert.True(t, f.passwordIs(t, "1234"))
}

func TestVerifyAndReset_ReissueInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codes := []string{"111111", "222222"}
	var i int
	f.svc.generate = func() (string, error) { c := codes[i]; i++; return c, nil }

	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))
	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))

	assert.ErrorIs(t, f.svc.VerifyAndReset(ctx, "employee@example.com", "111111", "x"), ErrInvalidOrExpired)
	assert.NoError(t, f.svc.VerifyAndReset(ctx, "employee@example.com", "222222", "y"))
}

func TestVerifyAndReset_MissingFields(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.VerifyAndReset(context.Background(), "employee@example.com", "", "x"), ErrFieldsRequired)
	assert.ErrorIs(t, f.svc.VerifyAndReset(context.Background(), "employee@example.com", "123456", ""), ErrFieldsRequired)
}

func TestVerifyAndReset_UpdateFailureRestoresCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))
	code := f.sender.last("employee@example.com")

	f.svc.store = failingUpdates{MemoryRepo: f.staff, err: errors.New("connection reset")}
	err := f.svc.VerifyAndReset(ctx, "employee@example.com", code, "x")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.True(t, f.codes.Matches("employee@example.com", code, t0), "code is usable again")

	f.svc.store = f.staff
	assert.NoError(t, f.svc.VerifyAndReset(ctx, "employee@example.com", code, "x"))
}

func TestVerifyAndReset_AccountDeletedAfterIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))
	code := f.sender.last("employee@example.com")
	require.NoError(t, f.staff.Delete(ctx, "7"))

	err := f.svc.VerifyAndReset(ctx, "employee@example.com", code, "newpass")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, 400, apperr.HTTPStatus(apperr.KindOf(err)))
	assert.False(t, f.codes.Matches("employee@example.com", code, t0), "code is spent")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.outcomes.WithLabelValues("rejected")))
}

func TestVerifyAndReset_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Issue(ctx, "employee@example.com"))
	code := f.sender.last("employee@example.com")

	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := f.svc.VerifyAndReset(ctx, "employee@example.com", code, "race-pass")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInvalidOrExpired):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 15, rejected.Load())
	assert.True(t, f.passwordIs(t, "race-pass"))
}

func post(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandler_Flow(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, zap.NewNop().Sugar())

	rec := post(h.RequestCode, RequestCodeRequest{Email: "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())

	rec = post(h.RequestCode, RequestCodeRequest{Email: "employee@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"OTP sent to your email"}`, rec.Body.String())

	code := f.sender.last("employee@example.com")
	rec = post(h.Reset, ResetRequest{Email: "employee@example.com", OTP: code, NewPassword: "abc123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Password changed successfully"}`, rec.Body.String())

	rec = post(h.Reset, ResetRequest{Email: "employee@example.com", OTP: code, NewPassword: "abc123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid or expired OTP"}`, rec.Body.String())
}

func TestHandler_DeliveryUnavailable(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("boom")
	h := NewHandler(f.svc, zap.NewNop().Sugar())

	rec := post(h.RequestCode, RequestCodeRequest{Email: "employee@example.com"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSweeper_Run(t *testing.T) {
	codes := NewStore()
	codes.Put("a@x.com", Record{Code: "123456", ExpiresAt: t0})
	s, err := NewSweeper(codes, DefaultSweepSpec, zap.NewNop().Sugar())
	require.NoError(t, err)
	s.now = func() time.Time { return t0 }
	s.run()
	assert.Equal(t, 0, codes.Len())

	_, err = NewSweeper(codes, "not a spec", zap.NewNop().Sugar())
	assert.Error(t, err)
}
