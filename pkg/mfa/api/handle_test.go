package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-mfa/pkg/clock"
	"github.com/tendant/simple-mfa/pkg/directory"
	"github.com/tendant/simple-mfa/pkg/mfa"
	"github.com/tendant/simple-mfa/pkg/passcode"
	"github.com/tendant/simple-mfa/pkg/ratelimit"
)

type codeCapture struct {
	last string
}

func (c *codeCapture) Send(ctx context.Context, user mfa.User, code string) mfa.Channel {
	c.last = code
	if user.MfaMethod == mfa.MethodSMS && user.Phone != "" {
		return mfa.ChannelSMS
	}
	return mfa.ChannelEmail
}

type failingRepository struct {
	passcode.Repository
}

func (failingRepository) Issue(ctx context.Context, params passcode.CreateParams) (passcode.Passcode, error) {
	return passcode.Passcode{}, errors.New("connection refused")
}

func (failingRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (passcode.Passcode, error) {
	return passcode.Passcode{}, errors.New("connection refused")
}

var users = directory.NewInMemoryDirectory(
	mfa.User{ID: "user-a", Email: "a@example.com"},
	mfa.User{ID: "user-b", Phone: "+15551234567", MfaMethod: mfa.MethodSMS},
)

func setupHandler(t *testing.T, repo passcode.Repository, limiter func(http.Handler) http.Handler) (http.Handler, *codeCapture, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	capture := &codeCapture{}
	svc := mfa.NewService(repo, capture, mfa.WithClock(mock), mfa.WithUserDirectory(users))
	return Routes(NewHandler(svc), limiter), capture, mock
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestIssueAndVerify(t *testing.T) {
	h, capture, mock := setupHandler(t, passcode.NewInMemoryRepository(), nil)

	rec := post(t, h, "/issue", IssueCodeRequest{UserID: "user-b"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sms", decode[IssueCodeResponse](t, rec).Channel)
	assert.NotContains(t, rec.Body.String(), capture.last, "code is never returned")

	mock.Advance(time.Minute)
	rec = post(t, h, "/verify", VerifyCodeRequest{Code: capture.last})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-b", decode[VerifyCodeResponse](t, rec).UserRef)

	rec = post(t, h, "/verify", VerifyCodeRequest{Code: capture.last})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TWO_FA_INVALID", decode[ErrorResponse](t, rec).Code)
}

func TestIssueErrors(t *testing.T) {
	h, _, _ := setupHandler(t, passcode.NewInMemoryRepository(), nil)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed body", "{", http.StatusBadRequest, "INVALID_INPUT"},
		{"empty body", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"missing user", IssueCodeRequest{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown user", IssueCodeRequest{UserID: "nobody"}, http.StatusNotFound, "USER_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, "/issue", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestVerifyErrors(t *testing.T) {
	h, capture, mock := setupHandler(t, passcode.NewInMemoryRepository(), nil)

	require.Equal(t, http.StatusOK, post(t, h, "/issue", IssueCodeRequest{UserID: "user-a"}).Code)
	mock.Advance(11 * time.Minute)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed body", "not json", http.StatusBadRequest},
		{"empty code", VerifyCodeRequest{Code: "   "}, http.StatusBadRequest},
		{"non numeric", VerifyCodeRequest{Code: "abcdef"}, http.StatusBadRequest},
		{"expired code", VerifyCodeRequest{Code: capture.last}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, post(t, h, "/verify", tt.body).Code)
		})
	}
}

func TestInternalErrorNotRetryable(t *testing.T) {
	svc := mfa.NewService(passcode.NewInMemoryRepository(), &codeCapture{})
	h := Routes(NewHandler(svc), nil)

	rec := post(t, h, "/issue", IssueCodeRequest{UserID: "user-a"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "An error occurred, please try again later", decode[ErrorResponse](t, rec).Error)
}

func TestPersistenceUnavailable(t *testing.T) {
	h, _, _ := setupHandler(t, failingRepository{}, nil)

	rec := post(t, h, "/issue", IssueCodeRequest{UserID: "user-a"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = post(t, h, "/verify", VerifyCodeRequest{Code: "123456"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "RESOURCE_UNAVAILABLE", decode[ErrorResponse](t, rec).Code)
}

func TestVerifyRateLimited(t *testing.T) {
	limiter := ratelimit.NewMiddleware(&ratelimit.Config{
		Capacity:   3,
		RefillRate: 1.0 / 60.0,
		Clock:      clock.NewMock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)),
	})
	h, _, _ := setupHandler(t, passcode.NewInMemoryRepository(), limiter.Handler)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, post(t, h, "/verify", VerifyCodeRequest{Code: "000000"}).Code)
	}
	rec := post(t, h, "/verify", VerifyCodeRequest{Code: "000000"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// issuing is not limited
	assert.Equal(t, http.StatusOK, post(t, h, "/issue", IssueCodeRequest{UserID: "user-a"}).Code)
}
