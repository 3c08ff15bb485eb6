package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := New(ErrCodeInvalidInput, "code must be 6 digits")
	assert.Equal(t, "[INVALID_INPUT] code must be 6 digits", err.Error())

	wrapped := Wrap(context.DeadlineExceeded, ErrCodeResourceUnavailable, "failed to store passcode")
	assert.Equal(t, "[RESOURCE_UNAVAILABLE] failed to store passcode: context deadline exceeded", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, context.DeadlineExceeded))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("verify: %w", VerificationFailed())

	assert.True(t, IsCode(err, ErrCode2FAInvalid))
	assert.False(t, IsCode(err, ErrCodeInvalidInput))
	assert.Equal(t, ErrCode2FAInvalid, GetCode(err))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestRateLimitExceededDetails(t *testing.T) {
	err := RateLimitExceeded("30s")
	assert.Equal(t, "30s", err.Details["retry_after"])
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatusCode())

	assert.Nil(t, RateLimitExceeded("").Details)
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCode2FAInvalid, http.StatusUnauthorized},
		{ErrCodeUserNotFound, http.StatusNotFound},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeResourceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Unavailable(stderrors.New("conn refused"), "failed to consume passcode")))
	assert.False(t, IsRetryable(VerificationFailed()))
	assert.False(t, IsRetryable(UserNotFound("u1")))
	assert.False(t, IsRetryable(Internal("no user directory configured")))
}
