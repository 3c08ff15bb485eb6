// Package errors provides structured error handling with error codes for simple-mfa.
//
// Errors carry a typed code, a human-readable message, optional details and
// the wrapped cause. Codes map to HTTP status codes for the API layer.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-mfa/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeInvalidInput, "code must be 6 digits")
//
//	// Wrap a storage failure
//	err := errors.Unavailable(dbErr, "failed to store passcode")
//
//	// Use convenience constructors
//	err := errors.UserNotFound(userID)
//	err := errors.VerificationFailed()
//
// # Error Codes
//
//   - ErrCodeInvalidInput: 400
//   - ErrCode2FAInvalid: 401
//   - ErrCodeUserNotFound: 404
//   - ErrCodeRateLimitExceeded: 429
//   - ErrCodeResourceUnavailable: 503
//   - ErrCodeInternal and anything unknown: 500
//
// # Error Inspection
//
//	if errors.IsCode(err, errors.ErrCode2FAInvalid) {
//	    // wrong, expired or reused code
//	}
//
//	if errors.IsRetryable(err) {
//	    // storage was unavailable, the caller may try again
//	}
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
//
// Wrapped causes stay reachable through the standard library:
//
//	stderrors.Is(err, context.DeadlineExceeded)
package errors
