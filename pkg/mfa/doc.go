// Package mfa issues and verifies one-time passcodes for multi-factor
// authentication.
//
// A Service ties together a passcode.Repository, a code generator, a Sender
// and a clock:
//
//	service := mfa.NewService(repo, dispatcher,
//		mfa.WithTTL(10*time.Minute),
//		mfa.WithUserDirectory(users),
//	)
//
//	result, err := service.IssueCode(ctx, user)
//	// result.Channel is "email" or "sms"
//
//	verified, err := service.VerifyCode(ctx, submitted)
//	// verified.UserRef identifies the user who received the code
//
// Issuing a code supersedes the user's earlier codes. A code verifies at most
// once and only before it expires. Delivery failures never fail IssueCode; the
// Sender reports the channel it selected and logs its own failures.
//
// Errors are *errors.Error values from pkg/errors:
//   - invalid input (empty user, malformed code): ErrCodeInvalidInput
//   - wrong, expired or used code: ErrCode2FAInvalid
//   - storage failure: ErrCodeResourceUnavailable, safe to retry
package mfa
