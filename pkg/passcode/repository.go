package passcode

import (
	"context"
	"errors"
	"time"
)

// ErrPasscodeNotFound is returned by ConsumeByCode when no active,
// unexpired passcode matches the code.
var ErrPasscodeNotFound = errors.New("passcode not found")

// Repository persists passcodes.
//
// Issue is InvalidateActive followed by Create, applied as one atomic unit: a
// concurrent ConsumeByCode observes either the old active passcode or the new
// one, never both and never neither. Callers that need the single-active-code
// guarantee use Issue; InvalidateActive and Create are exposed for maintenance.
//
// ConsumeByCode picks the most recently created matching passcode and marks
// it consumed with a conditional update, so concurrent calls for the same code
// succeed at most once.
type Repository interface {
	InvalidateActive(ctx context.Context, userRef string, now time.Time) (int64, error)
	Create(ctx context.Context, params CreateParams) (Passcode, error)
	Issue(ctx context.Context, params CreateParams) (Passcode, error)
	ConsumeByCode(ctx context.Context, code string, now time.Time) (Passcode, error)
	FindActiveByUser(ctx context.Context, userRef string, now time.Time) ([]Passcode, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
