package passcode

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the validity window of an issued passcode.
const DefaultTTL = 10 * time.Minute

// CodeLength is the number of digits in a passcode.
const CodeLength = 6

// Passcode is a single issued one-time code.
//
// ConsumedAt is nil while the code is unused. Once set it never changes.
type Passcode struct {
	ID         uuid.UUID  `json:"id"`
	UserRef    string     `json:"user_ref"`
	Code       string     `json:"code"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// IsActive reports whether the passcode can still be consumed at now.
func (p Passcode) IsActive(now time.Time) bool {
	return p.ConsumedAt == nil && p.ExpiresAt.After(now)
}

// IsExpired reports whether the passcode's window has closed at now.
func (p Passcode) IsExpired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// CreateParams describes a new passcode.
type CreateParams struct {
	UserRef string
	Code    string
	Now     time.Time
	// TTL defaults to DefaultTTL when zero.
	TTL time.Duration
}

func (p CreateParams) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultTTL
	}
	return p.TTL
}

// newPasscode builds the record a repository stores for params.
func newPasscode(params CreateParams) Passcode {
	now := params.Now.UTC()
	return Passcode{
		ID:        uuid.New(),
		UserRef:   params.UserRef,
		Code:      params.Code,
		CreatedAt: now,
		ExpiresAt: now.Add(params.ttl()),
	}
}
