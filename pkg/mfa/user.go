package mfa

import "context"

// Preferred second factor methods stored on a user.
const (
	MethodEmail = "email"
	MethodSMS   = "sms"
)

// User is the subset of a user profile needed to deliver a passcode.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	MfaMethod string `json:"mfa_method,omitempty"`
}

// UserDirectory resolves users by ID. It is read-only from the service's
// point of view.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// Channel is the transport a passcode was sent through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Sender delivers a passcode to a user and reports the channel it chose.
// Delivery is best-effort: failures are handled by the sender and never
// reach the caller.
type Sender interface {
	Send(ctx context.Context, user User, code string) Channel
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, user User, code string) Channel

func (f SenderFunc) Send(ctx context.Context, user User, code string) Channel {
	return f(ctx, user, code)
}
