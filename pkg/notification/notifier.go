package notification

import "context"

// NotificationSystem represents a delivery system (e.g., email, SMS).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "mfa_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"

	MfaCodeNotice NoticeType = "mfa_code"
)

type NotificationData struct {
	To      string            // Recipient identifier (email address or phone number)
	Subject string            // Optional: overrides the template subject
	Body    string            // Optional: pre-rendered content, used when the template has no text
	Data    map[string]string // Template values (e.g., Passcode, AppName)
}

// NoticeTemplate holds the subject and bodies rendered for a notice.
// Text and Html are Go templates executed against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
