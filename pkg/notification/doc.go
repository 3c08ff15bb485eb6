// Package notification provides a unified interface for sending notifications via multiple channels.
//
// This package defines the Notifier interface and provides implementations for email (SMTP)
// and SMS (Twilio), a log notifier for development, and a mock notifier for tests.
//
// # Features
//
//   - Unified Notifier interface for all notification systems
//   - Email via SMTP (with TLS support) using go-mail
//   - SMS via Twilio
//   - HTML and plain text templates embedded in the binary
//   - Context-aware sends, so callers can bound delivery time
//   - Log notifier for development without a transport
//   - Mock notifier for testing
//
// # Core Interface
//
//	type Notifier interface {
//	    Send(ctx context.Context, noticeType NoticeType, data NotificationData, template NoticeTemplate) error
//	}
//
// # Notification Manager
//
// The manager maps each system to a notifier and each (notice type, system)
// pair to a template:
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(notification.SMTPConfig{
//	        Host: "localhost",
//	        Port: 1025,
//	        From: "noreply@example.com",
//	    }),
//	    notification.WithTwilio(notification.TwilioConfig{
//	        TwilioAccountSid: sid,
//	        TwilioAuthToken:  token,
//	        TwilioFrom:       "+15005550006",
//	    }),
//	    notification.WithDefaultTemplates(),
//	)
//
//	err = nm.Send(ctx, notification.MfaCodeNotice, notification.EmailSystem, notification.NotificationData{
//	    To: "user@example.com",
//	    Data: map[string]string{
//	        "Passcode":         "123456",
//	        "AppName":          "Acme",
//	        "ExpiresInMinutes": "10",
//	    },
//	})
//
// # Templates
//
// Templates are Go templates executed against NotificationData.Data. Text uses
// text/template and Html uses html/template. Missing keys render empty.
//
// The MFA code templates live under templates/ and are embedded with go:embed.
//
// # Local Development (Mailpit)
//
//	docker run -p 1025:1025 -p 8025:8025 axllent/mailpit
//
//	smtpConfig := notification.SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@localhost"}
//
// View emails at http://localhost:8025
package notification
