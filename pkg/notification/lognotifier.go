package notification

import (
	"context"
	"log/slog"
)

// LogNotifier writes notices to a logger instead of delivering them. It stands
// in for email or SMS in development when no transport is configured.
type LogNotifier struct {
	System NotificationSystem
	Logger *slog.Logger
}

func NewLogNotifier(system NotificationSystem, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{System: system, Logger: logger}
}

func (l *LogNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	body, err := textBody(notification, template)
	if err != nil {
		return err
	}
	l.Logger.InfoContext(ctx, "Notification not delivered, no transport configured",
		"system", l.System,
		"notice", noticeType,
		"to", notification.To,
		"body", body,
	)
	return nil
}
