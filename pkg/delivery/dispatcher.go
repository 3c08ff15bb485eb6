package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tendant/simple-mfa/pkg/mfa"
	"github.com/tendant/simple-mfa/pkg/notification"
)

// Error is a failed passcode send. It is logged, never returned to callers
// of Send.
type Error struct {
	Channel mfa.Channel
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("deliver passcode via %s: %v", e.Channel, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var _ mfa.Sender = (*Dispatcher)(nil)

// Dispatcher picks a channel for each user and sends the passcode through the
// notification manager. Systems without a registered notifier fall back to a
// log notifier.
type Dispatcher struct {
	manager  *notification.NotificationManager
	fallback map[notification.NotificationSystem]notification.Notifier
	config   Config
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil manager delivers everything
// through the log fallback using the default templates.
func NewDispatcher(manager *notification.NotificationManager, config Config, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if manager == nil {
		var err error
		manager, err = notification.NewNotificationManagerWithOptions(notification.WithDefaultTemplates())
		if err != nil {
			return nil, err
		}
	}

	return &Dispatcher{
		manager: manager,
		fallback: map[notification.NotificationSystem]notification.Notifier{
			notification.EmailSystem: notification.NewLogNotifier(notification.EmailSystem, logger),
			notification.SMSSystem:   notification.NewLogNotifier(notification.SMSSystem, logger),
		},
		config: config.withDefaults(),
		logger: logger,
	}, nil
}

// SelectChannel returns SMS for users who chose it and have a phone number,
// and email otherwise.
func SelectChannel(user mfa.User) mfa.Channel {
	if user.MfaMethod == mfa.MethodSMS && user.Phone != "" {
		return mfa.ChannelSMS
	}
	return mfa.ChannelEmail
}

// Send delivers code to user and returns the channel used. A failed send is
// logged at the configured level and the channel is still returned.
func (d *Dispatcher) Send(ctx context.Context, user mfa.User, code string) mfa.Channel {
	channel := SelectChannel(user)

	if err := d.send(ctx, channel, user, code); err != nil {
		d.logger.Log(ctx, d.config.FailureLevel.Level(), "Failed to deliver passcode",
			"channel", channel,
			"user_ref", user.ID,
			"err", &Error{Channel: channel, Err: err},
		)
	}
	return channel
}

func (d *Dispatcher) send(ctx context.Context, channel mfa.Channel, user mfa.User, code string) error {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	system := notification.EmailSystem
	to := user.Email
	if channel == mfa.ChannelSMS {
		system = notification.SMSSystem
		to = user.Phone
	}

	data := notification.NotificationData{
		To: to,
		Data: map[string]string{
			"Passcode":         code,
			"AppName":          d.config.AppName,
			"ExpiresInMinutes": strconv.Itoa(int(d.config.TTL.Minutes())),
		},
	}

	if d.manager.HasNotifier(system) {
		return d.manager.Send(ctx, notification.MfaCodeNotice, system, data)
	}

	template, err := d.manager.Template(notification.MfaCodeNotice, system)
	if err != nil {
		return err
	}
	return d.fallback[system].Send(ctx, notification.MfaCodeNotice, data, template)
}
