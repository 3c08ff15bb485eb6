package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	TwilioAccountSid string
	TwilioAuthToken  string
	TwilioFrom       string
}

// messageCreator is satisfied by the Twilio API v2010 service.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type SMSNotifier struct {
	client       messageCreator
	TwilioConfig TwilioConfig
}

func NewSMSNotifier(config TwilioConfig) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.TwilioAccountSid,
		Password: config.TwilioAuthToken,
	})
	return &SMSNotifier{
		client:       client.Api,
		TwilioConfig: config,
	}
}

type smsResult struct {
	sid string
	err error
}

func (s *SMSNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	body, err := textBody(notification, template)
	if err != nil {
		return fmt.Errorf("failed to render sms template: %w", err)
	}
	if notification.To == "" || body == "" {
		return fmt.Errorf("SMS notification requires 'To' and 'Body'")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(notification.To)
	params.SetFrom(s.TwilioConfig.TwilioFrom)
	params.SetBody(body)

	// the Twilio client takes no context; abandon the call when ctx ends
	done := make(chan smsResult, 1)
	go func() {
		resp, err := s.client.CreateMessage(params)
		res := smsResult{err: err}
		if err == nil && resp != nil && resp.Sid != nil {
			res.sid = *resp.Sid
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to send sms: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("failed to send sms: %w", res.err)
		}
		slog.Info("Successfully sent sms", "notice", noticeType, "sid", res.sid)
		return nil
	}
}
