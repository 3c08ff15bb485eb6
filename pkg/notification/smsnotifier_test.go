package notification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessageCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
	block  chan struct{}
}

func (f *fakeMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	f.params = append(f.params, params)
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestSMSNotifier_Send(t *testing.T) {
	creator := &fakeMessageCreator{}
	notifier := &SMSNotifier{client: creator, TwilioConfig: TwilioConfig{TwilioFrom: "+15005550006"}}

	data := NotificationData{To: "+15551234567", Data: map[string]string{"Passcode": "123456"}}
	err := notifier.Send(context.Background(), MfaCodeNotice, data, NoticeTemplate{Subject: "Code", Text: "Your code is {{.Passcode}}"})
	require.NoError(t, err)

	require.Len(t, creator.params, 1)
	assert.Equal(t, "+15551234567", *creator.params[0].To)
	assert.Equal(t, "+15005550006", *creator.params[0].From)
	assert.Equal(t, "Your code is 123456", *creator.params[0].Body)
}

func TestSMSNotifier_SendErrors(t *testing.T) {
	t.Run("missing body", func(t *testing.T) {
		notifier := &SMSNotifier{client: &fakeMessageCreator{}}
		err := notifier.Send(context.Background(), MfaCodeNotice, NotificationData{To: "+15551234567"}, NoticeTemplate{})
		assert.Error(t, err)
	})

	t.Run("api failure", func(t *testing.T) {
		boom := errors.New("status: 401")
		notifier := &SMSNotifier{client: &fakeMessageCreator{err: boom}}
		err := notifier.Send(context.Background(), MfaCodeNotice, NotificationData{To: "+15551234567", Body: "hi"}, NoticeTemplate{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("context deadline", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		notifier := &SMSNotifier{client: &fakeMessageCreator{block: block}}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := notifier.Send(ctx, MfaCodeNotice, NotificationData{To: "+15551234567", Body: "hi"}, NoticeTemplate{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLogNotifier_Send(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	notifier := NewLogNotifier(EmailSystem, logger)

	err := notifier.Send(context.Background(), MfaCodeNotice,
		NotificationData{To: "user@example.com", Data: map[string]string{"Passcode": "123456"}},
		NoticeTemplate{Subject: "Code", Text: "code {{.Passcode}}"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "system=email")
	assert.Contains(t, out, "to=user@example.com")
	assert.Contains(t, out, "code 123456")
}

func TestMockNotifier(t *testing.T) {
	mock := &MockNotifier{}
	require.NoError(t, mock.Send(context.Background(), exampleNotice, NotificationData{To: "a"}, NoticeTemplate{}))
	assert.Len(t, mock.Sent(), 1)

	mock.Err = errors.New("down")
	assert.Error(t, mock.Send(context.Background(), exampleNotice, NotificationData{To: "b"}, NoticeTemplate{}))
	assert.Len(t, mock.Sent(), 1)
}
