package passcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPasscodeLifecycle(t *testing.T) {
	p := newPasscode(CreateParams{UserRef: "user-a", Code: "123456", Now: t0})
	assert.Equal(t, t0.Add(DefaultTTL), p.ExpiresAt)

	tests := []struct {
		name    string
		at      time.Time
		used    bool
		active  bool
		expired bool
	}{
		{"fresh", t0, false, true, false},
		{"just before expiry", p.ExpiresAt.Add(-time.Nanosecond), false, true, false},
		{"at expiry", p.ExpiresAt, false, false, true},
		{"consumed", t0.Add(time.Minute), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := p
			if tt.used {
				consumed := t0
				pc.ConsumedAt = &consumed
			}
			assert.Equal(t, tt.active, pc.IsActive(tt.at))
			assert.Equal(t, tt.expired, pc.IsExpired(tt.at))
		})
	}
}

func TestCreateParamsTTL(t *testing.T) {
	p := newPasscode(CreateParams{UserRef: "user-a", Code: "123456", Now: t0, TTL: time.Minute})
	assert.Equal(t, t0.Add(time.Minute), p.ExpiresAt)
}
