package mfa

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-mfa/pkg/clock"
	mfaerrors "github.com/tendant/simple-mfa/pkg/errors"
	"github.com/tendant/simple-mfa/pkg/passcode"
)

// IssueResult is returned by IssueCode. It never carries the code.
type IssueResult struct {
	Channel Channel `json:"channel"`
}

// VerifyResult identifies the user whose passcode was accepted.
type VerifyResult struct {
	UserRef string `json:"user_ref"`
}

// Service issues and verifies one-time passcodes.
type Service struct {
	repo      passcode.Repository
	sender    Sender
	directory UserDirectory
	generator passcode.Generator
	clock     clock.Clock
	ttl       time.Duration
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for creation and expiry checks
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithGenerator sets the code generator
func WithGenerator(g passcode.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithTTL sets the passcode lifetime
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithUserDirectory enables IssueCodeForUserID
func WithUserDirectory(directory UserDirectory) Option {
	return func(s *Service) {
		s.directory = directory
	}
}

// NewService creates an MFA service storing passcodes in repo and delivering
// them through sender.
func NewService(repo passcode.Repository, sender Sender, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		sender:    sender,
		generator: passcode.DefaultGenerator(),
		clock:     clock.Real(),
		ttl:       passcode.DefaultTTL,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.ttl <= 0 {
		s.ttl = passcode.DefaultTTL
	}

	return s
}

// IssueCode generates a passcode for user, replaces any passcode the user
// still holds, and sends it. Delivery failures are logged by the sender and do
// not fail the call; only storage failures do.
func (s *Service) IssueCode(ctx context.Context, user User) (IssueResult, error) {
	if strings.TrimSpace(user.ID) == "" {
		return IssueResult{}, mfaerrors.InvalidInput("user", "id is required")
	}

	code, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("Failed to generate passcode", "err", err)
		return IssueResult{}, mfaerrors.Wrap(err, mfaerrors.ErrCodeInternal, "failed to generate passcode")
	}

	issued, err := s.repo.Issue(ctx, passcode.CreateParams{
		UserRef: user.ID,
		Code:    code,
		Now:     s.clock.Now(),
		TTL:     s.ttl,
	})
	if err != nil {
		s.logger.Error("Failed to store passcode", "user_ref", user.ID, "err", err)
		return IssueResult{}, mfaerrors.Unavailable(err, "failed to store passcode")
	}

	channel := s.sender.Send(ctx, user, code)
	s.logger.Info("Passcode issued", "user_ref", user.ID, "passcode_id", issued.ID, "channel", channel)

	return IssueResult{Channel: channel}, nil
}

// IssueCodeForUserID looks the user up in the configured directory and issues
// a passcode for them.
func (s *Service) IssueCodeForUserID(ctx context.Context, userID string) (IssueResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return IssueResult{}, mfaerrors.InvalidInput("user_id", "is required")
	}
	if s.directory == nil {
		return IssueResult{}, mfaerrors.Internal("no user directory configured")
	}

	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		var structured *mfaerrors.Error
		if errors.As(err, &structured) {
			return IssueResult{}, structured
		}
		return IssueResult{}, mfaerrors.Unavailable(err, "failed to look up user")
	}

	return s.IssueCode(ctx, user)
}

// VerifyCode consumes the passcode matching rawCode. Wrong, expired,
// superseded and already used codes all fail with the same error.
func (s *Service) VerifyCode(ctx context.Context, rawCode string) (VerifyResult, error) {
	code := strings.TrimSpace(rawCode)
	if err := validateCode(code); err != nil {
		return VerifyResult{}, err
	}

	consumed, err := s.repo.ConsumeByCode(ctx, code, s.clock.Now())
	if err != nil {
		if errors.Is(err, passcode.ErrPasscodeNotFound) {
			s.logger.Info("Passcode verification failed")
			return VerifyResult{}, mfaerrors.VerificationFailed()
		}
		s.logger.Error("Failed to consume passcode", "err", err)
		return VerifyResult{}, mfaerrors.Unavailable(err, "failed to verify passcode")
	}

	s.logger.Info("Passcode verified", "user_ref", consumed.UserRef, "passcode_id", consumed.ID)
	return VerifyResult{UserRef: consumed.UserRef}, nil
}

func validateCode(code string) error {
	if code == "" {
		return mfaerrors.InvalidInput("code", "is required")
	}
	if len(code) != passcode.CodeLength {
		return mfaerrors.InvalidInput("code", "must be 6 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return mfaerrors.InvalidInput("code", "must be numeric")
		}
	}
	return nil
}
