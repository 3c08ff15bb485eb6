package mfa

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-mfa/pkg/clock"
	mfaerrors "github.com/tendant/simple-mfa/pkg/errors"
	"github.com/tendant/simple-mfa/pkg/passcode"
)

var t0 = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// recordingSender remembers the last code sent to each user.
type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	calls int
}

func newRecordingSender() *recordingSender {
	return &recordingSender{codes: make(map[string]string)}
}

func (r *recordingSender) Send(ctx context.Context, user User, code string) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[user.ID] = code
	r.calls++
	if user.MfaMethod == MethodSMS && user.Phone != "" {
		return ChannelSMS
	}
	return ChannelEmail
}

func (r *recordingSender) code(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.codes[userID]
}

// countingRepository counts store calls.
type countingRepository struct {
	passcode.Repository
	issues   atomic.Int32
	consumes atomic.Int32
}

func (c *countingRepository) Issue(ctx context.Context, params passcode.CreateParams) (passcode.Passcode, error) {
	c.issues.Add(1)
	return c.Repository.Issue(ctx, params)
}

func (c *countingRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (passcode.Passcode, error) {
	c.consumes.Add(1)
	return c.Repository.ConsumeByCode(ctx, code, now)
}

// brokenRepository fails every call.
type brokenRepository struct {
	passcode.Repository
	err error
}

func (b brokenRepository) Issue(ctx context.Context, params passcode.CreateParams) (passcode.Passcode, error) {
	return passcode.Passcode{}, b.err
}

func (b brokenRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (passcode.Passcode, error) {
	return passcode.Passcode{}, b.err
}

type mapDirectory map[string]User

func (m mapDirectory) GetUser(ctx context.Context, id string) (User, error) {
	u, ok := m[id]
	if !ok {
		return User{}, mfaerrors.UserNotFound(id)
	}
	return u, nil
}

func setupService(t *testing.T, opts ...Option) (*Service, *recordingSender, *clock.Mock, *countingRepository) {
	t.Helper()
	repo := &countingRepository{Repository: passcode.NewInMemoryRepository()}
	sender := newRecordingSender()
	mock := clock.NewMock(t0)
	opts = append([]Option{WithClock(mock)}, opts...)
	return NewService(repo, sender, opts...), sender, mock, repo
}

var userA = User{ID: "user-a", Email: "a@example.com"}

func TestIssueThenVerifyOnce(t *testing.T) {
	svc, sender, mock, _ := setupService(t)
	ctx := context.Background()

	res, err := svc.IssueCode(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, ChannelEmail, res.Channel)

	code := sender.code("user-a")
	require.Len(t, code, passcode.CodeLength)

	mock.Advance(time.Minute)
	verified, err := svc.VerifyCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "user-a", verified.UserRef)

	_, err = svc.VerifyCode(ctx, code)
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCode2FAInvalid), "already consumed")
}

func TestIssueSupersedesPreviousCode(t *testing.T) {
	codes := []string{"111111", "222222"}
	var next atomic.Int32
	gen := passcode.GeneratorFunc(func() (string, error) {
		return codes[next.Add(1)-1], nil
	})
	svc, _, mock, _ := setupService(t, WithGenerator(gen))
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, userA)
	require.NoError(t, err)
	mock.Advance(30 * time.Second)
	_, err = svc.IssueCode(ctx, userA)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "111111")
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCode2FAInvalid), "superseded")

	verified, err := svc.VerifyCode(ctx, "222222")
	require.NoError(t, err)
	assert.Equal(t, "user-a", verified.UserRef)
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, sender, mock, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, userA)
	require.NoError(t, err)

	mock.Advance(11 * time.Minute)
	_, err = svc.VerifyCode(ctx, sender.code("user-a"))
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCode2FAInvalid), "expired")
}

func TestWithTTL(t *testing.T) {
	svc, sender, mock, _ := setupService(t, WithTTL(time.Minute))
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, userA)
	require.NoError(t, err)

	mock.Advance(2 * time.Minute)
	_, err = svc.VerifyCode(ctx, sender.code("user-a"))
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCode2FAInvalid))
}

func TestFailingDeliveryStillIssues(t *testing.T) {
	repo := passcode.NewInMemoryRepository()
	var delivered string
	sender := SenderFunc(func(ctx context.Context, user User, code string) Channel {
		// transport is down; the sender swallows the failure
		delivered = code
		return ChannelSMS
	})
	mock := clock.NewMock(t0)
	svc := NewService(repo, sender, WithClock(mock))
	ctx := context.Background()

	res, err := svc.IssueCode(ctx, User{ID: "user-a", Phone: "+15551234567", MfaMethod: MethodSMS})
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, res.Channel)

	verified, err := svc.VerifyCode(ctx, delivered)
	require.NoError(t, err)
	assert.Equal(t, "user-a", verified.UserRef)
}

func TestVerifyRejectsMalformedInputWithoutStoreAccess(t *testing.T) {
	svc, _, _, repo := setupService(t)

	inputs := []string{"", "   ", "\t\n", "12345", "1234567", "12a456", "١٢٣٤٥٦"}
	for _, input := range inputs {
		t.Run(strconv.Quote(input), func(t *testing.T) {
			_, err := svc.VerifyCode(context.Background(), input)
			assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeInvalidInput))
		})
	}
	assert.Equal(t, int32(0), repo.consumes.Load())
}

func TestVerifyTrimsInput(t *testing.T) {
	svc, sender, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, userA)
	require.NoError(t, err)

	verified, err := svc.VerifyCode(ctx, "  "+sender.code("user-a")+"\n")
	require.NoError(t, err)
	assert.Equal(t, "user-a", verified.UserRef)
}

func TestIssueRequiresUserID(t *testing.T) {
	svc, sender, _, repo := setupService(t)

	_, err := svc.IssueCode(context.Background(), User{Email: "a@example.com"})
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeInvalidInput))
	assert.Equal(t, int32(0), repo.issues.Load())
	assert.Equal(t, 0, sender.calls)
}

func TestConcurrentVerifySucceedsOnce(t *testing.T) {
	svc, sender, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, userA)
	require.NoError(t, err)
	code := sender.code("user-a")

	const callers = 25
	var successes, failures atomic.Int32
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := svc.VerifyCode(ctx, code)
			switch {
			case err == nil:
				successes.Add(1)
			case mfaerrors.IsCode(err, mfaerrors.ErrCode2FAInvalid):
				failures.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(callers-1), failures.Load())
}

func TestConcurrentIssueLeavesOneActiveCode(t *testing.T) {
	svc, _, mock, repo := setupService(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := svc.IssueCode(ctx, userA)
			return err
		})
	}
	require.NoError(t, g.Wait())

	active, err := repo.FindActiveByUser(ctx, "user-a", mock.Now())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPersistenceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(brokenRepository{err: boom}, newRecordingSender(), WithClock(clock.NewMock(t0)))
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, userA)
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeResourceUnavailable))
	assert.ErrorIs(t, err, boom)

	_, err = svc.VerifyCode(ctx, "123456")
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeResourceUnavailable))
	assert.True(t, mfaerrors.IsRetryable(err))
	assert.ErrorIs(t, err, boom)
}

func TestGeneratorError(t *testing.T) {
	gen := passcode.GeneratorFunc(func() (string, error) {
		return "", errors.New("entropy exhausted")
	})
	svc, sender, _, repo := setupService(t, WithGenerator(gen))

	_, err := svc.IssueCode(context.Background(), userA)
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeInternal))
	assert.Equal(t, int32(0), repo.issues.Load())
	assert.Equal(t, 0, sender.calls)
}

func TestIssueCodeForUserID(t *testing.T) {
	directory := mapDirectory{
		"user-a": userA,
		"user-b": {ID: "user-b", Phone: "+15551234567", MfaMethod: MethodSMS},
	}
	svc, sender, _, _ := setupService(t, WithUserDirectory(directory))
	ctx := context.Background()

	res, err := svc.IssueCodeForUserID(ctx, "user-b")
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, res.Channel)
	assert.NotEmpty(t, sender.code("user-b"))

	_, err = svc.IssueCodeForUserID(ctx, "nobody")
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeUserNotFound))

	_, err = svc.IssueCodeForUserID(ctx, " ")
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeInvalidInput))
}

func TestIssueCodeForUserIDWithoutDirectory(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.IssueCodeForUserID(context.Background(), "user-a")
	assert.True(t, mfaerrors.IsCode(err, mfaerrors.ErrCodeInternal))
}
