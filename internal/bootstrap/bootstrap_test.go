package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/platform/retry"
	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSessionClient struct {
	mock.Mock
}

func (m *mockSessionClient) GetSession(ctx context.Context) (*session.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*session.Session)
	return s, args.Error(1)
}

func (m *mockSessionClient) SignOut(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

type mockProfileFetcher struct {
	mock.Mock
}

func (m *mockProfileFetcher) GetProfile(ctx context.Context, id string) (*shared.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*shared.Profile)
	return p, args.Error(1)
}

var errNetwork = errors.New("network unreachable")

func fastPolicy() retry.Policy { return retry.Fixed(3, 5*time.Millisecond) }

func sessionFor(uid string) *session.Session {
	return &session.Session{Token: "tok-" + uid, UID: uid, Email: uid + "@instauto.com.br"}
}

func TestResolve_NoSessionNeverFetchesProfile(t *testing.T) {
	for name, sessErr := range map[string]error{
		"absent":        session.ErrNoSession,
		"network error": errNetwork,
	} {
		t.Run(name, func(t *testing.T) {
			sessions := new(mockSessionClient)
			profiles := new(mockProfileFetcher)
			sessions.On("GetSession", mock.Anything).Return(nil, sessErr).Once()

			res := New(sessions, profiles, fastPolicy(), zap.NewNop()).Resolve(context.Background())

			assert.Equal(t, StatusUnauthenticated, res.Status)
			assert.Nil(t, res.Resolved)
			assert.ErrorIs(t, res.Err, ErrUnauthenticated)
			assert.ErrorIs(t, res.Err, sessErr)
			profiles.AssertNumberOfCalls(t, "GetProfile", 0)
			sessions.AssertExpectations(t)
		})
	}
}

func TestResolve_NilSessionIsUnauthenticated(t *testing.T) {
	sessions := new(mockSessionClient)
	profiles := new(mockProfileFetcher)
	sessions.On("GetSession", mock.Anything).Return(nil, nil)

	res := New(sessions, profiles, fastPolicy(), zap.NewNop()).Resolve(context.Background())
	assert.Equal(t, StatusUnauthenticated, res.Status)
	assert.ErrorIs(t, res.Err, session.ErrNoSession)
	profiles.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestResolve_ProfileNotFoundAfterThreeAttempts(t *testing.T) {
	sessions := new(mockSessionClient)
	profiles := new(mockProfileFetcher)
	sessions.On("GetSession", mock.Anything).Return(sessionFor("u1"), nil)
	profiles.On("GetProfile", mock.Anything, "u1").Return(nil, common.ErrNotFound).Times(2)
	profiles.On("GetProfile", mock.Anything, "u1").Return(nil, nil).Once()

	res := New(sessions, profiles, fastPolicy(), zap.NewNop()).Resolve(context.Background())

	assert.Equal(t, StatusProfileNotFound, res.Status)
	assert.Nil(t, res.Resolved)
	assert.ErrorIs(t, res.Err, ErrProfileNotFound)
	assert.ErrorIs(t, res.Err, errMissingProfile)
	profiles.AssertNumberOfCalls(t, "GetProfile", 3)
}

func TestResolve_RetryTimingUsesTwoOneSecondDelays(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the real one second delay")
	}
	sessions := new(mockSessionClient)
	profiles := new(mockProfileFetcher)
	sessions.On("GetSession", mock.Anything).Return(sessionFor("u1"), nil)
	profiles.On("GetProfile", mock.Anything, "u1").Return(nil, errNetwork)

	start := time.Now()
	res := New(sessions, profiles, DefaultPolicy(), zap.NewNop()).Resolve(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, StatusProfileNotFound, res.Status)
	profiles.AssertNumberOfCalls(t, "GetProfile", 3)
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestResolve_SucceedsAfterTransientFailures(t *testing.T) {
	sessions := new(mockSessionClient)
	profiles := new(mockProfileFetcher)
	free := common.PlanFree
	sessions.On("GetSession", mock.Anything).Return(sessionFor("u2"), nil)
	profiles.On("GetProfile", mock.Anything, "u2").Return(nil, errNetwork).Twice()
	profiles.On("GetProfile", mock.Anything, "u2").
		Return(&shared.Profile{ID: "u2", Role: common.RoleOficina, PlanType: &free}, nil).Once()

	res := New(sessions, profiles, fastPolicy(), zap.NewNop()).Resolve(context.Background())

	require.Equal(t, StatusResolved, res.Status)
	require.NoError(t, res.Err)
	assert.Equal(t, "u2", res.Resolved.Identity.ID)
	assert.Equal(t, "u2@instauto.com.br", res.Resolved.Identity.Email)
	assert.Equal(t, common.RoleOficina, res.Resolved.Profile.Role)
	profiles.AssertNumberOfCalls(t, "GetProfile", 3)
}

func TestResolve_CanceledDuringRetryWait(t *testing.T) {
	sessions := new(mockSessionClient)
	profiles := new(mockProfileFetcher)
	sessions.On("GetSession", mock.Anything).Return(sessionFor("u1"), nil)
	profiles.On("GetProfile", mock.Anything, "u1").Return(nil, errNetwork)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	res := New(sessions, profiles, DefaultPolicy(), zap.NewNop()).Resolve(ctx)

	assert.Equal(t, StatusCanceled, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	profiles.AssertNumberOfCalls(t, "GetProfile", 1)
}

func TestResolve_AlreadyCanceled(t *testing.T) {
	sessions := new(mockSessionClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(sessions, new(mockProfileFetcher), fastPolicy(), zap.NewNop()).Resolve(ctx)
	assert.Equal(t, StatusCanceled, res.Status)
	sessions.AssertNotCalled(t, "GetSession", mock.Anything)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", StatusUnauthenticated.String())
	assert.Equal(t, "profile_not_found", StatusProfileNotFound.String())
	assert.Equal(t, "resolved", StatusResolved.String())
	assert.Equal(t, "canceled", StatusCanceled.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
