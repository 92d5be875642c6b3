package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAuth struct {
	calls int
	err   error
}

func (a *countingAuth) Login(context.Context) (*session.StorageState, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &session.StorageState{Cookies: []session.Cookie{{Name: "sid", Value: "fresh"}}}, nil
}

// scriptedAttempts 依次返回给定错误, nil 表示成功
func scriptedAttempts(errs ...error) (AttemptFunc, *int) {
	calls := 0
	return func(context.Context) (*Result, error) {
		err := errs[calls]
		calls++
		res := &Result{State: StateCompleted, MaxPage: 4, Err: err}
		if err != nil {
			res.State, res.MaxPage = StateStagnated, 1
		}
		return res, err
	}, &calls
}

func newTestRecovery(t *testing.T, attempt AttemptFunc, auth session.Authenticator, withState bool) (*Recovery, *session.Store) {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "yjs_state.json"))
	if withState {
		require.NoError(t, store.Persist(&session.StorageState{}))
	}
	r := NewRecovery(attempt, store, auth, "debug", logger.NewNop())
	r.now = func() time.Time { return time.Date(2026, 3, 1, 9, 5, 7, 0, time.Local) }
	return r, store
}

func TestRecoveryFirstAttemptSucceeds(t *testing.T) {
	attempt, calls := scriptedAttempts(nil)
	auth := &countingAuth{}
	r, _ := newTestRecovery(t, attempt, auth, true)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 1, *calls)
	assert.Zero(t, auth.calls)
	assert.Equal(t, PhaseDone, r.Phase())
}

func TestRecoveryLogsInWhenStateMissing(t *testing.T) {
	attempt, _ := scriptedAttempts(nil)
	auth := &countingAuth{}
	r, store := newTestRecovery(t, attempt, auth, false)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, auth.calls)
	assert.True(t, store.Exists())
}

func TestRecoveryRetriesAfterForcedLogin(t *testing.T) {
	attempt, calls := scriptedAttempts(ErrSessionInvalid, nil)
	auth := &countingAuth{}
	r, store := newTestRecovery(t, attempt, auth, true)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 1, auth.calls)

	_, statErr := os.Stat(store.Path() + ".bak.20260301_090507")
	assert.NoError(t, statErr)
	restored, err := store.Restore()
	require.NoError(t, err)
	assert.Equal(t, "fresh", restored.Cookies[0].Value)
}

func TestRecoveryFatalAfterSecondFailure(t *testing.T) {
	second := errors.New("first page timeout again")
	attempt, calls := scriptedAttempts(ErrSessionInvalid, second)
	r, _ := newTestRecovery(t, attempt, &countingAuth{}, true)

	res, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, second)
	assert.Contains(t, err.Error(), "debug")
	assert.Equal(t, 2, *calls)
	assert.Equal(t, StateStagnated, res.State)
	assert.Equal(t, PhaseFatal, r.Phase())
}

func TestRecoveryFatalWhenReloginFails(t *testing.T) {
	attempt, calls := scriptedAttempts(ErrSessionInvalid)
	loginErr := errors.New("operator closed the window")
	r, _ := newTestRecovery(t, attempt, &countingAuth{err: loginErr}, true)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, loginErr)
	assert.Equal(t, 1, *calls)
}

func TestRecoveryDoesNotRetryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	attempt := func(context.Context) (*Result, error) {
		calls++
		cancel()
		return &Result{State: StateFailed}, context.Canceled
	}
	r, _ := newTestRecovery(t, attempt, &countingAuth{}, true)

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrFatal)
	assert.Equal(t, 1, calls)
}

func TestRecoveryWithoutAuthenticator(t *testing.T) {
	attempt, calls := scriptedAttempts(ErrSessionInvalid, nil)
	r, _ := newTestRecovery(t, attempt, nil, false)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}
