package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	calls int
	state *StorageState
	err   error
}

func (f *fakeAuth) Login(context.Context) (*StorageState, error) {
	f.calls++
	return f.state, f.err
}

func TestRestoreMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	_, err := store.Restore()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.Exists())
}

func TestPersistThenRestore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "state.json"))
	state := &StorageState{
		Cookies: []Cookie{{Name: "sid", Value: "abc", Domain: ".yingjiesheng.com", Path: "/", Expires: 1.9e9, HTTPOnly: true, SameSite: "Lax"}},
		Origins: []OriginState{{Origin: "https://q.yingjiesheng.com", LocalStorage: []NameValue{{Name: "token", Value: "t"}}}},
	}
	require.NoError(t, store.Persist(state))

	got, err := store.Restore()
	require.NoError(t, err)
	assert.Equal(t, state, got)
	assert.False(t, got.Empty())
}

func TestPersistNilWritesEmptyPlaywrightShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, NewStore(path).Persist(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cookies":[],"origins":[]}`, string(data))
}

func TestBackupRenamesWithTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yjs_state.json")
	store := NewStore(path)

	dst, err := store.Backup(time.Now())
	require.NoError(t, err)
	assert.Empty(t, dst, "nothing to back up")

	require.NoError(t, store.Persist(&StorageState{}))
	now := time.Date(2026, 3, 1, 9, 5, 7, 0, time.Local)
	dst, err = store.Backup(now)
	require.NoError(t, err)
	assert.Equal(t, path+".bak.20260301_090507", dst)
	assert.FileExists(t, dst)
	assert.False(t, store.Exists())
}

func TestEnsureLoginState(t *testing.T) {
	log := logger.NewNop()
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	auth := &fakeAuth{state: &StorageState{Cookies: []Cookie{{Name: "sid", Value: "1"}}}}

	require.NoError(t, EnsureLoginState(context.Background(), store, auth, false, log))
	assert.Equal(t, 1, auth.calls)
	assert.True(t, store.Exists())

	require.NoError(t, EnsureLoginState(context.Background(), store, auth, false, log))
	assert.Equal(t, 1, auth.calls, "existing state skips login")

	require.NoError(t, EnsureLoginState(context.Background(), store, auth, true, log))
	assert.Equal(t, 2, auth.calls, "forced login")

	failing := &fakeAuth{err: errors.New("window closed")}
	err := EnsureLoginState(context.Background(), store, failing, true, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window closed")
}

func TestWaitForOperator(t *testing.T) {
	require.NoError(t, waitForOperator(context.Background(), strings.NewReader("\n")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked, w := io.Pipe()
	defer w.Close()
	err := waitForOperator(ctx, blocked)
	assert.ErrorIs(t, err, context.Canceled)
}
