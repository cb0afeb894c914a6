package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/pkg/backend"
)

// stubBackend implements just enough of backend.Backend for session tests.
type stubBackend struct {
	backend.Backend

	validTokens   map[string]bool
	acquireToken  string
	acquireErr    error
	acquireCalls  int
	loginChecks   int
	ambientValid  bool
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) LoginCheck(ctx context.Context, sess backend.Session) bool {
	s.loginChecks++
	if sess.Token == "" {
		return s.ambientValid
	}
	return s.validTokens[sess.Token]
}

func (s *stubBackend) AcquireSession(ctx context.Context) (backend.Session, error) {
	s.acquireCalls++
	if s.acquireErr != nil {
		return backend.Session{}, s.acquireErr
	}
	return backend.Session{Token: s.acquireToken}, nil
}

func newManager(t *testing.T, b backend.Backend) *Manager {
	t.Helper()
	return NewManager(b, t.TempDir(), logging.New(false, true))
}

func TestManager_UnlockPersistsToken(t *testing.T) {
	stub := &stubBackend{
		validTokens:  map[string]bool{"tok-1": true},
		acquireToken: "tok-1",
	}
	mgr := newManager(t, stub)

	sess, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, 1, stub.acquireCalls)

	data, err := os.ReadFile(mgr.CacheFile())
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", string(data))
}

func TestManager_CacheFileOwnerOnly(t *testing.T) {
	stub := &stubBackend{
		validTokens:  map[string]bool{"tok-1": true},
		acquireToken: "tok-1",
	}
	mgr := newManager(t, stub)

	_, err := mgr.Get(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(mgr.CacheFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(),
		"session cache must never be group- or world-readable")
}

func TestManager_ReusesCachedToken(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "session-stub")
	require.NoError(t, os.WriteFile(cacheFile, []byte("cached-tok\n"), 0o600))

	stub := &stubBackend{validTokens: map[string]bool{"cached-tok": true}}
	mgr := NewManager(stub, dir, logging.New(false, true))

	sess, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached-tok", sess.Token)
	assert.Zero(t, stub.acquireCalls, "valid cached token should skip unlock")
}

func TestManager_CachedTokenNeverLogged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session-stub"), []byte("cached-tok\n"), 0o600))

	stub := &stubBackend{validTokens: map[string]bool{"cached-tok": true}}
	var buf bytes.Buffer
	mgr := NewManager(stub, dir, logging.NewWithWriter(&buf, true, true))

	_, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "cached-tok")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestManager_RejectsLoosePermissionCache(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "session-stub")
	require.NoError(t, os.WriteFile(cacheFile, []byte("leaked-tok\n"), 0o644))

	stub := &stubBackend{
		validTokens:  map[string]bool{"leaked-tok": true, "fresh-tok": true},
		acquireToken: "fresh-tok",
	}
	mgr := NewManager(stub, dir, logging.New(false, true))

	sess, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-tok", sess.Token, "world-readable cache must not be trusted")
	assert.Equal(t, 1, stub.acquireCalls)
}

func TestManager_InvalidCachedTokenReunlocks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session-stub"), []byte("stale\n"), 0o600))

	stub := &stubBackend{
		validTokens:  map[string]bool{"new-tok": true},
		acquireToken: "new-tok",
	}
	mgr := NewManager(stub, dir, logging.New(false, true))

	sess, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-tok", sess.Token)

	// Stale cache replaced by the fresh token.
	data, err := os.ReadFile(mgr.CacheFile())
	require.NoError(t, err)
	assert.Equal(t, "new-tok\n", string(data))
}

func TestManager_AmbientAuthEmptyToken(t *testing.T) {
	stub := &stubBackend{ambientValid: true, acquireToken: ""}
	mgr := newManager(t, stub)

	sess, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sess.Token)

	// Nothing to persist for agent-based auth.
	_, err = os.Stat(mgr.CacheFile())
	assert.True(t, os.IsNotExist(err))
}

func TestManager_UnlockRetriesThenFails(t *testing.T) {
	stub := &stubBackend{
		acquireErr: backend.AuthError{Backend: "stub", Message: "wrong password"},
	}
	mgr := newManager(t, stub)

	_, err := mgr.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, maxUnlockAttempts, stub.acquireCalls)
	assert.Contains(t, err.Error(), "authentication")
}

func TestManager_TransientErrorRetried(t *testing.T) {
	stub := &stubBackend{
		acquireErr: errors.New("connection reset by peer"),
	}
	mgr := newManager(t, stub)

	_, err := mgr.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, maxUnlockAttempts, stub.acquireCalls)
}

func TestManager_HardErrorNotRetried(t *testing.T) {
	stub := &stubBackend{
		acquireErr: errors.New("unexpected end of JSON input"),
	}
	mgr := newManager(t, stub)

	_, err := mgr.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, stub.acquireCalls, "a malformed response will not improve on retry")
}

func TestManager_PrerequisiteErrorNotRetried(t *testing.T) {
	stub := &stubBackend{
		acquireErr: backend.PrerequisiteError{Backend: "stub", Tool: "bw"},
	}
	mgr := newManager(t, stub)

	_, err := mgr.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, stub.acquireCalls, "missing tooling cannot be fixed by retrying")
}

func TestManager_Invalidate(t *testing.T) {
	stub := &stubBackend{
		validTokens:  map[string]bool{"tok": true},
		acquireToken: "tok",
	}
	mgr := newManager(t, stub)

	_, err := mgr.Get(context.Background())
	require.NoError(t, err)

	mgr.Invalidate()
	_, statErr := os.Stat(mgr.CacheFile())
	assert.True(t, os.IsNotExist(statErr))
}
