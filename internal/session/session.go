// Package session manages backend unlock credentials across invocations.
//
// A session moves through NoSession → Unlocking → Valid; a token that fails
// revalidation drops back to Unlocking. Valid tokens persist across runs via
// a cache file with owner-only permissions (or the OS keyring when enabled),
// so the user is not prompted on every command.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/secure"
	"github.com/systmms/dotvault/pkg/backend"
)

// keyringService is the service name under which tokens are stored in the
// OS keyring.
const keyringService = "dotvault"

// maxUnlockAttempts bounds interactive unlock retries before the operation
// fails.
const maxUnlockAttempts = 3

// Manager acquires, validates, caches and persists sessions for one backend.
type Manager struct {
	backend  backend.Backend
	cacheDir string
	logger   *logging.Logger

	// useKeyring prefers the OS keyring over the cache file for token
	// storage. The file remains the fallback when no keyring is available.
	useKeyring bool

	// token is the in-process copy of the unlocked credential, held in
	// protected memory.
	token *secure.String
}

// NewManager creates a session manager for the given backend. cacheDir is
// created lazily on first persist.
func NewManager(b backend.Backend, cacheDir string, logger *logging.Logger) *Manager {
	return &Manager{
		backend:    b,
		cacheDir:   cacheDir,
		logger:     logger,
		useKeyring: os.Getenv("DOTVAULT_SESSION_KEYRING") == "1",
		token:      secure.NewString(""),
	}
}

// CacheFile returns the path of the session cache file for this backend.
func (m *Manager) CacheFile() string {
	return filepath.Join(m.cacheDir, "session-"+m.backend.Name())
}

// Get returns a valid session, reusing the in-memory or persisted token when
// the backend still accepts it and unlocking otherwise.
func (m *Manager) Get(ctx context.Context) (backend.Session, error) {
	// In-memory token from earlier in this run.
	if !m.token.IsEmpty() {
		tok, err := m.token.Reveal()
		if err == nil {
			sess := backend.Session{Token: tok}
			if m.backend.LoginCheck(ctx, sess) {
				return sess, nil
			}
			m.logger.Debug("in-memory session for %s no longer valid", m.backend.Name())
			m.token.Wipe()
		}
	}

	// Persisted token from a previous invocation.
	if tok, ok := m.loadCached(); ok {
		sess := backend.Session{Token: tok}
		if m.backend.LoginCheck(ctx, sess) {
			m.logger.Debug("reusing cached session %v for %s", logging.Secret(tok), m.backend.Name())
			m.token = secure.NewString(tok)
			return sess, nil
		}
		m.logger.Debug("cached session for %s expired, re-unlocking", m.backend.Name())
		m.Invalidate()
	}

	return m.unlock(ctx)
}

func (m *Manager) unlock(ctx context.Context) (backend.Session, error) {
	var lastErr error
	for attempt := 1; attempt <= maxUnlockAttempts; attempt++ {
		sess, err := m.backend.AcquireSession(ctx)
		if err == nil {
			// Agent-based backends return an empty token that is
			// still valid; nothing to persist then.
			if sess.Token != "" {
				m.token = secure.NewString(sess.Token)
				if perr := m.persist(sess.Token); perr != nil {
					m.logger.Warn("could not cache session: %s",
						logging.Redact(perr.Error(), []string{sess.Token}))
				}
			}
			return sess, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		// Auth failures re-prompt; transient provider trouble gets another
		// shot. Anything else (missing tooling, malformed output) cannot be
		// fixed by repeating the unlock.
		var authErr backend.AuthError
		if !errors.As(err, &authErr) && !dverrors.IsRetryable(err) {
			break
		}
		if attempt < maxUnlockAttempts {
			m.logger.Warn("unlock failed (attempt %d/%d): %v", attempt, maxUnlockAttempts, err)
		}
	}

	return backend.Session{}, dverrors.BackendError(m.backend.Name(), "unlock", lastErr)
}

// Invalidate removes the persisted token. The next Get unlocks again.
func (m *Manager) Invalidate() {
	m.token.Wipe()
	if m.useKeyring {
		if err := keyring.Delete(keyringService, m.backend.Name()); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			m.logger.Debug("keyring delete failed: %v", err)
		}
	}
	if err := os.Remove(m.CacheFile()); err != nil && !os.IsNotExist(err) {
		m.logger.Debug("cache remove failed: %v", err)
	}
}

func (m *Manager) loadCached() (string, bool) {
	if m.useKeyring {
		if tok, err := keyring.Get(keyringService, m.backend.Name()); err == nil && tok != "" {
			return tok, true
		} else if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			m.logger.Debug("keyring unavailable, falling back to cache file: %v", err)
		}
	}

	data, err := os.ReadFile(m.CacheFile())
	if err != nil {
		return "", false
	}

	// A cache file readable by anyone but the owner is not trusted.
	if info, err := os.Stat(m.CacheFile()); err == nil {
		if info.Mode().Perm()&0o077 != 0 {
			m.logger.Warn("session cache %s has loose permissions %04o, ignoring it",
				m.CacheFile(), info.Mode().Perm())
			return "", false
		}
	}

	tok := strings.TrimSpace(string(data))
	return tok, tok != ""
}

// persist writes the token to the keyring or the cache file. The file write
// is atomic: temp file, owner-only chmod, rename. A partially written cache
// is never observable.
func (m *Manager) persist(token string) error {
	if m.useKeyring {
		if err := keyring.Set(keyringService, m.backend.Name(), token); err == nil {
			return nil
		} else {
			m.logger.Debug("keyring store failed, using cache file: %v", err)
		}
	}

	if err := os.MkdirAll(m.cacheDir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(m.cacheDir, ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, m.CacheFile())
}
