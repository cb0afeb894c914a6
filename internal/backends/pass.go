package backends

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
	pkgexec "github.com/systmms/dotvault/pkg/exec"
)

// defaultPassPrefix is the store subdirectory managed items live under when
// no location is configured.
const defaultPassPrefix = "dotvault"

// PassBackend implements the backend interface over pass (zx2c4), the
// GPG-encrypted password store. Authentication is ambient through
// gpg-agent, so sessions carry an empty token.
type PassBackend struct {
	executor pkgexec.CommandExecutor
	logger   *logging.Logger
	storeDir string
	prefix   string
}

// NewPassBackend creates a pass backend from shared options.
func NewPassBackend(opts Options) *PassBackend {
	p := &PassBackend{
		executor: opts.Executor,
		logger:   opts.Logger,
		storeDir: os.Getenv("PASSWORD_STORE_DIR"),
		prefix:   os.Getenv("DOTVAULT_PASS_PREFIX"),
	}
	if opts.Location != nil && opts.Location.Type == "prefix" {
		p.prefix = opts.Location.Value
	}
	if p.prefix == "" {
		p.prefix = defaultPassPrefix
	}
	if p.storeDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			p.storeDir = filepath.Join(home, ".password-store")
		}
	}
	return p
}

func (p *PassBackend) Name() string {
	return "pass"
}

// Init verifies the pass CLI is present and the store is initialized.
func (p *PassBackend) Init(ctx context.Context) error {
	if _, err := exec.LookPath("pass"); err != nil {
		return backend.PrerequisiteError{
			Backend: p.Name(),
			Tool:    "pass",
			Install: "https://www.passwordstore.org/",
		}
	}
	if _, err := os.Stat(filepath.Join(p.storeDir, ".gpg-id")); err != nil {
		return backend.AuthError{
			Backend: p.Name(),
			Message: fmt.Sprintf("password store %s is not initialized. Run: pass init <gpg-key-id>", p.storeDir),
		}
	}
	return nil
}

// LoginCheck probes the store by listing it. Decryption itself is deferred
// to gpg-agent, which prompts on first use.
func (p *PassBackend) LoginCheck(ctx context.Context, _ backend.Session) bool {
	_, _, err := p.run(ctx, "ls")
	return err == nil
}

// AcquireSession returns an empty token after verifying the store is
// usable: pass has no unlock step of its own.
func (p *PassBackend) AcquireSession(ctx context.Context) (backend.Session, error) {
	if err := p.Init(ctx); err != nil {
		return backend.Session{}, err
	}
	if !p.LoginCheck(ctx, backend.Session{}) {
		return backend.Session{}, backend.AuthError{
			Backend: p.Name(),
			Message: "cannot access the password store. Check your GPG key with 'gpg --list-secret-keys'",
		}
	}
	return backend.Session{}, nil
}

// SyncRemote pulls the store's git remote when one is configured. Best
// effort: a storeless or offline git is not an error.
func (p *PassBackend) SyncRemote(ctx context.Context, _ backend.Session) {
	if _, err := os.Stat(filepath.Join(p.storeDir, ".git")); err != nil {
		return
	}
	if _, _, err := p.run(ctx, "git", "pull", "--ff-only"); err != nil {
		p.logger.Debug("pass git pull failed (continuing with local store): %v", err)
	}
}

// GetItem decrypts an entry and normalizes it to the canonical shape. The
// whole decrypted output is the content; pass has no separate fields.
func (p *PassBackend) GetItem(ctx context.Context, name string, sess backend.Session) (backend.Item, error) {
	content, err := p.GetContent(ctx, name, sess)
	if err != nil {
		return backend.Item{}, err
	}

	itemType := backend.TypeFile
	if sshkey.HasPrivateKeyDelimiters(content) {
		itemType = backend.TypeSSHKey
	}
	return backend.Item{
		Name:    name,
		Type:    itemType,
		Content: content,
	}, nil
}

func (p *PassBackend) GetContent(ctx context.Context, name string, _ backend.Session) (string, error) {
	stdout, stderr, err := p.run(ctx, "show", p.entry(name))
	if err != nil {
		if strings.Contains(string(stderr), "not in the password store") ||
			strings.Contains(string(stdout), "not in the password store") {
			return "", backend.NotFoundError{Backend: p.Name(), Name: name}
		}
		return "", fmt.Errorf("pass show '%s': %s", name, firstLine(stderr, err))
	}
	return string(stdout), nil
}

// ItemExists checks the store filesystem directly; no decryption needed.
func (p *PassBackend) ItemExists(ctx context.Context, name string, _ backend.Session) (bool, error) {
	_, err := os.Stat(p.entryFile(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetItemID returns the store-relative entry path; pass has no opaque IDs.
func (p *PassBackend) GetItemID(ctx context.Context, name string, sess backend.Session) (string, error) {
	exists, err := p.ItemExists(ctx, name, sess)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", backend.NotFoundError{Backend: p.Name(), Name: name}
	}
	return p.entry(name), nil
}

// ListItems walks the encrypted store tree under the managed prefix.
// Content is not decrypted during listing.
func (p *PassBackend) ListItems(ctx context.Context, _ backend.Session) ([]backend.Item, error) {
	root := filepath.Join(p.storeDir, filepath.FromSlash(p.prefix))
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []backend.Item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".gpg") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".gpg")
		items = append(items, backend.Item{
			ID:   p.entry(name),
			Name: name,
			Type: backend.TypeFile,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// CreateItem inserts a multiline entry. pass insert -f overwrites, so
// create and update share semantics; identical content is a no-op.
func (p *PassBackend) CreateItem(ctx context.Context, name, content string, sess backend.Session) error {
	if existing, err := p.GetContent(ctx, name, sess); err == nil && existing == content {
		p.logger.Debug("entry %s already present with identical content", name)
		return nil
	}
	return p.insert(ctx, name, content)
}

// UpdateItem replaces an entry's content; a missing entry is a reported
// NotFoundError.
func (p *PassBackend) UpdateItem(ctx context.Context, name, content string, sess backend.Session) error {
	existing, err := p.GetContent(ctx, name, sess)
	if err != nil {
		return err
	}
	if existing == content {
		p.logger.Debug("entry %s unchanged, skipping insert", name)
		return nil
	}
	return p.insert(ctx, name, content)
}

// DeleteItem removes an entry; a missing entry is a reported NotFoundError.
func (p *PassBackend) DeleteItem(ctx context.Context, name string, sess backend.Session) error {
	exists, err := p.ItemExists(ctx, name, sess)
	if err != nil {
		return err
	}
	if !exists {
		return backend.NotFoundError{Backend: p.Name(), Name: name}
	}
	if _, stderr, err := p.run(ctx, "rm", "-f", p.entry(name)); err != nil {
		return fmt.Errorf("pass rm '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// HealthCheck summarizes tool, GPG and store reachability.
func (p *PassBackend) HealthCheck(ctx context.Context, sess backend.Session) (backend.HealthReport, error) {
	report := backend.HealthReport{Backend: p.Name()}

	if _, err := exec.LookPath("pass"); err != nil {
		report.Notes = append(report.Notes, "pass CLI not found. Install: https://www.passwordstore.org/")
		return report, nil
	}
	report.ToolInstalled = true

	if err := p.Init(ctx); err != nil {
		report.Notes = append(report.Notes, err.Error())
		return report, nil
	}
	report.Authenticated = p.LoginCheck(ctx, sess)
	if !report.Authenticated {
		report.Notes = append(report.Notes, "store not accessible; check gpg-agent")
		return report, nil
	}

	items, err := p.ListItems(ctx, sess)
	if err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("list entries failed: %v", err))
		return report, nil
	}
	report.StoreReachable = true
	report.ItemCount = len(items)
	return report, nil
}

// ListLocations enumerates store subdirectories usable as prefixes.
func (p *PassBackend) ListLocations(ctx context.Context, _ backend.Session) ([]backend.Location, error) {
	var locations []backend.Location
	err := filepath.WalkDir(p.storeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == p.storeDir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(p.storeDir, path)
		if err != nil {
			return err
		}
		locations = append(locations, backend.Location{Type: "prefix", Value: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return locations, nil
}

func (p *PassBackend) insert(ctx context.Context, name, content string) error {
	if _, stderr, err := p.runInput(ctx, content, "insert", "-m", "-f", p.entry(name)); err != nil {
		return fmt.Errorf("pass insert '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// entry maps an item name to its store-relative path under the prefix.
func (p *PassBackend) entry(name string) string {
	return p.prefix + "/" + name
}

func (p *PassBackend) entryFile(name string) string {
	return filepath.Join(p.storeDir, filepath.FromSlash(p.entry(name))+".gpg")
}

func (p *PassBackend) run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	return p.runInput(ctx, "", args...)
}

// runInput executes pass with the custom store directory exported. The env
// wrapper goes through sh so the executor interface stays env-free.
func (p *PassBackend) runInput(ctx context.Context, input string, args ...string) ([]byte, []byte, error) {
	if p.storeDir != "" && os.Getenv("PASSWORD_STORE_DIR") != p.storeDir {
		passCmd := "pass"
		for _, arg := range args {
			passCmd += fmt.Sprintf(" %q", arg)
		}
		shellCmd := fmt.Sprintf("PASSWORD_STORE_DIR=%q %s", p.storeDir, passCmd)
		if input != "" {
			return p.executor.ExecuteInput(ctx, input, "sh", "-c", shellCmd)
		}
		return p.executor.Execute(ctx, "sh", "-c", shellCmd)
	}
	if input != "" {
		return p.executor.ExecuteInput(ctx, input, "pass", args...)
	}
	return p.executor.Execute(ctx, "pass", args...)
}
