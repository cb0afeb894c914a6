package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
	pkgexec "github.com/systmms/dotvault/pkg/exec"
)

// OnePasswordBackend implements the backend interface over the `op` CLI.
// Authentication is ambient: the desktop app or a service account token
// authorizes the CLI, so sessions carry an empty token.
type OnePasswordBackend struct {
	executor pkgexec.CommandExecutor
	logger   *logging.Logger
	account  string
	vault    string // optional vault name scoping managed items
}

// NewOnePasswordBackend creates a 1Password backend from shared options.
func NewOnePasswordBackend(opts Options) *OnePasswordBackend {
	op := &OnePasswordBackend{
		executor: opts.Executor,
		logger:   opts.Logger,
		account:  os.Getenv("DOTVAULT_OP_ACCOUNT"),
	}
	if opts.Location != nil && opts.Location.Type == "vault" {
		op.vault = opts.Location.Value
	}
	return op
}

func (op *OnePasswordBackend) Name() string {
	return "onepassword"
}

// Init verifies the op CLI is present.
func (op *OnePasswordBackend) Init(ctx context.Context) error {
	if _, err := exec.LookPath("op"); err != nil {
		return backend.PrerequisiteError{
			Backend: op.Name(),
			Tool:    "op",
			Install: "https://developer.1password.com/docs/cli/get-started/",
		}
	}
	return nil
}

// LoginCheck reports whether the CLI is currently authorized. The session
// token is ignored; 1Password auth is ambient.
func (op *OnePasswordBackend) LoginCheck(ctx context.Context, _ backend.Session) bool {
	_, _, err := op.run(ctx, "account", "get")
	return err == nil
}

// AcquireSession verifies ambient authorization and returns an empty token,
// which is still a valid session for this backend.
func (op *OnePasswordBackend) AcquireSession(ctx context.Context) (backend.Session, error) {
	if err := op.Init(ctx); err != nil {
		return backend.Session{}, err
	}
	if !op.LoginCheck(ctx, backend.Session{}) {
		return backend.Session{}, backend.AuthError{
			Backend: op.Name(),
			Message: "not signed in. Run: op signin (or enable app integration)",
		}
	}
	return backend.Session{}, nil
}

// SyncRemote is a no-op for 1Password; the CLI talks to the service
// directly and keeps no local cache worth refreshing.
func (op *OnePasswordBackend) SyncRemote(ctx context.Context, _ backend.Session) {}

// GetItem fetches an item by title and normalizes it to the canonical shape.
// Content lives in the notesPlain field of a Secure Note.
func (op *OnePasswordBackend) GetItem(ctx context.Context, name string, _ backend.Session) (backend.Item, error) {
	raw, err := op.getRaw(ctx, name)
	if err != nil {
		return backend.Item{}, err
	}
	return op.canonical(raw), nil
}

func (op *OnePasswordBackend) GetContent(ctx context.Context, name string, sess backend.Session) (string, error) {
	item, err := op.GetItem(ctx, name, sess)
	if err != nil {
		return "", err
	}
	return item.Content, nil
}

func (op *OnePasswordBackend) ItemExists(ctx context.Context, name string, _ backend.Session) (bool, error) {
	_, err := op.getRaw(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (op *OnePasswordBackend) GetItemID(ctx context.Context, name string, _ backend.Session) (string, error) {
	raw, err := op.getRaw(ctx, name)
	if err != nil {
		return "", err
	}
	return raw.ID, nil
}

// ListItems enumerates items in the configured vault. op item list omits
// field values, so Content is resolved per item on demand by GetContent.
func (op *OnePasswordBackend) ListItems(ctx context.Context, _ backend.Session) ([]backend.Item, error) {
	args := []string{"item", "list", "--format", "json"}
	if op.vault != "" {
		args = append(args, "--vault", op.vault)
	}
	stdout, stderr, err := op.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("op item list: %s", firstLine(stderr, err))
	}

	var raw []onePasswordItem
	if err := json.Unmarshal(stdout, &raw); err != nil {
		return nil, fmt.Errorf("parse op item list: %w", err)
	}

	items := make([]backend.Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, backend.Item{ID: r.ID, Name: r.Title, Type: backend.TypeFile})
	}
	return items, nil
}

// CreateItem stores content as a new Secure Note. Identical existing
// content is a no-op.
func (op *OnePasswordBackend) CreateItem(ctx context.Context, name, content string, sess backend.Session) error {
	if existing, err := op.getRaw(ctx, name); err == nil {
		if existing.notes() == content {
			op.logger.Debug("item %s already present with identical content", name)
			return nil
		}
		return fmt.Errorf("item '%s' already exists with different content, use update", name)
	} else if !isNotFound(err) {
		return err
	}

	args := []string{"item", "create", "--category", "Secure Note", "--title", name}
	if op.vault != "" {
		args = append(args, "--vault", op.vault)
	}
	args = append(args, "notesPlain="+content)

	if _, stderr, err := op.run(ctx, args...); err != nil {
		return fmt.Errorf("op item create '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// UpdateItem replaces an item's content. Identical content is a no-op.
func (op *OnePasswordBackend) UpdateItem(ctx context.Context, name, content string, sess backend.Session) error {
	existing, err := op.getRaw(ctx, name)
	if err != nil {
		return err
	}
	if existing.notes() == content {
		op.logger.Debug("item %s unchanged, skipping edit", name)
		return nil
	}

	args := []string{"item", "edit", existing.ID}
	if op.vault != "" {
		args = append(args, "--vault", op.vault)
	}
	args = append(args, "notesPlain="+content)

	if _, stderr, err := op.run(ctx, args...); err != nil {
		return fmt.Errorf("op item edit '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// DeleteItem removes an item; missing items surface as NotFoundError.
func (op *OnePasswordBackend) DeleteItem(ctx context.Context, name string, _ backend.Session) error {
	existing, err := op.getRaw(ctx, name)
	if err != nil {
		return err
	}

	args := []string{"item", "delete", existing.ID}
	if op.vault != "" {
		args = append(args, "--vault", op.vault)
	}
	if _, stderr, err := op.run(ctx, args...); err != nil {
		return fmt.Errorf("op item delete '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// HealthCheck summarizes tool, auth and store reachability.
func (op *OnePasswordBackend) HealthCheck(ctx context.Context, sess backend.Session) (backend.HealthReport, error) {
	report := backend.HealthReport{Backend: op.Name()}

	if err := op.Init(ctx); err != nil {
		report.Notes = append(report.Notes, err.Error())
		return report, nil
	}
	report.ToolInstalled = true

	if !op.LoginCheck(ctx, sess) {
		report.Notes = append(report.Notes, "not signed in. Run: op signin")
		return report, nil
	}
	report.Authenticated = true

	items, err := op.ListItems(ctx, sess)
	if err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("list items failed: %v", err))
		return report, nil
	}
	report.StoreReachable = true
	report.ItemCount = len(items)
	return report, nil
}

// ListLocations enumerates vaults.
func (op *OnePasswordBackend) ListLocations(ctx context.Context, _ backend.Session) ([]backend.Location, error) {
	stdout, stderr, err := op.run(ctx, "vault", "list", "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("op vault list: %s", firstLine(stderr, err))
	}

	var vaults []onePasswordVault
	if err := json.Unmarshal(stdout, &vaults); err != nil {
		return nil, fmt.Errorf("parse op vault list: %w", err)
	}

	locations := make([]backend.Location, 0, len(vaults))
	for _, v := range vaults {
		locations = append(locations, backend.Location{Type: "vault", Value: v.Name})
	}
	return locations, nil
}

func (op *OnePasswordBackend) getRaw(ctx context.Context, name string) (onePasswordItem, error) {
	args := []string{"item", "get", name, "--format", "json"}
	if op.vault != "" {
		args = append(args, "--vault", op.vault)
	}

	stdout, stderr, err := op.run(ctx, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(string(stderr)), "isn't an item") ||
			strings.Contains(strings.ToLower(string(stderr)), "not found") {
			return onePasswordItem{}, backend.NotFoundError{Backend: op.Name(), Name: name}
		}
		return onePasswordItem{}, fmt.Errorf("op item get '%s': %s", name, firstLine(stderr, err))
	}

	var item onePasswordItem
	if err := json.Unmarshal(stdout, &item); err != nil {
		return onePasswordItem{}, fmt.Errorf("parse op item: %w", err)
	}
	return item, nil
}

func (op *OnePasswordBackend) canonical(item onePasswordItem) backend.Item {
	content := item.notes()
	itemType := backend.TypeFile
	if sshkey.HasPrivateKeyDelimiters(content) {
		itemType = backend.TypeSSHKey
	}
	return backend.Item{
		ID:      item.ID,
		Name:    item.Title,
		Type:    itemType,
		Content: content,
	}
}

func (op *OnePasswordBackend) run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	if op.account != "" {
		args = append(args, "--account", op.account)
	}
	return op.executor.Execute(ctx, "op", args...)
}

// 1Password CLI data structures

type onePasswordItem struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Fields   []onePasswordField `json:"fields"`
}

// notes returns the notesPlain field value, the single blob where dotvault
// stores content.
func (i onePasswordItem) notes() string {
	for _, f := range i.Fields {
		if f.ID == "notesPlain" || f.Purpose == "NOTES" {
			return f.Value
		}
	}
	return ""
}

type onePasswordField struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Purpose string `json:"purpose"`
	Label   string `json:"label"`
	Value   string `json:"value"`
}

type onePasswordVault struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
