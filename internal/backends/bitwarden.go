package backends

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/prompt"
	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
	pkgexec "github.com/systmms/dotvault/pkg/exec"
)

// secureNoteType is the Bitwarden item type for secure notes, which is how
// dotvault stores file content (a single free-text notes blob).
const secureNoteType = 2

// BitwardenBackend implements the backend interface over the `bw` CLI.
// Authentication is an explicit unlock token passed as --session.
type BitwardenBackend struct {
	executor pkgexec.CommandExecutor
	logger   *logging.Logger
	prompt   prompt.Interactor
	folder   string // optional folder name scoping managed items
}

// NewBitwardenBackend creates a Bitwarden backend from shared options.
func NewBitwardenBackend(opts Options) *BitwardenBackend {
	bw := &BitwardenBackend{
		executor: opts.Executor,
		logger:   opts.Logger,
		prompt:   opts.Prompt,
	}
	if opts.Location != nil && opts.Location.Type == "folder" {
		bw.folder = opts.Location.Value
	}
	if bw.folder == "" {
		bw.folder = os.Getenv("BITWARDEN_FOLDER")
	}
	return bw
}

// Name returns the backend name.
func (bw *BitwardenBackend) Name() string {
	return "bitwarden"
}

// Init verifies the bw CLI is present.
func (bw *BitwardenBackend) Init(ctx context.Context) error {
	if _, err := exec.LookPath("bw"); err != nil {
		return backend.PrerequisiteError{
			Backend: bw.Name(),
			Tool:    "bw",
			Install: "https://bitwarden.com/help/cli/",
		}
	}
	return nil
}

// LoginCheck reports whether the session token unlocks the vault.
func (bw *BitwardenBackend) LoginCheck(ctx context.Context, sess backend.Session) bool {
	status, err := bw.status(ctx, sess)
	if err != nil {
		return false
	}
	return status.Status == "unlocked"
}

// AcquireSession unlocks the vault and returns the raw session token.
// BW_SESSION from the environment is honored first so a user who unlocked in
// their shell is not prompted again.
func (bw *BitwardenBackend) AcquireSession(ctx context.Context) (backend.Session, error) {
	if err := bw.Init(ctx); err != nil {
		return backend.Session{}, err
	}

	if tok := os.Getenv("BW_SESSION"); tok != "" {
		sess := backend.Session{Token: tok}
		if bw.LoginCheck(ctx, sess) {
			bw.logger.Debug("reusing BW_SESSION from environment")
			return sess, nil
		}
	}

	status, err := bw.status(ctx, backend.Session{})
	if err != nil {
		return backend.Session{}, fmt.Errorf("bw status: %w", err)
	}
	if status.Status == "unauthenticated" {
		return backend.Session{}, backend.AuthError{
			Backend: bw.Name(),
			Message: "not logged in. Run: bw login",
		}
	}

	password, err := bw.prompt.ReadPassword("Bitwarden master password:")
	if err != nil {
		return backend.Session{}, err
	}

	stdout, stderr, err := bw.executor.ExecuteInput(ctx, password+"\n", "bw", "unlock", "--raw")
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return backend.Session{}, backend.AuthError{Backend: bw.Name(), Message: msg}
	}

	token := strings.TrimSpace(string(stdout))
	if token == "" {
		return backend.Session{}, backend.AuthError{Backend: bw.Name(), Message: "unlock returned an empty session token"}
	}
	return backend.Session{Token: token}, nil
}

// SyncRemote refreshes the local bw cache. Best effort.
func (bw *BitwardenBackend) SyncRemote(ctx context.Context, sess backend.Session) {
	if _, _, err := bw.run(ctx, sess, "sync"); err != nil {
		bw.logger.Debug("bw sync failed (continuing with cached vault): %v", err)
	}
}

// GetItem fetches an item by name and normalizes it to the canonical shape.
func (bw *BitwardenBackend) GetItem(ctx context.Context, name string, sess backend.Session) (backend.Item, error) {
	item, err := bw.getRaw(ctx, name, sess)
	if err != nil {
		return backend.Item{}, err
	}
	return bw.canonical(item), nil
}

// GetContent fetches only an item's content.
func (bw *BitwardenBackend) GetContent(ctx context.Context, name string, sess backend.Session) (string, error) {
	item, err := bw.GetItem(ctx, name, sess)
	if err != nil {
		return "", err
	}
	return item.Content, nil
}

// ItemExists reports whether the named item exists.
func (bw *BitwardenBackend) ItemExists(ctx context.Context, name string, sess backend.Session) (bool, error) {
	_, err := bw.getRaw(ctx, name, sess)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetItemID returns the provider-assigned item ID.
func (bw *BitwardenBackend) GetItemID(ctx context.Context, name string, sess backend.Session) (string, error) {
	item, err := bw.getRaw(ctx, name, sess)
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

// ListItems enumerates items, scoped to the configured folder when set.
func (bw *BitwardenBackend) ListItems(ctx context.Context, sess backend.Session) ([]backend.Item, error) {
	args := []string{"list", "items"}
	if bw.folder != "" {
		folderID, err := bw.folderID(ctx, sess)
		if err == nil && folderID != "" {
			args = append(args, "--folderid", folderID)
		}
	}

	stdout, _, err := bw.run(ctx, sess, args...)
	if err != nil {
		return nil, fmt.Errorf("bw list items: %w", err)
	}

	var raw []bitwardenItem
	if err := json.Unmarshal(stdout, &raw); err != nil {
		return nil, fmt.Errorf("parse bw list output: %w", err)
	}

	items := make([]backend.Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, bw.canonical(r))
	}
	return items, nil
}

// CreateItem stores content as a new secure note. Creating an item that
// already exists with identical content is a no-op.
func (bw *BitwardenBackend) CreateItem(ctx context.Context, name, content string, sess backend.Session) error {
	if existing, err := bw.getRaw(ctx, name, sess); err == nil {
		if existing.Notes == content {
			bw.logger.Debug("item %s already present with identical content", name)
			return nil
		}
		return fmt.Errorf("item '%s' already exists with different content, use update", name)
	} else if !isNotFound(err) {
		return err
	}

	payload := bitwardenItem{
		Type:  secureNoteType,
		Name:  name,
		Notes: content,
		SecureNote: &bitwardenSecureNote{
			Type: 0,
		},
	}
	if bw.folder != "" {
		if folderID, err := bw.folderID(ctx, sess); err == nil {
			payload.FolderID = folderID
		}
	}

	encoded, err := encodeItem(payload)
	if err != nil {
		return err
	}

	if _, stderr, err := bw.run(ctx, sess, "create", "item", encoded); err != nil {
		return fmt.Errorf("bw create item '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// UpdateItem replaces an item's content. Identical content is a no-op;
// a missing item is a reported NotFoundError.
func (bw *BitwardenBackend) UpdateItem(ctx context.Context, name, content string, sess backend.Session) error {
	item, err := bw.getRaw(ctx, name, sess)
	if err != nil {
		return err
	}
	if item.Notes == content {
		bw.logger.Debug("item %s unchanged, skipping edit", name)
		return nil
	}

	item.Notes = content
	encoded, err := encodeItem(item)
	if err != nil {
		return err
	}

	if _, stderr, err := bw.run(ctx, sess, "edit", "item", item.ID, encoded); err != nil {
		return fmt.Errorf("bw edit item '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// DeleteItem removes an item. Deleting a missing item is a reported
// NotFoundError, never a crash.
func (bw *BitwardenBackend) DeleteItem(ctx context.Context, name string, sess backend.Session) error {
	item, err := bw.getRaw(ctx, name, sess)
	if err != nil {
		return err
	}
	if _, stderr, err := bw.run(ctx, sess, "delete", "item", item.ID); err != nil {
		return fmt.Errorf("bw delete item '%s': %s", name, firstLine(stderr, err))
	}
	return nil
}

// HealthCheck summarizes tool, auth and store reachability.
func (bw *BitwardenBackend) HealthCheck(ctx context.Context, sess backend.Session) (backend.HealthReport, error) {
	report := backend.HealthReport{Backend: bw.Name()}

	if err := bw.Init(ctx); err != nil {
		report.Notes = append(report.Notes, err.Error())
		return report, nil
	}
	report.ToolInstalled = true

	status, err := bw.status(ctx, sess)
	if err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("bw status failed: %v", err))
		return report, nil
	}
	report.Authenticated = status.Status == "unlocked"
	if !report.Authenticated {
		report.Notes = append(report.Notes, "vault status: "+status.Status)
		return report, nil
	}

	items, err := bw.ListItems(ctx, sess)
	if err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("list items failed: %v", err))
		return report, nil
	}
	report.StoreReachable = true
	report.ItemCount = len(items)
	return report, nil
}

// ListLocations enumerates vault folders.
func (bw *BitwardenBackend) ListLocations(ctx context.Context, sess backend.Session) ([]backend.Location, error) {
	stdout, _, err := bw.run(ctx, sess, "list", "folders")
	if err != nil {
		return nil, fmt.Errorf("bw list folders: %w", err)
	}

	var folders []bitwardenFolder
	if err := json.Unmarshal(stdout, &folders); err != nil {
		return nil, fmt.Errorf("parse bw folders: %w", err)
	}

	locations := make([]backend.Location, 0, len(folders))
	for _, f := range folders {
		if f.Name == "No Folder" {
			continue
		}
		locations = append(locations, backend.Location{Type: "folder", Value: f.Name})
	}
	return locations, nil
}

func (bw *BitwardenBackend) getRaw(ctx context.Context, name string, sess backend.Session) (bitwardenItem, error) {
	stdout, stderr, err := bw.run(ctx, sess, "get", "item", name)
	if err != nil {
		if strings.Contains(strings.ToLower(string(stderr)), "not found") {
			return bitwardenItem{}, backend.NotFoundError{Backend: bw.Name(), Name: name}
		}
		return bitwardenItem{}, fmt.Errorf("bw get item '%s': %s", name, firstLine(stderr, err))
	}

	var item bitwardenItem
	if err := json.Unmarshal(stdout, &item); err != nil {
		return bitwardenItem{}, fmt.Errorf("parse bw item: %w", err)
	}
	return item, nil
}

func (bw *BitwardenBackend) canonical(item bitwardenItem) backend.Item {
	itemType := backend.TypeFile
	if sshkey.HasPrivateKeyDelimiters(item.Notes) {
		itemType = backend.TypeSSHKey
	}
	return backend.Item{
		ID:      item.ID,
		Name:    item.Name,
		Type:    itemType,
		Content: item.Notes,
	}
}

func (bw *BitwardenBackend) folderID(ctx context.Context, sess backend.Session) (string, error) {
	stdout, _, err := bw.run(ctx, sess, "list", "folders", "--search", bw.folder)
	if err != nil {
		return "", err
	}
	var folders []bitwardenFolder
	if err := json.Unmarshal(stdout, &folders); err != nil {
		return "", err
	}
	for _, f := range folders {
		if f.Name == bw.folder {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("folder '%s' not found", bw.folder)
}

func (bw *BitwardenBackend) run(ctx context.Context, sess backend.Session, args ...string) ([]byte, []byte, error) {
	if sess.Token != "" {
		args = append(args, "--session", sess.Token)
	}
	return bw.executor.Execute(ctx, "bw", args...)
}

func (bw *BitwardenBackend) status(ctx context.Context, sess backend.Session) (bitwardenStatus, error) {
	stdout, _, err := bw.run(ctx, sess, "status")
	if err != nil {
		return bitwardenStatus{}, err
	}
	var status bitwardenStatus
	if err := json.Unmarshal(stdout, &status); err != nil {
		return bitwardenStatus{}, fmt.Errorf("parse bw status: %w", err)
	}
	return status, nil
}

func encodeItem(item bitwardenItem) (string, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func firstLine(stderr []byte, err error) string {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err.Error()
	}
	if idx := strings.IndexByte(msg, '\n'); idx > 0 {
		msg = msg[:idx]
	}
	return msg
}

func isNotFound(err error) bool {
	_, ok := err.(backend.NotFoundError)
	return ok
}

// Bitwarden CLI data structures

type bitwardenStatus struct {
	ServerURL string `json:"serverUrl"`
	LastSync  string `json:"lastSync"`
	UserEmail string `json:"userEmail"`
	UserID    string `json:"userId"`
	Status    string `json:"status"`
}

type bitwardenItem struct {
	ID         string               `json:"id,omitempty"`
	FolderID   string               `json:"folderId,omitempty"`
	Type       int                  `json:"type"`
	Name       string               `json:"name"`
	Notes      string               `json:"notes"`
	SecureNote *bitwardenSecureNote `json:"secureNote,omitempty"`
}

type bitwardenSecureNote struct {
	Type int `json:"type"`
}

type bitwardenFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
