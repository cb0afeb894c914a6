package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/pkg/backend"
)

// Config holds the runtime configuration for a single invocation. The
// Document is loaded once and treated as immutable for the rest of the run.
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	BackendName    string
	Offline        bool
	Document       *Document
}

// Document is the item registry: the description of every managed secret.
//
// The canonical on-disk format is JSON. YAML input (.yaml/.yml) is accepted
// for hand-edited configs and decodes into the same structure.
type Document struct {
	SSHKeys             map[string]string    `json:"ssh_keys,omitempty" yaml:"ssh_keys,omitempty"`
	VaultItems          map[string]VaultItem `json:"vault_items,omitempty" yaml:"vault_items,omitempty"`
	SyncableItems       map[string]string    `json:"syncable_items,omitempty" yaml:"syncable_items,omitempty"`
	AWSExpectedProfiles []string             `json:"aws_expected_profiles,omitempty" yaml:"aws_expected_profiles,omitempty"`
	VaultLocation       *backend.Location    `json:"vault_location,omitempty" yaml:"vault_location,omitempty"`
}

// VaultItem describes one managed secret.
type VaultItem struct {
	Path     string           `json:"path" yaml:"path"`
	Required bool             `json:"required" yaml:"required"`
	Type     backend.ItemType `json:"type" yaml:"type"`
	ID       string           `json:"id,omitempty" yaml:"id,omitempty"`
}

// Load reads and parses the config file, expands home-relative paths and
// checks the document invariants. Call once at process start.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return dverrors.UserError{
			Message:    fmt.Sprintf("Cannot read config file %s", c.Path),
			Suggestion: "Run 'dotvault discover' or 'dotvault init' to create one",
			Err:        err,
		}
	}

	doc, err := Parse(data, c.Path)
	if err != nil {
		return err
	}

	c.Document = doc
	return nil
}

// Parse decodes raw config bytes into a Document. The path argument only
// selects the decoder by extension.
func Parse(data []byte, path string) (*Document, error) {
	var doc Document
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, dverrors.ConfigError{
			Message:    fmt.Sprintf("cannot parse %s: %v", filepath.Base(path), err),
			Suggestion: "Validate the file with 'dotvault validate'",
		}
	}

	doc.expandPaths()

	if err := doc.checkInvariants(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) expandPaths() {
	for name, path := range d.SSHKeys {
		d.SSHKeys[name] = ExpandHome(path)
	}
	for name, item := range d.VaultItems {
		item.Path = ExpandHome(item.Path)
		d.VaultItems[name] = item
	}
	for name, path := range d.SyncableItems {
		d.SyncableItems[name] = ExpandHome(path)
	}
}

func (d *Document) checkInvariants() error {
	for name := range d.SyncableItems {
		if _, ok := d.VaultItems[name]; !ok {
			return dverrors.ConfigError{
				Field:      "syncable_items",
				Value:      name,
				Message:    "syncable item has no matching vault_items entry",
				Suggestion: "Add the item to vault_items or remove it from syncable_items",
			}
		}
	}
	return nil
}

// LocalPath resolves the local filesystem path mapped to an item name.
// vault_items is authoritative; syncable_items and ssh_keys are fallbacks
// for names tracked only there.
func (d *Document) LocalPath(name string) (string, bool) {
	if item, ok := d.VaultItems[name]; ok && item.Path != "" {
		return item.Path, true
	}
	if path, ok := d.SyncableItems[name]; ok && path != "" {
		return path, true
	}
	if path, ok := d.SSHKeys[name]; ok && path != "" {
		return path, true
	}
	return "", false
}

// IsProtected reports whether the name is a tracked vault item. Deleting a
// protected item requires typed-name confirmation.
func (d *Document) IsProtected(name string) bool {
	_, ok := d.VaultItems[name]
	return ok
}

// IsKeyMaterial reports whether the item holds private key content, either
// as a discovered SSH key or a vault item typed sshkey.
func (d *Document) IsKeyMaterial(name string) bool {
	if _, ok := d.SSHKeys[name]; ok {
		return true
	}
	item, ok := d.VaultItems[name]
	return ok && item.Type == backend.TypeSSHKey
}

// ItemNames returns all vault item names sorted for stable output.
func (d *Document) ItemNames() []string {
	names := make([]string, 0, len(d.VaultItems))
	for name := range d.VaultItems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SyncableNames returns all syncable item names sorted for stable output.
func (d *Document) SyncableNames() []string {
	names := make([]string, 0, len(d.SyncableItems))
	for name := range d.SyncableItems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the document as indented JSON via a temp file and rename, so
// an interrupted write never leaves a truncated config. Paths under the home
// directory are collapsed back to the ~/ shorthand to keep the file portable
// across machines.
func (d *Document) Save(path string) error {
	out := d.portableCopy()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (d *Document) portableCopy() *Document {
	out := &Document{
		SSHKeys:             make(map[string]string, len(d.SSHKeys)),
		VaultItems:          make(map[string]VaultItem, len(d.VaultItems)),
		SyncableItems:       make(map[string]string, len(d.SyncableItems)),
		AWSExpectedProfiles: append([]string(nil), d.AWSExpectedProfiles...),
		VaultLocation:       d.VaultLocation,
	}
	for name, path := range d.SSHKeys {
		out.SSHKeys[name] = CollapseHome(path)
	}
	for name, item := range d.VaultItems {
		item.Path = CollapseHome(item.Path)
		out.VaultItems[name] = item
	}
	for name, path := range d.SyncableItems {
		out.SyncableItems[name] = CollapseHome(path)
	}
	return out
}

// ExpandHome expands a leading ~/ to the current user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// CollapseHome replaces the home directory prefix with the ~/ shorthand.
func CollapseHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~/" + filepath.ToSlash(path[len(home)+1:])
	}
	return path
}

// DefaultPath returns the standard config location, honoring XDG_CONFIG_HOME.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "dotvault", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".config", "dotvault", "config.json")
}

// CacheDir returns the directory for session cache files, honoring
// XDG_CACHE_HOME.
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "dotvault")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dotvault-cache"
	}
	return filepath.Join(home, ".cache", "dotvault")
}
