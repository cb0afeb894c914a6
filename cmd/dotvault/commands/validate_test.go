package commands

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/logging"
)

func testConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	return &config.Config{
		Path:   path,
		Logger: logging.NewWithWriter(io.Discard, false, true),
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCommand_ValidConfig(t *testing.T) {
	path := writeConfigFile(t, `{
  "vault_items": {
    "Git-Config": {"path": "~/.gitconfig", "required": true, "type": "file"}
  },
  "syncable_items": {"Git-Config": "~/.gitconfig"}
}`)

	cmd := NewValidateCommand(testConfig(t, path))
	cmd.SetArgs([]string{})
	assert.NoError(t, cmd.Execute())
}

func TestValidateCommand_InvalidConfigExitsOne(t *testing.T) {
	path := writeConfigFile(t, `{
  "vault_items": {
    "bad name": {"path": "~/.x", "type": "binary"}
  }
}`)

	cmd := NewValidateCommand(testConfig(t, path))
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)

	var exitErr ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestValidateCommand_ExplicitPathArgument(t *testing.T) {
	path := writeConfigFile(t, `{"vault_items": {}}`)

	cmd := NewValidateCommand(testConfig(t, filepath.Join(t.TempDir(), "absent.json")))
	cmd.SetArgs([]string{path})
	assert.NoError(t, cmd.Execute())
}

func TestValidateCommand_MissingFile(t *testing.T) {
	cmd := NewValidateCommand(testConfig(t, filepath.Join(t.TempDir(), "absent.json")))
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dotvault discover")
}
