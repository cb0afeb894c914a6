package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/prompt"
)

func TestExitWith(t *testing.T) {
	t.Parallel()
	assert.NoError(t, exitWith(0))

	err := exitWith(3)
	require.Error(t, err)
	var exitErr ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}

func TestOfflineSkipsVaultWork(t *testing.T) {
	cfg := testConfig(t, "unused")
	cfg.Offline = true

	cmd := NewRestoreCommand(cfg)
	cmd.SetArgs([]string{})
	assert.NoError(t, cmd.Execute(), "offline runs exit successfully doing nothing")

	cmd = NewPushCommand(cfg)
	cmd.SetArgs([]string{"--all"})
	assert.NoError(t, cmd.Execute())
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := testConfig(t, path)

	cmd := NewInitCommand(cfg)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc config.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc.VaultItems, "Git-Config")

	// Refuses a second run without --force.
	cmd = NewInitCommand(cfg)
	cmd.SetArgs([]string{})
	require.Error(t, cmd.Execute())

	cmd = NewInitCommand(cfg)
	cmd.SetArgs([]string{"--force"})
	assert.NoError(t, cmd.Execute())
}

func TestConfirmDelete_ProtectedNeedsTypedName(t *testing.T) {
	cfg := testConfig(t, "unused")
	cfg.Document = &config.Document{
		VaultItems: map[string]config.VaultItem{
			"Git-Config": {Path: "~/.gitconfig", Required: true, Type: "file"},
		},
	}

	// Correct typed name confirms, even though force is set.
	ask := &prompt.Scripted{Answers: []string{"Git-Config"}}
	assert.True(t, confirmDelete(cfg, ask, "Git-Config", true))

	// Wrong name skips.
	ask = &prompt.Scripted{Answers: []string{"git-config"}}
	assert.False(t, confirmDelete(cfg, ask, "Git-Config", true))
}

func TestConfirmDelete_Unprotected(t *testing.T) {
	cfg := testConfig(t, "unused")
	cfg.Document = &config.Document{}

	assert.True(t, confirmDelete(cfg, &prompt.Scripted{}, "Scratch", true), "force skips the prompt")

	ask := &prompt.Scripted{Confirms: []bool{true}}
	assert.True(t, confirmDelete(cfg, ask, "Scratch", false))

	ask = &prompt.Scripted{Confirms: []bool{false}}
	assert.False(t, confirmDelete(cfg, ask, "Scratch", false))
}

func TestConfirmKeyPushes(t *testing.T) {
	cfg := testConfig(t, "unused")
	cfg.Document = &config.Document{
		SSHKeys: map[string]string{"SSH-Work": "/home/dev/.ssh/id_work"},
		VaultItems: map[string]config.VaultItem{
			"Git-Config": {Path: "/home/dev/.gitconfig", Type: "file"},
			"Deploy-Key": {Path: "/home/dev/.ssh/deploy", Type: "sshkey"},
		},
	}

	// Plain files pass through without a prompt.
	kept := confirmKeyPushes(cfg, &prompt.Scripted{}, []string{"Git-Config"})
	assert.Equal(t, []string{"Git-Config"}, kept)

	// Confirmed keys stay in the batch.
	ask := &prompt.Scripted{Confirms: []bool{true, true}}
	kept = confirmKeyPushes(cfg, ask, []string{"SSH-Work", "Deploy-Key", "Git-Config"})
	assert.Equal(t, []string{"SSH-Work", "Deploy-Key", "Git-Config"}, kept)

	// Declined keys drop out; the rest of the batch survives.
	ask = &prompt.Scripted{Confirms: []bool{false}}
	kept = confirmKeyPushes(cfg, ask, []string{"SSH-Work", "Git-Config"})
	assert.Equal(t, []string{"Git-Config"}, kept)

	// Without a terminal there is nobody to confirm, so keys are skipped.
	kept = confirmKeyPushes(cfg, prompt.NonInteractive{}, []string{"Deploy-Key", "Git-Config"})
	assert.Equal(t, []string{"Git-Config"}, kept)
}

func TestParseLocation(t *testing.T) {
	t.Parallel()

	loc, err := parseLocation("folder:dotfiles")
	require.NoError(t, err)
	assert.Equal(t, "folder", loc.Type)
	assert.Equal(t, "dotfiles", loc.Value)

	loc, err = parseLocation("prefix:work/secrets")
	require.NoError(t, err)
	assert.Equal(t, "work/secrets", loc.Value)

	for _, bad := range []string{"", "folder", ":value", "type:"} {
		_, err := parseLocation(bad)
		assert.Error(t, err, bad)
	}
}
