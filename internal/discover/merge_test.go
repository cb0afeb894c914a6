package discover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/pkg/backend"
)

func sampleDoc() *config.Document {
	return &config.Document{
		SSHKeys: map[string]string{
			"SSH-Work": "/home/dev/.ssh/id_ed25519_work",
		},
		VaultItems: map[string]config.VaultItem{
			"SSH-Work":   {Path: "/home/dev/.ssh/id_ed25519_work", Required: true, Type: backend.TypeSSHKey},
			"Git-Config": {Path: "/home/dev/.gitconfig", Required: true, Type: backend.TypeFile},
		},
		SyncableItems: map[string]string{
			"Git-Config": "/home/dev/.gitconfig",
		},
		AWSExpectedProfiles: []string{"default", "work"},
	}
}

func TestMerge_Identity(t *testing.T) {
	t.Parallel()
	x := sampleDoc()

	merged, warnings := Merge(sampleDoc(), x)
	assert.Empty(t, warnings)
	assert.Equal(t, x, merged, "merge(X, X) == X")
}

func TestMerge_EmptyExisting(t *testing.T) {
	t.Parallel()
	x := sampleDoc()

	merged, warnings := Merge(sampleDoc(), &config.Document{
		SSHKeys:       map[string]string{},
		VaultItems:    map[string]config.VaultItem{},
		SyncableItems: map[string]string{},
	})
	assert.Empty(t, warnings)
	assert.Equal(t, x, merged, "merge(X, empty) == X")

	merged, _ = Merge(sampleDoc(), nil)
	assert.Equal(t, x, merged)
}

func TestMerge_PreservesManualOptionalDowngrade(t *testing.T) {
	t.Parallel()
	existing := sampleDoc()
	item := existing.VaultItems["SSH-Work"]
	item.Required = false
	existing.VaultItems["SSH-Work"] = item

	candidate := sampleDoc()
	ci := candidate.VaultItems["SSH-Work"]
	ci.Path = "/home/dev/.ssh/id_ed25519_work_new"
	candidate.VaultItems["SSH-Work"] = ci

	merged, _ := Merge(candidate, existing)
	got := merged.VaultItems["SSH-Work"]
	assert.False(t, got.Required, "manual required:false survives rediscovery")
	assert.Equal(t, "/home/dev/.ssh/id_ed25519_work_new", got.Path, "freshly discovered path wins")
}

func TestMerge_RetainsManualEntries(t *testing.T) {
	t.Parallel()
	existing := sampleDoc()
	existing.VaultItems["Other-Machine"] = config.VaultItem{
		Path: "/home/dev/.other", Required: true, Type: backend.TypeFile,
	}

	merged, _ := Merge(sampleDoc(), existing)
	got, ok := merged.VaultItems["Other-Machine"]
	require.True(t, ok, "entries absent from the candidate are manual additions, never dropped")
	assert.Equal(t, existing.VaultItems["Other-Machine"], got)
}

func TestMerge_AddsNewCandidates(t *testing.T) {
	t.Parallel()
	candidate := sampleDoc()
	candidate.VaultItems["NPM-Token"] = config.VaultItem{
		Path: "/home/dev/.npmrc", Required: true, Type: backend.TypeFile,
	}
	candidate.SyncableItems["NPM-Token"] = "/home/dev/.npmrc"

	merged, _ := Merge(candidate, sampleDoc())
	assert.Contains(t, merged.VaultItems, "NPM-Token")
	assert.Contains(t, merged.SyncableItems, "NPM-Token")
}

func TestMerge_TypeConflictWarnsAndAdoptsDiscovered(t *testing.T) {
	t.Parallel()
	existing := sampleDoc()
	item := existing.VaultItems["Git-Config"]
	item.Type = backend.TypeSSHKey
	existing.VaultItems["Git-Config"] = item

	merged, warnings := Merge(sampleDoc(), existing)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Git-Config")
	assert.Contains(t, warnings[0], "sshkey")
	assert.Contains(t, warnings[0], "file")
	assert.Equal(t, backend.TypeFile, merged.VaultItems["Git-Config"].Type)
}

func TestMerge_PreservesProviderID(t *testing.T) {
	t.Parallel()
	existing := sampleDoc()
	item := existing.VaultItems["Git-Config"]
	item.ID = "prov-1234"
	existing.VaultItems["Git-Config"] = item

	merged, _ := Merge(sampleDoc(), existing)
	assert.Equal(t, "prov-1234", merged.VaultItems["Git-Config"].ID)
}

func TestMerge_ProfilesDeduplicated(t *testing.T) {
	t.Parallel()
	existing := sampleDoc()
	candidate := sampleDoc()
	candidate.AWSExpectedProfiles = []string{"work", "staging"}

	merged, _ := Merge(candidate, existing)
	assert.Equal(t, []string{"default", "work", "staging"}, merged.AWSExpectedProfiles)
}

func TestMerge_VaultLocationKeepsExisting(t *testing.T) {
	t.Parallel()
	existing := sampleDoc()
	existing.VaultLocation = &backend.Location{Type: "folder", Value: "dotfiles"}
	candidate := sampleDoc()
	candidate.VaultLocation = &backend.Location{Type: "folder", Value: "discovered"}

	merged, _ := Merge(candidate, existing)
	assert.Equal(t, "dotfiles", merged.VaultLocation.Value)
}
