package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_UpdatesDivergedItem(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("local version\n"), 0o644))
	vault.SetItem("Git-Config", "vault version\n")

	summary, err := e.Push(context.Background(), doc, PushOptions{Names: []string{"Git-Config"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, summary.Synced)
	assert.Zero(t, summary.ExitCode())

	content, ok := vault.Content("Git-Config")
	require.True(t, ok)
	assert.Equal(t, "local version\n", content)
}

func TestPush_TrailingNewlineDifferenceIsPushed(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("content\n"), 0o644))
	vault.SetItem("Git-Config", "content")

	summary, err := e.Push(context.Background(), doc, PushOptions{Names: []string{"Git-Config"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, summary.Synced)

	content, ok := vault.Content("Git-Config")
	require.True(t, ok)
	assert.Equal(t, "content\n", content, "vault copy matches the local bytes exactly")
}

func TestPush_IdenticalContentIsNoop(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("same\n"), 0o644))
	vault.SetItem("Git-Config", "same\n")

	summary, err := e.Push(context.Background(), doc, PushOptions{Names: []string{"Git-Config"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, summary.UpToDate)
	assert.Zero(t, vault.Calls["updateItem"])
}

func TestPush_Idempotent(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("v2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npmrc"), []byte("token\n"), 0o644))
	vault.SetItem("Git-Config", "v1\n")
	vault.SetItem("NPM-Token", "token\n")

	first, err := e.Push(context.Background(), doc, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, first.Synced)

	second, err := e.Push(context.Background(), doc, PushOptions{})
	require.NoError(t, err)
	assert.Empty(t, second.Synced, "second pass compares equal everywhere")
	assert.Len(t, second.UpToDate, 2)
	assert.Equal(t, 1, vault.Calls["updateItem"], "exactly one write across both passes")
}

func TestPush_MissingVaultItemNeedsCreate(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("content\n"), 0o644))

	summary, err := e.Push(context.Background(), doc, PushOptions{Names: []string{"Git-Config"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, summary.Missing)
	assert.Zero(t, summary.ExitCode(), "missing items are counted, not failed")
	assert.Zero(t, vault.Calls["createItem"], "push never implicitly creates")
}

func TestPush_MissingLocalFileIsSkipped(t *testing.T) {
	e, vault, doc, _ := testEngine(t)
	vault.SetItem("Git-Config", "vault version\n")

	summary, err := e.Push(context.Background(), doc, PushOptions{Names: []string{"Git-Config"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, summary.Skipped)
}

func TestPush_DryRunWritesNothing(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("local version\n"), 0o644))
	vault.SetItem("Git-Config", "vault version\n")

	summary, err := e.Push(context.Background(), doc, PushOptions{Names: []string{"Git-Config"}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config"}, summary.Synced)
	assert.Zero(t, vault.Calls["updateItem"])

	content, _ := vault.Content("Git-Config")
	assert.Equal(t, "vault version\n", content)
}

func TestPush_WriteFailureSetsExitCode(t *testing.T) {
	e, vault, doc, dir := testEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("local version\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npmrc"), []byte("new token\n"), 0o644))
	vault.SetItem("Git-Config", "vault version\n")
	vault.SetItem("NPM-Token", "old token\n")
	vault.FailWrites = true

	summary, err := e.Push(context.Background(), doc, PushOptions{})
	require.NoError(t, err, "per-item failures accumulate instead of aborting")
	assert.Len(t, summary.Failed, 2)
	assert.Equal(t, 2, summary.ExitCode())
}
