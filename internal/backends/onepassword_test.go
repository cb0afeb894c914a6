package backends

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/pkg/backend"
	pkgexec "github.com/systmms/dotvault/pkg/exec"
)

func newOnePassword(t *testing.T, mock *pkgexec.MockCommandExecutor) *OnePasswordBackend {
	t.Helper()
	stubTool(t, "op")
	t.Setenv("DOTVAULT_OP_ACCOUNT", "")
	return NewOnePasswordBackend(Options{
		Executor: mock,
		Logger:   logging.New(false, true),
	})
}

func opItemJSON(id, title, notes string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"id":       id,
		"title":    title,
		"category": "SECURE_NOTE",
		"fields": []map[string]string{
			{"id": "notesPlain", "purpose": "NOTES", "value": notes},
		},
	})
	return string(data)
}

func TestOnePassword_AcquireSession_Ambient(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op account get", `{"id":"ACC","email":"user@example.com"}`)
	op := newOnePassword(t, mock)

	sess, err := op.AcquireSession(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sess.Token, "1Password auth is ambient, no token to carry")
}

func TestOnePassword_AcquireSession_NotSignedIn(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddErrorResponse("op account get", "[ERROR] account is not signed in", 1)
	op := newOnePassword(t, mock)

	_, err := op.AcquireSession(context.Background())
	var authErr backend.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "op signin")
}

func TestOnePassword_GetItem(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op item get NPM-Token --format json", opItemJSON("op-1", "NPM-Token", "//registry.npmjs.org/:_authToken=abc\n"))
	op := newOnePassword(t, mock)

	item, err := op.GetItem(context.Background(), "NPM-Token", backend.Session{})
	require.NoError(t, err)
	assert.Equal(t, "op-1", item.ID)
	assert.Equal(t, backend.TypeFile, item.Type)
	assert.Equal(t, "//registry.npmjs.org/:_authToken=abc\n", item.Content)
}

func TestOnePassword_GetItem_NotFound(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddErrorResponse("op item get Missing --format json", `"Missing" isn't an item in any vault`, 1)
	op := newOnePassword(t, mock)

	_, err := op.GetItem(context.Background(), "Missing", backend.Session{})
	var notFound backend.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "onepassword", notFound.Backend)
}

func TestOnePassword_CreateItem(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddErrorResponse("op item get New-Note --format json", `"New-Note" isn't an item in any vault`, 1)
	mock.AddOutput("op item create", opItemJSON("op-new", "New-Note", "content"))
	op := newOnePassword(t, mock)

	require.NoError(t, op.CreateItem(context.Background(), "New-Note", "content", backend.Session{}))

	var createCall *pkgexec.RecordedCall
	for _, call := range mock.GetCalls("op") {
		if len(call.Args) > 1 && call.Args[0] == "item" && call.Args[1] == "create" {
			c := call
			createCall = &c
		}
	}
	require.NotNil(t, createCall)
	assert.Contains(t, createCall.Args, "Secure Note")
	assert.Contains(t, createCall.Args, "notesPlain=content")
}

func TestOnePassword_CreateItem_IdenticalContentIsNoop(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op item get Existing --format json", opItemJSON("op-2", "Existing", "same"))
	op := newOnePassword(t, mock)

	require.NoError(t, op.CreateItem(context.Background(), "Existing", "same", backend.Session{}))

	for _, call := range mock.GetCalls("op") {
		if len(call.Args) > 1 {
			assert.NotEqual(t, "create", call.Args[1])
		}
	}
}

func TestOnePassword_UpdateItem_EditsByID(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op item get Git-Config --format json", opItemJSON("op-3", "Git-Config", "old"))
	mock.AddOutput("op item edit op-3", opItemJSON("op-3", "Git-Config", "new"))
	op := newOnePassword(t, mock)

	require.NoError(t, op.UpdateItem(context.Background(), "Git-Config", "new", backend.Session{}))

	var sawEdit bool
	for _, call := range mock.GetCalls("op") {
		if len(call.Args) > 2 && call.Args[1] == "edit" {
			sawEdit = true
			assert.Equal(t, "op-3", call.Args[2])
			assert.Contains(t, call.Args, "notesPlain=new")
		}
	}
	assert.True(t, sawEdit)
}

func TestOnePassword_DeleteItem_Missing(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddErrorResponse("op item get Ghost --format json", `"Ghost" isn't an item in any vault`, 1)
	op := newOnePassword(t, mock)

	err := op.DeleteItem(context.Background(), "Ghost", backend.Session{})
	var notFound backend.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestOnePassword_ListItems(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op item list --format json",
		`[{"id":"op-1","title":"NPM-Token"},{"id":"op-2","title":"Git-Config"}]`)
	op := newOnePassword(t, mock)

	items, err := op.ListItems(context.Background(), backend.Session{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "NPM-Token", items[0].Name)
	assert.Empty(t, items[0].Content, "list output omits field values")
}

func TestOnePassword_AccountFlagAppended(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op account get", `{"id":"ACC"}`)
	stubTool(t, "op")
	t.Setenv("DOTVAULT_OP_ACCOUNT", "work")
	op := NewOnePasswordBackend(Options{Executor: mock, Logger: logging.New(false, true)})

	op.LoginCheck(context.Background(), backend.Session{})

	calls := mock.GetCalls("op")
	require.NotEmpty(t, calls)
	assert.Equal(t, []string{"account", "get", "--account", "work"}, calls[0].Args)
}

func TestOnePassword_ListLocations(t *testing.T) {
	mock := pkgexec.NewMockCommandExecutor()
	mock.AddOutput("op vault list --format json",
		`[{"id":"v1","name":"Personal"},{"id":"v2","name":"Dotfiles"}]`)
	op := newOnePassword(t, mock)

	locations, err := op.ListLocations(context.Background(), backend.Session{})
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, backend.Location{Type: "vault", Value: "Personal"}, locations[0])
}
