package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealCommandExecutor_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		command     string
		args        []string
		wantSuccess bool
		wantOutput  string
	}{
		{
			name:        "echo command",
			command:     "echo",
			args:        []string{"hello"},
			wantSuccess: true,
			wantOutput:  "hello\n",
		},
		{
			name:        "command with multiple args",
			command:     "echo",
			args:        []string{"hello", "world"},
			wantSuccess: true,
			wantOutput:  "hello world\n",
		},
		{
			name:        "invalid command",
			command:     "nonexistent_command_xyz123",
			args:        []string{},
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			executor := &RealCommandExecutor{}
			stdout, stderr, err := executor.Execute(context.Background(), tt.command, tt.args...)

			if tt.wantSuccess {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOutput, string(stdout))
				assert.Empty(t, stderr)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRealCommandExecutor_ExecuteInput(t *testing.T) {
	t.Parallel()

	executor := &RealCommandExecutor{}
	stdout, _, err := executor.ExecuteInput(context.Background(), "piped\n", "cat")
	require.NoError(t, err)
	assert.Equal(t, "piped\n", string(stdout))
}

func TestRealCommandExecutor_ContextCancellation(t *testing.T) {
	t.Parallel()

	executor := &RealCommandExecutor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := executor.Execute(ctx, "sleep", "10")
	assert.Error(t, err)
}

func TestMockCommandExecutor_PatternMatching(t *testing.T) {
	t.Parallel()

	mock := NewMockCommandExecutor()
	mock.AddOutput("bw get item My-Item", `{"id":"abc"}`)
	mock.AddErrorResponse("bw get item Missing", "Not found.", 1)

	stdout, _, err := mock.Execute(context.Background(), "bw", "get", "item", "My-Item")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(stdout))

	_, stderr, err := mock.Execute(context.Background(), "bw", "get", "item", "Missing")
	assert.Error(t, err)
	assert.Contains(t, string(stderr), "Not found")

	// Prefix match covers extra trailing flags.
	_, _, err = mock.Execute(context.Background(), "bw", "get", "item", "My-Item", "--session", "tok")
	require.NoError(t, err)
}

func TestMockCommandExecutor_RecordsInput(t *testing.T) {
	t.Parallel()

	mock := NewMockCommandExecutor()
	_, _, err := mock.ExecuteInput(context.Background(), "secret-body", "pass", "insert", "-m", "x")
	require.NoError(t, err)

	calls := mock.GetCalls("pass")
	require.Len(t, calls, 1)
	assert.Equal(t, "secret-body", calls[0].Input)
}

func TestMockCommandExecutor_StrictMode(t *testing.T) {
	t.Parallel()

	mock := NewMockCommandExecutor()
	mock.StrictMode = true

	_, _, err := mock.Execute(context.Background(), "unknown")
	assert.Error(t, err)
}
