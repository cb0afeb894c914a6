// Package exec provides abstractions for running provider CLI tools.
// Backends never call os/exec directly; they go through a CommandExecutor so
// tests can mock CLI behavior and so every provider invocation carries a
// timeout.
package exec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single provider CLI invocation. An unresponsive
// provider process otherwise blocks the whole run.
const DefaultTimeout = 30 * time.Second

// CommandExecutor defines an interface for executing provider commands.
type CommandExecutor interface {
	// Execute runs a command and returns stdout, stderr and any error.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

	// ExecuteInput runs a command with the given string piped to stdin.
	// Used for tools that refuse secrets on argv (pass insert, bw unlock).
	ExecuteInput(ctx context.Context, input, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// RealCommandExecutor executes actual commands using os/exec. This is the
// production implementation.
type RealCommandExecutor struct{}

// Execute runs an actual command, bounded by DefaultTimeout unless the
// caller's context expires sooner.
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return r.run(ctx, "", name, args...)
}

// ExecuteInput runs an actual command with input piped to stdin.
func (r *RealCommandExecutor) ExecuteInput(ctx context.Context, input, name string, args ...string) ([]byte, []byte, error) {
	return r.run(ctx, input, name, args...)
}

func (r *RealCommandExecutor) run(ctx context.Context, input, name string, args ...string) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultExecutor returns the standard production executor.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}
