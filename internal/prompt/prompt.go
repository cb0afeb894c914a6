// Package prompt separates interactive terminal input from business logic.
// The engine and backends take an Interactor so drift confirmation and
// protected-item deletion are testable without a terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	dverrors "github.com/systmms/dotvault/internal/errors"
)

// Interactor is the confirmation and credential-input port.
type Interactor interface {
	// Confirm asks a yes/no question and reports the answer.
	Confirm(question string) (bool, error)

	// ReadLine reads one line of visible input.
	ReadLine(question string) (string, error)

	// ReadPassword reads hidden input (no echo).
	ReadPassword(question string) (string, error)
}

// Terminal is the production Interactor backed by stdin/stderr.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a Terminal interactor on the process stdin/stderr.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stderr}
}

func (t *Terminal) Confirm(question string) (bool, error) {
	answer, err := t.ReadLine(question + " [y/N]")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func (t *Terminal) ReadLine(question string) (string, error) {
	fmt.Fprintf(t.out, "%s ", question)
	reader := bufio.NewReader(t.in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) ReadPassword(question string) (string, error) {
	fmt.Fprintf(t.out, "%s ", question)
	defer fmt.Fprintln(t.out)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Piped input still works for scripted use.
		return t.ReadLine("")
	}

	pw, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// NonInteractive refuses every prompt. Used when --non-interactive is set so
// batch runs fail fast instead of hanging on input.
type NonInteractive struct{}

func (NonInteractive) Confirm(question string) (bool, error) {
	return false, nonInteractiveErr(question)
}

func (NonInteractive) ReadLine(question string) (string, error) {
	return "", nonInteractiveErr(question)
}

func (NonInteractive) ReadPassword(question string) (string, error) {
	return "", nonInteractiveErr(question)
}

func nonInteractiveErr(question string) error {
	return dverrors.UserError{
		Message:    "Interactive input required but --non-interactive is set",
		Details:    question,
		Suggestion: "Re-run without --non-interactive, or pre-authenticate the backend",
	}
}

// Scripted replays canned answers in order. Test helper.
type Scripted struct {
	Answers   []string
	Passwords []string
	Confirms  []bool

	answerIdx   int
	passwordIdx int
	confirmIdx  int

	// Questions records every prompt asked, for assertions.
	Questions []string
}

func (s *Scripted) Confirm(question string) (bool, error) {
	s.Questions = append(s.Questions, question)
	if s.confirmIdx >= len(s.Confirms) {
		return false, io.EOF
	}
	answer := s.Confirms[s.confirmIdx]
	s.confirmIdx++
	return answer, nil
}

func (s *Scripted) ReadLine(question string) (string, error) {
	s.Questions = append(s.Questions, question)
	if s.answerIdx >= len(s.Answers) {
		return "", io.EOF
	}
	answer := s.Answers[s.answerIdx]
	s.answerIdx++
	return answer, nil
}

func (s *Scripted) ReadPassword(question string) (string, error) {
	s.Questions = append(s.Questions, question)
	if s.passwordIdx >= len(s.Passwords) {
		return "", io.EOF
	}
	pw := s.Passwords[s.passwordIdx]
	s.passwordIdx++
	return pw, nil
}
