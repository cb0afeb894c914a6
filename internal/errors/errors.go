package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/dotvault/pkg/backend"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// DriftError aborts a restore before any mutation when tracked items have
// diverged from the vault.
type DriftError struct {
	Items []string
}

func (e DriftError) Error() string {
	return fmt.Sprintf("local changes detected for %d item(s): %s",
		len(e.Items), strings.Join(e.Items, ", "))
}

// BackendError enhances backend-specific errors with remediation context
func BackendError(backendName string, operation string, err error) error {
	var authErr backend.AuthError
	if errors.As(err, &authErr) {
		return UserError{
			Message:    fmt.Sprintf("%s: authentication required during %s", backendName, operation),
			Suggestion: loginSuggestion(backendName),
			Err:        err,
		}
	}

	return UserError{
		Message:    fmt.Sprintf("%s backend error during %s", backendName, operation),
		Suggestion: getBackendSuggestion(backendName, err),
		Err:        err,
	}
}

func loginSuggestion(backendName string) string {
	switch backendName {
	case "bitwarden":
		return "Run 'bw login', then 'dotvault restore' will unlock the vault"
	case "onepassword":
		return "Run 'op signin' (or enable biometric unlock in the 1Password app)"
	case "pass":
		return "Check your GPG key with 'gpg --list-secret-keys' and that gpg-agent is running"
	}
	return "Re-authenticate with the backend and retry"
}

// getBackendSuggestion returns helpful suggestions based on backend and error
func getBackendSuggestion(backendName string, err error) string {
	errStr := err.Error()

	switch backendName {
	case "bitwarden":
		if strings.Contains(errStr, "not logged in") {
			return "Run 'bw login' to authenticate with Bitwarden"
		}
		if strings.Contains(errStr, "locked") {
			return "Run 'bw unlock' and export the BW_SESSION environment variable"
		}
		if strings.Contains(errStr, "not found") || strings.Contains(errStr, "Not found") {
			return "Verify the item name exists in Bitwarden. Use 'bw list items --search <name>' to search"
		}
		if strings.Contains(errStr, "command not found") {
			return "Install Bitwarden CLI: https://bitwarden.com/help/cli/"
		}

	case "onepassword":
		if strings.Contains(errStr, "not signed in") {
			return "Run 'op signin' to authenticate with 1Password"
		}
		if strings.Contains(errStr, "session expired") {
			return "Your 1Password session has expired. Run 'op signin' again"
		}
		if strings.Contains(errStr, "not found") {
			return "Verify the item exists. Use 'op item list' to see available items"
		}
		if strings.Contains(errStr, "command not found") {
			return "Install 1Password CLI: https://developer.1password.com/docs/cli/get-started/"
		}

	case "pass":
		if strings.Contains(errStr, "not in the password store") {
			return "Check the entry path with 'pass ls' or 'pass find <keyword>'"
		}
		if strings.Contains(errStr, "gpg") {
			return "Check your GPG key setup and that gpg-agent is running"
		}
		if strings.Contains(errStr, "command not found") {
			return "Install pass: https://www.passwordstore.org/"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The provider did not respond in time. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network, or set DOTVAULT_OFFLINE=1 to skip vault operations"
	}

	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Simplify rewrites common technical errors into user-facing ones. Errors
// that already carry context pass through unchanged.
func Simplify(err error) error {
	if err == nil {
		return nil
	}

	var userErr UserError
	var cfgErr ConfigError
	var driftErr DriftError
	if errors.As(err, &userErr) || errors.As(err, &cfgErr) || errors.As(err, &driftErr) {
		return err
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "json:") || strings.Contains(errStr, "invalid character") {
		return ConfigError{
			Message:    "Invalid JSON format",
			Suggestion: "Check the config file for trailing commas and unquoted keys",
		}
	}

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions on the target path",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
