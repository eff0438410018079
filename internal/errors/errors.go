package errors

import (
	"fmt"
	"strings"
)

// UserError represents an error with user-friendly messaging and remediation hints
type UserError struct {
	Title       string // Brief title of the error
	Message     string // Detailed error message
	Remediation string // What the user can do to fix it
	Cause       error  // Underlying error, if any
}

func (e *UserError) Error() string {
	var parts []string

	if e.Title != "" {
		parts = append(parts, e.Title)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Remediation != "" {
		parts = append(parts, fmt.Sprintf("💡 %s", e.Remediation))
	}

	return strings.Join(parts, "\n")
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// Common error constructors with built-in remediation

func NewMissingAPIKeyError() *UserError {
	return &UserError{
		Title:       "❌ Missing API Key",
		Message:     "No OpenAI API key is configured.",
		Remediation: "Run: promptboard setup, or set the OPENAI_API_KEY environment variable",
		Cause:       nil,
	}
}

func NewCompletionError(model string, err error) *UserError {
	errStr := err.Error()
	var remediation string

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "Unauthorized") {
		remediation = "Your API key was rejected. Run: promptboard setup to update it"
	} else if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "no such host") {
		remediation = "Check your internet connection and try again"
	} else if strings.Contains(errStr, "429") {
		remediation = "You are being rate limited by the API. Wait a moment and rerun the card"
	} else {
		remediation = "The card was moved back to To Do; rerun it when the cause is fixed"
	}

	return &UserError{
		Title:       "❌ Prompt Run Failed",
		Message:     fmt.Sprintf("Model %q did not return a completion. %s", model, errStr),
		Remediation: remediation,
		Cause:       err,
	}
}

func NewCardNotFoundError(ref string) *UserError {
	return &UserError{
		Title:       "❌ Card Not Found",
		Message:     fmt.Sprintf("No To Do card matches %q.", ref),
		Remediation: "Run: promptboard list to see card ids and titles",
		Cause:       nil,
	}
}

func NewStorageError(operation string, err error) *UserError {
	return &UserError{
		Title:       "❌ Storage Error",
		Message:     fmt.Sprintf("Failed to %s the board data: %v", operation, err),
		Remediation: "Check permissions on the data directory (promptboard config print shows its location)",
		Cause:       err,
	}
}

func NewExportError(path string, err error) *UserError {
	return &UserError{
		Title:       "❌ Export Error",
		Message:     fmt.Sprintf("Failed to write %s: %v", path, err),
		Remediation: "Check that the target directory exists and is writable",
		Cause:       err,
	}
}

func NewConfigError(operation string, err error) *UserError {
	var remediation string
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "permission denied"):
		remediation = "Check file permissions. Run: chmod 644 ~/.config/promptboard/config.toml"
	case strings.Contains(errStr, "no such file"):
		remediation = "Run: promptboard setup to create a configuration file"
	case strings.Contains(errStr, "decode") || strings.Contains(errStr, "parse"):
		remediation = "Configuration file format is invalid. Run: promptboard config doctor"
	default:
		remediation = "Run: promptboard config doctor to diagnose configuration issues"
	}

	return &UserError{
		Title:       "❌ Configuration Error",
		Message:     fmt.Sprintf("Failed to %s configuration: %s", operation, errStr),
		Remediation: remediation,
		Cause:       err,
	}
}

func NewHttpError(statusCode int, body string) *UserError {
	var title, remediation string

	switch {
	case statusCode == 401:
		title = "❌ Authentication Failed"
		remediation = "Check your API key. Run: promptboard setup"
	case statusCode == 403:
		title = "❌ Access Forbidden"
		remediation = "Your API key lacks access to this model or endpoint"
	case statusCode == 404:
		title = "❌ Model Not Found"
		remediation = "The requested model does not exist or you have no access to it. Pick another model"
	case statusCode == 429:
		title = "❌ Rate Limited"
		remediation = "Too many requests or quota exhausted. Wait and retry, or check your plan"
	case statusCode >= 500:
		title = "❌ Server Error"
		remediation = "The API is experiencing issues. Try again later"
	default:
		title = "❌ HTTP Error"
		remediation = "An unexpected HTTP error occurred. Run: promptboard --verbose to see detailed logs"
	}

	return &UserError{
		Title:       title,
		Message:     fmt.Sprintf("HTTP %d: %s", statusCode, body),
		Remediation: remediation,
		Cause:       nil,
	}
}

// Helper function to wrap existing errors with better messaging
func WrapWithContext(err error, context string) error {
	if userErr, ok := err.(*UserError); ok {
		// Already a user error, just return it
		return userErr
	}

	errStr := err.Error()

	switch context {
	case "completion":
		return NewCompletionError("", err)
	case "config_load", "config_save":
		return NewConfigError(context, err)
	case "storage_load", "storage_save":
		return NewStorageError(strings.TrimPrefix(context, "storage_"), err)
	default:
		// Generic wrapper that at least adds some structure
		return &UserError{
			Title:       "❌ Error",
			Message:     errStr,
			Remediation: "Run with --verbose flag for more details",
			Cause:       err,
		}
	}
}
