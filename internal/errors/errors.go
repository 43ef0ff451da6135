// Package errors provides the application error type for Hourglass.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ============================================================
// Error Categories
// ============================================================

// Category defines the type of error for handling decisions.
type Category int

const (
	// CategoryUser errors come from user-editable input (config files, CLI arguments)
	CategoryUser Category = iota

	// CategorySystem errors are system-level (disk full, permissions)
	CategorySystem

	// CategoryPermanent errors are internal failures that will not go away on their own
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ============================================================
// AppError - Main Error Type
// ============================================================

// AppError is the main error type for all Hourglass errors.
type AppError struct {
	// Code is a unique error code for programmatic handling
	Code string

	// Message is a user-friendly error message
	Message string

	// Category determines how the error should be handled
	Category Category

	// Inner is the underlying error
	Inner error

	// Suggestions are recovery suggestions for the user
	Suggestions []string

	// Context is additional debugging information
	Context map[string]interface{}
}

// Error returns the error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Inner
}

// Is reports whether target is an AppError with the same code, or is
// contained in the wrapped error.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) && t.Code != "" {
		return t.Code == e.Code
	}
	return errors.Is(e.Inner, target)
}

// ============================================================
// Error Constructors
// ============================================================

// New creates a new AppError.
func New(code, message string, category Category) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

// Wrap wraps an existing error with context.
func Wrap(err error, code, message string, category Category) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, keep its suggestions and context
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:        code,
			Message:     message,
			Category:    category,
			Inner:       appErr,
			Suggestions: appErr.Suggestions,
			Context:     appErr.Context,
		}
	}

	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
		Inner:    err,
	}
}

// User creates a user input error.
func User(code, message string) *AppError {
	return New(code, message, CategoryUser)
}

// ============================================================
// Builder Pattern for Fluent Error Construction
// ============================================================

// Builder provides fluent error construction.
type Builder struct {
	err *AppError
}

// NewBuilder starts building a new error.
func NewBuilder(code, message string) *Builder {
	return &Builder{
		err: &AppError{
			Code:     code,
			Message:  message,
			Category: CategoryUser,
			Context:  make(map[string]interface{}),
		},
	}
}

// System marks the error as a system error.
func (b *Builder) System() *Builder {
	b.err.Category = CategorySystem
	return b
}

// Wrap sets the underlying error.
func (b *Builder) Wrap(err error) *Builder {
	b.err.Inner = err
	return b
}

// WithSuggestion adds a recovery suggestion.
func (b *Builder) WithSuggestion(suggestion string) *Builder {
	b.err.Suggestions = append(b.err.Suggestions, suggestion)
	return b
}

// WithContext adds context information.
func (b *Builder) WithContext(key string, value interface{}) *Builder {
	b.err.Context[key] = value
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *AppError {
	return b.err
}

// ============================================================
// Error Codes
// ============================================================

const (
	// Config errors
	CodeConfigInvalidStore      = "CONFIG_INVALID_STORE"
	CodeConfigInvalidTimeFormat = "CONFIG_INVALID_TIME_FORMAT"
	CodeConfigMissingKey        = "CONFIG_MISSING_KEY"
	CodeConfigIOFailure         = "CONFIG_IO_FAILURE"
	CodeConfigParseFailed       = "CONFIG_PARSE_FAILED"
	CodeConfigInvalid           = "CONFIG_INVALID"

	// Tracking errors
	CodeFactTooShort     = "FACT_TOO_SHORT"
	CodeFactInvalid      = "FACT_INVALID"
	CodeNoOngoingFact    = "NO_ONGOING_FACT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"

	// Command-line errors
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeUsage          = "USAGE"
)

// ============================================================
// Helpers
// ============================================================

// GetCategory extracts the category from an error.
// Returns CategoryPermanent for non-AppError errors.
func GetCategory(err error) Category {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryPermanent
}

// GetCode returns the code of the outermost AppError in err's chain.
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetSuggestions returns recovery suggestions for an error.
func GetSuggestions(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Suggestions
	}
	return nil
}

// FormatUserMessage formats a user-friendly error message with suggestions.
func FormatUserMessage(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	var appErr *AppError
	if errors.As(err, &appErr) {
		sb.WriteString(appErr.Message)
		if key, ok := appErr.Context["key"]; ok {
			fmt.Fprintf(&sb, " (%v)", key)
		}

		if len(appErr.Suggestions) > 0 {
			sb.WriteString("\n\nSuggestions:")
			for _, s := range appErr.Suggestions {
				sb.WriteString("\n  - ")
				sb.WriteString(s)
			}
		}

		return sb.String()
	}

	return err.Error()
}
