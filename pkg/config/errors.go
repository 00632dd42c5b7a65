package config

// ConfigError represents a configuration validation failure.
//
// Validation is all-or-nothing: a failing configuration yields no Settings
// at all, and the first violation encountered is surfaced as a ConfigError.
// The CLI/GUI layer decides presentation and localization; the core never
// logs or prints these itself.
type ConfigError struct {
	// Code is the error category
	Code ErrorCode

	// Field names the offending configuration key, using file syntax
	// (e.g. "port", "users[1].username"). Empty when the error is not
	// tied to a single key.
	Field string

	// Message is a human-readable error description
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ErrorCode represents the category of a configuration error.
type ErrorCode int

const (
	// ErrMissingField indicates a required field is absent or empty
	ErrMissingField ErrorCode = iota

	// ErrInvalidPermissionCharacter indicates a perm string contains an
	// unrecognized flag character
	ErrInvalidPermissionCharacter

	// ErrDuplicateUsername indicates two user entries share a username
	ErrDuplicateUsername

	// ErrPortOutOfRange indicates a port outside [1, 65535]
	ErrPortOutOfRange

	// ErrInvalidConnectionLimit indicates a non-positive connection limit
	ErrInvalidConnectionLimit

	// ErrInvalidPassivePortRange indicates a passive port range that is
	// not a two-element ascending pair within [1, 65535]
	ErrInvalidPassivePortRange

	// ErrUnsupportedLanguage indicates a language tag that does not
	// normalize to a supported language
	ErrUnsupportedLanguage
)

// newError builds a ConfigError for the given code and field.
func newError(code ErrorCode, field, message string) *ConfigError {
	return &ConfigError{Code: code, Field: field, Message: message}
}
