package errors

import "maps"

// ErrorCategory is the broad area an error originated from.
type ErrorCategory string

const (
	// User input and configuration.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Settings registry and the persistence backends behind it.
	CategorySettings ErrorCategory = "settings"
	CategoryStore    ErrorCategory = "store"
	CategoryNetwork  ErrorCategory = "network"

	// External collaborators.
	CategoryDependency ErrorCategory = "dependency"
	CategoryCalendar   ErrorCategory = "calendar"
	CategoryDisplay    ErrorCategory = "display"
	CategoryGeneration ErrorCategory = "generation"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // programming error, abort the operation
	SeverityError   ErrorSeverity = "error"   // current operation failed
	SeverityWarning ErrorSeverity = "warning" // degraded but running
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy is a hint for callers; nothing in this module retries on its own.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext holds structured key/value context attached to an error.
type ErrorContext map[string]any

// Set adds or replaces a value, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, ok := c[key]
	return value, ok
}

// GetString returns the value for key when it is a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, ok := c.Get(key); ok {
		if s, ok := value.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Merge returns a new context holding both maps; other wins on conflicts.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}
