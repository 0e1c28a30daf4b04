package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryValidation represents rejected client input.
	CategoryValidation ErrorCategory = "validation"
	CategoryTooLarge   ErrorCategory = "too_large"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryNotReady   ErrorCategory = "not_ready"

	// CategoryBuild represents pipeline failures for a single job.
	CategoryBuild      ErrorCategory = "build"
	CategoryArchive    ErrorCategory = "archive"
	CategoryFileSystem ErrorCategory = "filesystem"

	// CategoryUnavailable represents capacity and runtime conditions.
	CategoryUnavailable ErrorCategory = "unavailable"
	CategoryConfig      ErrorCategory = "config"
	CategoryInternal    ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current operation
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	s, ok := c[key].(string)
	return s, ok
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
