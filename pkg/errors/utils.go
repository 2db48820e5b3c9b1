package errors

import (
	"fmt"
	"strings"
)

// IsCatalogError reports whether err is our Error type
func IsCatalogError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// GetContext extracts context from our errors
func GetContext(err error) map[string]string {
	if catErr, ok := err.(*Error); ok {
		return catErr.Context
	}
	return nil
}

// GetCode returns the error code string, empty for foreign errors
func GetCode(err error) string {
	if catErr, ok := err.(*Error); ok {
		return catErr.Code.String()
	}
	return ""
}

// FormatError renders an error for logging
func FormatError(err error) string {
	if catErr, ok := err.(*Error); ok {
		var parts []string
		parts = append(parts, fmt.Sprintf("Code: %s", catErr.Code))
		parts = append(parts, fmt.Sprintf("Message: %s", catErr.Message))

		if len(catErr.Context) > 0 {
			parts = append(parts, "Context:")
			for k, v := range catErr.Context {
				parts = append(parts, fmt.Sprintf("  %s: %v", k, v))
			}
		}

		if catErr.Cause != nil {
			parts = append(parts, fmt.Sprintf("Cause: %v", catErr.Cause))
		}

		return strings.Join(parts, "\n")
	}
	return err.Error()
}

// AsError converts any error to the internal *Error format. Existing *Error
// values pass through; anything else is wrapped as common.internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if internalErr, ok := err.(*Error); ok {
		return internalErr
	}
	return New(CommonInternal, err.Error(), err)
}
