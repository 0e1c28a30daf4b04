// Package errors provides classified error primitives used at the service
// boundary.
//
// Pipeline and queue packages return sentinel errors wrapped with %w. Code
// presenting errors to clients (HTTP handlers, CLI commands) lifts them into a
// ClassifiedError carrying a category, a severity and structured context, and
// the HTTPErrorAdapter turns the category into a status code and JSON body.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryValidation, "invalid slug").
//		WithContext("slug", slug).
//		Build()
package errors
