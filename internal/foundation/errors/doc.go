// Package errors provides the classified error primitives used across mdbook-iced.
//
// Errors are grouped by category so the run can decide which failures are local
// to a single code block (compile errors) and which abort the whole preprocessor
// (configuration, filesystem and document errors).
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "create workspace").
//		WithContext("path", dir).
//		Build()
package errors
