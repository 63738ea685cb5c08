// Package errors provides structured error handling for the catalog core.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeValidationCommandEmpty Code = "VALIDATION_COMMAND_EMPTY"
	CodeValidationQueryEmpty   Code = "VALIDATION_QUERY_EMPTY"
	CodeIdentityMissing        Code = "IDENTITY_MISSING"

	// Annotator errors
	CodeAnnotationRejected Code = "ANNOTATION_REJECTED"
	CodeAnnotationFailed   Code = "ANNOTATION_FAILED"

	// Storage errors
	CodeStorageUnavailable     Code = "STORAGE_UNAVAILABLE"
	CodeStorageVersionConflict Code = "STORAGE_VERSION_CONFLICT"
)
