package prism

import "errors"

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := buckets.Create(ctx, input)
//	if errors.Is(err, prism.ErrTableNotFound) {
//	    // Target table does not exist
//	}
var (
	// ErrInvalidConfig indicates the provided client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidSchema indicates a schema could not be loaded or is not
	// usable for a write operation.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrMissingTarget indicates no target table could be resolved from
	// the supplied id, name, or schema.
	ErrMissingTarget = errors.New("no target table specified")

	// ErrTableNotFound indicates the named or identified table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrNotFound indicates a resource lookup by id returned nothing.
	ErrNotFound = errors.New("resource not found")

	// ErrBucketCreateFailed indicates the service rejected a bucket create.
	ErrBucketCreateFailed = errors.New("bucket create failed")

	// ErrBucketCompleteFailed indicates the service rejected a bucket complete.
	ErrBucketCompleteFailed = errors.New("bucket complete failed")

	// ErrNoFilesStaged indicates that files were requested for upload but
	// none could be staged.
	ErrNoFilesStaged = errors.New("no files staged")

	// ErrTransport indicates the service returned an unexpected status.
	ErrTransport = errors.New("unexpected response from service")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrInvalidSchema):
		return ExitSchemaError
	case errors.Is(err, ErrMissingTarget):
		return ExitSchemaError
	case errors.Is(err, ErrTableNotFound):
		return ExitNotFound
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrBucketCreateFailed),
		errors.Is(err, ErrBucketCompleteFailed),
		errors.Is(err, ErrNoFilesStaged):
		return ExitLoadFailed
	}

	return ExitGeneralError
}
