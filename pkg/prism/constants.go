package prism

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess        = 0  // Operation completed successfully
	ExitGeneralError   = 1  // Unknown or unclassified error
	ExitUsageError     = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic          = 3  // Internal panic (unexpected crash)
	ExitConfigError    = 10 // Invalid configuration or parameters
	ExitNotFound       = 11 // Requested resource does not exist
	ExitApprovalDenied = 12 // User denied approval for a destructive operation
	ExitSchemaError    = 13 // Schema could not be loaded or normalized
	ExitLoadFailed     = 14 // Bucket create/complete or file staging failed
)

const (
	// ReservedFieldPrefix marks server-managed fields that must never be
	// sent on a write operation. Any field whose API name starts with this
	// prefix is dropped during schema normalization.
	ReservedFieldPrefix = "WPA_"

	// DefaultAPIVersion is the API version used when none is configured.
	DefaultAPIVersion = "v3"

	// TokenLifetime is how long an acquired bearer token is considered
	// fresh. After this age a new token is exchanged before the next call.
	TokenLifetime = 900 * time.Second

	// MaxPageSize is the largest page the catalog endpoints accept for
	// table and bucket listings. Full scans always request this size to
	// minimize round trips.
	MaxPageSize = 100

	// MaxDataChangePageSize is the largest page the dataChanges endpoint
	// accepts.
	MaxDataChangePageSize = 500

	// GeneratedBucketPrefix is prepended to autogenerated bucket names.
	GeneratedBucketPrefix = "prism_go_"

	// EmptyUploadName is the filename used for the canonical zero-length
	// upload that implements truncate-with-no-data.
	EmptyUploadName = "empty.csv.gz"

	// CompressedSuffix is appended to plain CSV filenames after gzip
	// compression during staging.
	CompressedSuffix = ".gz"
)

// Type-reference prefixes. The wire format identifies enumerated values
// with "<Category>=<Value>" strings, e.g. "Schema_Field_Type=Text".
const (
	FieldTypePrefix     = "Schema_Field_Type="
	OperationTypePrefix = "Operation_Type="
	SchemaVersionRef    = "Schema_Version=1.0"
	CharsetUTF8Ref      = "Encoding=UTF-8"
	FileTypeDelimited   = "Schema_File_Type=Delimited"
)

const (
	// DefaultRetryInitialDelay is the default initial delay before the
	// first retry attempt of a transient transport failure.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retries.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of retries.
	DefaultRetryMaxAttempts = 3

	// DefaultHTTPTimeout bounds a single request to the service.
	DefaultHTTPTimeout = 2 * time.Minute
)
