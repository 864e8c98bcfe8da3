package prism

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ClientConfig contains everything needed to talk to a tenant.
type ClientConfig struct {
	// BaseURL is the root URL of the tenant, e.g. https://wd2-impl.example.com
	BaseURL string

	// Tenant is the tenant name used to compose API endpoints.
	Tenant string

	// ClientID and ClientSecret identify the registered API client.
	ClientID     string
	ClientSecret string

	// RefreshToken is exchanged for short-lived bearer tokens.
	RefreshToken string

	// Version selects the API version. Defaults to DefaultAPIVersion.
	Version string

	// Timeout bounds a single HTTP request. Defaults to DefaultHTTPTimeout.
	Timeout time.Duration

	// Verbose enables detailed logging.
	Verbose bool
}

// Validate checks if the ClientConfig has all required fields.
// It returns a multi-error if multiple validation failures occur.
func (c *ClientConfig) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, fmt.Errorf("BaseURL is required: %w", ErrInvalidConfig))
	}

	if c.Tenant == "" {
		errs = append(errs, fmt.Errorf("Tenant is required: %w", ErrInvalidConfig))
	}

	if c.ClientID == "" {
		errs = append(errs, fmt.Errorf("ClientID is required: %w", ErrInvalidConfig))
	}

	if c.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("ClientSecret is required: %w", ErrInvalidConfig))
	}

	if c.RefreshToken == "" {
		errs = append(errs, fmt.Errorf("RefreshToken is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// Operation is the write operation a bucket performs against its target
// table when completed.
type Operation string

const (
	OpInsert            Operation = "Insert"
	OpUpdate            Operation = "Update"
	OpUpsert            Operation = "Upsert"
	OpDelete            Operation = "Delete"
	OpTruncateAndInsert Operation = "TruncateAndInsert"
)

// IsValid returns true if the Operation is a defined value.
func (o Operation) IsValid() bool {
	switch o {
	case OpInsert, OpUpdate, OpUpsert, OpDelete, OpTruncateAndInsert:
		return true
	}
	return false
}

// RequiresOperationKey reports whether the operation needs a field flagged
// useAsOperationKey in the bucket schema to match existing rows.
func (o Operation) RequiresOperationKey() bool {
	switch o {
	case OpUpdate, OpUpsert, OpDelete:
		return true
	}
	return false
}

// TypeRef returns the wire form of the operation,
// e.g. {"id": "Operation_Type=Insert"}.
func (o Operation) TypeRef() TypeRef {
	return TypeRef{ID: OperationTypePrefix + string(o)}
}

// TypeRef is the wire representation of an enumerated value,
// e.g. {"id": "Schema_Field_Type=Text"}.
type TypeRef struct {
	ID         string `json:"id,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
}

// ResourceRef points at another resource by opaque id, optionally carrying
// the server-assigned descriptor (display text).
type ResourceRef struct {
	ID         string `json:"id,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
}

// Field is one column of a table schema.
//
// ID and FieldID are server-assigned and stripped before any write.
// ExternalID marks the field as usable as an operation key for
// Update/Upsert/Delete loads.
type Field struct {
	ID          string `json:"id,omitempty"`
	FieldID     string `json:"fieldId,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`

	// Ordinal is the 1-based position of the field. Normalization
	// reassigns ordinals to be contiguous.
	Ordinal int `json:"ordinal,omitempty"`

	Type *TypeRef `json:"type,omitempty"`

	// Precision and Scale apply to numeric and decimal fields.
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	// ParseFormat applies to date fields.
	ParseFormat string `json:"parseFormat,omitempty"`

	Required   bool `json:"required,omitempty"`
	ExternalID bool `json:"externalId,omitempty"`

	// BusinessObject applies to instance fields and names the data source
	// the values reference.
	BusinessObject *ResourceRef `json:"businessObject,omitempty"`
}

// Table is a managed table and, when fetched with the "full" format, its
// schema. The declared attributes are exactly the allow-listed set legal
// on create/update requests; anything else the server reports is dropped
// at the deserialization boundary.
type Table struct {
	ID                string          `json:"id,omitempty"`
	Name              string          `json:"name,omitempty"`
	DisplayName       string          `json:"displayName,omitempty"`
	Description       string          `json:"description,omitempty"`
	Documentation     string          `json:"documentation,omitempty"`
	EnableForAnalysis *bool           `json:"enableForAnalysis,omitempty"`
	Tags              json.RawMessage `json:"tags,omitempty"`
	Categories        json.RawMessage `json:"categories,omitempty"`
	Fields            []Field         `json:"fields,omitempty"`

	// ParseOptions is not part of the table resource proper; it may be
	// declared in a schema file to override the default CSV parse options
	// of buckets created from that schema.
	ParseOptions *ParseOptions `json:"parseOptions,omitempty"`
}

// TablePatch holds the attribute-only updates allowed on an existing
// table. Nil pointers mean "leave unchanged"; pointers to zero values
// clear the attribute.
type TablePatch struct {
	DisplayName       *string `json:"displayName,omitempty"`
	Description       *string `json:"description,omitempty"`
	Documentation     *string `json:"documentation,omitempty"`
	EnableForAnalysis *bool   `json:"enableForAnalysis,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p TablePatch) IsZero() bool {
	return p.DisplayName == nil && p.Description == nil &&
		p.Documentation == nil && p.EnableForAnalysis == nil
}

// ParseOptions describes how uploaded delimited files are parsed.
type ParseOptions struct {
	FieldsDelimitedBy   string  `json:"fieldsDelimitedBy"`
	FieldsEnclosedBy    string  `json:"fieldsEnclosedBy"`
	HeaderLinesToIgnore int     `json:"headerLinesToIgnore"`
	Charset             TypeRef `json:"charset"`
	Type                TypeRef `json:"type"`
}

// DefaultParseOptions returns parse options suitable for most CSV files:
// comma-delimited, double-quote enclosed, one header line, UTF-8.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		FieldsDelimitedBy:   ",",
		FieldsEnclosedBy:    `"`,
		HeaderLinesToIgnore: 1,
		Charset:             TypeRef{ID: CharsetUTF8Ref},
		Type:                TypeRef{ID: FileTypeDelimited},
	}
}

// BucketField is the reduced field form carried in a bucket schema. The
// wire format only needs name, ordinal, type and parsing attributes plus
// the operation-key flag; identifier attributes are stripped during
// derivation.
type BucketField struct {
	Name              string   `json:"name"`
	Ordinal           int      `json:"ordinal,omitempty"`
	Description       string   `json:"description,omitempty"`
	Type              *TypeRef `json:"type,omitempty"`
	Precision         int      `json:"precision,omitempty"`
	Scale             int      `json:"scale,omitempty"`
	ParseFormat       string   `json:"parseFormat,omitempty"`
	BusinessObject    *ResourceRef `json:"businessObject,omitempty"`
	UseAsOperationKey bool     `json:"useAsOperationKey"`
}

// BucketSchema is the file-parsing schema attached to a bucket at
// creation.
type BucketSchema struct {
	SchemaVersion TypeRef       `json:"schemaVersion"`
	ParseOptions  ParseOptions  `json:"parseOptions"`
	Fields        []BucketField `json:"fields"`
}

// Bucket is a staging area bound to one target table and one write
// operation. Files are appended while the bucket is in the "New" state;
// completing the bucket commits them into the target table.
type Bucket struct {
	ID            string        `json:"id,omitempty"`
	Name          string        `json:"name,omitempty"`
	DisplayName   string        `json:"displayName,omitempty"`
	Operation     *TypeRef      `json:"operation,omitempty"`
	TargetDataset *ResourceRef  `json:"targetDataset,omitempty"`
	State         *TypeRef      `json:"state,omitempty"`
	Schema        *BucketSchema `json:"schema,omitempty"`
}

// CompleteResult is the outcome of completing a bucket. Exactly one of
// the two fields is set: Bucket on success, Detail when the service
// reported row-level validation problems as a structured 400 body. The
// 400 case is deliberately not an error; the body is useful output.
type CompleteResult struct {
	Bucket *Bucket
	Detail json.RawMessage
}

// UploadReceipt describes one file accepted into a bucket or file
// container.
type UploadReceipt struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	FileLength    int64  `json:"fileLength,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
	UploadedBy    string `json:"uploadedBy,omitempty"`
	UploadedDate  string `json:"uploadedDate,omitempty"`
}

// FileContainer is a staging area not bound to a table. Files accumulate
// in the container and are committed later by a data change activity.
type FileContainer struct {
	ID string `json:"id"`
}

// DataChange is a named, server-defined transform job.
type DataChange struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// Activity is one execution run of a data change task.
type Activity struct {
	ID    string   `json:"id,omitempty"`
	State *TypeRef `json:"state,omitempty"`
}

// ActivityResult is the outcome of starting a data change activity.
// Activity is set on success; Detail carries the structured error body
// when the service rejected the run with a 400.
type ActivityResult struct {
	Activity *Activity
	Detail   json.RawMessage
}

// DataSource is a WQL data source, used to resolve business objects for
// instance-typed fields.
type DataSource struct {
	ID             string       `json:"id,omitempty"`
	Descriptor     string       `json:"descriptor,omitempty"`
	BusinessObject *ResourceRef `json:"businessObject,omitempty"`
}

// Page is the uniform result of every list/search operation:
// Total is always len(Data), even after a partial scan. List operations
// never fail; an unreachable backend yields an empty page.
type Page[T any] struct {
	Total int `json:"total"`
	Data  []T `json:"data"`
}

// LoadResult summarizes a load operation: the bucket it used, the upload
// receipts for each staged file, and the completion outcome. Complete is
// nil when staging produced no files and the bucket was left incomplete.
type LoadResult struct {
	Bucket   *Bucket             `json:"bucket,omitempty"`
	Files    Page[UploadReceipt] `json:"files"`
	Complete *CompleteResult     `json:"-"`
}
