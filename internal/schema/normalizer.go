// Package schema reduces raw table schemas to the canonical forms
// accepted by write operations: the compact schema for table create and
// update requests, and the bucket schema describing uploaded files.
package schema

import (
	"fmt"
	"strings"

	"github.com/prismtools/prism/pkg/prism"
)

// Compact normalizes a schema for a write operation:
//   - fields with the reserved server-managed prefix are dropped,
//   - surviving fields get contiguous ordinals 1..N in original order,
//   - server-assigned field identifiers (id, fieldId) are cleared,
//   - verbose type descriptors are rewritten to the compact
//     "Schema_Field_Type=<descriptor>" reference form.
//
// The input is never mutated; the result is a defensive copy carrying
// only the attribute set legal on create/update requests.
func Compact(schema *prism.Table) (*prism.Table, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required: %w", prism.ErrInvalidSchema)
	}

	compact := cloneTable(schema)

	// ParseOptions is not a table attribute; it only rides along in
	// schema files to configure bucket creation and is handled there.
	compact.ParseOptions = nil

	if compact.Fields == nil {
		return compact, nil
	}

	fields := make([]prism.Field, 0, len(compact.Fields))
	for _, fld := range compact.Fields {
		if strings.HasPrefix(fld.Name, prism.ReservedFieldPrefix) {
			continue
		}
		fields = append(fields, fld)
	}

	for i := range fields {
		fields[i].Ordinal = i + 1
		fields[i].ID = ""
		fields[i].FieldID = ""

		if fields[i].Type != nil && fields[i].Type.Descriptor != "" {
			fields[i].Type = &prism.TypeRef{
				ID: prism.FieldTypePrefix + fields[i].Type.Descriptor,
			}
		}
	}

	compact.Fields = fields

	return compact, nil
}

// ToBucketSchema converts a compact schema into the file-parsing schema
// attached to a bucket at creation.
//
// Exactly the external-identifier fields become operation keys: a field
// marked externalId maps to useAsOperationKey=true, everything else to
// false. Identifier attributes (id, displayName, fieldId, required,
// externalId) are stripped since the wire format only needs name, type
// and parsing attributes.
//
// parseOpts overrides the default CSV parse options when non-nil,
// typically from the parseOptions attribute of a caller-supplied schema
// file.
func ToBucketSchema(compact *prism.Table, parseOpts *prism.ParseOptions) (*prism.BucketSchema, error) {
	if compact == nil || compact.Fields == nil {
		return nil, fmt.Errorf("schema has no fields: %w", prism.ErrInvalidSchema)
	}

	fields := make([]prism.BucketField, 0, len(compact.Fields))
	for _, fld := range compact.Fields {
		// Reserved fields should be gone by now; drop any stragglers.
		if strings.HasPrefix(fld.Name, prism.ReservedFieldPrefix) {
			continue
		}

		fields = append(fields, prism.BucketField{
			Name:              fld.Name,
			Ordinal:           fld.Ordinal,
			Description:       fld.Description,
			Type:              cloneTypeRef(fld.Type),
			Precision:         fld.Precision,
			Scale:             fld.Scale,
			ParseFormat:       fld.ParseFormat,
			BusinessObject:    cloneResourceRef(fld.BusinessObject),
			UseAsOperationKey: fld.ExternalID,
		})
	}

	options := prism.DefaultParseOptions()
	if parseOpts != nil {
		options = *parseOpts
	}

	return &prism.BucketSchema{
		SchemaVersion: prism.TypeRef{ID: prism.SchemaVersionRef},
		ParseOptions:  options,
		Fields:        fields,
	}, nil
}

// cloneTable deep-copies a table so normalization never mutates
// caller-owned input.
func cloneTable(t *prism.Table) *prism.Table {
	clone := *t

	if t.Fields != nil {
		clone.Fields = make([]prism.Field, len(t.Fields))
		for i, fld := range t.Fields {
			clone.Fields[i] = fld
			clone.Fields[i].Type = cloneTypeRef(fld.Type)
			clone.Fields[i].BusinessObject = cloneResourceRef(fld.BusinessObject)
		}
	}

	if t.EnableForAnalysis != nil {
		v := *t.EnableForAnalysis
		clone.EnableForAnalysis = &v
	}

	if t.ParseOptions != nil {
		v := *t.ParseOptions
		clone.ParseOptions = &v
	}

	if t.Tags != nil {
		clone.Tags = append([]byte(nil), t.Tags...)
	}
	if t.Categories != nil {
		clone.Categories = append([]byte(nil), t.Categories...)
	}

	return &clone
}

func cloneTypeRef(r *prism.TypeRef) *prism.TypeRef {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func cloneResourceRef(r *prism.ResourceRef) *prism.ResourceRef {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
