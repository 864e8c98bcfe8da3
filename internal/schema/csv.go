package schema

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prismtools/prism/pkg/prism"
)

// BusinessObjectResolver maps a business-object descriptor to its
// resource reference, typically backed by the WQL dataSources listing.
// Returning a nil ref means the descriptor is unknown.
type BusinessObjectResolver func(descriptor string) (*prism.ResourceRef, error)

// csvFieldTypes maps the type column of a definition CSV to the compact
// type-reference form.
var csvFieldTypes = map[string]string{
	"text":     "Text",
	"integer":  "Integer",
	"boolean":  "Boolean",
	"date":     "Date",
	"numeric":  "Numeric",
	"decimal":  "Decimal",
	"instance": "Instance",
}

// FromCSV builds a fields-only schema from a CSV of column definitions.
//
// Recognized columns: name (required), displayName, type, required,
// externalId, parseFormat (date), precision and scale (numeric/decimal),
// businessObject (instance). Unknown types warn into the error path of
// the caller and default to text; instance fields need the resolver to
// find their business object.
func FromCSV(path string, resolver BusinessObjectResolver) (*prism.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %q: %w", path, prism.ErrInvalidSchema)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, prism.ErrInvalidSchema)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%q has no field rows: %w", path, prism.ErrInvalidSchema)
	}

	header := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		header[strings.TrimSpace(col)] = i
	}

	if _, ok := header["name"]; !ok {
		return nil, fmt.Errorf("%q is missing the name column: %w", path, prism.ErrInvalidSchema)
	}

	cell := func(row []string, col string) string {
		idx, ok := header[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	table := &prism.Table{Fields: []prism.Field{}}

	for ordinal, row := range rows[1:] {
		name := cell(row, "name")
		if name == "" {
			return nil, fmt.Errorf("row %d has no field name: %w", ordinal+2, prism.ErrInvalidSchema)
		}

		field := prism.Field{
			Ordinal:     ordinal + 1,
			Name:        name,
			DisplayName: name,
			Required:    parseBool(cell(row, "required")),
			ExternalID:  parseBool(cell(row, "externalId")),
		}
		if display := cell(row, "displayName"); display != "" {
			field.DisplayName = display
		}

		typeName := strings.ToLower(cell(row, "type"))
		descriptor, ok := csvFieldTypes[typeName]
		if !ok {
			// Unknown or empty types default to text.
			descriptor = "Text"
			typeName = "text"
		}
		field.Type = &prism.TypeRef{ID: prism.FieldTypePrefix + descriptor}

		switch typeName {
		case "date":
			field.ParseFormat = cell(row, "parseFormat")
		case "numeric", "decimal":
			field.Precision = parseInt(cell(row, "precision"))
			field.Scale = parseInt(cell(row, "scale"))
		case "instance":
			descriptor := cell(row, "businessObject")
			if resolver == nil {
				return nil, fmt.Errorf("field %q needs a business object but no resolver is available: %w",
					name, prism.ErrInvalidSchema)
			}
			ref, err := resolver(descriptor)
			if err != nil {
				return nil, err
			}
			if ref == nil {
				return nil, fmt.Errorf("business object %q not found: %w", descriptor, prism.ErrInvalidSchema)
			}
			field.BusinessObject = ref
		}

		table.Fields = append(table.Fields, field)
	}

	return table, nil
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
