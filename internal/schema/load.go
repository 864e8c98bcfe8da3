package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prismtools/prism/pkg/prism"
)

// LoadFile reads a schema definition from disk. Two formats are
// supported:
//   - a JSON object (a full schema, e.g. saved from a tables get), or a
//     JSON array of field definitions, which becomes a fields-only schema
//   - a CSV file of column definitions (see FromCSV), selected by the
//     .csv extension
//
// resolver is only consulted for CSV files containing instance-typed
// fields; it may be nil otherwise.
func LoadFile(path string, resolver BusinessObjectResolver) (*prism.Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return FromCSV(path, resolver)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %q: %w", path, prism.ErrInvalidSchema)
	}

	return Parse(data)
}

// Parse deserializes a JSON schema document. A top-level array is
// treated as a bare field list and wrapped into a fields-only schema.
func Parse(data []byte) (*prism.Table, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty schema document: %w", prism.ErrInvalidSchema)
	}

	if trimmed[0] == '[' {
		var fields []prism.Field
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parsing field list: %w", prism.ErrInvalidSchema)
		}
		return &prism.Table{Fields: fields}, nil
	}

	if trimmed[0] != '{' {
		return nil, fmt.Errorf("schema document is not an object: %w", prism.ErrInvalidSchema)
	}

	var table prism.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", prism.ErrInvalidSchema)
	}

	if table.Name == "" && table.Fields == nil {
		return nil, fmt.Errorf("schema has neither name nor fields: %w", prism.ErrInvalidSchema)
	}

	return &table, nil
}
