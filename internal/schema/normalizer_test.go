package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismtools/prism/pkg/prism"
)

func liveSchema() *prism.Table {
	return &prism.Table{
		ID:   "table-1",
		Name: "Sales",
		Fields: []prism.Field{
			{ID: "f1", FieldID: "101", Name: "WPA_LoadId", Ordinal: 1,
				Type: &prism.TypeRef{ID: "x", Descriptor: "Text"}},
			{ID: "f2", FieldID: "102", Name: "region", Ordinal: 2,
				Type: &prism.TypeRef{Descriptor: "Text"}},
			{ID: "f3", FieldID: "103", Name: "order_id", Ordinal: 3, ExternalID: true,
				Type: &prism.TypeRef{Descriptor: "Integer"}},
			{ID: "f4", FieldID: "104", Name: "WPA_RowId", Ordinal: 4,
				Type: &prism.TypeRef{Descriptor: "Text"}},
			{ID: "f5", FieldID: "105", Name: "amount", Ordinal: 5, Precision: 10, Scale: 2,
				Type: &prism.TypeRef{Descriptor: "Numeric"}},
		},
	}
}

func TestCompact(t *testing.T) {
	compact, err := Compact(liveSchema())
	require.NoError(t, err)

	t.Run("reserved fields dropped", func(t *testing.T) {
		require.Len(t, compact.Fields, 3)
		for _, fld := range compact.Fields {
			assert.NotContains(t, fld.Name, "WPA_")
		}
	})

	t.Run("ordinals contiguous in original order", func(t *testing.T) {
		names := []string{}
		for i, fld := range compact.Fields {
			assert.Equal(t, i+1, fld.Ordinal)
			names = append(names, fld.Name)
		}
		assert.Equal(t, []string{"region", "order_id", "amount"}, names)
	})

	t.Run("field identifiers cleared", func(t *testing.T) {
		for _, fld := range compact.Fields {
			assert.Empty(t, fld.ID)
			assert.Empty(t, fld.FieldID)
		}
	})

	t.Run("type descriptors rewritten to references", func(t *testing.T) {
		assert.Equal(t, "Schema_Field_Type=Text", compact.Fields[0].Type.ID)
		assert.Empty(t, compact.Fields[0].Type.Descriptor)
		assert.Equal(t, "Schema_Field_Type=Integer", compact.Fields[1].Type.ID)
		assert.Equal(t, "Schema_Field_Type=Numeric", compact.Fields[2].Type.ID)
	})
}

func TestCompactIsIdempotent(t *testing.T) {
	once, err := Compact(liveSchema())
	require.NoError(t, err)
	twice, err := Compact(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCompactDoesNotMutateInput(t *testing.T) {
	original := liveSchema()
	_, err := Compact(original)
	require.NoError(t, err)

	assert.Len(t, original.Fields, 5)
	assert.Equal(t, "f1", original.Fields[0].ID)
	assert.Equal(t, "Text", original.Fields[1].Type.Descriptor)
}

func TestCompactEdgeCases(t *testing.T) {
	t.Run("nil schema rejected", func(t *testing.T) {
		_, err := Compact(nil)
		assert.ErrorIs(t, err, prism.ErrInvalidSchema)
	})

	t.Run("nil fields preserved", func(t *testing.T) {
		compact, err := Compact(&prism.Table{Name: "Empty"})
		require.NoError(t, err)
		assert.Nil(t, compact.Fields)
	})

	t.Run("parse options stripped", func(t *testing.T) {
		opts := prism.DefaultParseOptions()
		compact, err := Compact(&prism.Table{Name: "T", ParseOptions: &opts})
		require.NoError(t, err)
		assert.Nil(t, compact.ParseOptions)
	})
}

func TestToBucketSchema(t *testing.T) {
	compact, err := Compact(liveSchema())
	require.NoError(t, err)

	bucketSchema, err := ToBucketSchema(compact, nil)
	require.NoError(t, err)

	t.Run("schema version set", func(t *testing.T) {
		assert.Equal(t, "Schema_Version=1.0", bucketSchema.SchemaVersion.ID)
	})

	t.Run("operation keys derived from external ids", func(t *testing.T) {
		keys := map[string]bool{}
		for _, fld := range bucketSchema.Fields {
			keys[fld.Name] = fld.UseAsOperationKey
		}
		assert.Equal(t, map[string]bool{"region": false, "order_id": true, "amount": false}, keys)
	})

	t.Run("parsing attributes kept", func(t *testing.T) {
		amount := bucketSchema.Fields[2]
		assert.Equal(t, 10, amount.Precision)
		assert.Equal(t, 2, amount.Scale)
		assert.Equal(t, "Schema_Field_Type=Numeric", amount.Type.ID)
	})

	t.Run("default parse options applied", func(t *testing.T) {
		assert.Equal(t, prism.DefaultParseOptions(), bucketSchema.ParseOptions)
	})
}

func TestToBucketSchemaParseOptionsOverride(t *testing.T) {
	compact, err := Compact(liveSchema())
	require.NoError(t, err)

	custom := prism.ParseOptions{
		FieldsDelimitedBy:   "|",
		FieldsEnclosedBy:    `'`,
		HeaderLinesToIgnore: 0,
		Charset:             prism.TypeRef{ID: "Encoding=UTF-8"},
		Type:                prism.TypeRef{ID: "Schema_File_Type=Delimited"},
	}

	bucketSchema, err := ToBucketSchema(compact, &custom)
	require.NoError(t, err)
	assert.Equal(t, custom, bucketSchema.ParseOptions)
}

func TestToBucketSchemaRequiresFields(t *testing.T) {
	_, err := ToBucketSchema(&prism.Table{Name: "T"}, nil)
	assert.ErrorIs(t, err, prism.ErrInvalidSchema)

	_, err = ToBucketSchema(nil, nil)
	assert.ErrorIs(t, err, prism.ErrInvalidSchema)
}
