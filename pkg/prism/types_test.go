package prism

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigValidate(t *testing.T) {
	valid := ClientConfig{
		BaseURL:      "https://tenant.example.com",
		Tenant:       "acme",
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}

	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	t.Run("missing fields are all reported", func(t *testing.T) {
		cfg := ClientConfig{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "BaseURL")
		assert.Contains(t, err.Error(), "Tenant")
		assert.Contains(t, err.Error(), "ClientID")
		assert.Contains(t, err.Error(), "ClientSecret")
		assert.Contains(t, err.Error(), "RefreshToken")
	})

	t.Run("negative timeout rejected", func(t *testing.T) {
		cfg := valid
		cfg.Timeout = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestOperation(t *testing.T) {
	tests := []struct {
		op          Operation
		valid       bool
		requiresKey bool
	}{
		{OpInsert, true, false},
		{OpUpdate, true, true},
		{OpUpsert, true, true},
		{OpDelete, true, true},
		{OpTruncateAndInsert, true, false},
		{Operation("Replace"), false, false},
		{Operation(""), false, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.op), func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.op.IsValid())
			assert.Equal(t, tc.requiresKey, tc.op.RequiresOperationKey())
		})
	}
}

func TestOperationTypeRef(t *testing.T) {
	assert.Equal(t, TypeRef{ID: "Operation_Type=TruncateAndInsert"}, OpTruncateAndInsert.TypeRef())
	assert.Equal(t, TypeRef{ID: "Operation_Type=Insert"}, OpInsert.TypeRef())
}

func TestTablePatchIsZero(t *testing.T) {
	assert.True(t, TablePatch{}.IsZero())

	empty := ""
	assert.False(t, TablePatch{DisplayName: &empty}.IsZero())

	off := false
	assert.False(t, TablePatch{EnableForAnalysis: &off}.IsZero())
}

func TestDefaultParseOptions(t *testing.T) {
	opts := DefaultParseOptions()
	assert.Equal(t, ",", opts.FieldsDelimitedBy)
	assert.Equal(t, `"`, opts.FieldsEnclosedBy)
	assert.Equal(t, 1, opts.HeaderLinesToIgnore)
	assert.Equal(t, "Encoding=UTF-8", opts.Charset.ID)
	assert.Equal(t, "Schema_File_Type=Delimited", opts.Type.ID)
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, ExitSuccess},
		{"invalid config", ErrInvalidConfig, ExitConfigError},
		{"invalid schema", ErrInvalidSchema, ExitSchemaError},
		{"missing target", ErrMissingTarget, ExitSchemaError},
		{"table not found", ErrTableNotFound, ExitNotFound},
		{"resource not found", ErrNotFound, ExitNotFound},
		{"approval denied", ErrApprovalDenied, ExitApprovalDenied},
		{"bucket create failed", ErrBucketCreateFailed, ExitLoadFailed},
		{"bucket complete failed", ErrBucketCompleteFailed, ExitLoadFailed},
		{"no files staged", ErrNoFilesStaged, ExitLoadFailed},
		{"unclassified", errors.New("boom"), ExitGeneralError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, ExitCodeForError(tc.err))
		})
	}
}

func TestExitCodeForWrappedError(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ErrTableNotFound)
	assert.Equal(t, ExitNotFound, ExitCodeForError(wrapped))
}
