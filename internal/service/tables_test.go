package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismtools/prism/pkg/prism"
)

func TestTablesGetByID(t *testing.T) {
	var gotFormat string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prism/tables/table-1", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		gotFormat = r.URL.Query().Get("format")
		fmt.Fprint(w, `{"id": "table-1", "name": "Sales"}`)
	})
	tables := newTestTables(t, handler)

	t.Run("requested format forwarded", func(t *testing.T) {
		body, err := tables.GetByID(context.Background(), "table-1", "full")
		require.NoError(t, err)
		assert.Equal(t, "full", gotFormat)
		assert.JSONEq(t, `{"id": "table-1", "name": "Sales"}`, string(body))
	})

	t.Run("unknown format falls back to summary", func(t *testing.T) {
		_, err := tables.GetByID(context.Background(), "table-1", "everything")
		require.NoError(t, err)
		assert.Equal(t, "summary", gotFormat)
	})
}

func TestTablesGetByIDNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "unknown table"}`, http.StatusNotFound)
	})
	tables := newTestTables(t, handler)

	_, err := tables.GetByID(context.Background(), "nope", "")
	assert.ErrorIs(t, err, prism.ErrTableNotFound)
}

func TestTablesExactNameLookup(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/prism/tables", r.URL.Path)
		assert.Equal(t, "Sales", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		fmt.Fprint(w, `{"total": 1, "data": [{"id": "table-1", "name": "Sales"}]}`)
	})
	tables := newTestTables(t, handler)

	table, err := tables.GetByName(context.Background(), "Sales")
	require.NoError(t, err)
	assert.Equal(t, "table-1", table.ID)
	assert.Equal(t, 1, requests, "exact lookup resolves in a single request")
}

func TestTablesGetByNameNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 0, "data": []}`)
	})
	tables := newTestTables(t, handler)

	_, err := tables.GetByName(context.Background(), "Ghost")
	assert.ErrorIs(t, err, prism.ErrTableNotFound)
}

func TestTablesSearchScansWholeCatalog(t *testing.T) {
	// 250 tables at page size 100: two full pages and one short page.
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		require.Equal(t, prism.MaxPageSize, limit)

		var items []prism.Table
		for i := offset; i < 250 && i < offset+limit; i++ {
			name := fmt.Sprintf("inventory_%03d", i)
			if i%40 == 0 {
				name = fmt.Sprintf("sales_%03d", i)
			}
			items = append(items, prism.Table{ID: fmt.Sprintf("t-%d", i), Name: name})
		}
		page := prism.Page[prism.Table]{Total: 250, Data: items}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	})
	tables := newTestTables(t, handler)

	page := tables.List(context.Background(), "sales", false)

	assert.Equal(t, 3, requests)
	assert.Equal(t, 7, page.Total, "ids 0,40,...,240 match")
	assert.Len(t, page.Data, 7)
	assert.Equal(t, page.Total, len(page.Data), "total always matches the data")
}

func TestTablesSearchIgnoresCase(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 3, "data": [
			{"id": "t-1", "name": "sales_data"},
			{"id": "t-2", "name": "hcm_metrics", "displayName": "Quarterly SALES report"},
			{"id": "t-3", "name": "inventory"}]}`)
	})
	tables := newTestTables(t, handler)

	page := tables.List(context.Background(), "Sales", false)

	require.Equal(t, 2, page.Total)
	assert.Equal(t, "t-1", page.Data[0].ID, "matched on the API name")
	assert.Equal(t, "t-2", page.Data[1].ID, "matched on the display name")
}

func TestTablesListNeverFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	tables := newTestTables(t, handler)

	page := tables.List(context.Background(), "", false)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Data)
}

func TestTablesCreate(t *testing.T) {
	var created prism.Table
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/prism/tables", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))

		created.ID = "table-9"
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(created))
	})
	tables := newTestTables(t, handler)

	schema := &prism.Table{
		ID:   "stale-id",
		Name: "New_Table",
		Fields: []prism.Field{
			{ID: "f1", Name: "WPA_LoadId", Type: &prism.TypeRef{Descriptor: "Text"}},
			{ID: "f2", Name: "region", Type: &prism.TypeRef{Descriptor: "Text"}},
		},
	}

	result, err := tables.Create(context.Background(), schema)
	require.NoError(t, err)
	assert.Equal(t, "table-9", result.ID)

	// The request carried a normalized schema: stale ids cleared and the
	// reserved field dropped.
	require.Len(t, created.Fields, 1)
	assert.Equal(t, "region", created.Fields[0].Name)
	assert.Equal(t, "Schema_Field_Type=Text", created.Fields[0].Type.ID)
}

func TestTablesCreateRequiresName(t *testing.T) {
	tables := newTestTables(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := tables.Create(context.Background(), &prism.Table{Fields: []prism.Field{{Name: "x"}}})
	assert.ErrorIs(t, err, prism.ErrInvalidSchema)
}

func TestTablesUpdate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/prism/tables/table-1", r.URL.Path)

		var body prism.Table
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "table-1", body.ID)

		require.NoError(t, json.NewEncoder(w).Encode(body))
	})
	tables := newTestTables(t, handler)

	updated, err := tables.Update(context.Background(), "table-1", &prism.Table{
		Name:   "Sales",
		Fields: []prism.Field{{Name: "region", Type: &prism.TypeRef{Descriptor: "Text"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "table-1", updated.ID)
}

func TestTablesPatch(t *testing.T) {
	t.Run("empty patch rejected locally", func(t *testing.T) {
		tables := newTestTables(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		}))

		_, err := tables.Patch(context.Background(), "table-1", prism.TablePatch{})
		assert.ErrorIs(t, err, prism.ErrInvalidConfig)
	})

	t.Run("clearing an attribute sends the empty string", func(t *testing.T) {
		var raw map[string]any
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPatch, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			fmt.Fprint(w, `{"id": "table-1"}`)
		})
		tables := newTestTables(t, handler)

		empty := ""
		_, err := tables.Patch(context.Background(), "table-1", prism.TablePatch{Description: &empty})
		require.NoError(t, err)

		desc, present := raw["description"]
		assert.True(t, present)
		assert.Equal(t, "", desc)
		assert.NotContains(t, raw, "displayName", "untouched attributes stay out of the request")
	})
}
