package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismtools/prism/pkg/prism"
)

func TestDataChangesGetByID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/prism/dataChanges/dct-1" {
			fmt.Fprint(w, `{"id": "dct-1", "name": "Load_Sales"}`)
			return
		}
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
	})
	dcts := newTestDataChanges(t, handler)

	dc, err := dcts.GetByID(context.Background(), "dct-1")
	require.NoError(t, err)
	assert.Equal(t, "Load_Sales", dc.Name)

	_, err = dcts.GetByID(context.Background(), "dct-9")
	assert.ErrorIs(t, err, prism.ErrNotFound)
}

func TestDataChangesList(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/prism/dataChanges", r.URL.Path)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, prism.MaxDataChangePageSize, limit)

		page := prism.Page[prism.DataChange]{
			Total: 3,
			Data: []prism.DataChange{
				{ID: "dct-1", Name: "Load_Sales"},
				{ID: "dct-2", Name: "Load_Sales_Staging"},
				{ID: "dct-3", Name: "Refresh_Inventory"},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	})
	dcts := newTestDataChanges(t, handler)

	t.Run("substring", func(t *testing.T) {
		page := dcts.List(context.Background(), "Sales", false)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("exact match still scans but keeps one", func(t *testing.T) {
		page := dcts.List(context.Background(), "Load_Sales", true)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "dct-1", page.Data[0].ID)
	})

	t.Run("by name", func(t *testing.T) {
		dc, err := dcts.GetByName(context.Background(), "Refresh_Inventory")
		require.NoError(t, err)
		assert.Equal(t, "dct-3", dc.ID)

		_, err = dcts.GetByName(context.Background(), "Ghost")
		assert.ErrorIs(t, err, prism.ErrNotFound)
	})

	assert.NotZero(t, requests)
}

func TestDataChangesSearchIgnoresCase(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 3, "data": [
			{"id": "dct-1", "name": "sales_load"},
			{"id": "dct-2", "name": "hcm_load", "displayName": "Quarterly SALES report"},
			{"id": "dct-3", "name": "inventory_refresh"}]}`)
	})
	dcts := newTestDataChanges(t, handler)

	page := dcts.List(context.Background(), "Sales", false)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, "dct-1", page.Data[0].ID, "matched on the task name")
	assert.Equal(t, "dct-2", page.Data[1].ID, "matched on the display name")

	page = dcts.List(context.Background(), "SALES_LOAD", true)
	assert.Zero(t, page.Total, "exact lookup keeps the case of the task name")
}

func TestDataChangesRun(t *testing.T) {
	t.Run("with file container", func(t *testing.T) {
		var raw map[string]any
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/prism/dataChanges/dct-1/activities", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "activity-1", "state": {"descriptor": "Running"}}`)
		})
		dcts := newTestDataChanges(t, handler)

		result, err := dcts.Run(context.Background(), "dct-1", "container-1")
		require.NoError(t, err)
		require.NotNil(t, result.Activity)
		assert.Equal(t, "activity-1", result.Activity.ID)

		assert.Equal(t, "container-1", raw["fileContainerWid"])
	})

	t.Run("without file container posts no body", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Empty(t, body)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "activity-2"}`)
		})
		dcts := newTestDataChanges(t, handler)

		result, err := dcts.Run(context.Background(), "dct-1", "")
		require.NoError(t, err)
		assert.Equal(t, "activity-2", result.Activity.ID)
	})

	t.Run("rejection detail passed through", func(t *testing.T) {
		detail := `{"error": "task is already running"}`
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, detail, http.StatusBadRequest)
		})
		dcts := newTestDataChanges(t, handler)

		result, err := dcts.Run(context.Background(), "dct-1", "")
		require.NoError(t, err)
		assert.Nil(t, result.Activity)
		assert.JSONEq(t, detail, string(result.Detail))
	})
}

func TestDataChangesGetActivity(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prism/dataChanges/dct-1/activities/activity-1", r.URL.Path)
		fmt.Fprint(w, `{"id": "activity-1", "state": {"descriptor": "Completed"}}`)
	})
	dcts := newTestDataChanges(t, handler)

	activity, err := dcts.GetActivity(context.Background(), "dct-1", "activity-1")
	require.NoError(t, err)
	assert.Equal(t, "Completed", activity.State.Descriptor)
}

func TestDataChangesValidate(t *testing.T) {
	t.Run("verbatim body for every validation status", func(t *testing.T) {
		for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusNotFound} {
			body := fmt.Sprintf(`{"status": %d}`, status)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/prism/dataChanges/dct-1/validate", r.URL.Path)
				w.WriteHeader(status)
				fmt.Fprint(w, body)
			})
			dcts := newTestDataChanges(t, handler)

			got, err := dcts.Validate(context.Background(), "dct-1")
			require.NoError(t, err)
			assert.JSONEq(t, body, string(got))
		}
	})

	t.Run("verdict", func(t *testing.T) {
		body := `{"id": "dct-1"}`
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})
		dcts := newTestDataChanges(t, handler)

		ok, err := dcts.IsValid(context.Background(), "dct-1")
		require.NoError(t, err)
		assert.True(t, ok)

		body = `{"error": "no target", "id": "dct-1"}`
		ok, err = dcts.IsValid(context.Background(), "dct-1")
		require.NoError(t, err)
		assert.False(t, ok, "an error attribute means the task does not validate")
	})
}
