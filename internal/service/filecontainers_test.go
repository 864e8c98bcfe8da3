package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismtools/prism/internal/logging"
	"github.com/prismtools/prism/pkg/prism"
)

func TestFileContainersCreate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/prism/fileContainers", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "container-1"}`)
	})
	containers := newTestFileContainers(t, handler)

	container, err := containers.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "container-1", container.ID)
}

func TestFileContainersFiles(t *testing.T) {
	t.Run("bare array wrapped into a page", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/prism/fileContainers/container-1/files", r.URL.Path)
			fmt.Fprint(w, `[{"id": "file-1", "name": "a.csv.gz"}, {"id": "file-2", "name": "b.csv.gz"}]`)
		})
		containers := newTestFileContainers(t, handler)

		page, err := containers.Files(context.Background(), "container-1")
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, "a.csv.gz", page.Data[0].Name)
	})

	t.Run("missing container", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "invalid container"}`, http.StatusBadRequest)
		})
		containers := newTestFileContainers(t, handler)

		_, err := containers.Files(context.Background(), "container-9")
		assert.ErrorIs(t, err, prism.ErrNotFound)
	})

	t.Run("a 404 warns about the security domain", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		})
		client, endpoints := newTestStack(t, handler)
		var buf bytes.Buffer
		logger := logging.NewConsoleLoggerTo(&buf, false)
		containers := NewFileContainers(client, endpoints, NewStager(client, endpoints, logger), logger)

		_, err := containers.Files(context.Background(), "container-9")
		assert.ErrorIs(t, err, prism.ErrNotFound)
		assert.Contains(t, buf.String(), "Prism File Container security domain")
	})
}

func TestFileContainersLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rows.csv")
	require.NoError(t, os.WriteFile(file, []byte("region\nemea\n"), 0644))

	t.Run("creates a container when no id given", func(t *testing.T) {
		created := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/prism/fileContainers":
				created++
				fmt.Fprint(w, `{"id": "container-7"}`)
			case "/prism/fileContainers/container-7/files":
				fmt.Fprint(w, `{"id": "file-1", "name": "rows.csv.gz"}`)
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		})
		containers := newTestFileContainers(t, handler)

		id, page, err := containers.Load(context.Background(), "", []string{file})
		require.NoError(t, err)
		assert.Equal(t, "container-7", id)
		assert.Equal(t, 1, created)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("reuses the given container", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/prism/fileContainers/container-1/files", r.URL.Path)
			fmt.Fprint(w, `{"id": "file-1"}`)
		})
		containers := newTestFileContainers(t, handler)

		id, page, err := containers.Load(context.Background(), "container-1", []string{file})
		require.NoError(t, err)
		assert.Equal(t, "container-1", id)
		assert.Equal(t, 1, page.Total)
	})
}
