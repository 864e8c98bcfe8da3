package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prismtools/prism/pkg/prism"
)

// FileContainers manages table-independent staging areas consumed by
// data change activities.
type FileContainers struct {
	http      prism.HTTPClient
	endpoints prism.Endpoints
	stager    *Stager
	logger    prism.Logger
}

// NewFileContainers creates the file container service.
// Panics if httpClient, stager or logger is nil.
func NewFileContainers(httpClient prism.HTTPClient, endpoints prism.Endpoints, stager *Stager, logger prism.Logger) *FileContainers {
	if httpClient == nil {
		panic("httpClient cannot be nil")
	}
	if stager == nil {
		panic("stager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &FileContainers{
		http:      httpClient,
		endpoints: endpoints,
		stager:    stager,
		logger:    logger,
	}
}

// Create registers a new empty file container.
func (s *FileContainers) Create(ctx context.Context) (*prism.FileContainer, error) {
	resp, err := s.http.PostJSON(ctx, s.endpoints.Prism+"/fileContainers", json.RawMessage("{}"))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("creating file container: %w", resp.StatusError())
	}

	var container prism.FileContainer
	if err := resp.Decode(&container); err != nil {
		return nil, err
	}
	s.logger.Verbose("created file container %s", container.ID)
	return &container, nil
}

// Files lists the files staged in a container. The endpoint answers with
// a bare array; it is wrapped into the uniform page form. A missing
// container maps to ErrNotFound.
func (s *FileContainers) Files(ctx context.Context, id string) (prism.Page[prism.UploadReceipt], error) {
	page := prism.Page[prism.UploadReceipt]{Data: []prism.UploadReceipt{}}
	if id == "" {
		return page, fmt.Errorf("file container id is required: %w", prism.ErrNotFound)
	}

	resp, err := s.http.Get(ctx, s.endpoints.Prism+"/fileContainers/"+url.PathEscape(id)+"/files", nil)
	if err != nil {
		return page, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var files []prism.UploadReceipt
		if err := resp.Decode(&files); err != nil {
			return page, err
		}
		page.Data = files
		page.Total = len(files)
		return page, nil
	case http.StatusNotFound:
		s.logger.Warn("verify access to the Self-Service: Prism File Container security domain in the Prism Analytics functional area")
		return page, fmt.Errorf("file container %q: %w", id, prism.ErrNotFound)
	case http.StatusBadRequest:
		return page, fmt.Errorf("file container %q: %w", id, prism.ErrNotFound)
	}
	return page, resp.StatusError()
}

// Load stages files into the container, creating one first when id is
// empty. The resolved container id is returned so a chain of loads can
// reuse it.
func (s *FileContainers) Load(ctx context.Context, id string, files []string) (string, prism.Page[prism.UploadReceipt], error) {
	if id == "" {
		container, err := s.Create(ctx)
		if err != nil {
			return "", prism.Page[prism.UploadReceipt]{Data: []prism.UploadReceipt{}}, err
		}
		id = container.ID
	}

	page, err := s.stager.UploadToContainer(ctx, id, files)
	return id, page, err
}
