package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/prismtools/prism/internal/pager"
	"github.com/prismtools/prism/pkg/prism"
)

// DataChanges manages data change tasks: discovery, validation and
// activity runs.
type DataChanges struct {
	http      prism.HTTPClient
	endpoints prism.Endpoints
	logger    prism.Logger
}

// NewDataChanges creates the data change service.
// Panics if httpClient or logger is nil.
func NewDataChanges(httpClient prism.HTTPClient, endpoints prism.Endpoints, logger prism.Logger) *DataChanges {
	if httpClient == nil {
		panic("httpClient cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &DataChanges{
		http:      httpClient,
		endpoints: endpoints,
		logger:    logger,
	}
}

// GetByID fetches one data change task by its opaque id.
func (s *DataChanges) GetByID(ctx context.Context, id string) (*prism.DataChange, error) {
	if id == "" {
		return nil, fmt.Errorf("data change id is required: %w", prism.ErrNotFound)
	}

	resp, err := s.http.Get(ctx, s.endpoints.Prism+"/dataChanges/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var dc prism.DataChange
		if err := resp.Decode(&dc); err != nil {
			return nil, err
		}
		return &dc, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, fmt.Errorf("data change %q: %w", id, prism.ErrNotFound)
	}
	return nil, resp.StatusError()
}

// List returns data change tasks. name filters by case-insensitive
// substring on the task name and display name; with exact set only
// identical task names match. The endpoint has no server-side name
// filter, so both modes scan the whole collection.
//
// List never fails: an unreachable backend yields an empty page.
func (s *DataChanges) List(ctx context.Context, name string, exact bool) prism.Page[prism.DataChange] {
	var match pager.MatchFunc[prism.DataChange]
	if name != "" {
		match = func(dc prism.DataChange) bool {
			if exact {
				return dc.Name == name
			}
			return containsFold(dc.Name, name) || containsFold(dc.DisplayName, name)
		}
	}

	result := pager.Scan(ctx, prism.MaxDataChangePageSize, s.fetchPage, match)
	if result.Aborted {
		s.logger.Warn("data change listing stopped early, results may be incomplete")
	}
	s.logger.Verbose("data change scan finished after %d request(s)", result.Fetches)
	return result.Page
}

func (s *DataChanges) fetchPage(ctx context.Context, limit, offset int) ([]prism.DataChange, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	resp, err := s.http.Get(ctx, s.endpoints.Prism+"/dataChanges", query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusError()
	}

	var page prism.Page[prism.DataChange]
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// GetByName finds the data change task with exactly the given name.
func (s *DataChanges) GetByName(ctx context.Context, name string) (*prism.DataChange, error) {
	if name == "" {
		return nil, fmt.Errorf("data change name is required: %w", prism.ErrNotFound)
	}

	page := s.List(ctx, name, true)
	if len(page.Data) == 0 {
		return nil, fmt.Errorf("data change %q: %w", name, prism.ErrNotFound)
	}
	return &page.Data[0], nil
}

// GetActivity fetches the state of one activity run.
func (s *DataChanges) GetActivity(ctx context.Context, dataChangeID, activityID string) (*prism.Activity, error) {
	if dataChangeID == "" || activityID == "" {
		return nil, fmt.Errorf("data change and activity ids are required: %w", prism.ErrNotFound)
	}

	target := s.endpoints.Prism + "/dataChanges/" + url.PathEscape(dataChangeID) +
		"/activities/" + url.PathEscape(activityID)
	resp, err := s.http.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var activity prism.Activity
		if err := resp.Decode(&activity); err != nil {
			return nil, err
		}
		return &activity, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, fmt.Errorf("activity %q of data change %q: %w", activityID, dataChangeID, prism.ErrNotFound)
	}
	return nil, resp.StatusError()
}

// activityRequest is the wire form of an activity start. The attribute
// name does not match the published API definition but is what the
// service accepts.
type activityRequest struct {
	FileContainerWID string `json:"fileContainerWid"`
}

// Run starts an activity for the data change task, optionally feeding it
// a file container. A 400 response is not an error: the structured body
// explains why the run was rejected and is handed back in Detail.
func (s *DataChanges) Run(ctx context.Context, dataChangeID, fileContainerID string) (*prism.ActivityResult, error) {
	if dataChangeID == "" {
		return nil, fmt.Errorf("data change id is required: %w", prism.ErrNotFound)
	}

	var body any
	if fileContainerID != "" {
		body = activityRequest{FileContainerWID: fileContainerID}
	}

	target := s.endpoints.Prism + "/dataChanges/" + url.PathEscape(dataChangeID) + "/activities"
	resp, err := s.http.PostJSON(ctx, target, body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		var activity prism.Activity
		if err := resp.Decode(&activity); err != nil {
			return nil, err
		}
		s.logger.Verbose("started activity %s for data change %s", activity.ID, dataChangeID)
		return &prism.ActivityResult{Activity: &activity}, nil
	case http.StatusBadRequest:
		s.logger.Verbose("data change %s rejected the run: %s", dataChangeID, string(resp.Body))
		return &prism.ActivityResult{Detail: resp.Body}, nil
	}
	return nil, resp.StatusError()
}

// Validate asks the service whether the data change task is runnable.
// The body is returned verbatim for 200, 400 and 404 since all three
// carry a useful JSON document; other statuses are transport errors.
func (s *DataChanges) Validate(ctx context.Context, dataChangeID string) (json.RawMessage, error) {
	if dataChangeID == "" {
		return nil, fmt.Errorf("data change id is required: %w", prism.ErrNotFound)
	}

	target := s.endpoints.Prism + "/dataChanges/" + url.PathEscape(dataChangeID) + "/validate"
	resp, err := s.http.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusNotFound:
		return resp.Body, nil
	}
	return nil, resp.StatusError()
}

// IsValid reports whether the data change task validates cleanly. There
// is no dedicated status value; a valid task answers with a small JSON
// object that has no error attribute.
func (s *DataChanges) IsValid(ctx context.Context, dataChangeID string) (bool, error) {
	body, err := s.Validate(ctx, dataChangeID)
	if err != nil {
		return false, err
	}

	var verdict map[string]json.RawMessage
	if err := json.Unmarshal(body, &verdict); err != nil {
		return false, fmt.Errorf("decoding validation verdict: %w", err)
	}

	if _, bad := verdict["error"]; bad {
		s.logger.Verbose("data change %s is not valid: %s", dataChangeID, string(body))
		return false, nil
	}
	return true, nil
}
