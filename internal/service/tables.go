// Package service implements the resource protocols on top of the
// transport: table and bucket lifecycles, file staging, load
// orchestration, data change activities and file containers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/prismtools/prism/internal/pager"
	"github.com/prismtools/prism/internal/schema"
	"github.com/prismtools/prism/pkg/prism"
)

// Table fetch formats accepted by the catalog endpoint.
const (
	TableFormatSummary     = "summary"
	TableFormatFull        = "full"
	TableFormatPermissions = "permissions"
)

// Tables manages table resources: lookup, search, create, replace and
// attribute patches.
type Tables struct {
	http      prism.HTTPClient
	endpoints prism.Endpoints
	logger    prism.Logger
}

// NewTables creates the table service.
// Panics if httpClient or logger is nil.
func NewTables(httpClient prism.HTTPClient, endpoints prism.Endpoints, logger prism.Logger) *Tables {
	if httpClient == nil {
		panic("httpClient cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &Tables{
		http:      httpClient,
		endpoints: endpoints,
		logger:    logger,
	}
}

// GetByID fetches one table by its opaque id. format selects the
// representation (summary, full, or permissions); an empty or unknown
// format falls back to summary with a warning. The body is returned
// verbatim since the permissions form is not a table document.
func (s *Tables) GetByID(ctx context.Context, id, format string) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("table id is required: %w", prism.ErrNotFound)
	}
	format = s.normalizeFormat(format)

	query := url.Values{"format": {format}}
	resp, err := s.http.Get(ctx, s.endpoints.Prism+"/tables/"+url.PathEscape(id), query)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, fmt.Errorf("table %q: %w", id, prism.ErrTableNotFound)
	}
	return nil, resp.StatusError()
}

// GetByName fetches the full schema of the table with exactly the given
// API name. Returns ErrTableNotFound when no table matches.
func (s *Tables) GetByName(ctx context.Context, name string) (*prism.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required: %w", prism.ErrTableNotFound)
	}

	page := s.List(ctx, name, true)
	if len(page.Data) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, prism.ErrTableNotFound)
	}
	return &page.Data[0], nil
}

// List returns tables with their full schemas. With exact set, name is
// an exact API-name lookup resolved server-side in a single request.
// Otherwise name is a case-insensitive substring filter matched against
// both the API name and the display name while scanning the whole
// catalog; an empty name returns everything.
//
// List never fails: an unreachable backend yields an empty page.
func (s *Tables) List(ctx context.Context, name string, exact bool) prism.Page[prism.Table] {
	if exact && name != "" {
		return s.lookupExact(ctx, name)
	}

	var match pager.MatchFunc[prism.Table]
	if name != "" {
		match = func(t prism.Table) bool {
			return containsFold(t.Name, name) || containsFold(t.DisplayName, name)
		}
	}

	result := pager.Scan(ctx, prism.MaxPageSize, s.fetchPage(nil), match)
	if result.Aborted {
		s.logger.Warn("table listing stopped early, results may be incomplete")
	}
	return result.Page
}

// lookupExact resolves an exact API name in one request. The endpoint
// treats a name query as an exact filter, so limit 1 suffices even if
// duplicate display names exist.
func (s *Tables) lookupExact(ctx context.Context, name string) prism.Page[prism.Table] {
	page := prism.Page[prism.Table]{Data: []prism.Table{}}

	items, err := s.fetchPage(url.Values{"name": {name}})(ctx, 1, 0)
	if err != nil {
		s.logger.Warn("table lookup for %q failed, treating as not found", name)
		return page
	}

	page.Data = append(page.Data, items...)
	page.Total = len(page.Data)
	return page
}

func (s *Tables) fetchPage(extra url.Values) pager.FetchFunc[prism.Table] {
	return func(ctx context.Context, limit, offset int) ([]prism.Table, error) {
		query := url.Values{
			"format": {TableFormatFull},
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		}
		for k, v := range extra {
			query[k] = v
		}

		resp, err := s.http.Get(ctx, s.endpoints.Prism+"/tables", query)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resp.StatusError()
		}

		var page prism.Page[prism.Table]
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}
		return page.Data, nil
	}
}

// Create registers a new table from the given schema. The schema is
// normalized first, so server-managed fields and identifiers from a
// copied source schema are silently dropped.
func (s *Tables) Create(ctx context.Context, tableSchema *prism.Table) (*prism.Table, error) {
	compact, err := schema.Compact(tableSchema)
	if err != nil {
		return nil, err
	}
	if compact.Name == "" {
		return nil, fmt.Errorf("schema has no table name: %w", prism.ErrInvalidSchema)
	}
	compact.ID = ""

	resp, err := s.http.PostJSON(ctx, s.endpoints.Prism+"/tables", compact)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("creating table %q: %w", compact.Name, resp.StatusError())
	}

	var created prism.Table
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	s.logger.Verbose("created table %s (%s)", created.Name, created.ID)
	return &created, nil
}

// Update replaces the schema of an existing table. The new schema is
// normalized before the request; the table keeps its id and name.
func (s *Tables) Update(ctx context.Context, id string, tableSchema *prism.Table) (*prism.Table, error) {
	if id == "" {
		return nil, fmt.Errorf("table id is required: %w", prism.ErrTableNotFound)
	}

	compact, err := schema.Compact(tableSchema)
	if err != nil {
		return nil, err
	}
	compact.ID = id

	resp, err := s.http.PutJSON(ctx, s.endpoints.Prism+"/tables/"+url.PathEscape(id), compact)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updating table %q: %w", id, resp.StatusError())
	}

	var updated prism.Table
	if err := resp.Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Patch applies attribute-only changes to an existing table without
// touching its schema. An empty patch is rejected before any request.
func (s *Tables) Patch(ctx context.Context, id string, patch prism.TablePatch) (*prism.Table, error) {
	if id == "" {
		return nil, fmt.Errorf("table id is required: %w", prism.ErrTableNotFound)
	}
	if patch.IsZero() {
		return nil, fmt.Errorf("patch changes nothing: %w", prism.ErrInvalidConfig)
	}

	resp, err := s.http.PatchJSON(ctx, s.endpoints.Prism+"/tables/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("patching table %q: %w", id, resp.StatusError())
	}

	var patched prism.Table
	if err := resp.Decode(&patched); err != nil {
		return nil, err
	}
	return &patched, nil
}

// ResolveSchema produces a schema from one of three sources, in
// precedence order: a schema file on disk, an existing table by name, or
// an existing table by id. resolver is consulted for instance-typed
// fields in CSV schema files and may be nil otherwise.
func (s *Tables) ResolveSchema(ctx context.Context, file, sourceName, sourceID string, resolver schema.BusinessObjectResolver) (*prism.Table, error) {
	switch {
	case file != "":
		return schema.LoadFile(file, resolver)
	case sourceName != "":
		return s.GetByName(ctx, sourceName)
	case sourceID != "":
		body, err := s.GetByID(ctx, sourceID, TableFormatFull)
		if err != nil {
			return nil, err
		}
		return schema.Parse(body)
	}
	return nil, fmt.Errorf("no schema source given: %w", prism.ErrInvalidSchema)
}

func (s *Tables) normalizeFormat(format string) string {
	if format == "" {
		return TableFormatSummary
	}
	switch strings.ToLower(format) {
	case TableFormatSummary, TableFormatFull, TableFormatPermissions:
		return strings.ToLower(format)
	}
	s.logger.Warn("unknown table format %q, using %s", format, TableFormatSummary)
	return TableFormatSummary
}

// containsFold reports whether substr occurs in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
