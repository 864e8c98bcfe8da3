package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/prismtools/prism/internal/pager"
	"github.com/prismtools/prism/internal/schema"
	"github.com/prismtools/prism/pkg/prism"
)

// Buckets manages the bucket lifecycle: create against a target table,
// inspect, and complete.
type Buckets struct {
	http      prism.HTTPClient
	endpoints prism.Endpoints
	tables    *Tables
	logger    prism.Logger
}

// NewBuckets creates the bucket service.
// Panics if httpClient, tables or logger is nil.
func NewBuckets(httpClient prism.HTTPClient, endpoints prism.Endpoints, tables *Tables, logger prism.Logger) *Buckets {
	if httpClient == nil {
		panic("httpClient cannot be nil")
	}
	if tables == nil {
		panic("tables cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &Buckets{
		http:      httpClient,
		endpoints: endpoints,
		tables:    tables,
		logger:    logger,
	}
}

// GenerateName returns a fresh bucket name that satisfies the service's
// naming rules (no hyphens) and is unique per call.
func GenerateName() string {
	return prism.GeneratedBucketPrefix + strings.ReplaceAll(uuid.NewString(), "-", "_")
}

// CreateBucketInput names the target table and the write operation of a
// new bucket. The target resolves in precedence order TargetID,
// TargetName, then Schema.ID; when only an id or name is given the
// table's live schema is fetched to derive the bucket schema.
type CreateBucketInput struct {
	// Name of the bucket. Empty means a generated name.
	Name string

	// TargetID and TargetName identify the target table.
	TargetID   string
	TargetName string

	// Schema describes the files to be uploaded. When the target is
	// resolved from TargetID or TargetName and Schema is nil, the target
	// table's own schema is used.
	Schema *prism.Table

	// Operation is the write operation the bucket performs on completion.
	Operation prism.Operation
}

// bucketRequest is the wire form of a bucket create.
type bucketRequest struct {
	Name          string              `json:"name"`
	Operation     prism.TypeRef       `json:"operation"`
	TargetDataset prism.ResourceRef   `json:"targetDataset"`
	Schema        *prism.BucketSchema `json:"schema"`
}

// Create resolves the target table, derives the file-parsing schema and
// registers a new bucket in the "New" state.
func (s *Buckets) Create(ctx context.Context, input CreateBucketInput) (*prism.Bucket, error) {
	if !input.Operation.IsValid() {
		return nil, fmt.Errorf("unknown operation %q: %w", string(input.Operation), prism.ErrInvalidConfig)
	}

	targetID, tableSchema, err := s.resolveTarget(ctx, input)
	if err != nil {
		return nil, err
	}

	// parseOptions rides along in schema files only; capture it before
	// normalization strips it.
	parseOpts := tableSchema.ParseOptions

	compact, err := schema.Compact(tableSchema)
	if err != nil {
		return nil, err
	}
	bucketSchema, err := schema.ToBucketSchema(compact, parseOpts)
	if err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = GenerateName()
	}

	req := bucketRequest{
		Name:          name,
		Operation:     input.Operation.TypeRef(),
		TargetDataset: prism.ResourceRef{ID: targetID},
		Schema:        bucketSchema,
	}

	resp, err := s.http.PostJSON(ctx, s.endpoints.Prism+"/buckets", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		s.logger.Error("bucket create for table %s failed: %s", targetID, string(resp.Body))
		return nil, fmt.Errorf("status %d (%s): %w", resp.StatusCode, resp.Reason, prism.ErrBucketCreateFailed)
	}

	var bucket prism.Bucket
	if err := resp.Decode(&bucket); err != nil {
		return nil, err
	}
	s.logger.Verbose("created bucket %s (%s) targeting table %s", bucket.Name, bucket.ID, targetID)
	return &bucket, nil
}

// resolveTarget finds the target table id and the schema the bucket will
// parse files with.
func (s *Buckets) resolveTarget(ctx context.Context, input CreateBucketInput) (string, *prism.Table, error) {
	switch {
	case input.TargetID != "":
		if input.Schema != nil {
			return input.TargetID, input.Schema, nil
		}
		body, err := s.tables.GetByID(ctx, input.TargetID, TableFormatFull)
		if err != nil {
			return "", nil, err
		}
		live, err := schema.Parse(body)
		if err != nil {
			return "", nil, err
		}
		return input.TargetID, live, nil

	case input.TargetName != "":
		table, err := s.tables.GetByName(ctx, input.TargetName)
		if err != nil {
			return "", nil, err
		}
		if input.Schema != nil {
			return table.ID, input.Schema, nil
		}
		return table.ID, table, nil

	case input.Schema != nil && input.Schema.ID != "":
		return input.Schema.ID, input.Schema, nil
	}

	return "", nil, prism.ErrMissingTarget
}

// GetByID fetches one bucket by its opaque id.
func (s *Buckets) GetByID(ctx context.Context, id string) (*prism.Bucket, error) {
	if id == "" {
		return nil, fmt.Errorf("bucket id is required: %w", prism.ErrNotFound)
	}

	resp, err := s.http.Get(ctx, s.endpoints.Prism+"/buckets/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var bucket prism.Bucket
		if err := resp.Decode(&bucket); err != nil {
			return nil, err
		}
		return &bucket, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, fmt.Errorf("bucket %q: %w", id, prism.ErrNotFound)
	}
	return nil, resp.StatusError()
}

// ListBucketsInput filters a bucket listing. Name with Exact set is an
// exact name lookup; otherwise Name is a case-insensitive substring
// filter over bucket names and display names. TableID and TableName
// restrict results to buckets targeting that table; TableName is an
// exact descriptor match with Exact set and a case-insensitive
// substring match otherwise.
type ListBucketsInput struct {
	Name      string
	Exact     bool
	TableID   string
	TableName string
}

// List returns buckets matching the filters, scanning the whole
// collection when any client-side filter is in play. List never fails:
// an unreachable backend yields an empty page.
func (s *Buckets) List(ctx context.Context, input ListBucketsInput) prism.Page[prism.Bucket] {
	if input.Exact && input.Name != "" && input.TableID == "" && input.TableName == "" {
		page := prism.Page[prism.Bucket]{Data: []prism.Bucket{}}

		items, err := s.fetchPage(url.Values{"name": {input.Name}})(ctx, 1, 0)
		if err != nil {
			s.logger.Warn("bucket lookup for %q failed, treating as not found", input.Name)
			return page
		}

		page.Data = append(page.Data, items...)
		page.Total = len(page.Data)
		return page
	}

	match := func(b prism.Bucket) bool {
		if input.Name != "" && !containsFold(b.Name, input.Name) && !containsFold(b.DisplayName, input.Name) {
			return false
		}
		if input.TableID != "" && (b.TargetDataset == nil || b.TargetDataset.ID != input.TableID) {
			return false
		}
		if input.TableName != "" {
			if b.TargetDataset == nil {
				return false
			}
			if input.Exact {
				return b.TargetDataset.Descriptor == input.TableName
			}
			return containsFold(b.TargetDataset.Descriptor, input.TableName)
		}
		return true
	}

	result := pager.Scan(ctx, prism.MaxPageSize, s.fetchPage(nil), match)
	if result.Aborted {
		s.logger.Warn("bucket listing stopped early, results may be incomplete")
	}
	return result.Page
}

func (s *Buckets) fetchPage(extra url.Values) pager.FetchFunc[prism.Bucket] {
	return func(ctx context.Context, limit, offset int) ([]prism.Bucket, error) {
		query := url.Values{
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		}
		for k, v := range extra {
			query[k] = v
		}

		resp, err := s.http.Get(ctx, s.endpoints.Prism+"/buckets", query)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resp.StatusError()
		}

		var page prism.Page[prism.Bucket]
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}
		return page.Data, nil
	}
}

// Complete seals the bucket and asks the service to commit its staged
// files into the target table. A 400 response is not an error: the
// service uses it to report row-level validation problems, and the body
// is handed back verbatim in Detail.
func (s *Buckets) Complete(ctx context.Context, id string) (*prism.CompleteResult, error) {
	if id == "" {
		return nil, fmt.Errorf("bucket id is required: %w", prism.ErrNotFound)
	}

	resp, err := s.http.PostJSON(ctx, s.endpoints.Prism+"/buckets/"+url.PathEscape(id)+"/complete",
		json.RawMessage("{}"))
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		var bucket prism.Bucket
		if err := resp.Decode(&bucket); err != nil {
			return nil, err
		}
		s.logger.Verbose("bucket %s completed", id)
		return &prism.CompleteResult{Bucket: &bucket}, nil
	case http.StatusBadRequest:
		s.logger.Verbose("bucket %s complete rejected: %s", id, string(resp.Body))
		return &prism.CompleteResult{Detail: resp.Body}, nil
	}

	return nil, fmt.Errorf("status %d (%s): %w", resp.StatusCode, resp.Reason, prism.ErrBucketCompleteFailed)
}

// ErrorFile fetches the row-level error report of a processed bucket.
// The body is a CSV document returned verbatim.
func (s *Buckets) ErrorFile(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("bucket id is required: %w", prism.ErrNotFound)
	}

	resp, err := s.http.Get(ctx, s.endpoints.Prism+"/buckets/"+url.PathEscape(id)+"/errorFile", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error file for bucket %q: %w", id, resp.StatusError())
	}
	return resp.Body, nil
}
