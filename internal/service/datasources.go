package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/prismtools/prism/internal/pager"
	"github.com/prismtools/prism/internal/schema"
	"github.com/prismtools/prism/pkg/prism"
)

// DataSources lists the query-API data sources, used to resolve the
// business objects referenced by instance-typed fields.
type DataSources struct {
	http      prism.HTTPClient
	endpoints prism.Endpoints
	logger    prism.Logger
}

// NewDataSources creates the data source service.
// Panics if httpClient or logger is nil.
func NewDataSources(httpClient prism.HTTPClient, endpoints prism.Endpoints, logger prism.Logger) *DataSources {
	if httpClient == nil {
		panic("httpClient cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &DataSources{
		http:      httpClient,
		endpoints: endpoints,
		logger:    logger,
	}
}

// List returns data sources, filtered by case-insensitive substring on
// the descriptor when name is non-empty. List never fails: an
// unreachable backend yields an empty page.
func (s *DataSources) List(ctx context.Context, name string) prism.Page[prism.DataSource] {
	var match pager.MatchFunc[prism.DataSource]
	if name != "" {
		match = func(ds prism.DataSource) bool {
			return containsFold(ds.Descriptor, name)
		}
	}

	result := pager.Scan(ctx, prism.MaxPageSize, s.fetchPage, match)
	if result.Aborted {
		s.logger.Warn("data source listing stopped early, results may be incomplete")
	}
	return result.Page
}

func (s *DataSources) fetchPage(ctx context.Context, limit, offset int) ([]prism.DataSource, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	resp, err := s.http.Get(ctx, s.endpoints.WQL+"/dataSources", query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusError()
	}

	var page prism.Page[prism.DataSource]
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Resolver returns a business-object resolver backed by a one-shot scan
// of the data source catalog. The catalog is fetched lazily on the first
// lookup and cached for the life of the resolver.
func (s *DataSources) Resolver(ctx context.Context) schema.BusinessObjectResolver {
	var catalog []prism.DataSource
	fetched := false

	return func(descriptor string) (*prism.ResourceRef, error) {
		if !fetched {
			catalog = s.List(ctx, "").Data
			fetched = true
		}

		for _, ds := range catalog {
			if ds.Descriptor == descriptor {
				ref := prism.ResourceRef{ID: ds.ID, Descriptor: ds.Descriptor}
				if ds.BusinessObject != nil {
					ref = *ds.BusinessObject
				}
				return &ref, nil
			}
		}
		return nil, fmt.Errorf("business object %q not found in the data source catalog: %w",
			descriptor, prism.ErrInvalidSchema)
	}
}
