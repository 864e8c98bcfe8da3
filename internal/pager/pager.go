// Package pager implements the uniform pagination and client-side search
// policy shared by table, bucket and data-change lookups.
//
// The policy is deliberately never-fails: a transport problem mid-scan
// stops the scan and whatever accumulated so far is the result. Callers
// chain a lookup into a decision ("not found" vs "found one") and an
// empty page is that signal; they never branch on a transport error.
package pager

import (
	"context"

	"github.com/prismtools/prism/pkg/prism"
)

// FetchFunc retrieves one page of items at the given limit and offset.
// A non-nil error aborts the scan; the items fetched so far are kept.
type FetchFunc[T any] func(ctx context.Context, limit, offset int) ([]T, error)

// MatchFunc filters fetched items client-side. A nil MatchFunc accepts
// every item.
type MatchFunc[T any] func(item T) bool

// Result carries the accumulated page plus scan diagnostics. Aborted and
// Fetches exist for observability and tests; the public contract is the
// Page alone.
type Result[T any] struct {
	Page    prism.Page[T]
	Aborted bool
	Fetches int
}

// Scan walks pages of size pageSize from offset 0, filtering each page
// with match, until a short page signals the end of the collection.
//
// Total is recomputed as len(Data) after accumulation, independent of
// any server-reported count. Scan never returns an error: an unreachable
// backend yields an empty (or partial) page.
func Scan[T any](ctx context.Context, pageSize int, fetch FetchFunc[T], match MatchFunc[T]) Result[T] {
	result := Result[T]{
		Page: prism.Page[T]{Data: []T{}},
	}

	offset := 0
	for {
		items, err := fetch(ctx, pageSize, offset)
		if err != nil {
			// Return whatever has accumulated so far.
			result.Aborted = true
			break
		}
		result.Fetches++

		for _, item := range items {
			if match == nil || match(item) {
				result.Page.Data = append(result.Page.Data, item)
			}
		}

		// Anything but a full page means we are done paging.
		if len(items) < pageSize {
			break
		}

		offset += pageSize
	}

	result.Page.Total = len(result.Page.Data)
	return result
}
