// Package catalog pages through a remote video catalog.
//
// The catalog API returns at most 50 items per call, so any window larger
// than that, or any skip, needs several round trips. Fetch turns a
// "how many, skip how many" request into that sequence of page requests.
package catalog

import (
	"context"
	"fmt"

	"ytmp3/internal/consts"
	"ytmp3/internal/errs"
	"ytmp3/pkg/calc"
)

// Page is one response of the catalog API.
type Page[T any] struct {
	Items []T
	// TotalResults is the server-reported number of matches.
	TotalResults int64
	// NextPageToken is empty when the source is exhausted.
	NextPageToken string
}

// Lister issues one bounded page request. The query itself is bound into the Lister.
type Lister[T any] interface {
	List(ctx context.Context, pageToken string, maxResults int64) (*Page[T], error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc[T any] func(ctx context.Context, pageToken string, maxResults int64) (*Page[T], error)

// List calls f.
func (f ListerFunc[T]) List(ctx context.Context, pageToken string, maxResults int64) (*Page[T], error) {
	return f(ctx, pageToken, maxResults)
}

// Fetch returns at most maxResults records after discarding the first skip
// matches, in source order. It stops early, without error, when the source
// runs out of pages. Any page failure aborts the fetch with no partial result.
func Fetch[T any](ctx context.Context, lister Lister[T], maxResults, skip int) ([]T, error) {
	if maxResults < 1 || skip < 0 {
		return nil, fmt.Errorf("%w: max results %d, skip %d", errs.ErrInvalidWindow, maxResults, skip)
	}

	var (
		items     = make([]T, 0, calc.Min(maxResults, consts.MaxPageSize))
		remaining = maxResults
		toSkip    = skip
		total     int64
		known     bool
		pageToken string
	)

	for remaining > 0 && (!known || total > 0) {
		size := calc.Min(remaining, consts.MaxPageSize)

		page, err := lister.List(ctx, pageToken, int64(size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrRequest, err)
		}

		if !known {
			total = page.TotalResults
			known = true
		}

		for _, item := range page.Items {
			if remaining == 0 {
				break
			}

			if toSkip > 0 {
				toSkip--
				total--

				continue
			}

			items = append(items, item)
			remaining--
		}

		if page.NextPageToken == "" || len(page.Items) == 0 {
			break
		}

		pageToken = page.NextPageToken
	}

	return items, nil
}
