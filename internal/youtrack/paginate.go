package youtrack

import (
	"context"
	"fmt"

	"github.com/jonathan/issues-dataset/internal/records"
)

// DefaultPageSize is the $top value sent with every page request.
const DefaultPageSize = 1000

// PageFunc fetches one page starting at skip with at most top items.
type PageFunc func(ctx context.Context, skip, top int) ([]records.Record, error)

// Paginate requests consecutive pages, handing each to onPage, until a page
// shorter than pageSize arrives. It returns the number of items seen.
//
// A short page is the only stop signal: when the final page is exactly
// pageSize long one more (empty) request is made, and a source that always
// returns full pages is polled until it fails.
func Paginate(ctx context.Context, pageSize int, fetch PageFunc, onPage func(page []records.Record) error) (int, error) {
	if pageSize <= 0 {
		return 0, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	skip := 0
	for {
		if err := ctx.Err(); err != nil {
			return skip, err
		}

		page, err := fetch(ctx, skip, pageSize)
		if err != nil {
			return skip, err
		}
		if onPage != nil && len(page) > 0 {
			if err := onPage(page); err != nil {
				return skip, err
			}
		}
		skip += len(page)

		if len(page) < pageSize {
			return skip, nil
		}
	}
}

// CollectAll materializes every page in request order.
func CollectAll(ctx context.Context, pageSize int, fetch PageFunc) ([]records.Record, error) {
	var all []records.Record
	_, err := Paginate(ctx, pageSize, fetch, func(page []records.Record) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
