package tasks

import (
	"context"

	"github.com/desertthunder/moodmap/internal/services"
)

// PageFunc fetches the page at cursor. An empty cursor requests the first page.
type PageFunc[T any] func(ctx context.Context, cursor string) (*services.Page[T], error)

// Paginate walks a cursor-paginated listing until the service reports no next page and returns every item in page order.
//
// Errors from fetch are returned as-is and discard any items already collected.
func Paginate[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var items []T
	cursor := ""
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		cursor = page.Cursor()
		if cursor == "" {
			return items, nil
		}
	}
}
