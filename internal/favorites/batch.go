package favorites

import (
	"context"

	"recipe-finder/internal/domain"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize bounds concurrent detail fetches for the favorites view.
const DefaultBatchSize = 5

// DetailFetcher loads one recipe.
type DetailFetcher func(ctx context.Context, id int) (*domain.RecipeDetail, error)

// Batches splits ids into consecutive chunks of at most size.
func Batches(ids []int, size int) [][]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]int
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// FetchAll loads details batch by batch: every id of a batch is fetched
// concurrently and the batch is awaited before the next one starts. Failed or
// empty fetches are dropped; the rest keep the order of ids.
func FetchAll(ctx context.Context, ids []int, size int, fetch DetailFetcher) []domain.RecipeDetail {
	var out []domain.RecipeDetail
	for _, batch := range Batches(ids, size) {
		if ctx.Err() != nil {
			break
		}
		results := make([]*domain.RecipeDetail, len(batch))

		var g errgroup.Group
		for i, id := range batch {
			g.Go(func() error {
				d, err := fetch(ctx, id)
				if err != nil {
					return nil // an unavailable favorite is just absent
				}
				results[i] = d
				return nil
			})
		}
		_ = g.Wait()

		for _, d := range results {
			if d != nil {
				out = append(out, *d)
			}
		}
	}
	return out
}
