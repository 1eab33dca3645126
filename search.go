package vektor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is one search hit.
type Result struct {
	// ID is the caller-assigned id of the entry.
	ID uint64

	// Distance is the distance between the query and the stored vector,
	// converted back from the index's ordering unit.
	Distance float32

	// Metadata is the payload stored with the entry.
	Metadata Metadata
}

// Search returns the k nearest live entries to query, nearest first. Ties are
// broken by insertion order. Fewer than k results come back when fewer than k
// entries are live; an empty database returns no results.
//
// k larger than the live count is not an error, it is clamped. The beam width
// is the larger of the configured EFSearch and twice the clamped k, so asking
// for more results also searches harder.
func (db *DB) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != int(db.header.Dimension) {
		return nil, &ErrDimensionMismatch{Expected: int(db.header.Dimension), Actual: len(query)}
	}

	live := db.Count()
	if live == 0 {
		return nil, nil
	}
	if k > live {
		k = live
	}

	ef := db.opts.EFSearch
	if 2*k > ef {
		ef = 2 * k
	}

	// Over-fetch by the full beam so tombstoned slots, which only exist
	// between a failed compaction and the next open, cannot eat into k.
	candidates := db.index.Search(query, ef, ef)

	results := make([]Result, 0, k)
	for _, c := range candidates {
		e := &db.entries[c.Slot]
		if e.tombstoned {
			continue
		}
		results = append(results, Result{
			ID:       e.id,
			Distance: c.Distance.Float32(),
			Metadata: e.meta,
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// BatchSearch runs Search for every query in parallel and returns the result
// slices in query order. The whole batch observes one database state; the
// caller must not mutate the database while a batch is in flight.
//
// The first failing query cancels the rest and its error is returned.
func (db *DB) BatchSearch(ctx context.Context, queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, q := range queries {
		g.Go(func() error {
			res, err := db.Search(ctx, q, k)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
