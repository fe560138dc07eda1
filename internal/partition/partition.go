// Package partition splits an ordered record collection into contiguous shards.
//
// For N records and K shards every shard receives N/K records and the first
// N%K shards receive one extra, so shard sizes never differ by more than one
// and concatenating the shards in order reproduces the input.
package partition

import (
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

// Bounds is the half-open record range [Start, End) of one shard
type Bounds struct {
	Index int
	Start int
	End   int
}

// Len returns the number of records in the shard
func (b Bounds) Len() int {
	return b.End - b.Start
}

// Plan computes shard boundaries for n records split k ways.
// It fails with models.ErrInvalidSplitCount when k <= 0 or k > n.
func Plan(n, k int) ([]Bounds, error) {
	if k <= 0 {
		return nil, errors.Wrapf(models.ErrInvalidSplitCount, "shard count %d must be at least 1", k)
	}
	if k > n {
		return nil, errors.Wrapf(models.ErrInvalidSplitCount, "shard count %d exceeds %d records", k, n)
	}

	base, remainder := n/k, n%k
	bounds := make([]Bounds, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < remainder {
			size++
		}
		bounds[i] = Bounds{Index: i, Start: start, End: start + size}
		start += size
	}
	return bounds, nil
}

// Split slices items according to Plan. The returned shards share the backing
// array of items.
func Split[T any](items []T, k int) ([][]T, error) {
	bounds, err := Plan(len(items), k)
	if err != nil {
		return nil, err
	}
	shards := make([][]T, len(bounds))
	for i, b := range bounds {
		shards[i] = items[b.Start:b.End:b.End]
	}
	return shards, nil
}
