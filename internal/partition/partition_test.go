package partition

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/annotate/internal/models"
)

func sizes(bounds []Bounds) []int {
	out := make([]int, len(bounds))
	for i, b := range bounds {
		out[i] = b.Len()
	}
	return out
}

func TestPlanExample(t *testing.T) {
	bounds, err := Plan(10, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 3}, sizes(bounds))
	assert.Equal(t, Bounds{Index: 0, Start: 0, End: 4}, bounds[0])
	assert.Equal(t, Bounds{Index: 1, Start: 4, End: 7}, bounds[1])
	assert.Equal(t, Bounds{Index: 2, Start: 7, End: 10}, bounds[2])
}

func TestPlanInvalidCount(t *testing.T) {
	for _, k := range []int{0, -1, 6} {
		_, err := Plan(5, k)
		require.ErrorIs(t, err, models.ErrInvalidSplitCount, "k=%d", k)
	}
	_, err := Plan(0, 1)
	require.ErrorIs(t, err, models.ErrInvalidSplitCount)
}

func TestPlanProperties(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for k := 1; k <= n; k++ {
			bounds, err := Plan(n, k)
			require.NoError(t, err)
			require.Len(t, bounds, k)

			s := sizes(bounds)
			total := 0
			for _, size := range s {
				require.Positive(t, size)
				total += size
			}
			require.Equal(t, n, total, "n=%d k=%d", n, k)
			require.LessOrEqual(t, slices.Max(s)-slices.Min(s), 1, "n=%d k=%d", n, k)

			// contiguous and ordered
			for i := 1; i < k; i++ {
				require.Equal(t, bounds[i-1].End, bounds[i].Start)
			}
			require.Equal(t, 0, bounds[0].Start)
			require.Equal(t, n, bounds[k-1].End)
		}
	}
}

func TestSplitConcatenatesToInput(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g"}
	for k := 1; k <= len(items); k++ {
		shards, err := Split(items, k)
		require.NoError(t, err)

		var joined []string
		for _, s := range shards {
			joined = append(joined, s...)
		}
		assert.Equal(t, items, joined, "k=%d", k)
	}
}

func TestSplitSingleShard(t *testing.T) {
	shards, err := Split([]int{1, 2, 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2, 3}}, shards)
}
