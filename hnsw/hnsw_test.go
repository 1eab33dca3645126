package hnsw

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vektor/metric"
)

func seeded(seed int64) func(o *Options) {
	return func(o *Options) {
		o.RandomSeed = &seed
	}
}

func uniformVectors(rng *rand.Rand, n, dim int) [][]float32 {
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vecs[i] = v
	}
	return vecs
}

// bruteForce returns the exact k nearest slots, ties broken by slot index.
func bruteForce(m metric.Metric, vecs [][]float32, query []float32, k int) []uint32 {
	type pair struct {
		slot uint32
		dist metric.Unit
	}
	pairs := make([]pair, len(vecs))
	for i, v := range vecs {
		pairs[i] = pair{slot: uint32(i), dist: m.Distance(query, v)}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		return pairs[i].slot < pairs[j].slot
	})
	if len(pairs) > k {
		pairs = pairs[:k]
	}
	out := make([]uint32, len(pairs))
	for i, p := range pairs {
		out[i] = p.slot
	}
	return out
}

func TestNew(t *testing.T) {
	h := New(metric.Euclidean{}, func(o *Options) {
		o.M = 8
		o.EFConstruction = 100
	})

	assert.Equal(t, 8, h.opts.M)
	assert.Equal(t, 16, h.opts.M0)
	assert.Equal(t, 100, h.opts.EFConstruction)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, -1, h.maxLayer)
}

func TestInsertAssignsDenseSlots(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(1))

	for i := range 10 {
		slot := h.Insert([]float32{float32(i), 0})
		assert.Equal(t, uint32(i), slot)
	}
	assert.Equal(t, 10, h.Len())
}

func TestSearchEmpty(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(1))
	assert.Nil(t, h.Search([]float32{1, 2}, 5, 50))
}

func TestSearchFewerThanK(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(1))
	h.Insert([]float32{0, 0})
	h.Insert([]float32{1, 1})

	got := h.Search([]float32{0, 0}, 10, 50)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(0), got[0].Slot)
	assert.Equal(t, uint32(1), got[1].Slot)
}

func TestSearchExactSmall(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(42))
	vecs := [][]float32{{1, 0}, {0, 1}, {1, 1}, {2, 2}}
	for _, v := range vecs {
		h.Insert(append([]float32(nil), v...))
	}

	query := []float32{1, 0.5}
	got := h.Search(query, 3, 50)
	require.Len(t, got, 3)

	// True distances: [1,0]=0.5, [1,1]=0.5, [0,1]=1.118, [2,2]=1.803.
	// Equal distances break by slot index.
	assert.Equal(t, uint32(0), got[0].Slot)
	assert.Equal(t, uint32(2), got[1].Slot)
	assert.Equal(t, uint32(1), got[2].Slot)
	assert.Equal(t, got[0].Distance, got[1].Distance)
}

func TestSearchTieBreakBySlot(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(7))
	// Equidistant points around the query.
	h.Insert([]float32{1, 0})
	h.Insert([]float32{-1, 0})
	h.Insert([]float32{0, 1})
	h.Insert([]float32{0, -1})

	got := h.Search([]float32{0, 0}, 4, 50)
	require.Len(t, got, 4)
	for i, c := range got {
		assert.Equal(t, uint32(i), c.Slot)
	}
}

func TestRecallAgainstBruteForce(t *testing.T) {
	tests := []struct {
		name      string
		metric    metric.Metric
		size      int
		dim       int
		k         int
		minRecall float64
	}{
		{name: "euclidean small", metric: metric.Euclidean{}, size: 500, dim: 8, k: 10, minRecall: 0.95},
		{name: "euclidean mid", metric: metric.Euclidean{}, size: 1000, dim: 16, k: 10, minRecall: 0.95},
		{name: "cosine mid", metric: metric.Cosine{}, size: 1000, dim: 16, k: 10, minRecall: 0.90},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(4711))
			vecs := uniformVectors(rng, tc.size, tc.dim)

			h := New(tc.metric, seeded(4711))
			for _, v := range vecs {
				h.Insert(v)
			}

			const queries = 50
			hits, total := 0, 0
			for qi := 0; qi < queries; qi++ {
				query := vecs[qi*(tc.size/queries)]
				want := bruteForce(tc.metric, vecs, query, tc.k)
				got := h.Search(query, tc.k, 200)

				wantSet := make(map[uint32]bool, len(want))
				for _, s := range want {
					wantSet[s] = true
				}
				for _, c := range got {
					total++
					if wantSet[c.Slot] {
						hits++
					}
				}
			}

			recall := float64(hits) / float64(queries*tc.k)
			t.Logf("recall=%f (%d/%d)", recall, hits, total)
			if recall < tc.minRecall {
				t.Fatalf("recall too low: got %f want >= %f", recall, tc.minRecall)
			}
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	vecs := uniformVectors(rng, 300, 8)

	h := New(metric.Euclidean{}, seeded(99))
	for _, v := range vecs {
		h.Insert(v)
	}

	query := vecs[17]
	first := h.Search(query, 10, 100)
	for range 5 {
		assert.Equal(t, first, h.Search(query, 10, 100))
	}
}

func TestDegreeBoundsHold(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vecs := uniformVectors(rng, 500, 4)

	h := New(metric.Euclidean{}, seeded(3), func(o *Options) {
		o.M = 4
		o.M0 = 8
	})
	for _, v := range vecs {
		h.Insert(v)
	}

	for slot := range h.nodes {
		for layer, conns := range h.nodes[slot].layers {
			bound := h.maxConns(layer)
			if len(conns) > bound {
				t.Fatalf("slot %d layer %d has %d neighbors, bound %d", slot, layer, len(conns), bound)
			}
		}
	}
}

func TestStats(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(5))
	assert.Equal(t, Stats{Nodes: 0, MaxLayer: -1}, h.Stats())

	rng := rand.New(rand.NewSource(5))
	for _, v := range uniformVectors(rng, 200, 4) {
		h.Insert(v)
	}

	s := h.Stats()
	assert.Equal(t, 200, s.Nodes)
	assert.GreaterOrEqual(t, s.MaxLayer, 0)
	assert.Greater(t, s.AvgDegree, 0.0)
}

func TestVectorOwnership(t *testing.T) {
	h := New(metric.Euclidean{}, seeded(1))
	slot := h.Insert([]float32{1, 2, 3})
	assert.Equal(t, []float32{1, 2, 3}, h.Vector(slot))
}

func ExampleIndex_Search() {
	h := New(metric.Euclidean{})
	h.Insert([]float32{0, 0})
	h.Insert([]float32{10, 10})

	got := h.Search([]float32{1, 1}, 1, 50)
	fmt.Println(got[0].Slot)
	// Output: 0
}
