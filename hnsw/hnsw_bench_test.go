package hnsw

import (
	"math/rand"
	"testing"

	"github.com/hupe1980/vektor/metric"
)

func BenchmarkInsert(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	vecs := uniformVectors(rng, b.N, 64)

	h := New(metric.Euclidean{}, seeded(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Insert(vecs[i])
	}
}

func BenchmarkSearch(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	vecs := uniformVectors(rng, 10_000, 64)

	h := New(metric.Euclidean{}, seeded(1))
	for _, v := range vecs {
		h.Insert(v)
	}
	queries := uniformVectors(rng, 256, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Search(queries[i%len(queries)], 10, 100)
	}
}
