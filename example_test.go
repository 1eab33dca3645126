package vektor_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/vektor"
	"github.com/hupe1980/vektor/metric"
)

func Example() {
	dir, err := os.MkdirTemp("", "vektor")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()

	db, err := vektor.Open(filepath.Join(dir, "points.vdb"), metric.KindEuclidean, vektor.WithRandomSeed(1))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	points := map[uint64][]float32{
		1: {1, 0},
		2: {0, 1},
		3: {1, 1},
		4: {2, 2},
	}
	for id := uint64(1); id <= 4; id++ {
		if err := db.Add(ctx, id, points[id], vektor.Metadata{Label: fmt.Sprintf("p%d", id)}); err != nil {
			log.Fatal(err)
		}
	}

	results, err := db.Search(ctx, []float32{1, 0.5}, 3)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range results {
		fmt.Printf("%s (id=%d)\n", r.Metadata.Label, r.ID)
	}
	// Output:
	// p1 (id=1)
	// p3 (id=3)
	// p2 (id=2)
}
