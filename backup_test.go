package vektor_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vektor"
	"github.com/hupe1980/vektor/blobstore"
	"github.com/hupe1980/vektor/metric"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	codecs := map[string]vektor.Compression{
		"none": vektor.CompressionNone,
		"zstd": vektor.CompressionZstd,
		"lz4":  vektor.CompressionLZ4,
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := tempDBPath(t)

			db := seededDB(t, path, metric.KindEuclidean)
			require.NoError(t, db.Add(ctx, 1, []float32{1, 0}, vektor.Metadata{Label: "a"}))
			require.NoError(t, db.Add(ctx, 2, []float32{0, 1}, vektor.Metadata{Label: "b", Description: strptr("desc")}))
			require.NoError(t, db.Remove(ctx, 1))

			store := blobstore.NewMemoryStore()
			require.NoError(t, db.Backup(ctx, store, "snap", vektor.WithCompression(codec)))
			require.NoError(t, db.Close())

			restored := filepath.Join(t.TempDir(), "restored.vdb")
			require.NoError(t, vektor.Restore(ctx, store, "snap", restored))

			db2 := seededDB(t, restored, metric.KindEuclidean)
			assert.Equal(t, 1, db2.Count())
			assert.Equal(t, 2, db2.Dimension())

			results, err := db2.Search(ctx, []float32{0, 1}, 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, uint64(2), results[0].ID)
			assert.Equal(t, "b", results[0].Metadata.Label)
			require.NotNil(t, results[0].Metadata.Description)
			assert.Equal(t, "desc", *results[0].Metadata.Description)
		})
	}
}

func TestRestoreRefusesExistingTarget(t *testing.T) {
	ctx := context.Background()
	path := tempDBPath(t)

	db := seededDB(t, path, metric.KindCosine)
	require.NoError(t, db.Add(ctx, 1, []float32{1, 0}, vektor.Metadata{}))

	store := blobstore.NewMemoryStore()
	require.NoError(t, db.Backup(ctx, store, "snap"))

	err := vektor.Restore(ctx, store, "snap", path)
	assert.Error(t, err)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	err := vektor.Restore(ctx, store, "nope", filepath.Join(t.TempDir(), "out.vdb"))
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestBackupSnapshotIsTagged(t *testing.T) {
	ctx := context.Background()
	db := seededDB(t, tempDBPath(t), metric.KindCosine)
	require.NoError(t, db.Add(ctx, 1, []float32{1, 0}, vektor.Metadata{}))

	store := blobstore.NewMemoryStore()
	require.NoError(t, db.Backup(ctx, store, "snap", vektor.WithCompression(vektor.CompressionLZ4)))

	r, err := store.Open(ctx, "snap")
	require.NoError(t, err)
	defer r.Close()

	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, byte(vektor.CompressionLZ4), raw[0])
}
