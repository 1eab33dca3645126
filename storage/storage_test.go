package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vektor/metric"
)

func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.vdb")
}

func strptr(s string) *string { return &s }

func TestCreateAndOpenEmpty(t *testing.T) {
	path := tempLogPath(t)

	_, err := Create(path, NewHeader(metric.KindCosine))
	require.NoError(t, err)

	_, h, entries, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, h.Version)
	assert.Equal(t, metric.KindCosine, h.Metric)
	assert.Equal(t, uint32(0), h.Dimension)
	assert.Empty(t, entries)
}

func TestCreateFailsIfExists(t *testing.T) {
	path := tempLogPath(t)

	_, err := Create(path, NewHeader(metric.KindCosine))
	require.NoError(t, err)

	_, err = Create(path, NewHeader(metric.KindCosine))
	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestAppendAndReplay(t *testing.T) {
	path := tempLogPath(t)

	l, err := Create(path, NewHeader(metric.KindEuclidean))
	require.NoError(t, err)

	in := []Entry{
		{ID: 1, Vector: []float32{1, 2, 3}, Metadata: Metadata{Label: "one"}},
		{ID: 2, Vector: []float32{4, 5, 6}, Metadata: Metadata{Label: "two", Description: strptr("second")}},
		{ID: 1, Tombstone: true},
	}
	for i := range in {
		require.NoError(t, l.AppendEntry(&in[i]))
	}

	_, _, got, err := Open(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, []float32{1, 2, 3}, got[0].Vector)
	assert.Equal(t, "one", got[0].Metadata.Label)
	assert.Nil(t, got[0].Metadata.Description)
	assert.False(t, got[0].Tombstone)

	require.NotNil(t, got[1].Metadata.Description)
	assert.Equal(t, "second", *got[1].Metadata.Description)

	assert.True(t, got[2].Tombstone)
	assert.Empty(t, got[2].Vector)
}

func TestUpdateHeaderInPlace(t *testing.T) {
	path := tempLogPath(t)

	l, err := Create(path, NewHeader(metric.KindCosine))
	require.NoError(t, err)

	e := Entry{ID: 7, Vector: []float32{1, 1}, Metadata: Metadata{Label: "x"}}
	require.NoError(t, l.AppendEntry(&e))

	h := NewHeader(metric.KindCosine)
	h.Dimension = 2
	require.NoError(t, l.UpdateHeader(h))

	_, got, entries, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Dimension)
	// Rewrite must not clobber the entry stream.
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(7), entries[0].ID)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := tempLogPath(t)
	require.NoError(t, os.WriteFile(path, []byte("NOPE\x01\x01\x02\x00\x00\x00"), 0o600))

	_, _, _, err := Open(path)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	path := tempLogPath(t)

	_, err := Create(path, NewHeader(metric.KindCosine))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[4] = 99 // version byte
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, _, _, err = Open(path)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestOpenTruncatesTornTail(t *testing.T) {
	path := tempLogPath(t)

	l, err := Create(path, NewHeader(metric.KindEuclidean))
	require.NoError(t, err)

	whole := Entry{ID: 1, Vector: []float32{1, 2}, Metadata: Metadata{Label: "keep"}}
	require.NoError(t, l.AppendEntry(&whole))

	goodSize := fileSize(t, path)

	// Simulate a crash mid-append: a second record cut off partway through.
	torn := Entry{ID: 2, Vector: []float32{3, 4}, Metadata: Metadata{Label: "torn"}}
	require.NoError(t, l.AppendEntry(&torn))
	require.NoError(t, os.Truncate(path, goodSize+5))

	_, _, entries, err := Open(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].ID)

	// The torn bytes are gone so the next append lands on a boundary.
	assert.Equal(t, goodSize, fileSize(t, path))

	require.NoError(t, l.AppendEntry(&torn))
	_, _, entries, err = Open(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[1].ID)
}

func TestCompactDropsHistory(t *testing.T) {
	path := tempLogPath(t)

	l, err := Create(path, NewHeader(metric.KindEuclidean))
	require.NoError(t, err)

	for _, e := range []Entry{
		{ID: 1, Vector: []float32{1, 0}, Metadata: Metadata{Label: "a"}},
		{ID: 2, Vector: []float32{0, 1}, Metadata: Metadata{Label: "b"}},
		{ID: 1, Tombstone: true},
	} {
		require.NoError(t, l.AppendEntry(&e))
	}

	h := NewHeader(metric.KindEuclidean)
	h.Dimension = 2
	live := []Entry{{ID: 2, Vector: []float32{0, 1}, Metadata: Metadata{Label: "b"}}}
	require.NoError(t, l.Compact(h, live))

	_, got, entries, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Dimension)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(2), entries[0].ID)
	assert.False(t, entries[0].Tombstone)
}

func TestMetadataDescriptionRoundTrip(t *testing.T) {
	path := tempLogPath(t)

	l, err := Create(path, NewHeader(metric.KindCosine))
	require.NoError(t, err)

	// nil and empty descriptions stay distinct.
	withNil := Entry{ID: 1, Vector: []float32{1}, Metadata: Metadata{Label: "n"}}
	withEmpty := Entry{ID: 2, Vector: []float32{2}, Metadata: Metadata{Label: "e", Description: strptr("")}}
	require.NoError(t, l.AppendEntry(&withNil))
	require.NoError(t, l.AppendEntry(&withEmpty))

	_, _, got, err := Open(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Metadata.Description)
	require.NotNil(t, got[1].Metadata.Description)
	assert.Equal(t, "", *got[1].Metadata.Description)
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	return fi.Size()
}
