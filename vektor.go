// Package vektor provides an embeddable approximate-nearest-neighbor vector
// database for Go.
//
// A database is a single file on disk: an append-only log of vector entries
// replayed into an in-memory HNSW graph on open. It supports:
//
//   - k-nearest-neighbor search under Cosine or Euclidean distance
//   - caller-assigned uint64 ids with label/description metadata
//   - durable writes (one fsynced log record per mutation)
//   - logical deletion via tombstones, reclaimed by compaction
//   - parallel batch search over a read-only snapshot
//   - snapshot backup/restore to pluggable object stores
//
// The log is the durability source of truth; the graph is disposable and is
// rebuilt from the log on every open. Remove and Update compact eagerly: the
// graph has no delete operation, so both rebuild the index from the surviving
// entries and rewrite the log before returning. This keeps every search
// consistent at the cost of O(n) mutation latency; a workload that deletes
// heavily may prefer query-time filtering, which this implementation does not
// offer as a policy knob.
//
// Concurrency contract: writes (Add, Remove, Update) are synchronous and must
// be serialized by the caller; there is no internal write lock. Reads may run
// concurrently with each other but not with a writer. Writes are visible to
// subsequent reads in the same process immediately; another process sees them
// by reopening the file.
package vektor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/vektor/hnsw"
	"github.com/hupe1980/vektor/metric"
	"github.com/hupe1980/vektor/storage"
)

// Metadata is the payload stored next to a vector.
type Metadata = storage.Metadata

// entry is the in-memory record co-indexed with the graph: entry i describes
// graph slot i. Keeping the two aligned under every mutation is the central
// invariant of the database.
type entry struct {
	id         uint64
	meta       Metadata
	tombstoned bool
}

// DB is a vector database bound to a single file.
type DB struct {
	log     *storage.Log
	header  storage.Header
	metric  metric.Metric
	index   *hnsw.Index
	entries []entry
	live    *roaring64.Bitmap
	opts    Options
	logger  *Logger
	closed  bool
}

// Open opens the database at path, creating it if it does not exist.
//
// For an existing file the stored metric must equal kind; a mismatch fails
// with ErrMetricMismatch and leaves the file untouched. Every log record is
// replayed in order with the same semantics as live writes, so the resulting
// in-memory state is equivalent to what live operation produced.
func Open(path string, kind metric.Kind, optFns ...Option) (*DB, error) {
	opts := applyOptions(optFns)

	m, err := metric.For(kind)
	if err != nil {
		return nil, err
	}

	db := &DB{
		metric: m,
		live:   roaring64.New(),
		opts:   opts,
		logger: opts.Logger,
	}
	db.index = db.newIndex()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		h := storage.NewHeader(kind)
		l, err := storage.Create(path, h)
		if err != nil {
			return nil, err
		}
		db.log = l
		db.header = h

		db.logger.Debug("created database", "path", path, "metric", kind.String())
		return db, nil
	}

	l, h, stored, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	if h.Metric != kind {
		return nil, &ErrMetricMismatch{Requested: kind, Stored: h.Metric}
	}
	db.log = l
	db.header = h

	for i := range stored {
		if err := db.applyEntry(&stored[i]); err != nil {
			return nil, fmt.Errorf("replay entry %d: %w", i, err)
		}
	}

	db.logger.Debug("opened database",
		"path", path,
		"metric", kind.String(),
		"replayed", len(stored),
		"live", db.live.GetCardinality(),
	)
	return db, nil
}

// newIndex builds an empty graph with this database's parameters. Used at
// open and for every compaction rebuild.
func (db *DB) newIndex() *hnsw.Index {
	return hnsw.New(db.metric, func(o *hnsw.Options) {
		o.M = db.opts.M
		o.M0 = db.opts.M0
		o.EFConstruction = db.opts.EFConstruction
		o.RandomSeed = db.opts.RandomSeed
	})
}

// applyEntry replays one log record into memory. The rules mirror live
// writes: a tombstone retires the live entry with that id; a duplicate id
// means the later record wins (the update log trail is tombstone-then-entry,
// but an entry alone must still replay sanely).
func (db *DB) applyEntry(e *storage.Entry) error {
	if e.Tombstone {
		if slot, ok := db.findLive(e.ID); ok {
			db.entries[slot].tombstoned = true
			db.live.Remove(e.ID)
		}
		return nil
	}

	if slot, ok := db.findLive(e.ID); ok {
		db.entries[slot].tombstoned = true
		db.live.Remove(e.ID)
	}

	if db.header.Dimension == 0 {
		db.header.Dimension = uint32(len(e.Vector))
	} else if len(e.Vector) != int(db.header.Dimension) {
		return &ErrDimensionMismatch{Expected: int(db.header.Dimension), Actual: len(e.Vector)}
	}

	db.index.Insert(e.Vector)
	db.entries = append(db.entries, entry{id: e.ID, meta: e.Metadata})
	db.live.Add(e.ID)
	return nil
}

// findLive returns the slot of the live entry with the given id.
//
// This is a linear scan. It only runs on Remove/Update, both of which rebuild
// the whole index anyway, and on replay of tombstone records; the O(1) live
// check on the hot Add path goes through the bitmap.
func (db *DB) findLive(id uint64) (int, bool) {
	if !db.live.Contains(id) {
		return 0, false
	}
	for slot := range db.entries {
		if db.entries[slot].id == id && !db.entries[slot].tombstoned {
			return slot, true
		}
	}
	return 0, false
}

// Add stores a vector under a new id.
//
// The first vector ever stored fixes the database dimension and rewrites the
// header. Fails with ErrDuplicateID if id is live and ErrDimensionMismatch if
// the vector's length disagrees with the fixed dimension; both leave the
// database unchanged. The entry is durable once Add returns: the log record
// is fsynced before the in-memory index is touched.
func (db *DB) Add(ctx context.Context, id uint64, vector []float32, meta Metadata) error {
	if err := db.writable(ctx); err != nil {
		return err
	}
	if db.live.Contains(id) {
		return &ErrDuplicateID{ID: id}
	}
	if len(vector) == 0 {
		return &ErrDimensionMismatch{Expected: int(db.header.Dimension), Actual: 0}
	}

	if db.header.Dimension == 0 {
		db.header.Dimension = uint32(len(vector))
		if err := db.log.UpdateHeader(db.header); err != nil {
			db.header.Dimension = 0
			return err
		}
	} else if len(vector) != int(db.header.Dimension) {
		return &ErrDimensionMismatch{Expected: int(db.header.Dimension), Actual: len(vector)}
	}

	// The graph owns its own copy; the caller keeps theirs.
	vec := append([]float32(nil), vector...)

	// Log first: a failed append must leave the graph and the entry table
	// untouched, or their slots drift apart.
	stored := storage.Entry{ID: id, Vector: vec, Metadata: meta}
	if err := db.log.AppendEntry(&stored); err != nil {
		return err
	}

	db.index.Insert(vec)
	db.entries = append(db.entries, entry{id: id, meta: meta})
	db.live.Add(id)

	db.logger.Debug("added entry", "id", id, "dimension", len(vector))
	return nil
}

// Remove logically deletes id and immediately compacts.
//
// The tombstone record is appended before the rebuild so that a crash between
// the two replays to the same live set on the next open.
func (db *DB) Remove(ctx context.Context, id uint64) error {
	if err := db.writable(ctx); err != nil {
		return err
	}

	slot, ok := db.findLive(id)
	if !ok {
		return &ErrNotFound{ID: id}
	}

	db.entries[slot].tombstoned = true
	db.live.Remove(id)

	tomb := storage.Entry{ID: id, Tombstone: true}
	if err := db.log.AppendEntry(&tomb); err != nil {
		return err
	}

	if err := db.rebuild(nil); err != nil {
		return err
	}

	db.logger.Debug("removed entry", "id", id, "live", db.live.GetCardinality())
	return nil
}

// Update replaces the vector and metadata stored under a live id.
//
// Logically Remove followed by Add of the same id, realized through the same
// rebuild path: the compacted entry set keeps the entry at its original
// relative position with the new value, and the pre-compaction log trail is
// tombstone-then-entry so replay never sees two live records for one id.
func (db *DB) Update(ctx context.Context, id uint64, vector []float32, meta Metadata) error {
	if err := db.writable(ctx); err != nil {
		return err
	}

	slot, ok := db.findLive(id)
	if !ok {
		return &ErrNotFound{ID: id}
	}
	if len(vector) != int(db.header.Dimension) {
		return &ErrDimensionMismatch{Expected: int(db.header.Dimension), Actual: len(vector)}
	}

	tomb := storage.Entry{ID: id, Tombstone: true}
	if err := db.log.AppendEntry(&tomb); err != nil {
		return err
	}
	fresh := storage.Entry{ID: id, Vector: vector, Metadata: meta}
	if err := db.log.AppendEntry(&fresh); err != nil {
		return err
	}

	db.entries[slot].meta = meta
	vec := append([]float32(nil), vector...)
	if err := db.rebuild(map[int][]float32{slot: vec}); err != nil {
		return err
	}

	db.logger.Debug("updated entry", "id", id)
	return nil
}

// rebuild discards the graph, reinserts every surviving entry in its original
// relative order (slots become dense again) and compacts the log to the
// surviving set. override maps a pre-rebuild slot to a replacement vector.
func (db *DB) rebuild(override map[int][]float32) error {
	fresh := db.newIndex()
	survivors := make([]storage.Entry, 0, len(db.entries))
	compacted := make([]entry, 0, len(db.entries))

	for slot := range db.entries {
		e := &db.entries[slot]
		if e.tombstoned {
			continue
		}

		vec, ok := override[slot]
		if !ok {
			vec = db.index.Vector(uint32(slot))
		}

		fresh.Insert(vec)
		survivors = append(survivors, storage.Entry{ID: e.id, Vector: vec, Metadata: e.meta})
		compacted = append(compacted, entry{id: e.id, meta: e.meta})
	}

	if err := db.log.Compact(db.header, survivors); err != nil {
		return err
	}

	db.index = fresh
	db.entries = compacted

	db.logger.Debug("compacted database", "live", len(compacted))
	return nil
}

func (db *DB) writable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if db.closed {
		return os.ErrClosed
	}
	return nil
}

// Count returns the number of live entries.
func (db *DB) Count() int {
	return int(db.live.GetCardinality())
}

// Dimension returns the fixed vector dimension, 0 before the first Add.
func (db *DB) Dimension() int {
	return int(db.header.Dimension)
}

// MetricKind returns the metric the database was opened with.
func (db *DB) MetricKind() metric.Kind {
	return db.metric.Kind()
}

// Path returns the path of the database file.
func (db *DB) Path() string {
	return db.log.Path()
}

// Stats describes the current database state.
type Stats struct {
	Live      int
	Entries   int
	Dimension int
	Metric    metric.Kind
	Index     hnsw.Stats
}

// Stats returns current database statistics.
func (db *DB) Stats() Stats {
	return Stats{
		Live:      db.Count(),
		Entries:   len(db.entries),
		Dimension: db.Dimension(),
		Metric:    db.metric.Kind(),
		Index:     db.index.Stats(),
	}
}

// Close marks the database closed. The log holds no open file descriptor, so
// this only fences further writes; reads of already-loaded state keep
// working.
func (db *DB) Close() error {
	db.closed = true
	return nil
}
