package vektor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vektor/blobstore"
)

// Compression selects the codec used for backup blobs.
type Compression uint8

const (
	// CompressionNone stores the snapshot verbatim.
	CompressionNone Compression = iota

	// CompressionZstd compresses the snapshot with zstandard.
	CompressionZstd

	// CompressionLZ4 compresses the snapshot with lz4.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// BackupOptions configures a backup.
type BackupOptions struct {
	// Compression selects the snapshot codec. Defaults to zstd.
	Compression Compression
}

// DefaultBackupOptions contains the default backup options.
var DefaultBackupOptions = BackupOptions{
	Compression: CompressionZstd,
}

// Backup streams a snapshot of the database file into the store under name.
//
// The snapshot is self-describing: one codec byte followed by the (possibly
// compressed) log bytes, so Restore needs no out-of-band codec knowledge.
// The caller must not mutate the database while the backup is running; the
// log file is only a consistent snapshot between writes.
func (db *DB) Backup(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *BackupOptions)) error {
	opts := DefaultBackupOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(db.Path())
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := writeSnapshot(w, f, opts.Compression); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	db.logger.Debug("backup written", "name", name, "compression", opts.Compression.String())
	return nil
}

func writeSnapshot(w io.Writer, src io.Reader, c Compression) error {
	if _, err := w.Write([]byte{byte(c)}); err != nil {
		return err
	}

	switch c {
	case CompressionNone:
		_, err := io.Copy(w, src)
		return err

	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(zw, src); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()

	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		if _, err := io.Copy(lw, src); err != nil {
			lw.Close()
			return err
		}
		return lw.Close()

	default:
		return fmt.Errorf("unknown compression: %d", c)
	}
}

// Restore materializes the named snapshot from the store as a database file
// at path. It refuses to overwrite an existing file and writes through a
// temp file plus rename, so a failed restore leaves no partial database.
// The restored file is opened like any other with Open.
func Restore(ctx context.Context, store blobstore.Store, name, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("restore target %s: %w", path, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	r, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer r.Close()

	src, err := snapshotReader(r)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := path + ".restore"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

func snapshotReader(r io.Reader) (io.ReadCloser, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, fmt.Errorf("read snapshot codec: %w", err)
	}

	switch Compression(tag[0]) {
	case CompressionNone:
		return io.NopCloser(r), nil

	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil

	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	default:
		return nil, fmt.Errorf("unknown compression: %d", tag[0])
	}
}

// WithCompression sets the backup codec.
func WithCompression(c Compression) func(o *BackupOptions) {
	return func(o *BackupOptions) {
		o.Compression = c
	}
}
