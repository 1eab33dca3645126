// Package storage provides the durable append-only log backing a database.
//
// A database is a single binary file: a fixed-size header (magic, format
// version, metric, dimension) followed by a stream of self-delimiting entry
// records. Records carry no framing index; a reader streams them until
// end-of-file. The unit of durability is one whole record: every append is
// flushed and fsynced before returning, and a torn record left by a crash is
// truncated back to the last record boundary on the next open.
//
// The log is metric- and index-agnostic; it stores entries, it does not
// interpret them.
package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrInvalidFormat is returned when the file magic is wrong or the
	// record stream is corrupt. The database cannot be used.
	ErrInvalidFormat = errors.New("invalid log format")

	// ErrUnsupportedVersion is returned when the on-disk format version is
	// unknown. There is no partial forward compatibility.
	ErrUnsupportedVersion = errors.New("unsupported log format version")
)

// Log is a handle to the database file. It keeps no open file descriptor;
// every operation opens, acts and closes, so a Log is cheap to hold for the
// lifetime of a database.
//
// The file is the single shared mutable resource. Header rewrites and
// compactions assume exclusive access; concurrent writers corrupt the file,
// which is a documented limitation, not something the log guards against.
type Log struct {
	path string
}

// Path returns the path of the underlying file.
func (l *Log) Path() string { return l.path }

// Create writes a fresh log at path with a zero-dimension header.
// It fails if the path already exists; the caller decides open-vs-create.
func Create(path string, h Header) (*Log, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := encodeHeader(w, h); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return &Log{path: path}, nil
}

// Open reads the header and every entry record in order.
//
// A clean end-of-file at a record boundary is the natural end of the log. A
// torn tail (a crash mid-append) is truncated back to the last whole record.
// Any other decode failure is fatal and surfaced as ErrInvalidFormat.
func Open(path string) (*Log, Header, []Entry, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, Header{}, nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	cr := &countingReader{r: bufio.NewReader(f)}

	h, err := decodeHeader(cr)
	if err != nil {
		return nil, Header{}, nil, err
	}

	var entries []Entry
	goodEnd := cr.n

	for {
		e, err := decodeEntry(cr)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, errTruncatedRecord) {
				// Crash mid-append left a partial record; drop it so the
				// next append lands on a record boundary.
				if err := f.Truncate(goodEnd); err != nil {
					return nil, Header{}, nil, fmt.Errorf("truncate torn tail: %w", err)
				}
				break
			}
			return nil, Header{}, nil, err
		}
		entries = append(entries, e)
		goodEnd = cr.n
	}

	return &Log{path: path}, h, entries, nil
}

// AppendEntry writes exactly one record and flushes it to disk before
// returning.
func (l *Log) AppendEntry(e *Entry) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("append to log: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := encodeEntry(w, e); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// UpdateHeader rewrites the fixed-size header in place. Used once, when the
// first inserted vector fixes the database dimension.
func (l *Log) UpdateHeader(h Header) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open log for header rewrite: %w", err)
	}

	var buf [headerSize]byte
	putHeader(buf[:], h)
	if _, err := f.WriteAt(buf[:], 0); err != nil {
		_ = f.Close()
		return fmt.Errorf("rewrite header: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Compact rewrites the whole file from scratch with the given header and
// entry set. Tombstoned history is gone afterwards; this is the only way
// storage is reclaimed. The rewrite goes through a temp file and a rename so
// a crash never leaves a half-written log behind.
func (l *Log) Compact(h Header, entries []Entry) error {
	tmp := l.path + ".compact"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create compaction file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := encodeHeader(w, h); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write header: %w", err)
	}
	for i := range entries {
		if err := encodeEntry(w, &entries[i]); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("encode entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace log: %w", err)
	}
	return nil
}

// countingReader tracks how many bytes the decoder has consumed so Open can
// truncate a torn tail exactly at the last record boundary.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
