package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/vektor/metric"
)

// FormatVersion is the current on-disk format version. Readers reject any
// other version outright.
const FormatVersion uint8 = 1

const (
	headerSize = 10 // magic(4) + version(1) + metric(1) + dimension(4)

	// Sanity bounds for decoded lengths. Anything larger means the record
	// stream is corrupt, not that someone stored a billion-dimensional
	// vector.
	maxVectorLen = 1 << 24
	maxStringLen = 1 << 24
)

// magic identifies a database file.
var magic = [4]byte{'V', 'D', 'B', '0'}

// errTruncatedRecord marks a record cut off by a crash mid-append.
// Open recovers from it by truncating; it never escapes the package.
var errTruncatedRecord = errors.New("truncated record")

// Header is the fixed-size file header.
//
// Dimension is 0 until the first stored vector fixes it, then rewritten once
// in place.
type Header struct {
	Version   uint8
	Metric    metric.Kind
	Dimension uint32
}

// NewHeader returns a current-version header for the given metric with the
// dimension still unset.
func NewHeader(kind metric.Kind) Header {
	return Header{Version: FormatVersion, Metric: kind}
}

// Metadata is the caller-supplied payload stored next to a vector.
// Description is optional; nil and empty stay distinct across round-trips.
type Metadata struct {
	Label       string
	Description *string
}

// Entry is one log record.
//
// A tombstone entry marks the id logically deleted; it carries an empty
// vector and zero metadata and is dropped by the next compaction.
type Entry struct {
	ID        uint64
	Vector    []float32
	Metadata  Metadata
	Tombstone bool
}

func putHeader(buf []byte, h Header) {
	copy(buf, magic[:])
	buf[4] = h.Version
	buf[5] = byte(h.Metric)
	binary.LittleEndian.PutUint32(buf[6:], h.Dimension)
}

func encodeHeader(w io.Writer, h Header) error {
	var buf [headerSize]byte
	putHeader(buf[:], h)
	_, err := w.Write(buf[:])
	return err
}

func decodeHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("%w: short header", ErrInvalidFormat)
	}

	if [4]byte(buf[:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}

	h := Header{
		Version:   buf[4],
		Metric:    metric.Kind(buf[5]),
		Dimension: binary.LittleEndian.Uint32(buf[6:]),
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("%w: got version %d, support %d", ErrUnsupportedVersion, h.Version, FormatVersion)
	}

	return h, nil
}

// encodeEntry writes one record:
// id(8) | veclen(4) | vector floats | label(4+n) | hasDesc(1) [| desc(4+n)] | tombstone(1)
func encodeEntry(w io.Writer, e *Entry) error {
	if err := binary.Write(w, binary.LittleEndian, e.ID); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Vector))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Vector); err != nil {
		return err
	}

	if err := writeString(w, e.Metadata.Label); err != nil {
		return err
	}

	hasDesc := byte(0)
	if e.Metadata.Description != nil {
		hasDesc = 1
	}
	if _, err := w.Write([]byte{hasDesc}); err != nil {
		return err
	}
	if hasDesc == 1 {
		if err := writeString(w, *e.Metadata.Description); err != nil {
			return err
		}
	}

	tomb := byte(0)
	if e.Tombstone {
		tomb = 1
	}
	_, err := w.Write([]byte{tomb})
	return err
}

// decodeEntry reads one record. io.EOF at the first byte is the natural end
// of the log; running out of bytes anywhere later is errTruncatedRecord; any
// other failure is ErrInvalidFormat.
func decodeEntry(r io.Reader) (Entry, error) {
	var e Entry

	var idBuf [8]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, errTruncatedRecord
	}
	e.ID = binary.LittleEndian.Uint64(idBuf[:])

	vecLen, err := readUint32(r)
	if err != nil {
		return Entry{}, err
	}
	if vecLen > maxVectorLen {
		return Entry{}, fmt.Errorf("%w: vector length %d", ErrInvalidFormat, vecLen)
	}
	if vecLen > 0 {
		e.Vector = make([]float32, vecLen)
		if err := binary.Read(r, binary.LittleEndian, e.Vector); err != nil {
			return Entry{}, truncatedOr(err)
		}
	}

	if e.Metadata.Label, err = readString(r); err != nil {
		return Entry{}, err
	}

	flags, err := readByte(r)
	if err != nil {
		return Entry{}, err
	}
	switch flags {
	case 0:
	case 1:
		desc, err := readString(r)
		if err != nil {
			return Entry{}, err
		}
		e.Metadata.Description = &desc
	default:
		return Entry{}, fmt.Errorf("%w: bad description flag %d", ErrInvalidFormat, flags)
	}

	tomb, err := readByte(r)
	if err != nil {
		return Entry{}, err
	}
	switch tomb {
	case 0:
	case 1:
		e.Tombstone = true
	default:
		return Entry{}, fmt.Errorf("%w: bad tombstone flag %d", ErrInvalidFormat, tomb)
	}

	return e, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("%w: string length %d", ErrInvalidFormat, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", truncatedOr(err)
	}
	return string(buf), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, truncatedOr(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, truncatedOr(err)
	}
	return buf[0], nil
}

// truncatedOr maps EOF conditions inside a record to errTruncatedRecord and
// passes real I/O errors through.
func truncatedOr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errTruncatedRecord
	}
	return err
}
