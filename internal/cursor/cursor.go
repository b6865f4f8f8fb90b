package cursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrOutOfBounds is matched by every *BoundsError.
var ErrOutOfBounds = errors.New("cursor: access beyond end of stream")

// BoundsError reports a read or seek that would cross the stream length.
type BoundsError struct {
	Op     string // "read" or "seek"
	Offset int64  // offset the operation started from (or targeted, for seek)
	Count  int64  // bytes requested; zero for seek
	Length int64  // total stream length
}

func (e *BoundsError) Error() string {
	if e.Op == "seek" {
		return fmt.Sprintf("cursor: seek to %d outside stream of %d bytes", e.Offset, e.Length)
	}
	return fmt.Sprintf("cursor: %s of %d bytes at offset %d exceeds stream of %d bytes",
		e.Op, e.Count, e.Offset, e.Length)
}

// Is lets errors.Is(err, ErrOutOfBounds) match.
func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// Cursor is a positioned reader with typed, byte-order aware reads.
type Cursor struct {
	r      io.ReadSeeker
	length int64
	offset int64
	order  binary.ByteOrder
	buf    [8]byte
}

// New wraps r. The stream length is measured once by seeking to the end;
// the cursor then starts at offset 0 in little-endian order.
func New(r io.ReadSeeker) (*Cursor, error) {
	length, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("cursor: measure stream length: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("cursor: rewind stream: %w", err)
	}
	return &Cursor{r: r, length: length, order: binary.LittleEndian}, nil
}

// FromBytes returns a cursor over an in-memory buffer.
func FromBytes(b []byte) *Cursor {
	return &Cursor{r: bytes.NewReader(b), length: int64(len(b)), order: binary.LittleEndian}
}

// Open opens the file at path and returns a cursor over it together with
// the file, which the caller must close.
func Open(path string) (*Cursor, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	c, err := New(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return c, f, nil
}

// Length returns the total stream length in bytes.
func (c *Cursor) Length() int64 { return c.length }

// Offset returns the current absolute position.
func (c *Cursor) Offset() int64 { return c.offset }

// Remaining returns the number of bytes between the current offset and the end.
func (c *Cursor) Remaining() int64 { return c.length - c.offset }

// Order returns the byte order used by multi-byte reads.
func (c *Cursor) Order() binary.ByteOrder { return c.order }

// SetOrder changes the byte order used by subsequent multi-byte reads.
func (c *Cursor) SetOrder(order binary.ByteOrder) { c.order = order }

// SeekTo moves to an absolute offset. Seeking exactly to Length is allowed.
func (c *Cursor) SeekTo(offset int64) error {
	if offset < 0 || offset > c.length {
		return &BoundsError{Op: "seek", Offset: offset, Length: c.length}
	}
	if _, err := c.r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("cursor: seek to %d: %w", offset, err)
	}
	c.offset = offset
	return nil
}

// Skip advances the offset by n bytes without reading them.
func (c *Cursor) Skip(n int64) error {
	if n < 0 || n > c.Remaining() {
		return &BoundsError{Op: "skip", Offset: c.offset, Count: n, Length: c.length}
	}
	return c.SeekTo(c.offset + n)
}

// ReadFull fills p from the current offset.
func (c *Cursor) ReadFull(p []byte) error {
	n := int64(len(p))
	if n > c.Remaining() {
		return &BoundsError{Op: "read", Offset: c.offset, Count: n, Length: c.length}
	}
	read, err := io.ReadFull(c.r, p)
	c.offset += int64(read)
	if err != nil {
		return fmt.Errorf("cursor: read %d bytes at offset %d: %w", n, c.offset-int64(read), err)
	}
	return nil
}

// ReadBytes reads exactly n bytes into a new slice.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("cursor: negative read length %d", n)
	}
	p := make([]byte, n)
	if err := c.ReadFull(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadString reads a fixed-width field of n bytes. The field is not assumed
// to be null terminated; trailing NUL padding is trimmed from the result.
func (c *Cursor) ReadString(n int) (string, error) {
	p, err := c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(p, "\x00")), nil
}

func (c *Cursor) fill(n int) ([]byte, error) {
	if err := c.ReadFull(c.buf[:n]); err != nil {
		return nil, err
	}
	return c.buf[:n], nil
}

// ReadUint8 reads one unsigned byte.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt8 reads one signed byte.
func (c *Cursor) ReadInt8() (int8, error) {
	v, err := c.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads a 2-byte unsigned integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.fill(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// ReadInt16 reads a 2-byte signed integer.
func (c *Cursor) ReadInt16() (int16, error) {
	v, err := c.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads a 4-byte unsigned integer.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.fill(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

// ReadInt32 reads a 4-byte signed integer.
func (c *Cursor) ReadInt32() (int32, error) {
	v, err := c.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads an 8-byte unsigned integer.
func (c *Cursor) ReadUint64() (uint64, error) {
	b, err := c.fill(8)
	if err != nil {
		return 0, err
	}
	return c.order.Uint64(b), nil
}

// ReadInt64 reads an 8-byte signed integer.
func (c *Cursor) ReadInt64() (int64, error) {
	v, err := c.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single-precision value.
func (c *Cursor) ReadFloat32() (float32, error) {
	v, err := c.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double-precision value.
func (c *Cursor) ReadFloat64() (float64, error) {
	v, err := c.ReadUint64()
	return math.Float64frombits(v), err
}
