package psi

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
)

// Decoder extracts planes from a parsed PSI stream. It never re-reads the
// header; everything it needs comes from the Record.
type Decoder struct {
	c   *cursor.Cursor
	rec *Record
}

// NewDecoder returns a decoder for the stream rec was parsed from.
func NewDecoder(c *cursor.Cursor, rec *Record) *Decoder {
	return &Decoder{c: c, rec: rec}
}

// Record returns the header the decoder works from.
func (d *Decoder) Record() *Record { return d.rec }

// ReadPlane returns the samples of region in the selected image.
//
// The result always holds region.Height rows of region.Width samples in
// row-major order whatever the payload's storage order. Samples are copied
// as stored, so 3D samples come back as little-endian 16-bit values.
// Requests for an absent image or a region outside the raster fail with a
// *RangeError; payloads in any codec but uncompressed fail with an
// *UnsupportedCodecError.
func (d *Decoder) ReadPlane(sel ImageSelector, region Region) ([]byte, error) {
	layout, err := d.rec.Layout(sel)
	if err != nil {
		return nil, err
	}
	if !layout.Present() {
		return nil, &RangeError{Image: sel, Region: region, Width: layout.Width, Length: layout.Length,
			Reason: "image has no payload"}
	}
	if region.Empty() {
		return nil, &RangeError{Image: sel, Region: region, Width: layout.Width, Length: layout.Length,
			Reason: "empty region"}
	}
	if !region.Within(layout.Width, layout.Length) {
		return nil, &RangeError{Image: sel, Region: region, Width: layout.Width, Length: layout.Length,
			Reason: "region exceeds image bounds"}
	}
	if !layout.Uncompressed {
		return nil, &UnsupportedCodecError{Image: sel, Codec: layout.Codec}
	}

	d.c.SetOrder(binary.LittleEndian)
	out := make([]byte, region.Width*region.Height*layout.BytesPerSample)
	switch layout.Order {
	case ColumnMajor:
		err = d.readColumns(layout, region, out)
	default:
		err = d.readRows(layout, region, out)
	}
	if err != nil {
		return nil, fmt.Errorf("psi: read %s plane %s: %w", sel, region, err)
	}
	return out, nil
}

// readRows copies a window out of a row-major payload, in one read when the
// window spans full rows.
func (d *Decoder) readRows(l PlaneLayout, r Region, out []byte) error {
	bps := int64(l.BytesPerSample)
	stride := int64(l.Width) * bps
	start := l.Offset + int64(r.Y)*stride + int64(r.X)*bps

	if r.X == 0 && r.Width == l.Width {
		if err := d.c.SeekTo(start); err != nil {
			return err
		}
		return d.c.ReadFull(out)
	}

	span := r.Width * l.BytesPerSample
	for row := 0; row < r.Height; row++ {
		if err := d.c.SeekTo(start + int64(row)*stride); err != nil {
			return err
		}
		if err := d.c.ReadFull(out[row*span : (row+1)*span]); err != nil {
			return err
		}
	}
	return nil
}

// readColumns gathers a window out of a column-major payload and
// transposes it into row-major order.
func (d *Decoder) readColumns(l PlaneLayout, r Region, out []byte) error {
	bps := l.BytesPerSample
	stride := int64(l.Length) * int64(bps)
	start := l.Offset + int64(r.X)*stride + int64(r.Y)*int64(bps)

	col := make([]byte, r.Height*bps)
	for x := 0; x < r.Width; x++ {
		if err := d.c.SeekTo(start + int64(x)*stride); err != nil {
			return err
		}
		if err := d.c.ReadFull(col); err != nil {
			return err
		}
		for y := 0; y < r.Height; y++ {
			dst := (y*r.Width + x) * bps
			copy(out[dst:dst+bps], col[y*bps:(y+1)*bps])
		}
	}
	return nil
}

// File is an opened, parsed PSI file.
type File struct {
	*Decoder
	closer io.Closer
}

// Open checks the framing of the file at path, parses its header and
// returns it ready for decoding. The caller must Close it.
func Open(path string) (*File, error) {
	c, closer, err := cursor.Open(path)
	if err != nil {
		return nil, err
	}
	if err := CheckFraming(c); err != nil {
		closer.Close()
		return nil, err
	}
	rec, err := Parse(c)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return &File{Decoder: NewDecoder(c, rec), closer: closer}, nil
}

// Close releases the underlying file.
func (f *File) Close() error { return f.closer.Close() }
