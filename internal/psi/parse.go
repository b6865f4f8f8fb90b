package psi

import (
	"encoding/binary"
	"fmt"

	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
)

// Metadata table keys, in header order.
const (
	keySignature       = "Signature"
	keyVersion         = "Version"
	keySoftwareVersion = "Software version"
	keyState           = "State"
	keyRoute           = "Route"
	keyHeading         = "Heading"
	keyLaneIndex       = "Lane index"
	keySerialNumber    = "Serial number"
	keyLongitude       = "GPS longitude"
	keyLatitude        = "GPS latitude"
	keyDMI             = "DMI"
	keyDate            = "Date"
	keyTime            = "Time"
	keyReferenceRange  = "Reference range"
	keyMetadataSize    = "Metadata block size"
	keySpeed           = "Speed"
	keyTimestamp       = "Timestamp"
	keyVehicle         = "Vehicle"
	keyOperator        = "Operator"
	keyContractor      = "Contractor"
	keySensorSystem    = "Sensor system"
)

// Parse reads and validates the header of a PSI stream.
//
// Parsing always starts at offset 0 in little-endian order and walks the
// header once. Each field is checked as soon as everything it depends on
// has been read, so the returned error names the first offending field:
// a *FramingError for a bad signature, a *FormatError for a broken rule,
// or a wrapped *cursor.BoundsError when the stream ends inside the header.
// On success the cursor sits on the first payload byte.
func Parse(c *cursor.Cursor) (*Record, error) {
	c.SetOrder(binary.LittleEndian)
	if err := c.SeekTo(0); err != nil {
		return nil, fmt.Errorf("psi: rewind: %w", err)
	}

	p := &parser{c: c, b: newRecordBuilder()}
	if err := p.readGlobals(); err != nil {
		return nil, err
	}
	if err := p.readImage2D(); err != nil {
		return nil, err
	}
	if err := p.readImage3D(); err != nil {
		return nil, err
	}
	if !p.b.rec.Image2D.Present() && !p.b.rec.Image3D.Present() {
		return nil, &FormatError{Field: "3D data size", Offset: p.dataSize3DAt, Rule: ErrNoPayload}
	}
	if err := p.readTrailer(); err != nil {
		return nil, err
	}

	p.at = c.Offset()
	if err := c.Skip(ReservedLength); err != nil {
		return nil, p.ioErr("reserved block", err)
	}
	return p.b.build(c.Length()), nil
}

type parser struct {
	c  *cursor.Cursor
	b  *recordBuilder
	at int64 // offset of the field being read

	dataSize3DAt int64
}

func (p *parser) ioErr(field string, err error) error {
	return fmt.Errorf("psi: read %s at offset %d: %w", field, p.at, err)
}

func (p *parser) fail(field string, rule error, detail string) error {
	return &FormatError{Field: field, Offset: p.at, Rule: rule, Detail: detail}
}

// read performs one typed read, records the raw value in the metadata
// table and remembers where the field started.
func read[T any](p *parser, field string, fn func() (T, error)) (T, error) {
	p.at = p.c.Offset()
	v, err := fn()
	if err != nil {
		var zero T
		return zero, p.ioErr(field, err)
	}
	p.b.put(field, v)
	return v, nil
}

func (p *parser) str(field string, n int) (string, error) {
	return read(p, field, func() (string, error) { return p.c.ReadString(n) })
}

func (p *parser) readGlobals() error {
	rec := &p.b.rec
	var err error

	p.at = p.c.Offset()
	sig, err := p.c.ReadBytes(SignatureLength)
	if err != nil {
		return p.ioErr("signature", err)
	}
	if string(sig) != Signature {
		return &FramingError{Part: "signature", Reason: fmt.Sprintf("expected %q, found %q", Signature, sig)}
	}
	rec.Signature = string(sig)
	p.b.put(keySignature, rec.Signature)

	p.at = p.c.Offset()
	version, err := p.c.ReadBytes(VersionLength)
	if err != nil {
		return p.ioErr("version", err)
	}
	if !validVersion(version) {
		return p.fail("version", ErrBadVersion, fmt.Sprintf("found %q", version))
	}
	rec.Version = string(version[:4])
	rec.VersionSuffix = version[4]
	p.b.put(keyVersion, rec.Version)

	if rec.SoftwareVersion, err = p.str(keySoftwareVersion, SoftwareVersionLength); err != nil {
		return err
	}
	if rec.State, err = p.str(keyState, StateLength); err != nil {
		return err
	}
	if rec.Route, err = p.str(keyRoute, RouteLength); err != nil {
		return err
	}
	if rec.Heading, err = read(p, keyHeading, p.c.ReadFloat32); err != nil {
		return err
	}
	if rec.LaneIndex, err = read(p, keyLaneIndex, p.c.ReadUint8); err != nil {
		return err
	}
	if rec.SerialNumber, err = read(p, keySerialNumber, p.c.ReadUint32); err != nil {
		return err
	}
	if rec.Longitude, err = read(p, keyLongitude, p.c.ReadFloat64); err != nil {
		return err
	}
	if rec.Latitude, err = read(p, keyLatitude, p.c.ReadFloat64); err != nil {
		return err
	}
	if rec.DMI, err = read(p, keyDMI, p.c.ReadFloat32); err != nil {
		return err
	}
	if rec.Date, err = p.str(keyDate, DateLength); err != nil {
		return err
	}
	if rec.Time, err = p.str(keyTime, TimeLength); err != nil {
		return err
	}
	return nil
}

// validVersion matches a digit, a period and two digits; the fifth byte is
// free.
func validVersion(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return isDigit(b[0]) && b[1] == '.' && isDigit(b[2]) && isDigit(b[3])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// payload carries what checkPayload needs about one image block.
type payload struct {
	prefix       string
	present      bool
	width        int32
	length       int32
	resL, resT   float32
	bytesPerPx   int
	uncompressed bool
	dataSize     uint32

	widthAt, lengthAt, resLAt, resTAt int64
}

// checkPayload applies the dimension and size rules once the data size is
// known.
func (p *parser) checkPayload(pl payload) error {
	if pl.present {
		dims := []struct {
			name string
			ok   bool
			at   int64
			val  any
		}{
			{"longitudinal resolution", pl.resL > 0, pl.resLAt, pl.resL},
			{"transverse resolution", pl.resT > 0, pl.resTAt, pl.resT},
			{"width", pl.width > 0, pl.widthAt, pl.width},
			{"length", pl.length > 0, pl.lengthAt, pl.length},
		}
		for _, d := range dims {
			if !d.ok {
				return &FormatError{
					Field:  pl.prefix + " " + d.name,
					Offset: d.at,
					Rule:   ErrBadDimension,
					Detail: fmt.Sprintf("%v with data size %d", d.val, pl.dataSize),
				}
			}
		}
	}
	if pl.uncompressed {
		want := int64(pl.bytesPerPx) * int64(pl.width) * int64(pl.length)
		if want != int64(pl.dataSize) {
			return p.fail(pl.prefix+" data size", ErrSizeMismatch,
				fmt.Sprintf("declared %d, %d bytes x %d x %d = %d",
					pl.dataSize, pl.bytesPerPx, pl.width, pl.length, want))
		}
	}
	return nil
}

func (p *parser) readImage2D() error {
	img := &p.b.rec.Image2D
	pl := payload{prefix: "2D"}

	order, err := read(p, "2D pixel storage order", p.c.ReadUint8)
	if err != nil {
		return err
	}
	var ok bool
	if img.StorageOrder, ok = parseStorageOrder(order); !ok {
		return p.fail("2D pixel storage order", ErrUnknownEnum, fmt.Sprintf("value %d", order))
	}
	p.b.put("2D pixel storage order", img.StorageOrder.String())

	codec, err := read(p, "2D codec", p.c.ReadUint8)
	if err != nil {
		return err
	}
	if img.Codec, ok = parseCodec2D(codec); !ok {
		return p.fail("2D codec", ErrUnknownEnum, fmt.Sprintf("value %d", codec))
	}
	p.b.put("2D codec", img.Codec.String())

	if img.LongitudinalResolution, err = read(p, "2D longitudinal resolution", p.c.ReadFloat32); err != nil {
		return err
	}
	pl.resLAt = p.at
	if img.TransverseResolution, err = read(p, "2D transverse resolution", p.c.ReadFloat32); err != nil {
		return err
	}
	pl.resTAt = p.at
	if img.Width, err = read(p, "2D width", p.c.ReadInt32); err != nil {
		return err
	}
	pl.widthAt = p.at
	if img.Length, err = read(p, "2D length", p.c.ReadInt32); err != nil {
		return err
	}
	pl.lengthAt = p.at

	depth, err := read(p, "2D bit depth", p.c.ReadUint8)
	if err != nil {
		return err
	}
	depthAt := p.at

	if img.DataSize, err = read(p, "2D data size", p.c.ReadUint32); err != nil {
		return err
	}
	if img.BitDepth, ok = parseBitDepth2D(depth, img.Present()); !ok {
		return &FormatError{Field: "2D bit depth", Offset: depthAt, Rule: ErrUnknownEnum,
			Detail: fmt.Sprintf("value %d with data size %d", depth, img.DataSize)}
	}

	pl.present = img.Present()
	pl.width, pl.length = img.Width, img.Length
	pl.resL, pl.resT = img.LongitudinalResolution, img.TransverseResolution
	pl.bytesPerPx = img.BitDepth.Bytes()
	pl.uncompressed = img.Codec == Codec2DUncompressed
	pl.dataSize = img.DataSize
	if err := p.checkPayload(pl); err != nil {
		return err
	}

	if img.CompressionQuality, err = read(p, "2D compression quality", p.c.ReadFloat32); err != nil {
		return err
	}
	return nil
}

func (p *parser) readImage3D() error {
	img := &p.b.rec.Image3D
	pl := payload{prefix: "3D"}

	order, err := read(p, "3D pixel storage order", p.c.ReadUint8)
	if err != nil {
		return err
	}
	var ok bool
	if img.StorageOrder, ok = parseStorageOrder(order); !ok {
		return p.fail("3D pixel storage order", ErrUnknownEnum, fmt.Sprintf("value %d", order))
	}
	p.b.put("3D pixel storage order", img.StorageOrder.String())

	codec, err := read(p, "3D codec", p.c.ReadUint8)
	if err != nil {
		return err
	}
	if img.Codec, ok = parseCodec3D(codec); !ok {
		return p.fail("3D codec", ErrUnknownEnum, fmt.Sprintf("value %d", codec))
	}
	p.b.put("3D codec", img.Codec.String())

	if img.LongitudinalResolution, err = read(p, "3D longitudinal resolution", p.c.ReadFloat32); err != nil {
		return err
	}
	pl.resLAt = p.at
	if img.TransverseResolution, err = read(p, "3D transverse resolution", p.c.ReadFloat32); err != nil {
		return err
	}
	pl.resTAt = p.at
	if img.VerticalResolution, err = read(p, "3D vertical resolution", p.c.ReadFloat32); err != nil {
		return err
	}
	if img.Width, err = read(p, "3D width", p.c.ReadInt32); err != nil {
		return err
	}
	pl.widthAt = p.at
	if img.Length, err = read(p, "3D length", p.c.ReadInt32); err != nil {
		return err
	}
	pl.lengthAt = p.at

	depth, err := read(p, "3D bit depth", p.c.ReadUint8)
	if err != nil {
		return err
	}
	depthAt := p.at

	if img.DataSize, err = read(p, "3D data size", p.c.ReadUint32); err != nil {
		return err
	}
	p.dataSize3DAt = p.at
	if img.BitDepth, ok = parseBitDepth3D(depth, img.Present()); !ok {
		return &FormatError{Field: "3D bit depth", Offset: depthAt, Rule: ErrUnknownEnum,
			Detail: fmt.Sprintf("value %d with data size %d", depth, img.DataSize)}
	}

	pl.present = img.Present()
	pl.width, pl.length = img.Width, img.Length
	pl.resL, pl.resT = img.LongitudinalResolution, img.TransverseResolution
	pl.bytesPerPx = img.BitDepth.Bytes()
	pl.uncompressed = img.Codec == Codec3DUncompressed
	pl.dataSize = img.DataSize
	if err := p.checkPayload(pl); err != nil {
		return err
	}

	if img.CompressionQuality, err = read(p, "3D compression quality", p.c.ReadFloat32); err != nil {
		return err
	}

	reg, err := read(p, "3D registration", p.c.ReadUint8)
	if err != nil {
		return err
	}
	if img.Registration, ok = parseRegistration(reg); !ok {
		return p.fail("3D registration", ErrUnknownEnum, fmt.Sprintf("value %d", reg))
	}
	p.b.put("3D registration", img.Registration.String())
	return nil
}

func (p *parser) readTrailer() error {
	rec := &p.b.rec
	var err error

	if rec.ReferenceRange, err = read(p, keyReferenceRange, p.c.ReadFloat32); err != nil {
		return err
	}
	if rec.MetadataSize, err = read(p, keyMetadataSize, p.c.ReadUint32); err != nil {
		return err
	}
	want := ExpectedLength(rec.Image2D.DataSize, rec.Image3D.DataSize, rec.MetadataSize)
	if got := p.c.Length(); got != want {
		return p.fail("metadata block size", ErrLengthMismatch,
			fmt.Sprintf("file is %d bytes, header declares %d", got, want))
	}

	if rec.Speed, err = read(p, keySpeed, p.c.ReadFloat32); err != nil {
		return err
	}
	if rec.Timestamp, err = read(p, keyTimestamp, p.c.ReadInt64); err != nil {
		return err
	}
	if rec.Vehicle, err = p.str(keyVehicle, NameLength); err != nil {
		return err
	}
	if rec.Operator, err = p.str(keyOperator, NameLength); err != nil {
		return err
	}
	if rec.Contractor, err = p.str(keyContractor, NameLength); err != nil {
		return err
	}
	if rec.SensorSystem, err = p.str(keySensorSystem, NameLength); err != nil {
		return err
	}
	return nil
}
