package psi

import "fmt"

// StorageOrder is the pixel storage order of a payload.
type StorageOrder uint8

const (
	RowMajor    StorageOrder = 0
	ColumnMajor StorageOrder = 1
)

func parseStorageOrder(v uint8) (StorageOrder, bool) {
	switch o := StorageOrder(v); o {
	case RowMajor, ColumnMajor:
		return o, true
	}
	return 0, false
}

func (o StorageOrder) String() string {
	switch o {
	case RowMajor:
		return "row-major"
	case ColumnMajor:
		return "column-major"
	}
	return fmt.Sprintf("StorageOrder(%d)", uint8(o))
}

// MarshalText renders the order by name.
func (o StorageOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Codec2D identifies how the 2D payload is encoded.
type Codec2D uint8

const (
	Codec2DUncompressed Codec2D = 0
	Codec2DJPEG         Codec2D = 1
)

func parseCodec2D(v uint8) (Codec2D, bool) {
	switch c := Codec2D(v); c {
	case Codec2DUncompressed, Codec2DJPEG:
		return c, true
	}
	return 0, false
}

func (c Codec2D) String() string {
	switch c {
	case Codec2DUncompressed:
		return "uncompressed"
	case Codec2DJPEG:
		return "jpeg"
	}
	return fmt.Sprintf("Codec2D(%d)", uint8(c))
}

// MarshalText renders the codec by name.
func (c Codec2D) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Codec3D identifies how the 3D payload is encoded.
type Codec3D uint8

const (
	Codec3DUncompressed Codec3D = 0
	Codec3DLossless     Codec3D = 1
)

func parseCodec3D(v uint8) (Codec3D, bool) {
	switch c := Codec3D(v); c {
	case Codec3DUncompressed, Codec3DLossless:
		return c, true
	}
	return 0, false
}

func (c Codec3D) String() string {
	switch c {
	case Codec3DUncompressed:
		return "uncompressed"
	case Codec3DLossless:
		return "lossless"
	}
	return fmt.Sprintf("Codec3D(%d)", uint8(c))
}

// MarshalText renders the codec by name.
func (c Codec3D) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// BitDepth2D is the sample depth of the 2D payload in bits. The zero value
// only appears on an absent image.
type BitDepth2D uint8

const BitDepth2D8 BitDepth2D = 8

// parseBitDepth2D accepts zero only when the image carries no payload.
func parseBitDepth2D(v uint8, present bool) (BitDepth2D, bool) {
	switch d := BitDepth2D(v); d {
	case BitDepth2D8:
		return d, true
	case 0:
		return 0, !present
	}
	return 0, false
}

// Bytes returns the sample width in bytes.
func (d BitDepth2D) Bytes() int { return int(d) / 8 }

// BitDepth3D is the sample depth of the 3D payload in bits. The zero value
// only appears on an absent image.
type BitDepth3D uint8

const BitDepth3D16 BitDepth3D = 16

func parseBitDepth3D(v uint8, present bool) (BitDepth3D, bool) {
	switch d := BitDepth3D(v); d {
	case BitDepth3D16:
		return d, true
	case 0:
		return 0, !present
	}
	return 0, false
}

// Bytes returns the sample width in bytes.
func (d BitDepth3D) Bytes() int { return int(d) / 8 }

// Registration reports whether the 3D raster is registered to the 2D one.
type Registration uint8

const (
	Unregistered Registration = 0
	Registered   Registration = 1
)

func parseRegistration(v uint8) (Registration, bool) {
	switch r := Registration(v); r {
	case Unregistered, Registered:
		return r, true
	}
	return 0, false
}

func (r Registration) String() string {
	switch r {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	}
	return fmt.Sprintf("Registration(%d)", uint8(r))
}

// MarshalText renders the flag by name.
func (r Registration) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
