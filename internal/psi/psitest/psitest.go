// Package psitest builds PSI containers in memory for tests.
//
// The encoder writes whatever the File holds, including values Parse
// rejects, so tests can corrupt one field at a time.
package psitest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// File is a container ready to be encoded.
type File struct {
	Record    psi.Record
	Payload2D []byte
	Payload3D []byte
	Metadata  []byte
	// Trailer replaces the closing "@@@@" when non-empty.
	Trailer string
}

// Bytes encodes f. Data sizes and the metadata size are taken from Record,
// not from the payload slices.
func (f *File) Bytes() []byte {
	r := &f.Record
	w := &writer{}

	sig := r.Signature
	if sig == "" {
		sig = psi.Signature
	}
	w.fixed(sig, psi.SignatureLength)
	w.fixed(r.Version, 4)
	w.u8(r.VersionSuffix)
	w.fixed(r.SoftwareVersion, psi.SoftwareVersionLength)
	w.fixed(r.State, psi.StateLength)
	w.fixed(r.Route, psi.RouteLength)
	w.put(r.Heading)
	w.u8(r.LaneIndex)
	w.put(r.SerialNumber)
	w.put(r.Longitude)
	w.put(r.Latitude)
	w.put(r.DMI)
	w.fixed(r.Date, psi.DateLength)
	w.fixed(r.Time, psi.TimeLength)

	i2 := r.Image2D
	w.u8(uint8(i2.StorageOrder))
	w.u8(uint8(i2.Codec))
	w.put(i2.LongitudinalResolution)
	w.put(i2.TransverseResolution)
	w.put(i2.Width)
	w.put(i2.Length)
	w.u8(uint8(i2.BitDepth))
	w.put(i2.DataSize)
	w.put(i2.CompressionQuality)

	i3 := r.Image3D
	w.u8(uint8(i3.StorageOrder))
	w.u8(uint8(i3.Codec))
	w.put(i3.LongitudinalResolution)
	w.put(i3.TransverseResolution)
	w.put(i3.VerticalResolution)
	w.put(i3.Width)
	w.put(i3.Length)
	w.u8(uint8(i3.BitDepth))
	w.put(i3.DataSize)
	w.put(i3.CompressionQuality)
	w.u8(uint8(i3.Registration))

	w.put(r.ReferenceRange)
	w.put(r.MetadataSize)
	w.put(r.Speed)
	w.put(r.Timestamp)
	w.fixed(r.Vehicle, psi.NameLength)
	w.fixed(r.Operator, psi.NameLength)
	w.fixed(r.Contractor, psi.NameLength)
	w.fixed(r.SensorSystem, psi.NameLength)
	w.buf.Write(make([]byte, psi.ReservedLength))

	w.buf.Write(f.Payload2D)
	w.buf.Write(f.Payload3D)
	w.buf.Write(f.Metadata)

	trailer := f.Trailer
	if trailer == "" {
		trailer = psi.Trailer
	}
	w.fixed(trailer, psi.TrailerLength)
	return w.buf.Bytes()
}

type writer struct{ buf bytes.Buffer }

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) put(v any) {
	// Only fixed-size values reach here, so Write cannot fail.
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

// fixed writes s NUL-padded or truncated to n bytes.
func (w *writer) fixed(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf.Write(b)
}

// Valid returns a well-formed file carrying a 6x4 8-bit 2D image and a 5x4
// 16-bit 3D image, both row-major, with filled payloads.
func Valid() *File {
	f := &File{
		Record: psi.Record{
			Version:         "2.10",
			VersionSuffix:   'a',
			SoftwareVersion: "LCMS 4.7",
			State:           "QC",
			Route:           "A-20 EST",
			Heading:         87.5,
			LaneIndex:       2,
			SerialNumber:    40917,
			Longitude:       -71.2082,
			Latitude:        46.8139,
			DMI:             1250.25,
			Date:            "20240612",
			Time:            "134502",
			Image2D: psi.Image2DInfo{
				StorageOrder:           psi.RowMajor,
				Codec:                  psi.Codec2DUncompressed,
				LongitudinalResolution: 1,
				TransverseResolution:   1,
				Width:                  6,
				Length:                 4,
				BitDepth:               psi.BitDepth2D8,
				CompressionQuality:     100,
			},
			Image3D: psi.Image3DInfo{
				StorageOrder:           psi.RowMajor,
				Codec:                  psi.Codec3DUncompressed,
				LongitudinalResolution: 1,
				TransverseResolution:   1,
				VerticalResolution:     0.05,
				Width:                  5,
				Length:                 4,
				BitDepth:               psi.BitDepth3D16,
				CompressionQuality:     100,
				Registration:           psi.Registered,
			},
			ReferenceRange: 250,
			Speed:          72.5,
			Timestamp:      1718199902,
			Vehicle:        "Survey Van 3",
			Operator:       "J. Tremblay",
			Contractor:     "Pavemetrics",
			SensorSystem:   "LCMS-2",
		},
		Metadata: []byte("meta=1"),
	}
	f.Payload2D = Pattern(6*4, 1)
	f.Payload3D = Pattern(5*4*2, 7)
	f.Sync()
	return f
}

// Scenario3DOnly returns a file with no 2D payload and a 10x5 16-bit 3D
// payload of 100 bytes.
func Scenario3DOnly() *File {
	f := Valid()
	f.Record.Version = "1.00"
	f.Record.VersionSuffix = 'x'
	f.Record.Image2D = psi.Image2DInfo{}
	f.Payload2D = nil
	f.Record.Image3D.Width = 10
	f.Record.Image3D.Length = 5
	f.Payload3D = Pattern(100, 3)
	f.Sync()
	return f
}

// Sync sets the declared data and metadata sizes from the slice lengths.
func (f *File) Sync() {
	f.Record.Image2D.DataSize = uint32(len(f.Payload2D))
	f.Record.Image3D.DataSize = uint32(len(f.Payload3D))
	f.Record.MetadataSize = uint32(len(f.Metadata))
}

// Pattern returns n bytes that differ at every offset for a given seed.
func Pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31) + seed
	}
	return b
}

// WriteTemp writes data to a file under tb.TempDir and returns its path.
func WriteTemp(tb testing.TB, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "survey.psi")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}
	return path
}
