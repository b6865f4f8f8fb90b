package psi

import (
	"fmt"
	"strings"
)

// ImageSelector picks one of the two rasters in a container.
type ImageSelector int

const (
	Image2D ImageSelector = iota
	Image3D
)

func (s ImageSelector) String() string {
	switch s {
	case Image2D:
		return "2D"
	case Image3D:
		return "3D"
	}
	return fmt.Sprintf("ImageSelector(%d)", int(s))
}

// ParseImageSelector accepts "2d" or "3d" in any case.
func ParseImageSelector(s string) (ImageSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2d":
		return Image2D, nil
	case "3d":
		return Image3D, nil
	}
	return 0, fmt.Errorf("unknown image %q: want \"2d\" or \"3d\"", s)
}

// Image2DInfo describes the 2D intensity payload.
type Image2DInfo struct {
	StorageOrder           StorageOrder `json:"storage_order"`
	Codec                  Codec2D      `json:"codec"`
	LongitudinalResolution float32      `json:"longitudinal_resolution"`
	TransverseResolution   float32      `json:"transverse_resolution"`
	Width                  int32        `json:"width"`
	Length                 int32        `json:"length"`
	BitDepth               BitDepth2D   `json:"bit_depth"`
	DataSize               uint32       `json:"data_size"`
	CompressionQuality     float32      `json:"compression_quality"`
}

// Present reports whether the file carries a 2D payload.
func (i Image2DInfo) Present() bool { return i.DataSize > 0 }

// Image3DInfo describes the 3D range payload.
type Image3DInfo struct {
	StorageOrder           StorageOrder `json:"storage_order"`
	Codec                  Codec3D      `json:"codec"`
	LongitudinalResolution float32      `json:"longitudinal_resolution"`
	TransverseResolution   float32      `json:"transverse_resolution"`
	VerticalResolution     float32      `json:"vertical_resolution"`
	Width                  int32        `json:"width"`
	Length                 int32        `json:"length"`
	BitDepth               BitDepth3D   `json:"bit_depth"`
	DataSize               uint32       `json:"data_size"`
	CompressionQuality     float32      `json:"compression_quality"`
	Registration           Registration `json:"registration"`
}

// Present reports whether the file carries a 3D payload.
func (i Image3DInfo) Present() bool { return i.DataSize > 0 }

// Record is the validated header of one PSI file.
//
// Records are only produced by Parse, which returns either a complete record
// or an error; nothing in this package modifies a record afterwards.
type Record struct {
	Signature       string  `json:"signature"`
	Version         string  `json:"version"`
	VersionSuffix   byte    `json:"version_suffix"`
	SoftwareVersion string  `json:"software_version"`
	State           string  `json:"state"`
	Route           string  `json:"route"`
	Heading         float32 `json:"heading"`
	LaneIndex       uint8   `json:"lane_index"`
	SerialNumber    uint32  `json:"serial_number"`
	Longitude       float64 `json:"longitude"`
	Latitude        float64 `json:"latitude"`
	DMI             float32 `json:"dmi"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`

	Image2D Image2DInfo `json:"image_2d"`
	Image3D Image3DInfo `json:"image_3d"`

	ReferenceRange float32 `json:"reference_range"`
	MetadataSize   uint32  `json:"metadata_size"`
	Speed          float32 `json:"speed"`
	Timestamp      int64   `json:"timestamp"`
	Vehicle        string  `json:"vehicle"`
	Operator       string  `json:"operator"`
	Contractor     string  `json:"contractor"`
	SensorSystem   string  `json:"sensor_system"`

	// Derived while parsing.
	Offset2D   int64 `json:"offset_2d"`
	Offset3D   int64 `json:"offset_3d"`
	FileLength int64 `json:"file_length"`

	table *MetaTable
}

// Table returns a copy of the metadata table filled while parsing. Records
// not produced by Parse have an empty table.
func (r *Record) Table() *MetaTable {
	if r.table == nil {
		return NewMetaTable()
	}
	return r.table.Clone()
}

// MetadataOffset is where the opaque metadata block starts.
func (r *Record) MetadataOffset() int64 {
	return r.Offset3D + int64(r.Image3D.DataSize)
}

// PlaneLayout is the geometry the decoder needs for one image.
type PlaneLayout struct {
	Image                  ImageSelector `json:"-"`
	Width                  int           `json:"width"`
	Length                 int           `json:"length"`
	BytesPerSample         int           `json:"bytes_per_sample"`
	Order                  StorageOrder  `json:"storage_order"`
	Codec                  string        `json:"codec"`
	Uncompressed           bool          `json:"uncompressed"`
	DataSize               int64         `json:"data_size"`
	Offset                 int64         `json:"offset"`
	LongitudinalResolution float64       `json:"longitudinal_resolution"`
	TransverseResolution   float64       `json:"transverse_resolution"`
	VerticalResolution     float64       `json:"vertical_resolution,omitempty"`
}

// Present reports whether the image has a payload.
func (l PlaneLayout) Present() bool { return l.DataSize > 0 }

// Full returns the region covering the whole image.
func (l PlaneLayout) Full() Region {
	return Region{Width: l.Width, Height: l.Length}
}

// Layout returns the plane geometry for the selected image.
func (r *Record) Layout(sel ImageSelector) (PlaneLayout, error) {
	switch sel {
	case Image2D:
		img := r.Image2D
		return PlaneLayout{
			Image:                  Image2D,
			Width:                  int(img.Width),
			Length:                 int(img.Length),
			BytesPerSample:         img.BitDepth.Bytes(),
			Order:                  img.StorageOrder,
			Codec:                  img.Codec.String(),
			Uncompressed:           img.Codec == Codec2DUncompressed,
			DataSize:               int64(img.DataSize),
			Offset:                 r.Offset2D,
			LongitudinalResolution: float64(img.LongitudinalResolution),
			TransverseResolution:   float64(img.TransverseResolution),
		}, nil
	case Image3D:
		img := r.Image3D
		return PlaneLayout{
			Image:                  Image3D,
			Width:                  int(img.Width),
			Length:                 int(img.Length),
			BytesPerSample:         img.BitDepth.Bytes(),
			Order:                  img.StorageOrder,
			Codec:                  img.Codec.String(),
			Uncompressed:           img.Codec == Codec3DUncompressed,
			DataSize:               int64(img.DataSize),
			Offset:                 r.Offset3D,
			LongitudinalResolution: float64(img.LongitudinalResolution),
			TransverseResolution:   float64(img.TransverseResolution),
			VerticalResolution:     float64(img.VerticalResolution),
		}, nil
	}
	return PlaneLayout{}, fmt.Errorf("psi: unknown image selector %d", int(sel))
}

// ExpectedLength is the file length the header declares.
func ExpectedLength(dataSize2D, dataSize3D, metadataSize uint32) int64 {
	return SignatureLength + FixedHeaderLength + int64(dataSize2D) + int64(dataSize3D) +
		int64(metadataSize) + TrailerLength
}

// recordBuilder accumulates validated fields while the parser walks the
// header. build is the only way to obtain the record.
type recordBuilder struct {
	rec   Record
	table *MetaTable
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{table: NewMetaTable()}
}

func (b *recordBuilder) put(key string, value any) {
	b.table.Put(key, value)
}

func (b *recordBuilder) build(fileLength int64) *Record {
	rec := b.rec
	rec.Offset2D = HeaderLength
	rec.Offset3D = rec.Offset2D + int64(rec.Image2D.DataSize)
	rec.FileLength = fileLength
	rec.table = b.table
	b.table.Put("2D payload offset", rec.Offset2D)
	b.table.Put("3D payload offset", rec.Offset3D)
	return &rec
}
