// Package psi decodes PSI pavement survey containers.
//
// A PSI file pairs a 2D intensity raster with a 3D range raster captured by
// the same sensor pass, plus scalar metadata about the run (GPS position,
// DMI reading, route, vehicle and operator). The package has four parts,
// used in this order:
//
//   - Sniffing: IsPSI / CheckFraming look for the "psi" signature at the
//     start of the stream and the "@@@@" trailer at its end.
//   - Parsing: Parse reads the fixed-layout header in one forward pass and
//     returns a validated *Record, or the first rule the header breaks.
//   - Layout: a Record knows where each payload starts (Offset2D, Offset3D)
//     and how it is laid out (Record.Layout).
//   - Decoding: a Decoder extracts rectangular planes from an uncompressed
//     payload without re-parsing the header.
//
// # File Layout
//
// All integers are little-endian and all strings are fixed-width byte
// fields that are not null terminated:
//
//	signature (3) | fixed header (542) | 2D payload | 3D payload |
//	metadata block | trailer (4)
//
// The total file length must equal the sum of those sections exactly; that
// single equation is what ties the header's claims to the bytes on disk.
//
// # Errors
//
// Every failure is typed: *FramingError, *FormatError, *RangeError and
// *UnsupportedCodecError, plus the cursor's *BoundsError for reads past the
// end of the stream. Use errors.Is with the Err* sentinels to test for a
// specific rule.
//
// # Thread Safety
//
// Records are plain values and safe to share once parsed. A Decoder owns a
// cursor and must not be used from two goroutines at once; open one per
// goroutine instead.
package psi
