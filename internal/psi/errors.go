package psi

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below matches its family
// sentinel; a *FormatError additionally matches the rule it broke.
var (
	ErrFraming          = errors.New("psi: bad framing")
	ErrFormat           = errors.New("psi: malformed header")
	ErrRange            = errors.New("psi: region out of range")
	ErrUnsupportedCodec = errors.New("psi: unsupported codec")

	ErrBadVersion     = errors.New("version does not match D.DD")
	ErrUnknownEnum    = errors.New("unrecognized enumerated value")
	ErrBadDimension   = errors.New("non-positive dimension or resolution")
	ErrSizeMismatch   = errors.New("data size inconsistent with width, length and bit depth")
	ErrNoPayload      = errors.New("neither 2D nor 3D payload present")
	ErrLengthMismatch = errors.New("file length inconsistent with declared sections")
)

// FramingError reports a missing or mismatched signature or trailer.
type FramingError struct {
	Part   string // "signature" or "trailer"
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("psi: %s: %s", e.Part, e.Reason)
}

func (e *FramingError) Is(target error) bool { return target == ErrFraming }

// FormatError reports the first header rule a file breaks.
type FormatError struct {
	Field  string // header field that failed validation
	Offset int64  // byte offset of that field
	Rule   error  // one of the rule sentinels
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("psi: %s at offset %d: %v", e.Field, e.Offset, e.Rule)
	}
	return fmt.Sprintf("psi: %s at offset %d: %v (%s)", e.Field, e.Offset, e.Rule, e.Detail)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat || target == e.Rule
}

// Unwrap exposes the rule sentinel.
func (e *FormatError) Unwrap() error { return e.Rule }

// RangeError reports a plane request outside the selected image.
type RangeError struct {
	Image  ImageSelector
	Region Region
	Width  int
	Length int
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("psi: %s region %s outside %dx%d image: %s",
		e.Image, e.Region, e.Width, e.Length, e.Reason)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// UnsupportedCodecError reports a payload with no decode path.
type UnsupportedCodecError struct {
	Image ImageSelector
	Codec string
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("psi: %s payload uses codec %q, only uncompressed payloads can be decoded", e.Image, e.Codec)
}

func (e *UnsupportedCodecError) Is(target error) bool { return target == ErrUnsupportedCodec }
