package psi

import (
	"path/filepath"
	"strings"

	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
)

// Framing literals.
const (
	Signature = "psi"
	Trailer   = "@@@@"
)

// Field widths in bytes.
const (
	SignatureLength       = 3
	VersionLength         = 5
	SoftwareVersionLength = 9
	StateLength           = 3
	RouteLength           = 13
	DateLength            = 9
	TimeLength            = 7
	NameLength            = 33
	ReservedLength        = 256
	TrailerLength         = 4
)

const (
	globalBlockLength = VersionLength + SoftwareVersionLength + StateLength + RouteLength +
		4 + 1 + 4 + 8 + 8 + 4 + DateLength + TimeLength
	image2DBlockLength  = 1 + 1 + 4 + 4 + 4 + 4 + 1 + 4 + 4
	image3DBlockLength  = 1 + 1 + 4 + 4 + 4 + 4 + 4 + 1 + 4 + 4 + 1
	trailingBlockLength = 4 + 4 + 4 + 8 + 4*NameLength

	// FixedHeaderLength is the header size following the signature.
	FixedHeaderLength = globalBlockLength + image2DBlockLength + image3DBlockLength +
		trailingBlockLength + ReservedLength

	// HeaderLength is the offset of the first payload byte.
	HeaderLength = SignatureLength + FixedHeaderLength
)

// Descriptor bundles the sniffer, parser and decoder so a format registry
// can take them as one unit.
type Descriptor struct {
	Name       string
	Suffixes   []string
	IsFormat   func(c *cursor.Cursor) bool
	Parse      func(c *cursor.Cursor) (*Record, error)
	NewDecoder func(c *cursor.Cursor, rec *Record) *Decoder
}

// Format describes PSI containers.
var Format = Descriptor{
	Name:       "PSI Pavement Survey",
	Suffixes:   []string{"psi"},
	IsFormat:   IsPSI,
	Parse:      Parse,
	NewDecoder: NewDecoder,
}

// HasSuffix reports whether path carries one of the descriptor's suffixes.
func (d Descriptor) HasSuffix(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, s := range d.Suffixes {
		if ext == s {
			return true
		}
	}
	return false
}
