package psi

import (
	"bytes"
	"fmt"

	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
)

// IsPSI reports whether the stream is framed as a PSI container. It only
// checks the signature and trailer; a file that passes can still fail Parse.
// The cursor's offset is restored before returning.
func IsPSI(c *cursor.Cursor) bool {
	return CheckFraming(c) == nil
}

// CheckFraming is IsPSI with the reason for a rejection. It returns a
// *FramingError for a short or mismatched signature or trailer, and restores
// the cursor's offset on every path.
func CheckFraming(c *cursor.Cursor) (err error) {
	start := c.Offset()
	defer func() {
		if serr := c.SeekTo(start); serr != nil && err == nil {
			err = serr
		}
	}()

	if err := checkLiteral(c, "signature", 0, SignatureLength, Signature); err != nil {
		return err
	}
	return checkLiteral(c, "trailer", c.Length()-TrailerLength, TrailerLength, Trailer)
}

// checkLiteral requires the n bytes at offset to begin with want.
func checkLiteral(c *cursor.Cursor, part string, offset int64, n int, want string) error {
	if c.Length() < int64(n) {
		return &FramingError{Part: part, Reason: "stream too short"}
	}
	if err := c.SeekTo(offset); err != nil {
		return &FramingError{Part: part, Reason: err.Error()}
	}
	got, err := c.ReadBytes(n)
	if err != nil {
		return &FramingError{Part: part, Reason: err.Error()}
	}
	if !bytes.HasPrefix(got, []byte(want)) {
		return &FramingError{Part: part, Reason: fmt.Sprintf("expected %q, found %q", want, got)}
	}
	return nil
}
