// Package cursor provides a seekable, byte-order aware reader over a
// backing stream.
//
// A Cursor knows the total length of its stream up front and refuses any
// read or seek that would cross it, so a truncated file surfaces as a
// deterministic *BoundsError rather than a short read somewhere deeper in a
// decoder. The cursor carries no format knowledge: callers choose the byte
// order and issue typed reads against it.
//
// # Thread Safety
//
// A Cursor is not safe for concurrent use. SeekTo followed by a read is not
// atomic, so callers must serialize access or open one cursor per goroutine.
package cursor
