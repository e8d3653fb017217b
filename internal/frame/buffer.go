// Package frame owns the display column buffer and the glyph blitter.
//
// The buffer holds one byte per physical LED column across the whole
// MAX7219 chain, plus an off-screen guard margin that text scrolls in
// through. Columns are addressed right-to-left to match the scan
// direction of the cascaded modules: the highest index is the leftmost
// physical column and the lowest GuardColumns indices hang off the right
// edge of the chain. Every stored byte is bit-reversed relative to the
// font's native order because that is how the matrix rows are wired.
package frame

import (
	"errors"

	"github.com/example/matrixclock/internal/font"
)

const (
	// ModuleWidth is the column count of one 8x8 module.
	ModuleWidth = 8
	// GuardColumns is the off-screen margin appended after the visible
	// columns.
	GuardColumns = 8
)

// nibbleRev maps a 4-bit value to its bit reversal.
var nibbleRev = [16]byte{
	0x0, 0x8, 0x4, 0xC, 0x2, 0xA, 0x6, 0xE,
	0x1, 0x9, 0x5, 0xD, 0x3, 0xB, 0x7, 0xF,
}

// Reverse returns b with its bit order flipped.
func Reverse(b byte) byte {
	return nibbleRev[b&0x0F]<<4 | nibbleRev[b>>4]
}

// Buffer is one frame of column data for a chain of modules.
type Buffer struct {
	cols    []byte
	modules int
}

// NewBuffer allocates a buffer for the given number of cascaded modules.
func NewBuffer(modules int) (*Buffer, error) {
	if modules <= 0 {
		return nil, errors.New("frame: module count must be positive")
	}
	return &Buffer{
		cols:    make([]byte, modules*ModuleWidth+GuardColumns),
		modules: modules,
	}, nil
}

// Modules returns the cascade length the buffer was sized for.
func (b *Buffer) Modules() int { return b.modules }

// Len returns the total column count including the guard margin.
func (b *Buffer) Len() int { return len(b.cols) }

// Visible returns the number of on-screen columns.
func (b *Buffer) Visible() int { return b.modules * ModuleWidth }

// Columns exposes the raw column bytes. The slice is owned by the buffer;
// callers must not retain it across renders.
func (b *Buffer) Columns() []byte { return b.cols }

// Clear zeroes every column.
func (b *Buffer) Clear() {
	for i := range b.cols {
		b.cols[i] = 0
	}
}

// DrawString blits s starting at the given horizontal offset and returns
// the final cursor position. Offset 0 is the leftmost visible column and
// the cursor advances rightward; text overflowing the right edge runs
// into the guard margin and is then truncated. Unknown runes are skipped.
// Columns that would land outside the buffer are dropped, never wrapped.
func (b *Buffer) DrawString(s string, offset int) int {
	if offset < 0 {
		offset = 0
	}
	cursor := offset
	for _, r := range s {
		g, ok := font.Lookup(r)
		if !ok {
			continue
		}
		for i, col := range g.Columns {
			target := len(b.cols) - (cursor + i + 1)
			if target < 0 {
				// Ran off the left edge; the rest of this glyph
				// (and everything after it) is off-screen.
				break
			}
			b.cols[target] = Reverse(col)
		}
		cursor += g.Width + 1
	}
	return cursor
}

// StringWidth returns the rendered width of s in columns, including the
// single spacing column after each glyph.
func StringWidth(s string) int {
	w := 0
	for _, r := range s {
		g, ok := font.Lookup(r)
		if !ok {
			continue
		}
		w += g.Width + 1
	}
	return w
}

// ErrorPattern fills the buffer with the alternating checker shown until
// a first valid time sample arrives.
func (b *Buffer) ErrorPattern() {
	for i := range b.cols {
		if i%2 == 1 {
			b.cols[i] = 0x55
		} else {
			b.cols[i] = 0xAA
		}
	}
}
