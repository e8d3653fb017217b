// Package font holds the compiled-in bitmap font for the matrix display.
//
// Glyphs are stored in native column order: one byte per column, bit 0 is
// the top row. The display driver wants the opposite bit order; reversal
// happens at blit time, not here.
package font

// Height is the pixel height of every glyph. Bit 7 is left unused so a
// one-pixel baseline gap separates stacked text from the module edge.
const Height = 7

// Glyph is a single character's column bitmap.
type Glyph struct {
	Width   int
	Columns []byte
}

// 3x7 digit face, narrow enough that HH:MM:SS fits a 4-module chain.
var table = map[rune]Glyph{
	' ': {Width: 2, Columns: []byte{0x00, 0x00}},
	'-': {Width: 3, Columns: []byte{0x08, 0x08, 0x08}},
	':': {Width: 1, Columns: []byte{0x14}},
	'0': {Width: 3, Columns: []byte{0x7F, 0x41, 0x7F}},
	'1': {Width: 3, Columns: []byte{0x42, 0x7F, 0x40}},
	'2': {Width: 3, Columns: []byte{0x79, 0x49, 0x4F}},
	'3': {Width: 3, Columns: []byte{0x49, 0x49, 0x7F}},
	'4': {Width: 3, Columns: []byte{0x0F, 0x08, 0x7F}},
	'5': {Width: 3, Columns: []byte{0x4F, 0x49, 0x79}},
	'6': {Width: 3, Columns: []byte{0x7F, 0x49, 0x79}},
	'7': {Width: 3, Columns: []byte{0x01, 0x01, 0x7F}},
	'8': {Width: 3, Columns: []byte{0x7F, 0x49, 0x7F}},
	'9': {Width: 3, Columns: []byte{0x4F, 0x49, 0x7F}},
}

// Lookup returns the glyph for r. Unknown runes report ok=false; callers
// skip them instead of indexing the table raw.
func Lookup(r rune) (Glyph, bool) {
	g, ok := table[r]
	return g, ok
}
