package vt

// Attr is a bitmask of cell rendering attributes.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrHidden
	AttrStrike
	// attrWide marks the first cell of a character that occupies two columns.
	attrWide
	// attrWideSpacer marks the second cell of a wide character; renderers skip it.
	attrWideSpacer
)

// ColorKind discriminates the three color forms a cell can carry.
type ColorKind uint8

const (
	// ColorDefault is the terminal's default foreground or background.
	ColorDefault ColorKind = iota
	// ColorIndexed is a palette color (0-255).
	ColorIndexed
	// ColorRGB is a 24-bit truecolor value.
	ColorRGB
)

// Color is a terminal color in default, indexed, or RGB form.
type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

// DefaultColor is the zero Color: the terminal default for its layer.
var DefaultColor = Color{}

// IndexedColor returns a palette color (0-255).
func IndexedColor(i uint8) Color {
	return Color{Kind: ColorIndexed, Index: i}
}

// RGBColor returns a 24-bit truecolor value.
func RGBColor(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

// Cell is one grid position: a rune plus its colors and attributes.
// Wide characters use a spacer cell in the second column.
type Cell struct {
	Rune  rune
	FG    Color
	BG    Color
	Attrs Attr
}

// newCell returns a blank cell: space with default colors.
func newCell() Cell {
	return Cell{Rune: ' '}
}

// IsWide reports whether this cell starts a two-column character.
func (c Cell) IsWide() bool {
	return c.Attrs&attrWide != 0
}

// IsWideSpacer reports whether this is the second cell of a wide character.
func (c Cell) IsWideSpacer() bool {
	return c.Attrs&attrWideSpacer != 0
}

// HasAttr reports whether the given attribute bit is set.
func (c Cell) HasAttr(a Attr) bool {
	return c.Attrs&a != 0
}

// style is the pending attribute state applied to newly printed cells.
type style struct {
	fg    Color
	bg    Color
	attrs Attr
}
