package vt

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// DefaultScrollback is the number of rows retained above the screen
// when no explicit limit is configured.
const DefaultScrollback = 1000

// Grid is a fixed-size cell matrix with a cursor, a scroll region and
// bounded scrollback. It applies parser actions; it is not safe for
// concurrent use, callers serialize through a single owner.
type Grid struct {
	rows, cols int
	cells      [][]Cell

	curRow, curCol int
	cursorVisible  bool
	wrapNext       bool

	pending style

	scrollTop    int // 0-based inclusive
	scrollBottom int // 0-based inclusive
	originMode   bool

	savedRow, savedCol int
	savedValid         bool

	title string

	scrollback    [][]Cell
	scrollbackMax int
}

// NewGrid returns a rows x cols grid with the default scrollback limit.
func NewGrid(rows, cols int) *Grid {
	return NewGridWithScrollback(rows, cols, DefaultScrollback)
}

// NewGridWithScrollback returns a grid retaining up to max scrolled-off
// rows. max <= 0 disables scrollback.
func NewGridWithScrollback(rows, cols, max int) *Grid {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	g := &Grid{
		rows:          rows,
		cols:          cols,
		cursorVisible: true,
		scrollBottom:  rows - 1,
		scrollbackMax: max,
	}
	g.cells = blankRows(rows, cols)
	return g
}

func blankRows(rows, cols int) [][]Cell {
	m := make([][]Cell, rows)
	for i := range m {
		m[i] = blankRow(cols)
	}
	return m
}

func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = newCell()
	}
	return row
}

// Size returns the grid dimensions.
func (g *Grid) Size() (rows, cols int) { return g.rows, g.cols }

// Cursor returns the 0-based cursor position.
func (g *Grid) Cursor() (row, col int) { return g.curRow, g.curCol }

// CursorVisible reports whether the cursor should be drawn.
func (g *Grid) CursorVisible() bool { return g.cursorVisible }

// Title returns the last OSC 0/2 title applied to this grid.
func (g *Grid) Title() string { return g.title }

// ScrollbackLen returns the number of retained scrolled-off rows.
func (g *Grid) ScrollbackLen() int { return len(g.scrollback) }

// Row returns the cells of a screen row. offset > 0 shifts the view
// into scrollback: offset 1 shows the row that scrolled off most
// recently at the bottom of the window.
func (g *Grid) Row(row, offset int) []Cell {
	if offset < 0 {
		offset = 0
	}
	if offset > len(g.scrollback) {
		offset = len(g.scrollback)
	}
	virtual := row - offset
	if virtual >= 0 {
		if virtual >= g.rows {
			return nil
		}
		return g.cells[virtual]
	}
	idx := len(g.scrollback) + virtual
	if idx < 0 {
		return nil
	}
	return g.scrollback[idx]
}

// Snapshot returns a copy of the visible screen, row major. Mutating
// the copy does not affect the grid.
func (g *Grid) Snapshot() [][]Cell {
	out := make([][]Cell, g.rows)
	for i, row := range g.cells {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// Apply executes a batch of parser actions against the grid.
func (g *Grid) Apply(actions []Action) {
	for _, a := range actions {
		g.apply(a)
	}
}

func (g *Grid) apply(a Action) {
	// Deferred wrap is armed only while printing into the last column;
	// any other cursor-affecting action disarms it.
	switch a.(type) {
	case Print, Bell, SetAttr, SetForeground, SetBackground, ResetStyle,
		ShowCursor, SetTitle, SaveCursor:
	default:
		g.wrapNext = false
	}

	switch v := a.(type) {
	case Print:
		g.print(v.Rune)
	case CarriageReturn:
		g.curCol = 0
	case Linefeed:
		g.linefeed()
	case Backspace:
		if g.curCol > 0 {
			g.curCol--
		}
	case HorizontalTab:
		next := (g.curCol/8 + 1) * 8
		if next > g.cols-1 {
			next = g.cols - 1
		}
		g.curCol = next
	case Bell:
		// Activity signal only; nothing to draw.
	case CursorUp:
		g.curRow -= max1(v.N)
		if g.curRow < g.originTop() {
			g.curRow = g.originTop()
		}
	case CursorDown:
		g.curRow += max1(v.N)
		if g.curRow > g.originBottom() {
			g.curRow = g.originBottom()
		}
	case CursorForward:
		g.curCol = clampInt(g.curCol+max1(v.N), 0, g.cols-1)
	case CursorBack:
		g.curCol = clampInt(g.curCol-max1(v.N), 0, g.cols-1)
	case CursorTo:
		g.moveTo(v.Row-1, v.Col-1)
	case CursorCol:
		g.curCol = clampInt(v.Col-1, 0, g.cols-1)
	case CursorRow:
		g.moveTo(v.Row-1, g.curCol)
	case EraseDisplay:
		g.eraseDisplay(v.Mode)
	case EraseLine:
		g.eraseLine(v.Mode)
	case EraseChars:
		g.eraseChars(max1(v.N))
	case InsertLines:
		g.insertLines(max1(v.N))
	case DeleteLines:
		g.deleteLines(max1(v.N))
	case InsertChars:
		g.insertChars(max1(v.N))
	case DeleteChars:
		g.deleteChars(max1(v.N))
	case ScrollUp:
		for i := 0; i < max1(v.N); i++ {
			g.scrollRegionUp(false)
		}
	case ScrollDown:
		for i := 0; i < max1(v.N); i++ {
			g.scrollRegionDown()
		}
	case SetScrollRegion:
		g.setScrollRegion(v.Top, v.Bottom)
	case SetAttr:
		if v.On {
			g.pending.attrs |= v.Attr
		} else {
			g.pending.attrs &^= v.Attr
		}
	case SetForeground:
		g.pending.fg = v.Color
	case SetBackground:
		g.pending.bg = v.Color
	case ResetStyle:
		g.pending = style{fg: DefaultColor, bg: DefaultColor}
	case SaveCursor:
		g.savedRow, g.savedCol = g.curRow, g.curCol
		g.savedValid = true
	case RestoreCursor:
		if g.savedValid {
			g.curRow = clampInt(g.savedRow, 0, g.rows-1)
			g.curCol = clampInt(g.savedCol, 0, g.cols-1)
		} else {
			g.curRow, g.curCol = 0, 0
		}
	case ShowCursor:
		g.cursorVisible = v.Visible
	case SetOriginMode:
		g.originMode = v.On
		g.curRow, g.curCol = g.originTop(), 0
	case ReverseIndex:
		if g.curRow == g.scrollTop {
			g.scrollRegionDown()
		} else if g.curRow > 0 {
			g.curRow--
		}
	case Reset:
		g.resetAll()
	case SetTitle:
		g.title = v.Title
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (g *Grid) originTop() int {
	if g.originMode {
		return g.scrollTop
	}
	return 0
}

func (g *Grid) originBottom() int {
	if g.originMode {
		return g.scrollBottom
	}
	return g.rows - 1
}

func (g *Grid) moveTo(row, col int) {
	if g.originMode {
		row += g.scrollTop
		g.curRow = clampInt(row, g.scrollTop, g.scrollBottom)
	} else {
		g.curRow = clampInt(row, 0, g.rows-1)
	}
	g.curCol = clampInt(col, 0, g.cols-1)
}

func (g *Grid) print(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		// Combining marks and other zero-width runes are dropped.
		return
	}
	if g.wrapNext || g.curCol+w > g.cols {
		g.curCol = 0
		g.linefeed()
		g.wrapNext = false
	}
	c := Cell{Rune: r, FG: g.pending.fg, BG: g.pending.bg, Attrs: g.pending.attrs}
	if w == 2 {
		c.Attrs |= attrWide
		g.cells[g.curRow][g.curCol] = c
		if g.curCol+1 < g.cols {
			sp := newCell()
			sp.FG, sp.BG = g.pending.fg, g.pending.bg
			sp.Attrs = g.pending.attrs | attrWideSpacer
			g.cells[g.curRow][g.curCol+1] = sp
		}
		g.curCol += 2
	} else {
		g.cells[g.curRow][g.curCol] = c
		g.curCol++
	}
	if g.curCol >= g.cols {
		// Cursor parks on the last column until the next print wraps.
		g.curCol = g.cols - 1
		g.wrapNext = true
	}
}

func (g *Grid) linefeed() {
	if g.curRow == g.scrollBottom {
		g.scrollRegionUp(true)
	} else if g.curRow < g.rows-1 {
		g.curRow++
	}
}

// scrollRegionUp shifts the scroll region up one row. Rows leaving the
// top enter scrollback only when the region spans the full screen and
// the scroll came from a linefeed, matching what terminals retain.
func (g *Grid) scrollRegionUp(retain bool) {
	if retain && g.scrollTop == 0 && g.scrollBottom == g.rows-1 && g.scrollbackMax > 0 {
		g.scrollback = append(g.scrollback, g.cells[0])
		if len(g.scrollback) > g.scrollbackMax {
			g.scrollback = g.scrollback[1:]
		}
	}
	copy(g.cells[g.scrollTop:g.scrollBottom], g.cells[g.scrollTop+1:g.scrollBottom+1])
	g.cells[g.scrollBottom] = blankRow(g.cols)
}

func (g *Grid) scrollRegionDown() {
	copy(g.cells[g.scrollTop+1:g.scrollBottom+1], g.cells[g.scrollTop:g.scrollBottom])
	g.cells[g.scrollTop] = blankRow(g.cols)
}

func (g *Grid) eraseDisplay(mode int) {
	switch mode {
	case 0:
		g.eraseLine(0)
		for r := g.curRow + 1; r < g.rows; r++ {
			g.cells[r] = blankRow(g.cols)
		}
	case 1:
		g.eraseLine(1)
		for r := 0; r < g.curRow; r++ {
			g.cells[r] = blankRow(g.cols)
		}
	case 2, 3:
		g.cells = blankRows(g.rows, g.cols)
		if mode == 3 {
			g.scrollback = nil
		}
	}
}

func (g *Grid) eraseLine(mode int) {
	row := g.cells[g.curRow]
	switch mode {
	case 0:
		for c := g.curCol; c < g.cols; c++ {
			row[c] = newCell()
		}
	case 1:
		for c := 0; c <= g.curCol; c++ {
			row[c] = newCell()
		}
	case 2:
		g.cells[g.curRow] = blankRow(g.cols)
	}
}

func (g *Grid) eraseChars(n int) {
	row := g.cells[g.curRow]
	for c := g.curCol; c < g.curCol+n && c < g.cols; c++ {
		row[c] = newCell()
	}
}

func (g *Grid) insertLines(n int) {
	if g.curRow < g.scrollTop || g.curRow > g.scrollBottom {
		return
	}
	for i := 0; i < n; i++ {
		copy(g.cells[g.curRow+1:g.scrollBottom+1], g.cells[g.curRow:g.scrollBottom])
		g.cells[g.curRow] = blankRow(g.cols)
	}
}

func (g *Grid) deleteLines(n int) {
	if g.curRow < g.scrollTop || g.curRow > g.scrollBottom {
		return
	}
	for i := 0; i < n; i++ {
		copy(g.cells[g.curRow:g.scrollBottom], g.cells[g.curRow+1:g.scrollBottom+1])
		g.cells[g.scrollBottom] = blankRow(g.cols)
	}
}

func (g *Grid) insertChars(n int) {
	row := g.cells[g.curRow]
	if g.curCol+n < g.cols {
		copy(row[g.curCol+n:], row[g.curCol:])
	}
	for c := g.curCol; c < g.curCol+n && c < g.cols; c++ {
		row[c] = newCell()
	}
}

func (g *Grid) deleteChars(n int) {
	row := g.cells[g.curRow]
	from := minInt(g.curCol+n, g.cols)
	copy(row[g.curCol:], row[from:])
	for c := g.cols - (from - g.curCol); c < g.cols; c++ {
		if c >= 0 {
			row[c] = newCell()
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (g *Grid) setScrollRegion(top, bottom int) {
	t := clampInt(top-1, 0, g.rows-1)
	b := g.rows - 1
	if bottom > 0 {
		b = clampInt(bottom-1, 0, g.rows-1)
	}
	if t >= b {
		t, b = 0, g.rows-1
	}
	g.scrollTop, g.scrollBottom = t, b
	g.curRow, g.curCol = g.originTop(), 0
}

func (g *Grid) resetAll() {
	g.cells = blankRows(g.rows, g.cols)
	g.curRow, g.curCol = 0, 0
	g.cursorVisible = true
	g.pending = style{fg: DefaultColor, bg: DefaultColor}
	g.scrollTop, g.scrollBottom = 0, g.rows-1
	g.originMode = false
	g.savedValid = false
}

// Resize changes the grid dimensions. Content in the overlapping
// region is preserved; the cursor and scroll region are clamped, and
// the scroll region resets to full screen.
func (g *Grid) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == g.rows && cols == g.cols {
		return
	}
	fresh := blankRows(rows, cols)
	for r := 0; r < rows && r < g.rows; r++ {
		copy(fresh[r], g.cells[r])
	}
	for i, row := range g.scrollback {
		if len(row) != cols {
			nr := blankRow(cols)
			copy(nr, row)
			g.scrollback[i] = nr
		}
	}
	g.cells = fresh
	g.rows, g.cols = rows, cols
	g.curRow = clampInt(g.curRow, 0, rows-1)
	g.curCol = clampInt(g.curCol, 0, cols-1)
	g.wrapNext = false
	g.scrollTop, g.scrollBottom = 0, rows-1
}

// Line renders a screen row as plain text with trailing blanks trimmed.
// Styling is ignored; wide-cell spacers are skipped.
func (g *Grid) Line(row int) string {
	if row < 0 || row >= g.rows {
		return ""
	}
	var b strings.Builder
	for _, c := range g.cells[row] {
		if c.IsWideSpacer() {
			continue
		}
		b.WriteRune(c.Rune)
	}
	return strings.TrimRight(b.String(), " ")
}

// Text renders the whole screen as newline-joined plain text.
func (g *Grid) Text() string {
	lines := make([]string, g.rows)
	for r := 0; r < g.rows; r++ {
		lines[r] = g.Line(r)
	}
	return strings.Join(lines, "\n")
}
