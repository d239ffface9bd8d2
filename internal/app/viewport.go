package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tabmux/tabmux/internal/vt"
)

// renderGrid draws a grid as styled terminal lines. scrollOffset > 0
// shifts the view into scrollback. The cursor is drawn reversed when
// visible and not scrolled away.
func renderGrid(g *vt.Grid, scrollOffset int) string {
	rows, _ := g.Size()
	curRow, curCol := g.Cursor()
	drawCursor := g.CursorVisible() && scrollOffset == 0

	lines := make([]string, rows)
	for r := 0; r < rows; r++ {
		cells := g.Row(r, scrollOffset)
		cursorAt := -1
		if drawCursor && r == curRow {
			cursorAt = curCol
		}
		lines[r] = renderRow(cells, cursorAt)
	}
	return strings.Join(lines, "\n")
}

// renderRow merges runs of equally-styled cells into single lipgloss
// renders to keep the output compact.
func renderRow(cells []vt.Cell, cursorCol int) string {
	var b strings.Builder
	i := 0
	for i < len(cells) {
		start := cells[i]
		onCursor := i == cursorCol
		var run strings.Builder
		j := i
		for j < len(cells) {
			c := cells[j]
			if c.IsWideSpacer() {
				j++
				continue
			}
			if !sameStyle(start, c) || (j == cursorCol) != onCursor {
				break
			}
			run.WriteRune(c.Rune)
			j++
		}
		b.WriteString(cellStyle(start, onCursor).Render(run.String()))
		i = j
	}
	return b.String()
}

func sameStyle(a, b vt.Cell) bool {
	return a.FG == b.FG && a.BG == b.BG && a.Attrs == b.Attrs
}

// cellStyle maps a cell's colors and attributes onto lipgloss.
func cellStyle(c vt.Cell, cursor bool) lipgloss.Style {
	s := lipgloss.NewStyle()
	if fg, ok := lipglossColor(c.FG); ok {
		s = s.Foreground(fg)
	}
	if bg, ok := lipglossColor(c.BG); ok {
		s = s.Background(bg)
	}
	if c.HasAttr(vt.AttrBold) {
		s = s.Bold(true)
	}
	if c.HasAttr(vt.AttrDim) {
		s = s.Faint(true)
	}
	if c.HasAttr(vt.AttrItalic) {
		s = s.Italic(true)
	}
	if c.HasAttr(vt.AttrUnderline) {
		s = s.Underline(true)
	}
	if c.HasAttr(vt.AttrBlink) {
		s = s.Blink(true)
	}
	if c.HasAttr(vt.AttrStrike) {
		s = s.Strikethrough(true)
	}
	if c.HasAttr(vt.AttrReverse) != cursor {
		s = s.Reverse(true)
	}
	if c.HasAttr(vt.AttrHidden) {
		s = s.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("0"))
	}
	return s
}

func lipglossColor(c vt.Color) (lipgloss.Color, bool) {
	switch c.Kind {
	case vt.ColorIndexed:
		return lipgloss.Color(fmt.Sprintf("%d", c.Index)), true
	case vt.ColorRGB:
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), true
	default:
		return "", false
	}
}
