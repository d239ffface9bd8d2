package app

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/tabmux/tabmux/internal/tabs"
)

// sidebarHeaderRows is how many rows the sidebar spends above the
// first tab entry. Kept at 0 so click rows map straight to tab
// ordinals.
const sidebarHeaderRows = 0

// renderSidebar draws the tab list. Each tab gets one row; the new-tab
// button sits on the last row. The right edge carries the border
// separating the sidebar from the viewport.
func renderSidebar(infos []tabs.TabInfo, width, height int, st styles) string {
	if width < 2 || height < 1 {
		return ""
	}
	contentWidth := width - 1 // last column is the border

	lines := make([]string, height)
	for i := range lines {
		row := ""
		switch {
		case i >= sidebarHeaderRows && i-sidebarHeaderRows < len(infos):
			row = renderTabRow(infos[i-sidebarHeaderRows], contentWidth, st)
		case i == height-1:
			row = st.newTab.Render(padToWidth(" [+] new tab", contentWidth))
		default:
			row = st.tab.Render(strings.Repeat(" ", contentWidth))
		}
		lines[i] = row + st.border.Render("│")
	}
	return strings.Join(lines, "\n")
}

func renderTabRow(info tabs.TabInfo, width int, st styles) string {
	marker := " "
	style := st.tab
	if info.Active {
		marker = "▌"
		style = st.tabActive
	} else if info.Activity {
		marker = "●"
		style = st.tabActivity
	}
	label := fmt.Sprintf("%s%d: %s", marker, info.Index, info.Title)
	return style.Render(padToWidth(truncateToWidth(label, width), width))
}

// truncateToWidth cuts a string to a display width, appending an
// ellipsis when something was dropped.
func truncateToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "…")
}

func padToWidth(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
