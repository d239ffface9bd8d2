package input

// TabIndexAtRow maps a click row (0-based, relative to the sidebar
// top) to a 0-based tab index. headerRows is how many rows the sidebar
// spends above the first tab entry.
func TabIndexAtRow(row, numTabs, headerRows int) (int, bool) {
	idx := row - headerRows
	if idx < 0 || idx >= numTabs {
		return 0, false
	}
	return idx, true
}

// NewTabButtonAtRow reports whether a click row hits the new-tab
// button, which sits on the sidebar's last row.
func NewTabButtonAtRow(row, sidebarHeight int) bool {
	return sidebarHeight > 0 && row == sidebarHeight-1
}
