// Package tabs maps multiplexer windows onto ordered tabs, each owning
// the terminal state for its window's active pane.
package tabs

import (
	"strings"

	"github.com/tabmux/tabmux/internal/vt"
)

// Tab is one window surfaced as a tab. It owns a grid and a parser for
// the lifetime of the window; output bytes for its pane flow through
// the parser into the grid.
type Tab struct {
	WindowID string
	PaneID   string
	Title    string
	Activity bool

	grid   *vt.Grid
	parser *vt.Parser
}

// Grid exposes the tab's terminal state for rendering.
func (t *Tab) Grid() *vt.Grid { return t.grid }

// ParserRecoveries reports how many malformed escape sequences the
// tab's parser has recovered from.
func (t *Tab) ParserRecoveries() int { return t.parser.Recoveries }

// TabInfo is the sidebar's view of a tab.
type TabInfo struct {
	WindowID string
	Title    string
	Index    int // 1-based ordinal shown in the sidebar
	Active   bool
	Activity bool
}

// Registry holds all tabs in sidebar order and routes events to them.
// It is not safe for concurrent use; the update loop is its single
// owner.
type Registry struct {
	tabs   map[string]*Tab // by window id
	order  []string
	active string

	rows, cols int
	scrollback int
}

// NewRegistry creates an empty registry. New grids are created at the
// given viewport size with the given scrollback limit.
func NewRegistry(rows, cols, scrollback int) *Registry {
	return &Registry{
		tabs:       make(map[string]*Tab),
		rows:       rows,
		cols:       cols,
		scrollback: scrollback,
	}
}

// Add creates a tab for a window at the current viewport size. Adding
// an already-known window updates its pane and title instead.
func (r *Registry) Add(windowID, paneID, title string) *Tab {
	if t, ok := r.tabs[windowID]; ok {
		if paneID != "" {
			t.PaneID = paneID
		}
		if title != "" {
			t.Title = title
		}
		return t
	}
	t := &Tab{
		WindowID: windowID,
		PaneID:   paneID,
		Title:    title,
		grid:     vt.NewGridWithScrollback(r.rows, r.cols, r.scrollback),
		parser:   vt.NewParser(),
	}
	r.tabs[windowID] = t
	r.order = append(r.order, windowID)
	return t
}

// Remove destroys a window's tab. When the active tab is removed the
// first remaining tab becomes active.
func (r *Registry) Remove(windowID string) {
	if _, ok := r.tabs[windowID]; !ok {
		return
	}
	delete(r.tabs, windowID)
	for i, id := range r.order {
		if id == windowID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.active == windowID {
		r.active = ""
		if len(r.order) > 0 {
			r.SetActive(r.order[0])
		}
	}
}

// Rename updates a tab's title from a server-side rename.
func (r *Registry) Rename(windowID, title string) {
	if t, ok := r.tabs[windowID]; ok {
		t.Title = title
	}
}

// SetActive switches the active tab and clears its activity flag.
// Unknown window ids are ignored.
func (r *Registry) SetActive(windowID string) {
	if t, ok := r.tabs[windowID]; ok {
		t.Activity = false
		r.active = windowID
	}
}

// Active returns the active tab, or nil when there are none.
func (r *Registry) Active() *Tab {
	return r.tabs[r.active]
}

// ActiveWindowID returns the id of the active window, or "".
func (r *Registry) ActiveWindowID() string { return r.active }

// Lookup returns the tab for a window id, or nil.
func (r *Registry) Lookup(windowID string) *Tab {
	return r.tabs[windowID]
}

// ActivePaneID returns the pane id of the active tab, or "".
func (r *Registry) ActivePaneID() string {
	if t := r.Active(); t != nil {
		return t.PaneID
	}
	return ""
}

// HandleOutput feeds decoded pane bytes to the owning tab. Output for
// unknown panes is dropped silently: close notifications race with
// buffered output and losing bytes for a dead window is harmless.
// Output to a non-active tab sets its activity flag. An OSC title in
// the stream retitles the tab.
func (r *Registry) HandleOutput(paneID string, data []byte) {
	t := r.byPane(paneID)
	if t == nil {
		return
	}
	before := t.grid.Title()
	t.grid.Apply(t.parser.Feed(data))
	if after := t.grid.Title(); after != before && after != "" {
		t.Title = after
	}
	if t.WindowID != r.active {
		t.Activity = true
	}
}

func (r *Registry) byPane(paneID string) *Tab {
	for _, t := range r.tabs {
		if t.PaneID == paneID {
			return t
		}
	}
	return nil
}

// WindowIDForPane maps a pane id back to its window, or "".
func (r *Registry) WindowIDForPane(paneID string) string {
	if t := r.byPane(paneID); t != nil {
		return t.WindowID
	}
	return ""
}

// SetPane updates which pane a window's tab follows.
func (r *Registry) SetPane(windowID, paneID string) {
	if t, ok := r.tabs[windowID]; ok {
		t.PaneID = paneID
	}
}

// ProcessWindowList ingests a list-windows reply in the
// ListWindowsFormat layout (@id:active:pane:name per line; the name is
// last so it may contain the separator). Known windows keep their
// grids; windows absent from the reply are removed; order follows the
// reply.
func (r *Registry) ProcessWindowList(text string) {
	seen := make(map[string]bool)
	var order []string
	newActive := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		if len(parts) != 4 {
			continue
		}
		windowID, activeFlag, paneID, name := parts[0], parts[1], parts[2], parts[3]
		if windowID == "" {
			continue
		}
		t, ok := r.tabs[windowID]
		if !ok {
			t = r.Add(windowID, paneID, name)
		} else {
			t.Title = name
			t.PaneID = paneID
		}
		seen[windowID] = true
		order = append(order, windowID)
		if activeFlag == "1" {
			newActive = windowID
		}
	}
	for id := range r.tabs {
		if !seen[id] {
			delete(r.tabs, id)
		}
	}
	r.order = order
	if newActive != "" {
		r.SetActive(newActive)
	} else if _, ok := r.tabs[r.active]; !ok {
		r.active = ""
		if len(r.order) > 0 {
			r.SetActive(r.order[0])
		}
	}
}

// TabInfos returns the sidebar rows in tab order.
func (r *Registry) TabInfos() []TabInfo {
	infos := make([]TabInfo, 0, len(r.order))
	for i, id := range r.order {
		t := r.tabs[id]
		infos = append(infos, TabInfo{
			WindowID: id,
			Title:    t.Title,
			Index:    i + 1,
			Active:   id == r.active,
			Activity: t.Activity,
		})
	}
	return infos
}

// Len returns the number of tabs.
func (r *Registry) Len() int { return len(r.order) }

// NextWindowID returns the window after the active one, wrapping.
func (r *Registry) NextWindowID() string { return r.step(1) }

// PrevWindowID returns the window before the active one, wrapping.
func (r *Registry) PrevWindowID() string { return r.step(-1) }

func (r *Registry) step(delta int) string {
	if len(r.order) == 0 {
		return ""
	}
	cur := 0
	for i, id := range r.order {
		if id == r.active {
			cur = i
			break
		}
	}
	next := (cur + delta + len(r.order)) % len(r.order)
	return r.order[next]
}

// WindowIDByIndex returns the window at a 1-based sidebar ordinal, or "".
func (r *Registry) WindowIDByIndex(index int) string {
	if index < 1 || index > len(r.order) {
		return ""
	}
	return r.order[index-1]
}

// Resize applies new viewport dimensions to every grid synchronously.
func (r *Registry) Resize(rows, cols int) {
	r.rows, r.cols = rows, cols
	for _, t := range r.tabs {
		t.grid.Resize(rows, cols)
	}
}

// Size returns the dimensions new grids are created at.
func (r *Registry) Size() (rows, cols int) { return r.rows, r.cols }
