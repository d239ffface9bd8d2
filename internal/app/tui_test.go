package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tabmux/tabmux/internal/config"
	"github.com/tabmux/tabmux/internal/control"
	"github.com/tabmux/tabmux/internal/events"
	"github.com/tabmux/tabmux/internal/input"
	"github.com/tabmux/tabmux/internal/tabs"
)

// sink records everything the model writes to the control stream.
type sink struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *sink) Close() error { return nil }

func (s *sink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// newTestModel builds a model with two tabs, the first active, over a
// connection whose writes land in the returned sink. The reader side
// never produces bytes, so no events arrive on their own.
func newTestModel(t *testing.T) (*appModel, *sink) {
	t.Helper()
	out := &sink{}
	pr, _ := io.Pipe()
	conn := control.Attach(out, pr)
	t.Cleanup(func() { _ = conn.Close() })

	store := events.NewStore(32)
	rec, err := events.NewRecorder(store, "")
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}

	cfg := config.Defaults()
	cfg.Scrollback = 100
	reg := tabs.NewRegistry(24, 80, 100)
	reg.Add("@1", "%1", "shell")
	reg.Add("@2", "%2", "logs")
	reg.SetActive("@1")

	m := &appModel{
		ctx:            context.Background(),
		conn:           conn,
		cfg:            cfg,
		rec:            rec,
		journal:        rec.Store(),
		reg:            reg,
		disp:           input.NewDispatcher(cfg.PrefixKey),
		st:             newStyles(DarkTheme()),
		pending:        make(map[string]pendingCommand),
		captured:       make(map[string]bool),
		session:        "main",
		sidebarVisible: true,
		width:          120,
		height:         40,
	}
	m.renameInput = textinput.New()
	return m, out
}

func press(m *appModel, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.handleKey(k)
	}
	return cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func prefixKey() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyCtrlB}
}

// --- Keyboard ---

func TestKeyPassthroughSendsLiteral(t *testing.T) {
	m, out := newTestModel(t)
	press(m, runeKey('a'))

	if !strings.Contains(out.String(), "send-keys -t %1 -l 'a'") {
		t.Errorf("expected literal forwarded to active pane, sent: %q", out.String())
	}
}

func TestKeyEnterSendsKeyName(t *testing.T) {
	m, out := newTestModel(t)
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(out.String(), "send-keys -t %1 Enter") {
		t.Errorf("expected Enter key name, sent: %q", out.String())
	}
}

func TestPrefixCreatesWindow(t *testing.T) {
	m, out := newTestModel(t)
	cmd := press(m, prefixKey())
	if cmd == nil {
		t.Fatal("expected timeout tick after prefix")
	}
	if m.disp.Mode() != input.PrefixPending {
		t.Fatal("expected prefix pending after prefix key")
	}
	press(m, runeKey('c'))

	if !strings.Contains(out.String(), "new-window") {
		t.Errorf("expected new-window, sent: %q", out.String())
	}
	if m.disp.Mode() != input.Passthrough {
		t.Error("expected passthrough after binding resolved")
	}
}

func TestPrefixDigitSelectsTab(t *testing.T) {
	m, out := newTestModel(t)
	press(m, prefixKey(), runeKey('2'))

	if got := m.reg.ActiveWindowID(); got != "@2" {
		t.Errorf("expected @2 active, got %s", got)
	}
	if !strings.Contains(out.String(), "select-window -t @2") {
		t.Errorf("expected select-window, sent: %q", out.String())
	}
}

func TestPrefixNextWraps(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, prefixKey(), runeKey('n'))
	if got := m.reg.ActiveWindowID(); got != "@2" {
		t.Fatalf("expected @2 after next, got %s", got)
	}
	press(m, prefixKey(), runeKey('n'))
	if got := m.reg.ActiveWindowID(); got != "@1" {
		t.Errorf("expected wrap to @1, got %s", got)
	}
}

func TestPrefixCloseKillsActiveWindow(t *testing.T) {
	m, out := newTestModel(t)
	press(m, prefixKey(), runeKey('x'))

	if !strings.Contains(out.String(), "kill-window -t @1") {
		t.Errorf("expected kill-window for active tab, sent: %q", out.String())
	}
}

func TestPrefixToggleSidebar(t *testing.T) {
	m, out := newTestModel(t)
	press(m, prefixKey(), runeKey('b'))

	if m.sidebarVisible {
		t.Error("expected sidebar hidden after toggle")
	}
	// The freed columns go to the panes.
	if !strings.Contains(out.String(), "refresh-client -C 120,39") {
		t.Errorf("expected refresh-client with full width, sent: %q", out.String())
	}
}

func TestPrefixDetach(t *testing.T) {
	m, out := newTestModel(t)
	press(m, prefixKey(), runeKey('d'))

	if !strings.Contains(out.String(), "detach-client") {
		t.Errorf("expected detach-client, sent: %q", out.String())
	}
	if m.exit != ExitDetached {
		t.Errorf("expected ExitDetached, got %v", m.exit)
	}
}

func TestCtrlQQuits(t *testing.T) {
	m, _ := newTestModel(t)
	cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.exit != ExitQuit {
		t.Errorf("expected ExitQuit, got %v", m.exit)
	}
}

func TestPrefixTimeoutExpiresOnlyOwnGeneration(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, prefixKey())
	stale := m.disp.Generation()

	// The user resolves the pending prefix and arms a new one before
	// the first timer fires.
	press(m, runeKey('c'), prefixKey())

	_, _ = m.Update(prefixTimeoutMsg{generation: stale})
	if m.disp.Mode() != input.PrefixPending {
		t.Error("stale timeout must not cancel a newer prefix")
	}

	_, _ = m.Update(prefixTimeoutMsg{generation: m.disp.Generation()})
	if m.disp.Mode() != input.Passthrough {
		t.Error("matching timeout should expire the prefix")
	}
}

// --- Rename overlay ---

func TestRenameOverlayFlow(t *testing.T) {
	m, out := newTestModel(t)
	press(m, prefixKey(), runeKey(','))

	if !m.renaming {
		t.Fatal("expected rename overlay open")
	}
	if got := m.renameInput.Value(); got != "shell" {
		t.Errorf("expected input seeded with current title, got %q", got)
	}

	press(m, runeKey('x'), tea.KeyMsg{Type: tea.KeyEnter})
	if m.renaming {
		t.Error("expected overlay closed after enter")
	}
	if !strings.Contains(out.String(), "rename-window -t @1 'shellx'") {
		t.Errorf("expected rename command, sent: %q", out.String())
	}
	// Local title waits for %window-renamed.
	if got := m.reg.Active().Title; got != "shell" {
		t.Errorf("title changed before server confirm: %q", got)
	}
}

func TestRenameEscCancels(t *testing.T) {
	m, out := newTestModel(t)
	press(m, prefixKey(), runeKey(','), tea.KeyMsg{Type: tea.KeyEscape})

	if m.renaming {
		t.Error("expected overlay closed after esc")
	}
	if strings.Contains(out.String(), "rename-window") {
		t.Errorf("esc must not send a rename, sent: %q", out.String())
	}
}

// --- Control events ---

func TestOutputEventUpdatesGrid(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.Output{PaneID: "%1", Bytes: []byte("hello")})

	if got := m.reg.Active().Grid().Line(0); got != "hello" {
		t.Errorf("expected grid line %q, got %q", "hello", got)
	}
}

func TestOutputToBackgroundTabSetsActivity(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.Output{PaneID: "%2", Bytes: []byte("ping")})

	for _, info := range m.reg.TabInfos() {
		if info.WindowID == "@2" && !info.Activity {
			t.Error("expected activity flag on background tab")
		}
	}
}

func TestWindowRenamedEventUpdatesTitle(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.WindowRenamed{WindowID: "@2", Name: "workers"})

	for _, info := range m.reg.TabInfos() {
		if info.WindowID == "@2" && info.Title != "workers" {
			t.Errorf("expected renamed title, got %q", info.Title)
		}
	}
}

func TestWindowCloseEventRemovesTab(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.WindowClose{WindowID: "@1"})

	if m.reg.Len() != 1 {
		t.Fatalf("expected 1 tab left, got %d", m.reg.Len())
	}
	if got := m.reg.ActiveWindowID(); got != "@2" {
		t.Errorf("expected surviving tab active, got %s", got)
	}
}

func TestSessionWindowChangedFollowsServer(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.SessionWindowChanged{WindowID: "@2"})

	if got := m.reg.ActiveWindowID(); got != "@2" {
		t.Errorf("expected server-driven switch to @2, got %s", got)
	}
}

func TestClosedEventReasons(t *testing.T) {
	tests := []struct {
		reason string
		want   ExitReason
	}{
		{"client detached", ExitDetached},
		{"server exit", ExitServerExit},
		{"transport closed", ExitTransportLost},
	}
	for _, tt := range tests {
		m, _ := newTestModel(t)
		cmd := m.handleControlEvent(control.Closed{Reason: tt.reason})
		if cmd == nil {
			t.Fatalf("%s: expected quit command", tt.reason)
		}
		if m.exit != tt.want {
			t.Errorf("%s: expected exit %v, got %v", tt.reason, tt.want, m.exit)
		}
	}
}

func TestListWindowsReplyRebuildsRegistry(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending["tok"] = pendingCommand{verb: "list-windows"}
	m.handleControlEvent(control.Reply{
		Token: "tok",
		Text:  "@1:0:%1:shell\n@3:1:%3:web",
	})

	if m.reg.Len() != 2 {
		t.Fatalf("expected 2 tabs, got %d", m.reg.Len())
	}
	if got := m.reg.ActiveWindowID(); got != "@3" {
		t.Errorf("expected @3 active per list, got %s", got)
	}
}

func TestCapturePaneReplySeedsGrid(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending["tok"] = pendingCommand{verb: "capture-pane", paneID: "%1"}
	m.handleControlEvent(control.Reply{Token: "tok", Text: "one\ntwo"})

	g := m.reg.Active().Grid()
	if g.Line(0) != "one" || g.Line(1) != "two" {
		t.Errorf("expected seeded lines, got %q / %q", g.Line(0), g.Line(1))
	}
}

func TestInitQueriesSessionName(t *testing.T) {
	m, out := newTestModel(t)
	m.Init()

	if !strings.Contains(out.String(), "display-message -p '#{session_name}'") {
		t.Errorf("expected session name query on startup, sent: %q", out.String())
	}
}

func TestSessionNameReplyUpdatesStatus(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending["tok"] = pendingCommand{verb: "display-message"}
	m.handleControlEvent(control.Reply{Token: "tok", Text: "work\n"})

	if m.session != "work" {
		t.Errorf("session = %q, want %q", m.session, "work")
	}
	if !strings.Contains(m.statusBar(), "[work]") {
		t.Errorf("status bar missing session name: %q", m.statusBar())
	}
}

func TestStatusBarShowsLatestJournalEntry(t *testing.T) {
	m, _ := newTestModel(t)
	m.rec.Record(events.Event{Kind: events.KindWindowAdded, WindowID: "@5"})
	m.rec.Record(events.Event{Kind: events.KindTabSwitched, WindowID: "@2"})

	bar := m.statusBar()
	if !strings.Contains(bar, events.KindTabSwitched) {
		t.Errorf("status bar missing newest journal entry: %q", bar)
	}
	if strings.Contains(bar, events.KindWindowAdded) {
		t.Errorf("status bar shows stale journal entry: %q", bar)
	}

	// An alert message takes the journal's slot.
	m.message = "pane is dead"
	if bar := m.statusBar(); strings.Contains(bar, events.KindTabSwitched) {
		t.Errorf("alert should displace journal entry: %q", bar)
	}
}

func TestRejectedRenameKeepsTitle(t *testing.T) {
	m, _ := newTestModel(t)
	store := events.NewStore(8)
	m.rec, _ = events.NewRecorder(store, "")

	m.pending["tok"] = pendingCommand{verb: "rename-window"}
	m.handleControlEvent(control.Reply{Token: "tok", Text: "bad window", IsError: true})

	if got := m.reg.Active().Title; got != "shell" {
		t.Errorf("rejected rename must keep title, got %q", got)
	}
	found := false
	for _, ev := range store.Snapshot() {
		if ev.Kind == events.KindRenameRejected {
			found = true
		}
	}
	if !found {
		t.Error("expected rename rejection in the journal")
	}
}

// --- Mouse ---

func TestMouseClickSelectsTab(t *testing.T) {
	m, out := newTestModel(t)
	_, _ = m.handleMouse(tea.MouseMsg{
		X: 2, Y: 1,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})

	if got := m.reg.ActiveWindowID(); got != "@2" {
		t.Errorf("expected click on second row to select @2, got %s", got)
	}
	if !strings.Contains(out.String(), "select-window -t @2") {
		t.Errorf("expected select-window sent, got %q", out.String())
	}
}

func TestMouseClickNewTabButton(t *testing.T) {
	m, out := newTestModel(t)
	_, _ = m.handleMouse(tea.MouseMsg{
		X: 2, Y: m.height - 2,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})

	if !strings.Contains(out.String(), "new-window") {
		t.Errorf("expected new-window from button click, sent: %q", out.String())
	}
}

func TestMouseClickOutsideSidebarIgnored(t *testing.T) {
	m, out := newTestModel(t)
	_, _ = m.handleMouse(tea.MouseMsg{
		X: m.cfg.SidebarWidth + 5, Y: 1,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})

	if got := out.String(); got != "" {
		t.Errorf("viewport click should send nothing, sent: %q", got)
	}
}

func TestWheelScrollClampsToScrollback(t *testing.T) {
	m, _ := newTestModel(t)
	// No scrollback yet, so scrolling up clamps to zero.
	_, _ = m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	if m.scrollOffset != 0 {
		t.Fatalf("expected clamp at 0, got %d", m.scrollOffset)
	}

	// Push enough lines through to build scrollback, then scroll.
	g := m.reg.Active().Grid()
	m.handleControlEvent(control.Output{PaneID: "%1", Bytes: []byte(strings.Repeat("x\r\n", 30))})
	if g.ScrollbackLen() == 0 {
		t.Fatal("setup: expected scrollback after output")
	}
	_, _ = m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	if m.scrollOffset != 3 {
		t.Errorf("expected offset 3 after one wheel step, got %d", m.scrollOffset)
	}
	_, _ = m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelDown})
	if m.scrollOffset != 0 {
		t.Errorf("expected offset back to 0, got %d", m.scrollOffset)
	}
}

func TestTypingResetsScroll(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.Output{PaneID: "%1", Bytes: []byte(strings.Repeat("x\r\n", 30))})
	_, _ = m.handleMouse(tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	if m.scrollOffset == 0 {
		t.Fatal("setup: expected nonzero scroll")
	}

	press(m, runeKey('a'))
	if m.scrollOffset != 0 {
		t.Errorf("expected scroll reset on input, got %d", m.scrollOffset)
	}
}

// --- Resize ---

func TestWindowSizeResizesGridsAndClient(t *testing.T) {
	m, out := newTestModel(t)
	_, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	rows, cols := m.reg.Size()
	wantCols := 100 - m.cfg.SidebarWidth
	if rows != 29 || cols != wantCols {
		t.Errorf("expected grids %dx%d, got %dx%d", 29, wantCols, rows, cols)
	}
	if !strings.Contains(out.String(), "refresh-client -C") {
		t.Errorf("expected refresh-client, sent: %q", out.String())
	}
}

// --- View ---

func TestViewShowsPrefixIndicator(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, prefixKey())

	if !strings.Contains(m.View(), "PREFIX") {
		t.Error("expected prefix indicator in status bar")
	}
}

func TestViewRenameOverlay(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, prefixKey(), runeKey(','))

	v := m.View()
	if !strings.Contains(v, "Rename tab") {
		t.Error("expected rename overlay view")
	}
}

func TestViewEmptyRegistryPlaceholder(t *testing.T) {
	m, _ := newTestModel(t)
	m.reg = tabs.NewRegistry(24, 80, 100)

	if !strings.Contains(m.View(), "no windows, prefix c creates one") {
		t.Error("expected placeholder when no windows exist")
	}
}

func TestViewContainsTabTitles(t *testing.T) {
	m, _ := newTestModel(t)
	m.handleControlEvent(control.Output{PaneID: "%1", Bytes: []byte("prompt$")})

	v := m.View()
	if !strings.Contains(v, "shell") || !strings.Contains(v, "logs") {
		t.Error("expected tab titles in sidebar")
	}
	if !strings.Contains(v, "prompt$") {
		t.Error("expected pane content in viewport")
	}
}
