// Package app wires the control connection, tab registry and input
// dispatcher into a bubbletea program. The update loop is the single
// owner of all mutable state; the connection's read goroutine only
// hands events over a channel.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tabmux/tabmux/internal/config"
	"github.com/tabmux/tabmux/internal/control"
	"github.com/tabmux/tabmux/internal/events"
	"github.com/tabmux/tabmux/internal/input"
	"github.com/tabmux/tabmux/internal/otel"
	"github.com/tabmux/tabmux/internal/tabs"
)

// ExitReason says why the program ended, so the caller can pick an
// exit status: a deliberate detach or quit is clean, a dead transport
// is not.
type ExitReason int

const (
	ExitQuit ExitReason = iota
	ExitDetached
	ExitServerExit
	ExitTransportLost
)

// messages
type controlEventMsg struct{ ev control.Event }

type eventsClosedMsg struct{}

type prefixTimeoutMsg struct{ generation int }

// App runs the interactive tab frontend over an established control
// connection.
type App struct {
	Conn      *control.Conn
	Config    *config.Config
	Telemetry *otel.Telemetry
	Recorder  *events.Recorder
}

// pendingCommand remembers what a sent command was for, so its reply
// can be routed when it arrives.
type pendingCommand struct {
	verb   string
	paneID string
}

// appModel implements tea.Model.
type appModel struct {
	ctx     context.Context
	conn    *control.Conn
	cfg     *config.Config
	metrics *otel.Metrics
	rec     *events.Recorder
	journal *events.Store

	reg  *tabs.Registry
	disp *input.Dispatcher
	st   styles

	pending  map[string]pendingCommand
	captured map[string]bool

	session        string
	sidebarVisible bool
	scrollOffset   int

	// rename overlay
	renaming     bool
	renameInput  textinput.Model
	renameTarget string

	// dimensions
	width  int
	height int

	message string
	exit    ExitReason
	closed  bool
}

// Run drives the program until detach, quit or transport loss.
func (a *App) Run(ctx context.Context) (ExitReason, error) {
	ti := textinput.New()
	ti.Placeholder = "new tab name"
	ti.CharLimit = 128
	ti.Width = 40

	var metrics *otel.Metrics
	if a.Telemetry != nil {
		metrics = a.Telemetry.Metrics
	}

	m := &appModel{
		ctx:            ctx,
		conn:           a.Conn,
		cfg:            a.Config,
		metrics:        metrics,
		rec:            a.Recorder,
		journal:        a.Recorder.Store(),
		reg:            tabs.NewRegistry(24, 80, a.Config.Scrollback),
		disp:           input.NewDispatcher(a.Config.PrefixKey),
		st:             newStyles(ThemeByName(a.Config.Theme)),
		pending:        make(map[string]pendingCommand),
		captured:       make(map[string]bool),
		session:        a.Config.Session,
		sidebarVisible: a.Config.SidebarVisible,
		renameInput:    ti,
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return ExitTransportLost, err
	}
	return m.exit, nil
}

func (m *appModel) Init() tea.Cmd {
	m.rec.Record(events.Event{Kind: events.KindConnected, Detail: m.session})
	// The server may have resolved the session name differently from
	// the one we asked for (-A attaches to an existing session).
	m.send(control.DisplayMessage("#{session_name}"), pendingCommand{verb: "display-message"})
	m.send(control.ListWindows(), pendingCommand{verb: "list-windows"})
	return waitForEvent(m.conn.Events())
}

// waitForEvent re-arms after every delivered event; the channel close
// after Closed produces eventsClosedMsg.
func waitForEvent(ch <-chan control.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return controlEventMsg{ev: ev}
	}
}

// send writes a command and registers its reply routing. Send errors
// surface in the status line; the Closed event does the real
// shutdown.
func (m *appModel) send(text string, pc pendingCommand) {
	cmd, err := m.conn.Send(text)
	if err != nil {
		m.message = fmt.Sprintf("send failed: %v", err)
		return
	}
	if pc.verb == "" {
		pc.verb, _, _ = strings.Cut(text, " ")
	}
	m.pending[cmd.Token] = pc
	m.metrics.RecordCommand(m.ctx, pc.verb)
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.applyViewportSize()
		return m, nil

	case controlEventMsg:
		cmd := m.handleControlEvent(msg.ev)
		if m.closed {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitForEvent(m.conn.Events()))

	case eventsClosedMsg:
		if !m.closed {
			m.closed = true
			m.exit = ExitTransportLost
		}
		return m, tea.Quit

	case prefixTimeoutMsg:
		m.disp.ExpirePrefix(msg.generation)
		return m, nil
	}

	return m, nil
}

// viewportSize returns the drawing area for pane content: everything
// except the sidebar and the status bar.
func (m *appModel) viewportSize() (rows, cols int) {
	rows = m.height - 1
	cols = m.width
	if m.sidebarVisible {
		cols -= m.cfg.SidebarWidth
	}
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

// applyViewportSize resizes every grid and tells the server the new
// client dimensions so window layouts follow.
func (m *appModel) applyViewportSize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	rows, cols := m.viewportSize()
	m.reg.Resize(rows, cols)
	m.send(control.RefreshClientSize(cols, rows), pendingCommand{verb: "refresh-client"})
}

func (m *appModel) handleControlEvent(ev control.Event) tea.Cmd {
	switch ev := ev.(type) {
	case control.Reply:
		m.metrics.RecordReply(m.ctx, ev.IsError)
		pc := m.pending[ev.Token]
		delete(m.pending, ev.Token)
		m.handleReply(pc, ev)

	case control.Output:
		m.metrics.RecordNotification(m.ctx, "output")
		m.metrics.RecordOutput(m.ctx, len(ev.Bytes))
		m.routeOutput(ev.PaneID, ev.Bytes)

	case control.WindowAdd:
		m.metrics.RecordNotification(m.ctx, "window-add")
		m.reg.Add(ev.WindowID, "", "")
		m.rec.Record(events.Event{Kind: events.KindWindowAdded, WindowID: ev.WindowID})
		// The notification carries no pane or name; refresh the list.
		m.send(control.ListWindows(), pendingCommand{verb: "list-windows"})

	case control.WindowClose:
		m.metrics.RecordNotification(m.ctx, "window-close")
		m.reg.Remove(ev.WindowID)
		m.rec.Record(events.Event{Kind: events.KindWindowClosed, WindowID: ev.WindowID})

	case control.WindowRenamed:
		m.metrics.RecordNotification(m.ctx, "window-renamed")
		m.reg.Rename(ev.WindowID, ev.Name)
		m.rec.Record(events.Event{Kind: events.KindWindowRenamed, WindowID: ev.WindowID, Detail: ev.Name})

	case control.LayoutChange:
		m.metrics.RecordNotification(m.ctx, "layout-change")

	case control.SessionChanged:
		m.metrics.RecordNotification(m.ctx, "session-changed")
		if ev.Name != "" {
			m.session = ev.Name
		}
		m.send(control.ListWindows(), pendingCommand{verb: "list-windows"})

	case control.SessionWindowChanged:
		m.metrics.RecordNotification(m.ctx, "session-window-changed")
		if ev.WindowID != m.reg.ActiveWindowID() {
			m.reg.SetActive(ev.WindowID)
			m.scrollOffset = 0
			m.metrics.RecordTabSwitch(m.ctx, "server")
			m.rec.Record(events.Event{Kind: events.KindTabSwitched, WindowID: ev.WindowID, Detail: "server"})
		}

	case control.WindowPaneChanged:
		m.metrics.RecordNotification(m.ctx, "window-pane-changed")
		m.reg.SetPane(ev.WindowID, ev.PaneID)
		m.capturePane(ev.PaneID)

	case control.SessionsChanged:
		m.metrics.RecordNotification(m.ctx, "sessions-changed")

	case control.PaneModeChanged:
		m.metrics.RecordNotification(m.ctx, "pane-mode-changed")

	case control.Unknown:
		m.metrics.RecordNotification(m.ctx, "unknown")

	case control.Violation:
		m.metrics.RecordViolation(m.ctx)
		m.rec.Record(events.Event{Kind: events.KindProtocolViolation, Detail: ev.Detail})

	case control.Closed:
		m.closed = true
		switch {
		case m.exit == ExitQuit && strings.Contains(ev.Reason, "detach"):
			m.exit = ExitDetached
		case strings.Contains(ev.Reason, "transport"):
			m.exit = ExitTransportLost
		default:
			if m.exit == ExitQuit {
				m.exit = ExitServerExit
			}
		}
		m.rec.Record(events.Event{Kind: events.KindClosed, Detail: ev.Reason})
		return tea.Quit
	}
	return nil
}

// handleReply routes a reply block to whatever asked for it.
func (m *appModel) handleReply(pc pendingCommand, reply control.Reply) {
	if reply.IsError {
		m.message = strings.TrimSpace(reply.Text)
		kind := events.KindCommandRejected
		if pc.verb == "rename-window" {
			// The server keeps the old name; so do we.
			kind = events.KindRenameRejected
		}
		m.rec.Record(events.Event{Kind: kind, Detail: pc.verb + ": " + reply.Text})
		return
	}
	switch pc.verb {
	case "display-message":
		if name := strings.TrimSpace(reply.Text); name != "" {
			m.session = name
		}
	case "list-windows":
		m.reg.ProcessWindowList(reply.Text)
		m.seedMissingGrids()
	case "capture-pane":
		if pc.paneID != "" && reply.Text != "" {
			// Captured lines use bare newlines; grids need the CR.
			m.reg.HandleOutput(pc.paneID, []byte(strings.ReplaceAll(reply.Text, "\n", "\r\n")))
		}
	}
}

// seedMissingGrids backfills content for windows that existed before
// we attached; their history never arrives as %output.
func (m *appModel) seedMissingGrids() {
	for _, info := range m.reg.TabInfos() {
		if t := m.reg.Lookup(info.WindowID); t != nil {
			m.capturePane(t.PaneID)
		}
	}
}

// capturePane requests pane content once per pane; later output
// arrives live as %output.
func (m *appModel) capturePane(paneID string) {
	if paneID == "" || m.captured[paneID] {
		return
	}
	m.captured[paneID] = true
	m.send(control.CapturePane(paneID), pendingCommand{verb: "capture-pane", paneID: paneID})
}

// routeOutput feeds pane bytes into the registry and keeps the parser
// recovery metric current.
func (m *appModel) routeOutput(paneID string, data []byte) {
	windowID := m.reg.WindowIDForPane(paneID)
	var before int
	if t := m.reg.Active(); t != nil && t.WindowID == windowID {
		before = t.ParserRecoveries()
	}
	m.reg.HandleOutput(paneID, data)
	if t := m.reg.Active(); t != nil && t.WindowID == windowID {
		m.metrics.RecordParserRecovery(m.ctx, t.ParserRecoveries()-before)
	}
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		return m.handleRenameKey(msg)
	}

	action := m.disp.HandleKey(msg)
	if m.disp.Mode() == input.PrefixPending {
		gen := m.disp.Generation()
		return m, tea.Tick(input.PrefixTimeout, func(time.Time) tea.Msg {
			return prefixTimeoutMsg{generation: gen}
		})
	}
	return m, m.applyAction(action)
}

func (m *appModel) applyAction(a input.Action) tea.Cmd {
	switch a.Kind {
	case input.ActionSendKey:
		if pane := m.reg.ActivePaneID(); pane != "" {
			m.scrollOffset = 0
			m.send(control.SendKeys(pane, a.Key), pendingCommand{verb: "send-keys"})
		}
	case input.ActionSendLiteral:
		if pane := m.reg.ActivePaneID(); pane != "" {
			m.scrollOffset = 0
			m.send(control.SendText(pane, a.Literal), pendingCommand{verb: "send-keys"})
		}
	case input.ActionNewTab:
		m.send(control.NewWindow(""), pendingCommand{verb: "new-window"})
	case input.ActionCloseTab:
		if id := m.reg.ActiveWindowID(); id != "" {
			m.send(control.KillWindow(id), pendingCommand{verb: "kill-window"})
		}
	case input.ActionNextTab:
		m.switchTab(m.reg.NextWindowID(), "key")
	case input.ActionPrevTab:
		m.switchTab(m.reg.PrevWindowID(), "key")
	case input.ActionSelectTab:
		m.switchTab(m.reg.WindowIDByIndex(a.Index), "key")
	case input.ActionToggleSidebar:
		m.sidebarVisible = !m.sidebarVisible
		m.applyViewportSize()
	case input.ActionStartRename:
		if t := m.reg.Active(); t != nil {
			m.renaming = true
			m.renameTarget = t.WindowID
			m.renameInput.SetValue(t.Title)
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			return textinput.Blink
		}
	case input.ActionDetach:
		m.rec.Record(events.Event{Kind: events.KindDetached})
		m.exit = ExitDetached
		m.send(control.DetachClient(), pendingCommand{verb: "detach-client"})
	case input.ActionQuit:
		m.exit = ExitQuit
		_ = m.conn.Close()
		return tea.Quit
	}
	return nil
}

// switchTab selects a window locally and on the server. The local
// switch keeps the UI snappy; the server confirm arrives as
// %session-window-changed.
func (m *appModel) switchTab(windowID, trigger string) {
	if windowID == "" || windowID == m.reg.ActiveWindowID() {
		return
	}
	m.reg.SetActive(windowID)
	m.scrollOffset = 0
	m.metrics.RecordTabSwitch(m.ctx, trigger)
	m.rec.Record(events.Event{Kind: events.KindTabSwitched, WindowID: windowID, Detail: trigger})
	m.send(control.SelectWindow(windowID), pendingCommand{verb: "select-window"})
}

func (m *appModel) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "escape":
		m.renaming = false
		m.renameInput.Blur()
		return m, nil

	case "enter":
		name := strings.TrimSpace(m.renameInput.Value())
		if name != "" && m.renameTarget != "" {
			// Local title stays until %window-renamed confirms; a
			// rejected rename keeps the old one.
			m.send(control.RenameWindow(m.renameTarget, name), pendingCommand{verb: "rename-window"})
		}
		m.renaming = false
		m.renameInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m *appModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(3)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.scrollBy(-3)
		return m, nil
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if !m.sidebarVisible || msg.X >= m.cfg.SidebarWidth {
		// Viewport clicks are not forwarded; programs that want the
		// mouse get it through tmux's own mouse mode.
		return m, nil
	}

	if idx, ok := input.TabIndexAtRow(msg.Y, m.reg.Len(), sidebarHeaderRows); ok {
		m.switchTab(m.reg.WindowIDByIndex(idx+1), "mouse")
		return m, nil
	}
	if input.NewTabButtonAtRow(msg.Y, m.height-1) {
		m.send(control.NewWindow(""), pendingCommand{verb: "new-window"})
	}
	return m, nil
}

func (m *appModel) scrollBy(delta int) {
	t := m.reg.Active()
	if t == nil {
		return
	}
	m.scrollOffset += delta
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
	if max := t.Grid().ScrollbackLen(); m.scrollOffset > max {
		m.scrollOffset = max
	}
}

func (m *appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "attaching..."
	}
	if m.renaming {
		return m.viewRename()
	}

	rows, cols := m.viewportSize()
	var viewport string
	if t := m.reg.Active(); t != nil {
		viewport = renderGrid(t.Grid(), m.scrollOffset)
	} else {
		viewport = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center,
			m.st.status.Render("no windows, prefix c creates one"))
	}

	main := viewport
	if m.sidebarVisible {
		sidebar := renderSidebar(m.reg.TabInfos(), m.cfg.SidebarWidth, rows, m.st)
		main = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, viewport)
	}
	return main + "\n" + m.statusBar()
}

func (m *appModel) viewRename() string {
	var b strings.Builder
	b.WriteString(m.st.prefix.Render("Rename tab"))
	b.WriteString("\n\n")
	b.WriteString(m.renameInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.st.overlayHint.Render("enter: rename  esc: cancel"))
	box := m.st.overlay.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *appModel) statusBar() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", m.session))
	parts = append(parts, fmt.Sprintf("%d tabs", m.reg.Len()))
	if m.disp.Mode() == input.PrefixPending {
		parts = append(parts, m.st.prefix.Render("PREFIX"))
	}
	if m.scrollOffset > 0 {
		parts = append(parts, fmt.Sprintf("scroll +%d", m.scrollOffset))
	}
	if m.message != "" {
		parts = append(parts, m.st.statusAlert.Render(truncate(m.message, 60)))
	} else if last, ok := m.lastJournalEvent(); ok {
		parts = append(parts, m.st.ordinal.Render(truncate(last.String(), 60)))
	}
	return m.st.status.Render(strings.Join(parts, "  "))
}

// lastJournalEvent returns the newest session journal entry, if any.
func (m *appModel) lastJournalEvent() (events.Event, bool) {
	if m.journal == nil {
		return events.Event{}, false
	}
	snap := m.journal.Snapshot()
	if len(snap) == 0 {
		return events.Event{}, false
	}
	return snap[len(snap)-1], true
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
