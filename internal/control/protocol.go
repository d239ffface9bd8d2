package control

import (
	"bytes"
	"strings"
)

// Event is anything the decoder produces from the control-mode stream:
// a Reply to a pending command, a Notification from the server, or a
// Closed marker when the stream ends.
type Event interface {
	isEvent()
}

// Reply is one %begin..%end/%error block, correlated to the oldest
// unanswered command in arrival order.
type Reply struct {
	Token   string // uuid of the correlated command, empty when unmatched
	Text    string // payload lines joined with \n
	IsError bool   // true for %error blocks
}

// Output carries decoded pane bytes from a %output or %extended-output
// notification.
type Output struct {
	PaneID string
	Bytes  []byte
}

// WindowAdd reports a new window (%window-add or %unlinked-window-add).
type WindowAdd struct{ WindowID string }

// WindowClose reports a destroyed window.
type WindowClose struct{ WindowID string }

// WindowRenamed reports a window title change from the server side.
type WindowRenamed struct {
	WindowID string
	Name     string
}

// LayoutChange reports a window layout update with the geometry parsed
// out of the layout string when possible.
type LayoutChange struct {
	WindowID string
	Layout   string
	Cols     int
	Rows     int
	SizeOK   bool
}

// SessionChanged reports the client switching sessions.
type SessionChanged struct {
	SessionID string
	Name      string
}

// SessionWindowChanged reports the active window of a session changing.
type SessionWindowChanged struct {
	SessionID string
	WindowID  string
}

// SessionsChanged reports the session list changing.
type SessionsChanged struct{}

// WindowPaneChanged reports the active pane of a window changing.
type WindowPaneChanged struct {
	WindowID string
	PaneID   string
}

// PaneModeChanged reports a pane entering or leaving a mode.
type PaneModeChanged struct{ PaneID string }

// Unknown carries a notification line whose tag the decoder does not
// recognize. Unknown tags are surfaced, never treated as errors.
type Unknown struct{ Line string }

// Closed reports the end of the control stream. After Closed no more
// events follow.
type Closed struct{ Reason string }

// Violation reports a malformed reply block. The block is discarded
// and decoding continues.
type Violation struct{ Detail string }

func (Reply) isEvent()                {}
func (Output) isEvent()               {}
func (WindowAdd) isEvent()            {}
func (WindowClose) isEvent()          {}
func (WindowRenamed) isEvent()        {}
func (LayoutChange) isEvent()         {}
func (SessionChanged) isEvent()       {}
func (SessionWindowChanged) isEvent() {}
func (SessionsChanged) isEvent()      {}
func (WindowPaneChanged) isEvent()    {}
func (PaneModeChanged) isEvent()      {}
func (Unknown) isEvent()              {}
func (Closed) isEvent()               {}
func (Violation) isEvent()            {}

// decoder turns raw control-mode bytes into events. It owns the
// partial-line buffer and the in-progress reply block, so feed can be
// called with arbitrary chunks.
type decoder struct {
	buf []byte

	inBlock    bool
	blockArgs  string // the "t n f" tail of the opening %begin
	blockLines []string

	// greeting flags the unsolicited block tmux emits when a control
	// client attaches. That block answers no command, so it is dropped
	// without popping a token.
	greeting bool

	// tokens pops the uuid of the oldest unanswered command; nil in
	// tests that only exercise notification parsing.
	nextToken func() string
}

func (d *decoder) feed(data []byte) []Event {
	d.buf = append(d.buf, data...)
	var events []Event
	for {
		nl := bytes.IndexByte(d.buf, '\n')
		if nl < 0 {
			return events
		}
		line := strings.TrimRight(string(d.buf[:nl]), "\r")
		d.buf = d.buf[nl+1:]
		if ev := d.line(line); ev != nil {
			events = append(events, ev)
		}
	}
}

func (d *decoder) line(line string) Event {
	tag, rest, _ := strings.Cut(line, " ")
	if d.inBlock {
		switch tag {
		case "%end":
			return d.closeBlock(rest, false)
		case "%error":
			return d.closeBlock(rest, true)
		case "%begin":
			// Nested begin: abandon the open block.
			d.blockArgs = rest
			d.blockLines = d.blockLines[:0]
			return Violation{Detail: "begin marker inside open reply block"}
		default:
			d.blockLines = append(d.blockLines, line)
			return nil
		}
	}

	if line == "" {
		return nil
	}
	switch tag {
	case "%begin":
		d.inBlock = true
		d.blockArgs = rest
		d.blockLines = d.blockLines[:0]
		return nil
	case "%end", "%error":
		return Violation{Detail: "end marker without open reply block: " + line}
	}
	if strings.HasPrefix(line, "%") {
		return d.notification(line)
	}
	// Bare text outside any block: tolerated, dropped.
	return nil
}

func (d *decoder) closeBlock(args string, isErr bool) Event {
	d.inBlock = false
	text := strings.Join(d.blockLines, "\n")
	d.blockLines = nil
	if d.greeting {
		d.greeting = false
		return nil
	}
	if args != d.blockArgs {
		return Violation{Detail: "mismatched reply block markers"}
	}
	token := ""
	if d.nextToken != nil {
		token = d.nextToken()
	}
	return Reply{Token: token, Text: text, IsError: isErr}
}

func (d *decoder) notification(line string) Event {
	tag, rest, _ := strings.Cut(line, " ")
	switch tag {
	case "%output":
		id, payload, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %output: " + line}
		}
		return Output{PaneID: id, Bytes: unescapeOutput(payload)}
	case "%extended-output":
		// %extended-output %pane age [flags...] : escaped-bytes
		id, tail, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %extended-output: " + line}
		}
		if i := strings.Index(tail, " : "); i >= 0 {
			tail = tail[i+3:]
		} else if _, after, ok := cutToken(tail); ok {
			tail = after
		}
		return Output{PaneID: id, Bytes: unescapeOutput(tail)}
	case "%window-add", "%unlinked-window-add":
		id, _, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed " + tag + ": " + line}
		}
		return WindowAdd{WindowID: id}
	case "%window-close", "%unlinked-window-close":
		id, _, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed " + tag + ": " + line}
		}
		return WindowClose{WindowID: id}
	case "%window-renamed":
		id, name, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %window-renamed: " + line}
		}
		return WindowRenamed{WindowID: id, Name: name}
	case "%layout-change":
		id, layout, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %layout-change: " + line}
		}
		cols, rows, sizeOK := layoutGeometry(layout)
		return LayoutChange{WindowID: id, Layout: layout, Cols: cols, Rows: rows, SizeOK: sizeOK}
	case "%session-changed":
		id, name, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %session-changed: " + line}
		}
		return SessionChanged{SessionID: id, Name: name}
	case "%session-window-changed":
		sid, tail, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %session-window-changed: " + line}
		}
		wid, _, _ := cutToken(tail)
		return SessionWindowChanged{SessionID: sid, WindowID: wid}
	case "%sessions-changed":
		return SessionsChanged{}
	case "%window-pane-changed":
		wid, tail, ok := cutToken(rest)
		if !ok {
			return Violation{Detail: "malformed %window-pane-changed: " + line}
		}
		pid, _, _ := cutToken(tail)
		return WindowPaneChanged{WindowID: wid, PaneID: pid}
	case "%pane-mode-changed":
		id, _, _ := cutToken(rest)
		return PaneModeChanged{PaneID: id}
	case "%client-detached":
		return Closed{Reason: "client detached"}
	case "%exit":
		reason := strings.TrimSpace(rest)
		if reason == "" {
			reason = "server exit"
		}
		return Closed{Reason: reason}
	default:
		return Unknown{Line: line}
	}
}

// cutToken splits the first whitespace-delimited token off a line.
func cutToken(raw string) (token, tail string, ok bool) {
	trimmed := strings.TrimLeft(raw, " \t")
	if trimmed == "" {
		return "", "", false
	}
	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return trimmed, "", true
	}
	return trimmed[:idx], strings.TrimLeft(trimmed[idx:], " \t"), true
}

// unescapeOutput decodes the backslash escaping tmux applies to pane
// bytes in %output lines: octal escapes like \033 plus \\. Invalid
// escapes pass through unchanged rather than dropping data.
func unescapeOutput(raw string) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != '\\' || i+1 >= len(raw) {
			out = append(out, ch)
			continue
		}
		next := raw[i+1]
		if next >= '0' && next <= '7' && i+3 < len(raw) && isOctal(raw[i+2]) && isOctal(raw[i+3]) {
			v := (next-'0')<<6 | (raw[i+2]-'0')<<3 | (raw[i+3] - '0')
			out = append(out, v)
			i += 3
			continue
		}
		switch next {
		case '\\':
			out = append(out, '\\')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		default:
			out = append(out, next)
		}
		i++
	}
	return out
}

func isOctal(b byte) bool { return b >= '0' && b <= '7' }

// layoutGeometry extracts the WxH dimension from a tmux layout string
// such as "b25d,80x24,0,0,1".
func layoutGeometry(layout string) (cols, rows int, ok bool) {
	parts := strings.Split(strings.TrimSpace(layout), ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	dim := parts[1]
	x := strings.IndexByte(dim, 'x')
	if x <= 0 || x >= len(dim)-1 {
		return 0, 0, false
	}
	c, okC := atoiStrict(dim[:x])
	r, okR := atoiStrict(dim[x+1:])
	if !okC || !okR || c <= 0 || r <= 0 {
		return 0, 0, false
	}
	return c, r, true
}

func atoiStrict(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + int(s[i]-'0')
	}
	return v, true
}
