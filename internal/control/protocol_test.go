package control

import (
	"reflect"
	"testing"
)

// tokenQueue mimics the connection's pending-command queue.
type tokenQueue struct{ tokens []string }

func (q *tokenQueue) next() string {
	if len(q.tokens) == 0 {
		return ""
	}
	t := q.tokens[0]
	q.tokens = q.tokens[1:]
	return t
}

func TestDecoderEmptyReply(t *testing.T) {
	q := &tokenQueue{tokens: []string{"cmd-1"}}
	d := &decoder{nextToken: q.next}
	got := d.feed([]byte("%begin 1\n%end 1\n"))
	want := []Event{Reply{Token: "cmd-1", Text: "", IsError: false}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("feed = %#v, want %#v", got, want)
	}
}

func TestDecoderReplyPayloadAndFIFO(t *testing.T) {
	q := &tokenQueue{tokens: []string{"first", "second"}}
	d := &decoder{nextToken: q.next}
	input := "%begin 100 1 0\nline one\nline two\n%end 100 1 0\n" +
		"%begin 101 2 0\nnope\n%error 101 2 0\n"
	got := d.feed([]byte(input))
	want := []Event{
		Reply{Token: "first", Text: "line one\nline two"},
		Reply{Token: "second", Text: "nope", IsError: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("feed = %#v, want %#v", got, want)
	}
}

func TestDecoderAttachGreetingKeepsToken(t *testing.T) {
	// tmux answers a new control client with one block that belongs to
	// no command. It must not steal the token of the first real reply.
	q := &tokenQueue{tokens: []string{"cmd-1"}}
	d := &decoder{nextToken: q.next, greeting: true}
	input := "%begin 100 0 0\n%end 100 0 0\n" +
		"%begin 101 1 0\n@1 shell\n%end 101 1 0\n"
	got := d.feed([]byte(input))
	want := []Event{Reply{Token: "cmd-1", Text: "@1 shell"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("feed = %#v, want %#v", got, want)
	}
}

func TestDecoderChunkBoundaries(t *testing.T) {
	input := []byte("%begin 5 1 0\npayload\n%end 5 1 0\n%output %0 ab\\033[1mc\n")
	whole := func() []Event {
		q := &tokenQueue{tokens: []string{"t"}}
		d := &decoder{nextToken: q.next}
		return d.feed(input)
	}()
	for cut := 1; cut < len(input); cut++ {
		q := &tokenQueue{tokens: []string{"t"}}
		d := &decoder{nextToken: q.next}
		got := d.feed(input[:cut])
		got = append(got, d.feed(input[cut:])...)
		if !reflect.DeepEqual(got, whole) {
			t.Fatalf("split at %d: got %#v, want %#v", cut, got, whole)
		}
	}
}

func TestDecoderViolations(t *testing.T) {
	t.Run("end without begin", func(t *testing.T) {
		d := &decoder{}
		got := d.feed([]byte("%end 1 1 0\n"))
		if len(got) != 1 {
			t.Fatalf("events = %#v", got)
		}
		if _, ok := got[0].(Violation); !ok {
			t.Fatalf("got %#v, want Violation", got[0])
		}
	})
	t.Run("mismatched markers discard reply", func(t *testing.T) {
		q := &tokenQueue{tokens: []string{"t"}}
		d := &decoder{nextToken: q.next}
		got := d.feed([]byte("%begin 1 1 0\nx\n%end 2 9 0\n"))
		if len(got) != 1 {
			t.Fatalf("events = %#v", got)
		}
		if _, ok := got[0].(Violation); !ok {
			t.Fatalf("got %#v, want Violation", got[0])
		}
		// The pending command is still owed a reply.
		if len(q.tokens) != 1 {
			t.Errorf("token consumed by discarded block")
		}
	})
	t.Run("decoding continues after violation", func(t *testing.T) {
		d := &decoder{}
		got := d.feed([]byte("%end 1 1 0\n%window-add @5\n"))
		if len(got) != 2 {
			t.Fatalf("events = %#v", got)
		}
		if ev, ok := got[1].(WindowAdd); !ok || ev.WindowID != "@5" {
			t.Fatalf("got %#v, want WindowAdd @5", got[1])
		}
	})
}

func TestDecoderNotifications(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{"output", "%output %1 hello", Output{PaneID: "%1", Bytes: []byte("hello")}},
		{"output octal escape", `%output %1 a\033[31mb`, Output{PaneID: "%1", Bytes: []byte("a\x1b[31mb")}},
		{"output escaped backslash", `%output %1 a\\b`, Output{PaneID: "%1", Bytes: []byte(`a\b`)}},
		{"window add", "%window-add @2", WindowAdd{WindowID: "@2"}},
		{"unlinked window add", "%unlinked-window-add @3", WindowAdd{WindowID: "@3"}},
		{"window close", "%window-close @2", WindowClose{WindowID: "@2"}},
		{"window renamed", "%window-renamed @2 build logs", WindowRenamed{WindowID: "@2", Name: "build logs"}},
		{"layout change", "%layout-change @1 b25d,80x24,0,0,1", LayoutChange{
			WindowID: "@1", Layout: "b25d,80x24,0,0,1", Cols: 80, Rows: 24, SizeOK: true,
		}},
		{"session changed", "%session-changed $1 work", SessionChanged{SessionID: "$1", Name: "work"}},
		{"session window changed", "%session-window-changed $1 @4", SessionWindowChanged{SessionID: "$1", WindowID: "@4"}},
		{"sessions changed", "%sessions-changed", SessionsChanged{}},
		{"window pane changed", "%window-pane-changed @1 %9", WindowPaneChanged{WindowID: "@1", PaneID: "%9"}},
		{"pane mode changed", "%pane-mode-changed %3", PaneModeChanged{PaneID: "%3"}},
		{"client detached", "%client-detached client0", Closed{Reason: "client detached"}},
		{"exit", "%exit", Closed{Reason: "server exit"}},
		{"exit with reason", "%exit detached", Closed{Reason: "detached"}},
		{"unknown tag", "%subscription-changed foo", Unknown{Line: "%subscription-changed foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &decoder{}
			got := d.feed([]byte(tt.line + "\n"))
			if len(got) != 1 {
				t.Fatalf("events = %#v", got)
			}
			if !reflect.DeepEqual(got[0], tt.want) {
				t.Errorf("got %#v, want %#v", got[0], tt.want)
			}
		})
	}
}

func TestDecoderExtendedOutput(t *testing.T) {
	d := &decoder{}
	got := d.feed([]byte("%extended-output %2 0 : abc\n"))
	want := []Event{Output{PaneID: "%2", Bytes: []byte("abc")}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("feed = %#v, want %#v", got, want)
	}
}

func TestDecoderCRLF(t *testing.T) {
	d := &decoder{}
	got := d.feed([]byte("%window-add @7\r\n"))
	want := []Event{WindowAdd{WindowID: "@7"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("feed = %#v, want %#v", got, want)
	}
}

func TestUnescapeOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`\033[2J`, "\x1b[2J"},
		{`tab\ttext`, "tab\ttext"},
		{`cr\rlf\n`, "cr\rlf\n"},
		{`back\\slash`, `back\slash`},
		{`\177`, "\x7f"},
		{`trailing\`, `trailing\`},
		{`\9`, "9"},
	}
	for _, tt := range tests {
		if got := string(unescapeOutput(tt.in)); got != tt.want {
			t.Errorf("unescapeOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLayoutGeometry(t *testing.T) {
	tests := []struct {
		in         string
		cols, rows int
		ok         bool
	}{
		{"b25d,80x24,0,0,1", 80, 24, true},
		{"c3f1,200x50,0,0{100x50,0,0,1,99x50,101,0,2}", 200, 50, true},
		{"", 0, 0, false},
		{"b25d", 0, 0, false},
		{"b25d,80y24,0,0", 0, 0, false},
	}
	for _, tt := range tests {
		cols, rows, ok := layoutGeometry(tt.in)
		if cols != tt.cols || rows != tt.rows || ok != tt.ok {
			t.Errorf("layoutGeometry(%q) = (%d,%d,%v), want (%d,%d,%v)",
				tt.in, cols, rows, ok, tt.cols, tt.rows, tt.ok)
		}
	}
}
