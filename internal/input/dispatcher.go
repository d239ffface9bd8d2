// Package input turns terminal key events into tab actions or
// commands for the multiplexer, with tmux-style prefix key handling.
package input

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultPrefixKey matches the familiar tmux prefix.
const DefaultPrefixKey = "ctrl+b"

// PrefixTimeout is how long the dispatcher waits for the key after a
// prefix before dropping back to pass-through.
const PrefixTimeout = 2 * time.Second

// Mode is the dispatcher state.
type Mode int

const (
	// Passthrough forwards keys to the active window.
	Passthrough Mode = iota
	// PrefixPending waits for a single binding key.
	PrefixPending
)

// ActionKind classifies what the caller should do with a key.
type ActionKind int

const (
	// ActionNone drops the key.
	ActionNone ActionKind = iota
	// ActionSendKey forwards a tmux key name (Enter, C-c, M-x).
	ActionSendKey
	// ActionSendLiteral forwards literal text with no interpretation.
	ActionSendLiteral
	// ActionNewTab creates a window.
	ActionNewTab
	// ActionCloseTab kills the active window.
	ActionCloseTab
	// ActionNextTab selects the next tab.
	ActionNextTab
	// ActionPrevTab selects the previous tab.
	ActionPrevTab
	// ActionSelectTab selects a tab by 1-based ordinal.
	ActionSelectTab
	// ActionToggleSidebar collapses or expands the sidebar.
	ActionToggleSidebar
	// ActionStartRename opens the rename overlay.
	ActionStartRename
	// ActionDetach detaches from the session.
	ActionDetach
	// ActionQuit exits without detaching server state.
	ActionQuit
)

// Action is the dispatcher's verdict on one key event.
type Action struct {
	Kind    ActionKind
	Key     string // tmux key name for ActionSendKey
	Literal string // text for ActionSendLiteral
	Index   int    // ordinal for ActionSelectTab
}

// Dispatcher is the modal key state machine. It is owned by the update
// loop and never shared between goroutines.
type Dispatcher struct {
	prefix     string
	mode       Mode
	generation int
}

// NewDispatcher returns a dispatcher in pass-through mode. An empty
// prefix selects DefaultPrefixKey.
func NewDispatcher(prefix string) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefixKey
	}
	return &Dispatcher{prefix: prefix}
}

// Mode returns the current state.
func (d *Dispatcher) Mode() Mode { return d.mode }

// Generation identifies the current prefix arming; a timeout only
// fires when its generation still matches.
func (d *Dispatcher) Generation() int { return d.generation }

// ExpirePrefix drops back to pass-through when the given prefix
// arming is still the current one.
func (d *Dispatcher) ExpirePrefix(generation int) {
	if d.mode == PrefixPending && d.generation == generation {
		d.mode = Passthrough
	}
}

// HandleKey consumes one key event. Any key received in prefix mode
// returns to pass-through: bound keys dispatch their action, unbound
// keys are dropped and never forwarded.
func (d *Dispatcher) HandleKey(msg tea.KeyMsg) Action {
	key := msg.String()

	if d.mode == PrefixPending {
		d.mode = Passthrough
		return d.prefixAction(key)
	}

	if key == "ctrl+q" {
		return Action{Kind: ActionQuit}
	}
	if key == d.prefix {
		d.mode = PrefixPending
		d.generation++
		return Action{Kind: ActionNone}
	}
	return translateKey(msg)
}

func (d *Dispatcher) prefixAction(key string) Action {
	switch key {
	case "c":
		return Action{Kind: ActionNewTab}
	case "x":
		return Action{Kind: ActionCloseTab}
	case "n":
		return Action{Kind: ActionNextTab}
	case "p":
		return Action{Kind: ActionPrevTab}
	case "b":
		return Action{Kind: ActionToggleSidebar}
	case ",":
		return Action{Kind: ActionStartRename}
	case "d":
		return Action{Kind: ActionDetach}
	case d.prefix:
		// Prefix twice sends the literal prefix key through.
		return Action{Kind: ActionSendKey, Key: prefixSendName(d.prefix)}
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return Action{Kind: ActionSelectTab, Index: int(key[0] - '0')}
	}
	return Action{Kind: ActionNone}
}

// prefixSendName maps a bubbletea key string like "ctrl+b" to the
// tmux send-keys name "C-b".
func prefixSendName(key string) string {
	if len(key) > 5 && key[:5] == "ctrl+" {
		return "C-" + key[5:]
	}
	if len(key) > 4 && key[:4] == "alt+" {
		return "M-" + key[4:]
	}
	return key
}

// specialKeys maps bubbletea key names to tmux key names.
var specialKeys = map[string]string{
	"enter":     "Enter",
	"backspace": "BSpace",
	"tab":       "Tab",
	"shift+tab": "BTab",
	"esc":       "Escape",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pgup":      "PageUp",
	"pgdown":    "PageDown",
	"delete":    "DC",
	"insert":    "IC",
}

func translateKey(msg tea.KeyMsg) Action {
	key := msg.String()

	if name, ok := specialKeys[key]; ok {
		return Action{Kind: ActionSendKey, Key: name}
	}
	if len(key) >= 2 && key[0] == 'f' && key[1] >= '1' && key[1] <= '9' {
		if n := fkeyNumber(key); n >= 1 && n <= 12 {
			return Action{Kind: ActionSendKey, Key: fmt.Sprintf("F%d", n)}
		}
	}
	if len(key) > 5 && key[:5] == "ctrl+" && len(key) == 6 {
		return Action{Kind: ActionSendKey, Key: "C-" + key[5:]}
	}
	if len(key) > 4 && key[:4] == "alt+" && len(key) == 5 {
		return Action{Kind: ActionSendKey, Key: "M-" + key[4:]}
	}
	if key == " " {
		return Action{Kind: ActionSendLiteral, Literal: " "}
	}
	if msg.Type == tea.KeyRunes {
		return Action{Kind: ActionSendLiteral, Literal: string(msg.Runes)}
	}
	return Action{Kind: ActionNone}
}

func fkeyNumber(key string) int {
	n := 0
	for i := 1; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0
		}
		n = n*10 + int(key[i]-'0')
	}
	return n
}
