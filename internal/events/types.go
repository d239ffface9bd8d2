// Package events records what happened during a tabmux session: a
// bounded in-memory journal for diagnostics plus an optional JSONL log
// on disk.
package events

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindConnected         = "connected"
	KindClosed            = "closed"
	KindWindowAdded       = "window_added"
	KindWindowClosed      = "window_closed"
	KindWindowRenamed     = "window_renamed"
	KindRenameRejected    = "rename_rejected"
	KindTabSwitched       = "tab_switched"
	KindDetached          = "detached"
	KindProtocolViolation = "protocol_violation"
	KindCommandRejected   = "command_rejected"
)

// Event is one journal entry.
type Event struct {
	Kind     string    `json:"kind"`
	TS       time.Time `json:"ts"`
	WindowID string    `json:"window_id,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

func (e Event) Validate() error {
	if !isValidKind(e.Kind) {
		return fmt.Errorf("invalid kind %q", e.Kind)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// String renders the entry for the diagnostics view.
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.TS.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(e.Kind)
	if e.WindowID != "" {
		b.WriteByte(' ')
		b.WriteString(e.WindowID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func isValidKind(kind string) bool {
	switch kind {
	case KindConnected, KindClosed, KindWindowAdded, KindWindowClosed,
		KindWindowRenamed, KindRenameRejected, KindTabSwitched,
		KindDetached, KindProtocolViolation, KindCommandRejected:
		return true
	default:
		return false
	}
}
