package events

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogPath returns where the JSONL journal is written when the
// config does not name a path.
func DefaultLogPath() string {
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		return filepath.Join(stateDir, "tabmux", "events.jsonl")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "tabmux", "events.jsonl")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("tabmux-%d", os.Getuid()), "events.jsonl")
}
