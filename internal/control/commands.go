package control

import (
	"fmt"
	"strings"
)

// ListWindowsFormat is the -F format used by ListWindows; replies are
// parsed by tabs.ProcessWindowList. The name comes last so names
// containing the separator still parse.
const ListWindowsFormat = "#{window_id}:#{window_active}:#{pane_id}:#{window_name}"

// ListWindows lists windows with the fields the tab registry needs.
func ListWindows() string {
	return "list-windows -F '" + ListWindowsFormat + "'"
}

// NewWindow creates a window, optionally named.
func NewWindow(name string) string {
	if name == "" {
		return "new-window"
	}
	return fmt.Sprintf("new-window -n '%s'", escapeSingleQuotes(name))
}

// SelectWindow switches the session to a window by id.
func SelectWindow(windowID string) string {
	return "select-window -t " + windowID
}

// RenameWindow renames a window. A rejected rename produces an %error
// reply and leaves the server-side name unchanged.
func RenameWindow(windowID, name string) string {
	return fmt.Sprintf("rename-window -t %s '%s'", windowID, escapeSingleQuotes(name))
}

// KillWindow closes a window.
func KillWindow(windowID string) string {
	return "kill-window -t " + windowID
}

// SendKeys forwards a key to a pane. Key names (Enter, C-a, M-x) pass
// unquoted; literal characters are quoted when the shell would
// otherwise eat them.
func SendKeys(paneID, keys string) string {
	return fmt.Sprintf("send-keys -t %s %s", paneID, escapeForSendKeys(keys))
}

// SendText forwards a literal string to a pane with no key-name
// interpretation.
func SendText(paneID, text string) string {
	return fmt.Sprintf("send-keys -t %s -l '%s'", paneID, escapeSingleQuotes(text))
}

// RefreshClientSize tells the server the client viewport dimensions so
// windows are laid out at the real drawing size.
func RefreshClientSize(cols, rows int) string {
	return fmt.Sprintf("refresh-client -C %d,%d", cols, rows)
}

// CapturePane requests a pane's visible content with escape sequences
// preserved, used to seed a grid for pre-existing windows.
func CapturePane(paneID string) string {
	return fmt.Sprintf("capture-pane -t %s -p -e", paneID)
}

// DisplayMessage expands a format string server side.
func DisplayMessage(format string) string {
	return fmt.Sprintf("display-message -p '%s'", escapeSingleQuotes(format))
}

// DetachClient detaches this control client; the server answers with
// %exit.
func DetachClient() string {
	return "detach-client"
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

// keyNames are the tmux key names that must not be quoted in
// send-keys arguments.
var keyNames = map[string]bool{
	"Space": true, "Enter": true, "Tab": true, "BTab": true,
	"Escape": true, "BSpace": true,
	"Up": true, "Down": true, "Left": true, "Right": true,
	"Home": true, "End": true,
	"PageUp": true, "PageDown": true, "NPage": true, "PPage": true,
	"DC": true, "IC": true, "Insert": true, "Delete": true,
	"F1": true, "F2": true, "F3": true, "F4": true, "F5": true, "F6": true,
	"F7": true, "F8": true, "F9": true, "F10": true, "F11": true, "F12": true,
}

// IsKeyName reports whether s is a tmux key name rather than a
// literal character.
func IsKeyName(s string) bool {
	return keyNames[s] || strings.HasPrefix(s, "C-") || strings.HasPrefix(s, "M-")
}

func escapeForSendKeys(s string) string {
	if IsKeyName(s) {
		return s
	}
	if len(s) == 1 && !strings.ContainsAny(s, ";\\'\" `$!&|(){}[]<>*?#~") {
		return s
	}
	return "'" + escapeSingleQuotes(s) + "'"
}
