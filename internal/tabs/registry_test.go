package tabs

import (
	"testing"
)

func newTestRegistry() *Registry {
	return NewRegistry(24, 80, 100)
}

func TestAddAndActivate(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "shell")
	r.Add("@2", "%2", "logs")
	r.SetActive("@1")

	if got := r.ActiveWindowID(); got != "@1" {
		t.Fatalf("active = %q", got)
	}
	if got := r.ActivePaneID(); got != "%1" {
		t.Fatalf("active pane = %q", got)
	}
	infos := r.TabInfos()
	if len(infos) != 2 {
		t.Fatalf("infos = %d", len(infos))
	}
	if !infos[0].Active || infos[1].Active {
		t.Errorf("active flags wrong: %+v", infos)
	}
	if infos[0].Index != 1 || infos[1].Index != 2 {
		t.Errorf("ordinals wrong: %+v", infos)
	}
}

func TestAddExistingUpdates(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "shell")
	r.Add("@1", "%9", "renamed")
	if r.Len() != 1 {
		t.Fatalf("len = %d", r.Len())
	}
	info := r.TabInfos()[0]
	if info.Title != "renamed" {
		t.Errorf("title = %q", info.Title)
	}
	if got := r.WindowIDForPane("%9"); got != "@1" {
		t.Errorf("pane mapping = %q", got)
	}
}

func TestRemoveActivePromotesFirst(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "a")
	r.Add("@2", "%2", "b")
	r.Add("@3", "%3", "c")
	r.SetActive("@2")
	r.Remove("@2")

	if got := r.ActiveWindowID(); got != "@1" {
		t.Errorf("active after remove = %q", got)
	}
	if r.Len() != 2 {
		t.Errorf("len = %d", r.Len())
	}
	// Removing an unknown window is a no-op.
	r.Remove("@99")
	if r.Len() != 2 {
		t.Errorf("len after bogus remove = %d", r.Len())
	}
}

func TestOutputRoutingAndActivity(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "a")
	r.Add("@2", "%2", "b")
	r.SetActive("@1")

	r.HandleOutput("%1", []byte("active"))
	r.HandleOutput("%2", []byte("background"))

	infos := r.TabInfos()
	if infos[0].Activity {
		t.Error("active tab flagged with activity")
	}
	if !infos[1].Activity {
		t.Error("background tab missing activity flag")
	}
	if got := r.tabs["@2"].Grid().Line(0); got != "background" {
		t.Errorf("background grid = %q", got)
	}

	// Switching to the flagged tab clears it.
	r.SetActive("@2")
	if r.TabInfos()[1].Activity {
		t.Error("activity not cleared on activation")
	}
}

func TestOutputForUnknownPaneDropped(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "a")
	r.HandleOutput("%404", []byte("lost"))
	if got := r.tabs["@1"].Grid().Line(0); got != "" {
		t.Errorf("grid = %q, want empty", got)
	}
}

func TestOutputTitleSideEffect(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "shell")
	r.SetActive("@1")
	r.HandleOutput("%1", []byte("\x1b]0;vim main.go\x07"))
	if got := r.TabInfos()[0].Title; got != "vim main.go" {
		t.Errorf("title = %q", got)
	}
}

func TestProcessWindowList(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "old")
	r.SetActive("@1")
	r.HandleOutput("%1", []byte("keep me"))

	r.ProcessWindowList("@1:0:%1:shell\n@2:1:%2:logs\n")

	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
	if got := r.ActiveWindowID(); got != "@2" {
		t.Errorf("active = %q", got)
	}
	// Existing grid survived the refresh.
	if got := r.tabs["@1"].Grid().Line(0); got != "keep me" {
		t.Errorf("grid after refresh = %q", got)
	}
	if got := r.TabInfos()[0].Title; got != "shell" {
		t.Errorf("title = %q", got)
	}

	// A window absent from the next reply is dropped.
	r.ProcessWindowList("@2:1:%2:logs\n")
	if r.Len() != 1 || r.ActiveWindowID() != "@2" {
		t.Errorf("len = %d active = %q", r.Len(), r.ActiveWindowID())
	}

	// Malformed lines are skipped.
	r.ProcessWindowList("@2:1:%2:logs\ngarbage line\n")
	if r.Len() != 1 {
		t.Errorf("len = %d", r.Len())
	}

	// Names may contain the separator because they come last.
	r.ProcessWindowList("@2:1:%2:make: all\n")
	if got := r.TabInfos()[0].Title; got != "make: all" {
		t.Errorf("title with separator = %q", got)
	}
}

func TestNextPrevSelection(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "a")
	r.Add("@2", "%2", "b")
	r.Add("@3", "%3", "c")
	r.SetActive("@1")

	if got := r.NextWindowID(); got != "@2" {
		t.Errorf("next = %q", got)
	}
	if got := r.PrevWindowID(); got != "@3" {
		t.Errorf("prev wraps = %q", got)
	}
	r.SetActive("@3")
	if got := r.NextWindowID(); got != "@1" {
		t.Errorf("next wraps = %q", got)
	}

	if got := r.WindowIDByIndex(2); got != "@2" {
		t.Errorf("by index = %q", got)
	}
	if got := r.WindowIDByIndex(9); got != "" {
		t.Errorf("out of range index = %q", got)
	}
}

func TestResizeAppliesToAllGrids(t *testing.T) {
	r := newTestRegistry()
	r.Add("@1", "%1", "a")
	r.Add("@2", "%2", "b")
	r.Resize(10, 40)
	for id, tab := range r.tabs {
		rows, cols := tab.Grid().Size()
		if rows != 10 || cols != 40 {
			t.Errorf("%s grid = %dx%d", id, rows, cols)
		}
	}
	// New tabs pick up the new size.
	r.Add("@3", "%3", "c")
	rows, cols := r.tabs["@3"].Grid().Size()
	if rows != 10 || cols != 40 {
		t.Errorf("new grid = %dx%d", rows, cols)
	}
}
