package vt

// Action is one terminal operation decoded from a window's byte stream.
// The set is closed: Grid.Apply switches over every variant, and the
// parser never emits anything outside it. Unrecognized escape sequences
// are dropped by the parser rather than surfaced as actions.
type Action interface {
	isAction()
}

// Print writes a single rune at the cursor using the pending style.
type Print struct{ Rune rune }

// CarriageReturn moves the cursor to column 0.
type CarriageReturn struct{}

// Linefeed moves the cursor down one row, scrolling inside the scroll
// region when the cursor is on its last row.
type Linefeed struct{}

// Backspace moves the cursor one column left, stopping at column 0.
type Backspace struct{}

// HorizontalTab advances the cursor to the next tab stop (every 8 columns).
type HorizontalTab struct{}

// Bell is emitted for BEL; the grid ignores it, the registry uses it
// as an activity signal.
type Bell struct{}

// CursorUp moves the cursor up N rows, clamped to the scroll region top.
type CursorUp struct{ N int }

// CursorDown moves the cursor down N rows without scrolling.
type CursorDown struct{ N int }

// CursorForward moves the cursor right N columns.
type CursorForward struct{ N int }

// CursorBack moves the cursor left N columns.
type CursorBack struct{ N int }

// CursorTo places the cursor at a 1-based row/column position.
type CursorTo struct{ Row, Col int }

// CursorCol places the cursor at a 1-based column on the current row.
type CursorCol struct{ Col int }

// CursorRow places the cursor at a 1-based row in the current column.
type CursorRow struct{ Row int }

// EraseDisplay clears part of the screen: 0 cursor to end, 1 start to
// cursor, 2/3 whole screen.
type EraseDisplay struct{ Mode int }

// EraseLine clears part of the cursor row: 0 cursor to end, 1 start to
// cursor, 2 whole row.
type EraseLine struct{ Mode int }

// EraseChars blanks N cells from the cursor without shifting.
type EraseChars struct{ N int }

// InsertLines inserts N blank rows at the cursor inside the scroll region.
type InsertLines struct{ N int }

// DeleteLines deletes N rows at the cursor inside the scroll region.
type DeleteLines struct{ N int }

// InsertChars shifts the cursor row right by N, inserting blanks.
type InsertChars struct{ N int }

// DeleteChars shifts the cursor row left by N from the cursor.
type DeleteChars struct{ N int }

// ScrollUp scrolls the scroll region up N rows.
type ScrollUp struct{ N int }

// ScrollDown scrolls the scroll region down N rows.
type ScrollDown struct{ N int }

// SetScrollRegion sets the 1-based inclusive scroll region bounds.
// Top >= Bottom (after clamping) resets to the full screen.
type SetScrollRegion struct{ Top, Bottom int }

// SetAttr turns a single attribute bit on or off in the pending style.
type SetAttr struct {
	Attr Attr
	On   bool
}

// SetForeground sets the pending foreground color.
type SetForeground struct{ Color Color }

// SetBackground sets the pending background color.
type SetBackground struct{ Color Color }

// ResetStyle restores default colors and clears all pending attributes.
type ResetStyle struct{}

// SaveCursor records the cursor position for a later RestoreCursor.
type SaveCursor struct{}

// RestoreCursor returns the cursor to the last saved position.
type RestoreCursor struct{}

// ShowCursor toggles cursor visibility (DECTCEM).
type ShowCursor struct{ Visible bool }

// SetOriginMode toggles cursor addressing relative to the scroll region.
type SetOriginMode struct{ On bool }

// ReverseIndex moves the cursor up one row, scrolling down at the region top.
type ReverseIndex struct{}

// Reset returns the grid to its initial state (RIS).
type Reset struct{}

// SetTitle carries an OSC 0/2 window title. The grid ignores it; the
// registry applies it to the owning tab.
type SetTitle struct{ Title string }

func (Print) isAction()           {}
func (CarriageReturn) isAction()  {}
func (Linefeed) isAction()        {}
func (Backspace) isAction()       {}
func (HorizontalTab) isAction()   {}
func (Bell) isAction()            {}
func (CursorUp) isAction()        {}
func (CursorDown) isAction()      {}
func (CursorForward) isAction()   {}
func (CursorBack) isAction()      {}
func (CursorTo) isAction()        {}
func (CursorCol) isAction()       {}
func (CursorRow) isAction()       {}
func (EraseDisplay) isAction()    {}
func (EraseLine) isAction()       {}
func (EraseChars) isAction()      {}
func (InsertLines) isAction()     {}
func (DeleteLines) isAction()     {}
func (InsertChars) isAction()     {}
func (DeleteChars) isAction()     {}
func (ScrollUp) isAction()        {}
func (ScrollDown) isAction()      {}
func (SetScrollRegion) isAction() {}
func (SetAttr) isAction()         {}
func (SetForeground) isAction()   {}
func (SetBackground) isAction()   {}
func (ResetStyle) isAction()      {}
func (SaveCursor) isAction()      {}
func (RestoreCursor) isAction()   {}
func (ShowCursor) isAction()      {}
func (SetOriginMode) isAction()   {}
func (ReverseIndex) isAction()    {}
func (Reset) isAction()           {}
func (SetTitle) isAction()        {}
