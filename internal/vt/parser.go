package vt

import (
	"unicode/utf8"
)

type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEsc
	stateDCS
	stateDCSEsc
	stateCharset
)

// maxOSCLen bounds title payloads so a stream that never terminates an
// OSC cannot grow the buffer without limit.
const maxOSCLen = 2048

// Parser is a restartable escape-sequence decoder. Feed may be called
// with arbitrary byte chunks; sequences split across chunk boundaries
// carry over in internal state, so the concatenation of the emitted
// action slices depends only on the concatenation of the input.
type Parser struct {
	state parseState

	params   []int
	curParam int
	hasParam bool
	private  byte

	osc []byte

	utf8Buf  [utf8.UTFMax]byte
	utf8Len  int
	utf8Need int

	// Recoveries counts malformed sequences that forced a reset to
	// ground state.
	Recoveries int
}

// NewParser returns a parser in ground state.
func NewParser() *Parser {
	return &Parser{}
}

// Feed decodes a chunk of terminal output into actions. The returned
// slice is owned by the caller.
func (p *Parser) Feed(data []byte) []Action {
	actions := make([]Action, 0, len(data)/2)
	for i := 0; i < len(data); i++ {
		b := data[i]
		reprocess := p.step(b, &actions)
		if reprocess {
			i--
		}
	}
	return actions
}

// step consumes one byte. It returns true when the byte must be
// reprocessed in the new state, which happens when a malformed
// sequence is abandoned.
func (p *Parser) step(b byte, out *[]Action) bool {
	switch p.state {
	case stateGround:
		p.ground(b, out)
	case stateEscape:
		p.escape(b, out)
	case stateCSI:
		return p.csi(b, out)
	case stateOSC:
		p.oscByte(b, out)
	case stateOSCEsc:
		// ESC inside OSC: only ESC \ (ST) terminates the string.
		if b == '\\' {
			p.emitOSC(out)
			p.state = stateGround
		} else {
			p.Recoveries++
			p.reset()
			return true
		}
	case stateDCS:
		if b == 0x1b {
			p.state = stateDCSEsc
		} else if b == 0x07 {
			p.state = stateGround
		}
	case stateDCSEsc:
		if b == '\\' {
			p.state = stateGround
		} else {
			p.Recoveries++
			p.reset()
			return true
		}
	case stateCharset:
		// Designation byte after ESC ( or ESC ); consumed and ignored.
		p.state = stateGround
	}
	return false
}

func (p *Parser) ground(b byte, out *[]Action) {
	if p.utf8Need > 0 {
		if b&0xc0 == 0x80 {
			p.utf8Buf[p.utf8Len] = b
			p.utf8Len++
			p.utf8Need--
			if p.utf8Need == 0 {
				r, _ := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
				*out = append(*out, Print{Rune: r})
				p.utf8Len = 0
			}
			return
		}
		// Truncated multibyte sequence; flush a replacement rune and
		// handle the current byte normally.
		*out = append(*out, Print{Rune: utf8.RuneError})
		p.utf8Len = 0
		p.utf8Need = 0
		p.Recoveries++
	}

	switch {
	case b == 0x1b:
		p.state = stateEscape
	case b == '\r':
		*out = append(*out, CarriageReturn{})
	case b == '\n', b == 0x0b, b == 0x0c:
		*out = append(*out, Linefeed{})
	case b == 0x08:
		*out = append(*out, Backspace{})
	case b == '\t':
		*out = append(*out, HorizontalTab{})
	case b == 0x07:
		*out = append(*out, Bell{})
	case b < 0x20 || b == 0x7f:
		// Other C0 controls and DEL are dropped.
	case b < 0x80:
		*out = append(*out, Print{Rune: rune(b)})
	default:
		n := utf8ExpectedLen(b)
		if n == 0 {
			*out = append(*out, Print{Rune: utf8.RuneError})
			p.Recoveries++
			return
		}
		p.utf8Buf[0] = b
		p.utf8Len = 1
		p.utf8Need = n - 1
	}
}

func utf8ExpectedLen(b byte) int {
	switch {
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	}
	return 0
}

func (p *Parser) escape(b byte, out *[]Action) {
	switch b {
	case '[':
		p.params = p.params[:0]
		p.curParam = 0
		p.hasParam = false
		p.private = 0
		p.state = stateCSI
	case ']':
		p.osc = p.osc[:0]
		p.state = stateOSC
	case 'P':
		p.state = stateDCS
	case '(', ')':
		p.state = stateCharset
	case '7':
		*out = append(*out, SaveCursor{})
		p.state = stateGround
	case '8':
		*out = append(*out, RestoreCursor{})
		p.state = stateGround
	case 'D':
		*out = append(*out, Linefeed{})
		p.state = stateGround
	case 'E':
		*out = append(*out, CarriageReturn{}, Linefeed{})
		p.state = stateGround
	case 'M':
		*out = append(*out, ReverseIndex{})
		p.state = stateGround
	case 'c':
		*out = append(*out, Reset{})
		p.state = stateGround
	case '=', '>':
		// Keypad modes; ignored.
		p.state = stateGround
	default:
		p.Recoveries++
		p.state = stateGround
	}
}

func (p *Parser) csi(b byte, out *[]Action) bool {
	switch {
	case b >= '0' && b <= '9':
		p.curParam = p.curParam*10 + int(b-'0')
		if p.curParam > 65535 {
			p.curParam = 65535
		}
		p.hasParam = true
	case b == ';' || b == ':':
		p.params = append(p.params, p.curParam)
		p.curParam = 0
		p.hasParam = false
	case b == '?' || b == '<' || b == '=' || b == '>':
		p.private = b
	case b >= 0x40 && b <= 0x7e:
		if p.hasParam || len(p.params) > 0 {
			p.params = append(p.params, p.curParam)
		}
		p.dispatchCSI(b, out)
		p.state = stateGround
	case b == 0x1b:
		// ESC aborts the sequence and starts a new one.
		p.Recoveries++
		p.state = stateEscape
	case b < 0x20:
		// C0 controls abort malformed sequences; reprocess in ground.
		p.Recoveries++
		p.reset()
		return true
	default:
		// Intermediate bytes (space, !, " ...) are tolerated; the
		// eventual final byte will be unrecognized and dropped.
	}
	return false
}

func (p *Parser) param(i, def int) int {
	if i < len(p.params) && p.params[i] != 0 {
		return p.params[i]
	}
	return def
}

func (p *Parser) dispatchCSI(final byte, out *[]Action) {
	if p.private == '?' {
		p.dispatchPrivate(final, out)
		return
	}
	if p.private != 0 {
		return
	}
	switch final {
	case 'A':
		*out = append(*out, CursorUp{N: p.param(0, 1)})
	case 'B':
		*out = append(*out, CursorDown{N: p.param(0, 1)})
	case 'C':
		*out = append(*out, CursorForward{N: p.param(0, 1)})
	case 'D':
		*out = append(*out, CursorBack{N: p.param(0, 1)})
	case 'E':
		*out = append(*out, CursorDown{N: p.param(0, 1)}, CursorCol{Col: 1})
	case 'F':
		*out = append(*out, CursorUp{N: p.param(0, 1)}, CursorCol{Col: 1})
	case 'G', '`':
		*out = append(*out, CursorCol{Col: p.param(0, 1)})
	case 'H', 'f':
		*out = append(*out, CursorTo{Row: p.param(0, 1), Col: p.param(1, 1)})
	case 'd':
		*out = append(*out, CursorRow{Row: p.param(0, 1)})
	case 'J':
		mode := 0
		if len(p.params) > 0 {
			mode = p.params[0]
		}
		*out = append(*out, EraseDisplay{Mode: mode})
	case 'K':
		mode := 0
		if len(p.params) > 0 {
			mode = p.params[0]
		}
		*out = append(*out, EraseLine{Mode: mode})
	case 'L':
		*out = append(*out, InsertLines{N: p.param(0, 1)})
	case 'M':
		*out = append(*out, DeleteLines{N: p.param(0, 1)})
	case 'P':
		*out = append(*out, DeleteChars{N: p.param(0, 1)})
	case '@':
		*out = append(*out, InsertChars{N: p.param(0, 1)})
	case 'X':
		*out = append(*out, EraseChars{N: p.param(0, 1)})
	case 'S':
		*out = append(*out, ScrollUp{N: p.param(0, 1)})
	case 'T':
		*out = append(*out, ScrollDown{N: p.param(0, 1)})
	case 'r':
		*out = append(*out, SetScrollRegion{Top: p.param(0, 1), Bottom: p.param(1, 0)})
	case 's':
		*out = append(*out, SaveCursor{})
	case 'u':
		*out = append(*out, RestoreCursor{})
	case 'm':
		p.dispatchSGR(out)
	default:
		// Unknown final byte; sequence dropped.
	}
}

func (p *Parser) dispatchPrivate(final byte, out *[]Action) {
	on := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	for _, n := range p.params {
		switch n {
		case 25:
			*out = append(*out, ShowCursor{Visible: on})
		case 6:
			*out = append(*out, SetOriginMode{On: on})
		}
	}
}

func (p *Parser) dispatchSGR(out *[]Action) {
	if len(p.params) == 0 {
		*out = append(*out, ResetStyle{})
		return
	}
	for i := 0; i < len(p.params); i++ {
		n := p.params[i]
		switch {
		case n == 0:
			*out = append(*out, ResetStyle{})
		case n == 1:
			*out = append(*out, SetAttr{Attr: AttrBold, On: true})
		case n == 2:
			*out = append(*out, SetAttr{Attr: AttrDim, On: true})
		case n == 3:
			*out = append(*out, SetAttr{Attr: AttrItalic, On: true})
		case n == 4:
			*out = append(*out, SetAttr{Attr: AttrUnderline, On: true})
		case n == 5:
			*out = append(*out, SetAttr{Attr: AttrBlink, On: true})
		case n == 7:
			*out = append(*out, SetAttr{Attr: AttrReverse, On: true})
		case n == 8:
			*out = append(*out, SetAttr{Attr: AttrHidden, On: true})
		case n == 9:
			*out = append(*out, SetAttr{Attr: AttrStrike, On: true})
		case n == 22:
			*out = append(*out, SetAttr{Attr: AttrBold, On: false}, SetAttr{Attr: AttrDim, On: false})
		case n == 23:
			*out = append(*out, SetAttr{Attr: AttrItalic, On: false})
		case n == 24:
			*out = append(*out, SetAttr{Attr: AttrUnderline, On: false})
		case n == 25:
			*out = append(*out, SetAttr{Attr: AttrBlink, On: false})
		case n == 27:
			*out = append(*out, SetAttr{Attr: AttrReverse, On: false})
		case n == 28:
			*out = append(*out, SetAttr{Attr: AttrHidden, On: false})
		case n == 29:
			*out = append(*out, SetAttr{Attr: AttrStrike, On: false})
		case n >= 30 && n <= 37:
			*out = append(*out, SetForeground{Color: IndexedColor(uint8(n - 30))})
		case n == 38:
			c, skip, ok := extendedColor(p.params[i+1:])
			i += skip
			if ok {
				*out = append(*out, SetForeground{Color: c})
			}
		case n == 39:
			*out = append(*out, SetForeground{Color: DefaultColor})
		case n >= 40 && n <= 47:
			*out = append(*out, SetBackground{Color: IndexedColor(uint8(n - 40))})
		case n == 48:
			c, skip, ok := extendedColor(p.params[i+1:])
			i += skip
			if ok {
				*out = append(*out, SetBackground{Color: c})
			}
		case n == 49:
			*out = append(*out, SetBackground{Color: DefaultColor})
		case n >= 90 && n <= 97:
			*out = append(*out, SetForeground{Color: IndexedColor(uint8(n - 90 + 8))})
		case n >= 100 && n <= 107:
			*out = append(*out, SetBackground{Color: IndexedColor(uint8(n - 100 + 8))})
		}
	}
}

// extendedColor decodes the tail of a 38/48 SGR parameter list. It
// returns the color, the number of parameters consumed, and whether
// the form was valid.
func extendedColor(rest []int) (Color, int, bool) {
	if len(rest) == 0 {
		return DefaultColor, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return DefaultColor, len(rest), false
		}
		return IndexedColor(uint8(clampInt(rest[1], 0, 255))), 2, true
	case 2:
		if len(rest) < 4 {
			return DefaultColor, len(rest), false
		}
		r := uint8(clampInt(rest[1], 0, 255))
		g := uint8(clampInt(rest[2], 0, 255))
		b := uint8(clampInt(rest[3], 0, 255))
		return RGBColor(r, g, b), 4, true
	}
	return DefaultColor, 1, false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Parser) oscByte(b byte, out *[]Action) {
	switch b {
	case 0x07:
		p.emitOSC(out)
		p.state = stateGround
	case 0x1b:
		p.state = stateOSCEsc
	default:
		if len(p.osc) < maxOSCLen {
			p.osc = append(p.osc, b)
		}
	}
}

func (p *Parser) emitOSC(out *[]Action) {
	s := string(p.osc)
	p.osc = p.osc[:0]
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			if code := s[:i]; code == "0" || code == "2" {
				*out = append(*out, SetTitle{Title: s[i+1:]})
			}
			return
		}
	}
}

// reset abandons any in-progress sequence and returns to ground state.
func (p *Parser) reset() {
	p.state = stateGround
	p.params = p.params[:0]
	p.curParam = 0
	p.hasParam = false
	p.private = 0
	p.osc = p.osc[:0]
	p.utf8Len = 0
	p.utf8Need = 0
}
