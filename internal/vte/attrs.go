package vte

// SGRAttrs is the subset of Select Graphic Rendition state a cell carries:
// foreground/background color (as a palette index: 0-7 basic, 8-15
// bright, 256+n for a 38;5;n or 48;5;n color, -1 for a 24-bit color) and
// the boolean text attributes.
type SGRAttrs struct {
	Fg        int
	Bg        int
	HasFg     bool
	HasBg     bool
	Bold      bool
	Dim       bool
	Italic    bool
	Underline bool
	Blink     bool
	Reverse   bool
	Hidden    bool
	Strike    bool
}

func (a SGRAttrs) isDefault() bool {
	return a == SGRAttrs{}
}

// applySGR folds one CSI "m" parameter list into the running attribute
// state, following the standard SGR parameter table.
func applySGR(attrs SGRAttrs, params []int) SGRAttrs {
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			attrs = SGRAttrs{}
		case p == 1:
			attrs.Bold = true
		case p == 2:
			attrs.Dim = true
		case p == 3:
			attrs.Italic = true
		case p == 4:
			attrs.Underline = true
		case p == 5:
			attrs.Blink = true
		case p == 7:
			attrs.Reverse = true
		case p == 8:
			attrs.Hidden = true
		case p == 9:
			attrs.Strike = true
		case p == 22:
			attrs.Bold, attrs.Dim = false, false
		case p == 23:
			attrs.Italic = false
		case p == 24:
			attrs.Underline = false
		case p == 25:
			attrs.Blink = false
		case p == 27:
			attrs.Reverse = false
		case p == 28:
			attrs.Hidden = false
		case p == 29:
			attrs.Strike = false
		case p >= 30 && p <= 37:
			attrs.Fg, attrs.HasFg = p-30, true
		case p == 38:
			// Extended color: 38;5;n is recorded as 256+n, which
			// StateFormatted replays; 38;2;r;g;b is recorded as -1, which
			// StateFormatted does not replay.
			if i+1 < len(params) && params[i+1] == 5 && i+2 < len(params) {
				attrs.Fg, attrs.HasFg = 256+params[i+2], true
				i += 2
			} else if i+1 < len(params) && params[i+1] == 2 && i+4 < len(params) {
				attrs.Fg, attrs.HasFg = -1, true
				i += 4
			}
		case p == 39:
			attrs.HasFg = false
		case p >= 40 && p <= 47:
			attrs.Bg, attrs.HasBg = p-40, true
		case p == 48:
			if i+1 < len(params) && params[i+1] == 5 && i+2 < len(params) {
				attrs.Bg, attrs.HasBg = 256+params[i+2], true
				i += 2
			} else if i+1 < len(params) && params[i+1] == 2 && i+4 < len(params) {
				attrs.Bg, attrs.HasBg = -1, true
				i += 4
			}
		case p == 49:
			attrs.HasBg = false
		case p >= 90 && p <= 97:
			attrs.Fg, attrs.HasFg = p-90+8, true
		case p >= 100 && p <= 107:
			attrs.Bg, attrs.HasBg = p-100+8, true
		}
	}
	return attrs
}
