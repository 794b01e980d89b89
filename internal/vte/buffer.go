package vte

const (
	outputBufferCap = 16 * 1024 * 1024 // spec.md §4.E: cap ~16 MiB
	cancelByte       = 0x18            // CAN
)

// stringTerminator is ESC \ (ST), used to defuse any escape sequence that
// the halving trim below might have cut mid-stream.
var stringTerminator = []byte{0x1b, '\\'}

// outputBuffer is the bounded raw-byte buffer backing scrollback replay:
// append-only, halved by drop-from-front when it exceeds its cap, with a
// CAN+ST prefix inserted after trimming so any escape sequence severed by
// the cut is defused rather than left dangling and misinterpreted on
// replay.
type outputBuffer struct {
	buf []byte
}

func (b *outputBuffer) append(data []byte) {
	b.buf = append(b.buf, data...)
	if len(b.buf) > outputBufferCap {
		b.trim()
	}
}

func (b *outputBuffer) trim() {
	half := len(b.buf) / 2
	kept := b.buf[half:]
	defused := make([]byte, 0, 1+len(stringTerminator)+len(kept))
	defused = append(defused, cancelByte)
	defused = append(defused, stringTerminator...)
	defused = append(defused, kept...)
	b.buf = defused
}

func (b *outputBuffer) bytes() []byte { return b.buf }
