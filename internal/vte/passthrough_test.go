package vte

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateFormattedRoundTripsPlainText(t *testing.T) {
	p := NewPassthrough(5, 10)
	var sink bytes.Buffer
	p.Process(&sink, []byte("hello\r\n"))
	formatted := p.Screen().StateFormatted()
	require.Contains(t, string(formatted), "hello")
}

func TestBufferTrimPreservesConsistentScreenAfterStart(t *testing.T) {
	p := NewPassthrough(5, 10)
	chunk := bytes.Repeat([]byte("x"), 1024)
	// Push well past the 16MiB cap so at least one halving trim occurs.
	for i := 0; i < outputBufferCap/len(chunk)+4; i++ {
		p.Process(io.Discard, chunk)
	}
	require.LessOrEqual(t, len(p.out.buf), outputBufferCap)
	require.Equal(t, byte(cancelByte), p.out.buf[0])

	var sink bytes.Buffer
	p.Start(&sink)
	require.True(t, p.active)
}

func TestResizeBothGridsTogether(t *testing.T) {
	p := NewPassthrough(5, 10)
	p.SetSize(8, 20)
	require.Equal(t, 8, p.screen.Main.Rows)
	require.Equal(t, 8, p.screen.Alt.Rows)
	require.Equal(t, 20, p.screen.Main.Cols)
	require.Equal(t, 20, p.screen.Alt.Cols)
}
