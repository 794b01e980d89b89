package shepherd

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundtripPtyOutput(t *testing.T) {
	msg := PtyOutput([]byte("hello world"))
	decoded, err := Decode(Encode(msg)[4:])
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestRoundtripPtyInput(t *testing.T) {
	msg := PtyInput([]byte("ls -la\n"))
	decoded, err := Decode(Encode(msg)[4:])
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestRoundtripResize(t *testing.T) {
	msg := Resize(24, 80)
	decoded, err := Decode(Encode(msg)[4:])
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestRoundtripInitialState(t *testing.T) {
	msg := InitialState([]byte("\x1b[2Jrestored"))
	decoded, err := Decode(Encode(msg)[4:])
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestRoundtripShutdown(t *testing.T) {
	msg := Shutdown()
	decoded, err := Decode(Encode(msg)[4:])
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestDecodeEmptyFails(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrProtocolCorrupt)
}

func TestDecodeTruncatedResizeFails(t *testing.T) {
	_, err := Decode([]byte{byte(TypeResize), 0x00, 0x18})
	require.ErrorIs(t, err, ErrProtocolCorrupt)
}

func TestDecodeUnknownTypeFails(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	require.ErrorIs(t, err, ErrProtocolCorrupt)
}

func TestReadMessageFromStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, PtyOutput([]byte("abc"))))

	msg, ok, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TypePtyOutput, msg.Type)
	require.Equal(t, []byte("abc"), msg.Data)
}

func TestReadMessageEOFReturnsFalse(t *testing.T) {
	r := bytes.NewReader(nil)
	msg, ok, err := ReadMessage(r)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, Message{}, msg)
}

func TestWriteThenReadMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Resize(40, 120)))
	require.NoError(t, WriteMessage(&buf, PtyInput([]byte("q"))))

	msg1, ok, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Resize(40, 120), msg1)

	msg2, ok, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, PtyInput([]byte("q")), msg2)

	_, ok, err = ReadMessage(&buf)
	require.NoError(t, err)
	require.False(t, ok)
}

var _ io.Writer = (*bytes.Buffer)(nil)
