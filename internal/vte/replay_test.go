package vte

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func replayString(input string) string {
	var out bytes.Buffer
	Replay(&out, []byte(input))
	return out.String()
}

func TestReplayStripsDAAndDSR(t *testing.T) {
	input := "hello\x1b[c world\x1b[6n!\x1b[1;31mred\x1b[0m"
	require.Equal(t, "hello world!\x1b[1;31mred\x1b[0m", replayString(input))
}

func TestReplayStripsDA2(t *testing.T) {
	require.Equal(t, "beforeafter", replayString("before\x1b[>cafter"))
}

func TestReplayPreservesNonQueryCSI(t *testing.T) {
	input := "\x1b[1;1H\x1b[2Jhello\x1b[1;31mred\x1b[0m"
	require.Equal(t, input, replayString(input))
}

func TestReplayHandlesPlainText(t *testing.T) {
	input := "just plain text\n"
	require.Equal(t, input, replayString(input))
}

func TestReplayHandlesIncompleteCSIAtEnd(t *testing.T) {
	input := "text\x1b["
	require.Equal(t, input, replayString(input))
}

func TestReplayStripsOSCBackgroundColorQueryBEL(t *testing.T) {
	require.Equal(t, "beforeafter", replayString("before\x1b]11;?\x07after"))
}

func TestReplayStripsOSCBackgroundColorQueryST(t *testing.T) {
	require.Equal(t, "beforeafter", replayString("before\x1b]11;?\x1b\\after"))
}

func TestReplayStripsOSCPaletteQuery(t *testing.T) {
	require.Equal(t, "beforeafter", replayString("before\x1b]4;0;?\x07after"))
}

func TestReplayPreservesOSCWindowTitle(t *testing.T) {
	input := "\x1b]0;my title\x07hello"
	require.Equal(t, input, replayString(input))
}

func TestReplayPreservesOSCHyperlink(t *testing.T) {
	input := "\x1b]8;;https://example.com?q=1\x1b\\link\x1b]8;;\x1b\\"
	require.Equal(t, input, replayString(input))
}

func TestReplayHandlesIncompleteOSCAtEnd(t *testing.T) {
	input := "text\x1b]11;?"
	require.Equal(t, input, replayString(input))
}

func TestReplayMixedCSIAndOSCQueries(t *testing.T) {
	input := "a\x1b[cb\x1b]11;?\x07c\x1b[1;31md\x1b[0m"
	require.Equal(t, "abc\x1b[1;31md\x1b[0m", replayString(input))
}

func TestReplayIdempotent(t *testing.T) {
	input := "hello\x1b[c world\x1b[6n!\x1b[1;31mred\x1b[0m"
	once := replayString(input)
	twice := replayString(once)
	require.Equal(t, once, twice)
}
