package lifecycle

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSessionStatus(t *testing.T) {
	cases := []struct {
		content string
		want    SessionStatus
	}{
		{"active", StatusActive},
		{"active\n", StatusActive},
		{"idle", StatusIdle},
		{"needs_input", StatusNeedsInput},
		{"needs input", StatusNeedsInput},
		{"", StatusStarting},
		{"something-else", StatusStarting},
		{"ACTIVE", StatusStarting},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseSessionStatus(tc.content), "content %q", tc.content)
	}
}

func TestReadSessionStatusMissingFileIsStarting(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, StatusStarting, ReadSessionStatus(dir, "ws/1"))
}

func TestReadSessionStatusUsesSlashReplacedFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(StatusFilePath(dir, "ws/2"), []byte("idle\n"), 0o644))
	require.Equal(t, StatusIdle, ReadSessionStatus(dir, "ws/2"))
}
