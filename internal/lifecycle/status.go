package lifecycle

import (
	"os"
	"strings"
)

// SessionStatus is the agent's self-reported state, read from its
// per-session status file under the workspace directory. The agent
// writes, the orchestrator polls on dir-change events; anything the
// file doesn't say parses as Starting.
type SessionStatus int

const (
	StatusStarting SessionStatus = iota
	StatusActive
	StatusIdle
	StatusNeedsInput
)

func (s SessionStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusIdle:
		return "idle"
	case StatusNeedsInput:
		return "needs input"
	default:
		return "starting"
	}
}

// ParseSessionStatus maps the status file's one-word content to a
// SessionStatus. "needs_input" and "needs input" are aliases; unknown
// content (including an empty file) means the agent hasn't reported
// yet.
func ParseSessionStatus(content string) SessionStatus {
	switch strings.TrimSpace(content) {
	case "active":
		return StatusActive
	case "idle":
		return StatusIdle
	case "needs_input", "needs input":
		return StatusNeedsInput
	default:
		return StatusStarting
	}
}

// ReadSessionStatus reads sessionID's status file. A missing or
// unreadable file reports Starting, same as unrecognized content.
func ReadSessionStatus(workspaceDir, sessionID string) SessionStatus {
	data, err := os.ReadFile(StatusFilePath(workspaceDir, sessionID))
	if err != nil {
		return StatusStarting
	}
	return ParseSessionStatus(string(data))
}
