package shepherd

import "errors"

// ErrProtocolCorrupt is returned when a frame fails to decode: empty
// buffer, truncated resize payload, or unknown type byte.
var ErrProtocolCorrupt = errors.New("shepherd: protocol corrupt")

// ErrHandshakeFailed is returned by Connect when the shepherd's first
// frame is not InitialState, or the connection closes before one arrives.
var ErrHandshakeFailed = errors.New("shepherd: handshake failed")

// ErrShepherdUnreachable names the case where the socket for a session's
// shepherd cannot be dialed but its pidfile shows the process is alive
// (a startup race, not a dead shepherd). No function in this package
// returns it.
var ErrShepherdUnreachable = errors.New("shepherd: unreachable")
