package shepherd

import (
	"io"
	"net"
)

// Client is the front-end side of a shepherd connection: it completes
// the size-first handshake, then pumps PtyInput frames out and
// PtyOutput/InitialState frames in.
type Client struct {
	conn net.Conn
}

// Connect dials socketPath and performs the handshake at the given
// terminal geometry, returning the InitialState restore-sequence bytes.
func Connect(socketPath string, rows, cols uint16) (*Client, []byte, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, nil, err
	}
	if err := WriteMessage(conn, Resize(rows, cols)); err != nil {
		conn.Close()
		return nil, nil, err
	}
	msg, ok, err := ReadMessage(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if !ok || msg.Type != TypeInitialState {
		conn.Close()
		return nil, nil, ErrHandshakeFailed
	}
	return &Client{conn: conn}, msg.Data, nil
}

// SendInput forwards local keystrokes to the shepherd's child.
func (c *Client) SendInput(data []byte) error {
	return WriteMessage(c.conn, PtyInput(data))
}

// SendResize forwards a terminal resize.
func (c *Client) SendResize(rows, cols uint16) error {
	return WriteMessage(c.conn, Resize(rows, cols))
}

// Recv reads the next server frame (PtyOutput, typically).
func (c *Client) Recv() (Message, bool, error) {
	return ReadMessage(c.conn)
}

// PumpOutput copies every received PtyOutput frame's payload to w until
// the connection closes or an error occurs.
func (c *Client) PumpOutput(w io.Writer) error {
	for {
		msg, ok, err := c.Recv()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if msg.Type == TypePtyOutput {
			if _, err := w.Write(msg.Data); err != nil {
				return err
			}
		}
	}
}

// Detach closes the connection without asking the shepherd to stop the
// session. This is the ordinary disconnect path (front-end exit,
// terminal close, ctrl-c): per spec.md §4.D, a client going away is
// just EOF to the shepherd, which keeps the child running so a later
// Connect can reattach. It is distinct from Shutdown, which actually
// asks the shepherd to tear the session down.
func (c *Client) Detach() error {
	return c.conn.Close()
}

// Shutdown sends the explicit Shutdown frame (spec.md §6's type 0x05),
// which the shepherd latches as a request to forward SIGTERM to its
// child before it exits, then closes the connection. Use this only when
// the caller actually wants to end the session, not on an ordinary
// detach.
func (c *Client) Shutdown() error {
	_ = WriteMessage(c.conn, Shutdown())
	return c.conn.Close()
}
