// Package shepherd implements the detached terminal shepherd from
// spec.md §4.D: a sub-daemon that owns a child's PTY across front-end
// restarts, serving a length-prefixed binary frame protocol over a Unix
// domain socket so a front-end reconnect can restore scrollback and the
// live screen at the reconnect terminal size.
//
// The frame format and handshake are ported closely from
// original_source/kbtz-workspace/src/protocol.rs; no framing library
// exists anywhere in the reference corpus, so this is original code on
// stdlib encoding/binary.
package shepherd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType identifies the payload shape of a frame.
type MessageType byte

const (
	TypePtyOutput    MessageType = 0x01
	TypePtyInput     MessageType = 0x02
	TypeResize       MessageType = 0x03
	TypeInitialState MessageType = 0x04
	TypeShutdown     MessageType = 0x05
)

// Message is one decoded protocol frame.
type Message struct {
	Type MessageType
	Data []byte // PtyOutput, PtyInput, InitialState payload
	Rows uint16 // Resize
	Cols uint16 // Resize
}

// PtyOutput builds a shepherd->client output frame.
func PtyOutput(data []byte) Message { return Message{Type: TypePtyOutput, Data: data} }

// PtyInput builds a client->shepherd input frame.
func PtyInput(data []byte) Message { return Message{Type: TypePtyInput, Data: data} }

// Resize builds a resize frame.
func Resize(rows, cols uint16) Message { return Message{Type: TypeResize, Rows: rows, Cols: cols} }

// InitialState builds a shepherd->client restore-sequence frame.
func InitialState(data []byte) Message { return Message{Type: TypeInitialState, Data: data} }

// Shutdown builds a client->shepherd graceful-stop frame.
func Shutdown() Message { return Message{Type: TypeShutdown} }

// Encode serializes msg to the wire format:
// [4 bytes big-endian length][1 byte type][payload]. Length covers the
// type byte plus payload but not the 4-byte length prefix itself.
func Encode(msg Message) []byte {
	var payload []byte
	switch msg.Type {
	case TypePtyOutput, TypePtyInput, TypeInitialState:
		payload = msg.Data
	case TypeResize:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint16(payload[0:2], msg.Rows)
		binary.BigEndian.PutUint16(payload[2:4], msg.Cols)
	case TypeShutdown:
		payload = nil
	}

	length := uint32(1 + len(payload))
	buf := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], length)
	buf[4] = byte(msg.Type)
	copy(buf[5:], payload)
	return buf
}

// Decode parses a complete frame buffer (type byte + payload, no length
// prefix) into a Message.
func Decode(buf []byte) (Message, error) {
	if len(buf) == 0 {
		return Message{}, fmt.Errorf("%w: empty frame buffer", ErrProtocolCorrupt)
	}
	typeByte := MessageType(buf[0])
	payload := buf[1:]

	switch typeByte {
	case TypePtyOutput:
		return Message{Type: TypePtyOutput, Data: clone(payload)}, nil
	case TypePtyInput:
		return Message{Type: TypePtyInput, Data: clone(payload)}, nil
	case TypeResize:
		if len(payload) < 4 {
			return Message{}, fmt.Errorf("%w: resize payload too short: expected 4 bytes, got %d", ErrProtocolCorrupt, len(payload))
		}
		return Message{
			Type: TypeResize,
			Rows: binary.BigEndian.Uint16(payload[0:2]),
			Cols: binary.BigEndian.Uint16(payload[2:4]),
		}, nil
	case TypeInitialState:
		return Message{Type: TypeInitialState, Data: clone(payload)}, nil
	case TypeShutdown:
		return Message{Type: TypeShutdown}, nil
	default:
		return Message{}, fmt.Errorf("%w: unknown message type 0x%02x", ErrProtocolCorrupt, typeByte)
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ReadMessage reads one framed message from r. Returns (Message{}, false,
// nil) on clean EOF (zero bytes read when expecting the length prefix) —
// per spec.md §4.D, client disconnect is only real EOF or a real errno,
// never a poll timeout.
func ReadMessage(r io.Reader) (Message, bool, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return Message{}, false, nil
		}
		return Message{}, false, fmt.Errorf("read message length: %w", err)
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return Message{}, false, fmt.Errorf("%w: invalid zero-length frame", ErrProtocolCorrupt)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return Message{}, false, fmt.Errorf("read message frame: %w", err)
	}

	msg, err := Decode(frame)
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// WriteMessage writes one framed message to w and flushes if w is a
// *bufio.Writer.
func WriteMessage(w io.Writer, msg Message) error {
	if _, err := w.Write(Encode(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
