// Package launch is the container launch pipeline: the parent side
// forks (via re-exec) a child that walks the namespace / cgroup /
// filesystem / capability / seccomp setup sequence and execs the
// payload. The two sides synchronize over a pair of anonymous pipes
// using the typed messages below.
package launch

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// MsgType identifies one sync-protocol message.
type MsgType byte

const (
	// child -> parent: user namespace is unshared, uid/gid maps can be
	// written (rootless only)
	MsgUnshared MsgType = 'U'
	// parent -> child: maps are written (or none were needed), proceed
	MsgProceed MsgType = 'X'
	// child -> parent: setup complete, about to exec the payload
	MsgReady MsgType = 'R'
	// child -> parent: setup failed at Step with Errno
	MsgError MsgType = 'E'
)

// Message is one frame of the parent-child sync protocol.
type Message struct {
	Type  MsgType
	Errno unix.Errno // MsgError only
	Step  string     // MsgError only
}

const maxStepLen = 1024

// WriteMessage encodes m onto w: a type byte, then for errors a 4-byte
// errno and a length-prefixed step string.
func WriteMessage(w io.Writer, m Message) error {
	if _, err := w.Write([]byte{byte(m.Type)}); err != nil {
		return err
	}
	if m.Type != MsgError {
		return nil
	}

	step := m.Step
	if len(step) > maxStepLen {
		step = step[:maxStepLen]
	}
	var hdr [6]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(m.Errno))
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(len(step)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte(step))
	return err
}

// ReadMessage reads one frame from r. io.EOF means the peer exited
// without sending one.
func ReadMessage(r io.Reader) (Message, error) {
	var tb [1]byte
	if _, err := io.ReadFull(r, tb[:]); err != nil {
		return Message{}, err
	}

	m := Message{Type: MsgType(tb[0])}
	switch m.Type {
	case MsgUnshared, MsgProceed, MsgReady:
		return m, nil
	case MsgError:
		var hdr [6]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Message{}, err
		}
		m.Errno = unix.Errno(binary.LittleEndian.Uint32(hdr[0:4]))
		stepLen := binary.LittleEndian.Uint16(hdr[4:6])
		step := make([]byte, stepLen)
		if _, err := io.ReadFull(r, step); err != nil {
			return Message{}, err
		}
		m.Step = string(step)
		return m, nil
	default:
		return Message{}, fmt.Errorf("unknown sync message type %q", tb[0])
	}
}
