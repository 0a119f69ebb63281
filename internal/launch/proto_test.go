package launch

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []Message{
		{Type: MsgUnshared},
		{Type: MsgProceed},
		{Type: MsgReady},
		{Type: MsgError, Errno: unix.EPERM, Step: "mount overlay"},
		{Type: MsgError, Errno: 0, Step: ""},
	}

	for _, want := range tests {
		r, w, err := os.Pipe()
		require.NoError(t, err)

		require.NoError(t, WriteMessage(w, want))
		w.Close()

		got, err := ReadMessage(r)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		r.Close()
	}
}

func TestReadMessageEOFOnDeadPeer(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	w.Close()

	_, err = ReadMessage(r)
	assert.Equal(t, io.EOF, err)
	r.Close()
}

func TestReadMessageRejectsGarbage(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.Write([]byte{0x7f})
	require.NoError(t, err)
	w.Close()

	_, err = ReadMessage(r)
	assert.Error(t, err)
	r.Close()
}

// TestRootlessHandshakeOrdering drives the child's half of the rootless
// protocol from a goroutine over plain pipes, standing in for a real fork.
func TestRootlessHandshakeOrdering(t *testing.T) {
	toChildR, toChildW, err := os.Pipe()
	require.NoError(t, err)
	fromChildR, fromChildW, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		// child side: announce the unshare, then block until the parent
		// confirms the maps are in place
		_ = WriteMessage(fromChildW, Message{Type: MsgUnshared})
		msg, err := ReadMessage(toChildR)
		if err == nil && msg.Type == MsgProceed {
			_ = WriteMessage(fromChildW, Message{Type: MsgReady})
		}
		fromChildW.Close()
	}()

	// parent side
	msg, err := ReadMessage(fromChildR)
	require.NoError(t, err)
	require.Equal(t, MsgUnshared, msg.Type)

	// uid/gid maps would be written here
	require.NoError(t, WriteMessage(toChildW, Message{Type: MsgProceed}))

	msg, err = ReadMessage(fromChildR)
	require.NoError(t, err)
	assert.Equal(t, MsgReady, msg.Type)

	toChildR.Close()
	toChildW.Close()
	fromChildR.Close()
}

func TestParamsRoundTrip(t *testing.T) {
	orig := &ExecParams{
		InitPID:    4242,
		Namespaces: nil,
		Command:    []string{"/bin/sh", "-c", "id"},
		Workdir:    "/srv",
		Env:        []string{"PATH=/bin"},
		Rootless:   true,
	}

	encoded, err := EncodeParams(orig)
	require.NoError(t, err)

	var decoded ExecParams
	require.NoError(t, DecodeParams(encoded, &decoded))
	assert.Equal(t, *orig, decoded)
}
