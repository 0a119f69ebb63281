package ctrlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLineStampsAndReadStrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "container.log")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteLine("hello"))
	require.NoError(t, w.WriteLine("world"))
	require.NoError(t, w.Close())

	var raw bytes.Buffer
	require.NoError(t, Read(path, &raw, ReadOptions{}, nil))
	assert.Equal(t, "hello\nworld\n", raw.String())

	var stamped bytes.Buffer
	require.NoError(t, Read(path, &stamped, ReadOptions{Timestamps: true}, nil))
	lines := strings.Split(strings.TrimSuffix(stamped.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3} `, line)
	}
}

func TestReadTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "container.log")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	for _, line := range []string{"one", "two", "three", "four"} {
		require.NoError(t, w.WriteLine(line))
	}
	require.NoError(t, w.Close())

	var out bytes.Buffer
	require.NoError(t, Read(path, &out, ReadOptions{Tail: 2}, nil))
	assert.Equal(t, "three\nfour\n", out.String())
}

func TestReadPassesThroughUnstampedLines(t *testing.T) {
	// raw payload output written straight to the fd has no stamp
	path := filepath.Join(t.TempDir(), "container.log")
	require.NoError(t, os.WriteFile(path, []byte("plain output\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, Read(path, &out, ReadOptions{Timestamps: true}, nil))
	assert.Equal(t, "plain output\n", out.String())
}

func TestRotateAtThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "container.log")
	w, err := OpenWriter(path)
	require.NoError(t, err)

	// push size to just under the limit, then cross it
	w.size = rotateSize - 10
	require.NoError(t, w.WriteLine("this line crosses the rotation threshold"))
	require.NoError(t, w.Close())

	_, err = os.Stat(path + ".1")
	require.NoError(t, err, "rotated file should exist")

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, st.Size(), int64(1024), "fresh log should only hold the new line")
}
