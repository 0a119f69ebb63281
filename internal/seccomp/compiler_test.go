package seccomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileArchCheckLeadsProgram(t *testing.T) {
	prog, err := Compile([]string{"read", "write"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(prog), 4)

	assert.Equal(t, bpfLd|bpfW|bpfAbs, int(prog[0].Code))
	assert.Equal(t, uint32(seccompDataArchOffset), prog[0].K)

	assert.Equal(t, bpfJmp|bpfJeq|bpfK, int(prog[1].Code))
	assert.Equal(t, uint32(auditArchX86_64), prog[1].K)

	assert.Equal(t, bpfRet|bpfK, int(prog[2].Code))
	assert.Equal(t, uint32(seccompRetKillProcess), prog[2].K)

	assert.Equal(t, bpfLd|bpfW|bpfAbs, int(prog[3].Code))
	assert.Equal(t, uint32(seccompDataNrOffset), prog[3].K)
}

func TestCompileEndsWithDefaultKill(t *testing.T) {
	prog, err := Compile([]string{"read"})
	require.NoError(t, err)

	last := prog[len(prog)-1]
	assert.Equal(t, bpfRet|bpfK, int(last.Code))
	assert.Equal(t, uint32(seccompRetKillProcess), last.K)
}

func TestCompileEmitsSyscallsInAscendingOrder(t *testing.T) {
	prog, err := Compile([]string{"write", "read", "close", "exit"})
	require.NoError(t, err)

	var seen []uint32
	for i := 4; i < len(prog)-1; i += 2 {
		require.Equal(t, bpfJmp|bpfJeq|bpfK, int(prog[i].Code))
		seen = append(seen, prog[i].K)
	}

	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i])
	}
}

func TestCompileDropsForbiddenSyscallsEvenIfRequested(t *testing.T) {
	prog, err := Compile([]string{"read", "mount", "ptrace", "setns"})
	require.NoError(t, err)

	readNr, _ := SyscallNumber("read")
	mountNr, _ := SyscallNumber("mount")

	var allowedNrs []uint32
	for i := 4; i < len(prog)-1; i += 2 {
		allowedNrs = append(allowedNrs, prog[i].K)
	}

	assert.Contains(t, allowedNrs, uint32(readNr))
	assert.NotContains(t, allowedNrs, uint32(mountNr))
	assert.Len(t, allowedNrs, 1)
}

func TestCompileUnknownSyscallErrors(t *testing.T) {
	_, err := Compile([]string{"not_a_real_syscall"})
	assert.Error(t, err)
}
