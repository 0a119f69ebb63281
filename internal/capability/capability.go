// Package capability reads and restricts the effective, permitted, and
// inheritable capability sets using the raw capget/capset syscalls
// under _LINUX_CAPABILITY_VERSION_3.
package capability

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
)

// Cap is a single Linux capability, named as in capability(7) without the
// CAP_ prefix.
type Cap uint

const (
	CAP_CHOWN Cap = iota
	CAP_DAC_OVERRIDE
	CAP_DAC_READ_SEARCH
	CAP_FOWNER
	CAP_FSETID
	CAP_KILL
	CAP_SETGID
	CAP_SETUID
	CAP_SETPCAP
	CAP_LINUX_IMMUTABLE
	CAP_NET_BIND_SERVICE
	CAP_NET_BROADCAST
	CAP_NET_ADMIN
	CAP_NET_RAW
	CAP_IPC_LOCK
	CAP_IPC_OWNER
	CAP_SYS_MODULE
	CAP_SYS_RAWIO
	CAP_SYS_CHROOT
	CAP_SYS_PTRACE
	CAP_SYS_PACCT
	CAP_SYS_ADMIN
	CAP_SYS_BOOT
	CAP_SYS_NICE
	CAP_SYS_RESOURCE
	CAP_SYS_TIME
	CAP_SYS_TTY_CONFIG
	CAP_MKNOD
	CAP_LEASE
	CAP_AUDIT_WRITE
	CAP_AUDIT_CONTROL
	CAP_SETFCAP
)

// Name is the lowercase, unprefixed name used in ContainerRecord.Capabilities.
func (c Cap) Name() string { return capNames[c] }

var capNames = map[Cap]string{
	CAP_CHOWN: "chown", CAP_DAC_OVERRIDE: "dac_override",
	CAP_DAC_READ_SEARCH: "dac_read_search", CAP_FOWNER: "fowner",
	CAP_FSETID: "fsetid", CAP_KILL: "kill", CAP_SETGID: "setgid",
	CAP_SETUID: "setuid", CAP_SETPCAP: "setpcap",
	CAP_LINUX_IMMUTABLE: "linux_immutable", CAP_NET_BIND_SERVICE: "net_bind_service",
	CAP_NET_BROADCAST: "net_broadcast", CAP_NET_ADMIN: "net_admin",
	CAP_NET_RAW: "net_raw", CAP_IPC_LOCK: "ipc_lock", CAP_IPC_OWNER: "ipc_owner",
	CAP_SYS_MODULE: "sys_module", CAP_SYS_RAWIO: "sys_rawio",
	CAP_SYS_CHROOT: "sys_chroot", CAP_SYS_PTRACE: "sys_ptrace",
	CAP_SYS_PACCT: "sys_pacct", CAP_SYS_ADMIN: "sys_admin",
	CAP_SYS_BOOT: "sys_boot", CAP_SYS_NICE: "sys_nice",
	CAP_SYS_RESOURCE: "sys_resource", CAP_SYS_TIME: "sys_time",
	CAP_SYS_TTY_CONFIG: "sys_tty_config", CAP_MKNOD: "mknod",
	CAP_LEASE: "lease", CAP_AUDIT_WRITE: "audit_write",
	CAP_AUDIT_CONTROL: "audit_control", CAP_SETFCAP: "setfcap",
}

var namesToCap = func() map[string]Cap {
	m := make(map[string]Cap, len(capNames))
	for c, n := range capNames {
		m[n] = c
	}
	return m
}()

// Lookup resolves a capability name to its Cap value.
func Lookup(name string) (Cap, bool) {
	c, ok := namesToCap[name]
	return c, ok
}

// DefaultSet is the default capability whitelist for a container.
var DefaultSet = []Cap{
	CAP_CHOWN, CAP_DAC_OVERRIDE, CAP_FOWNER, CAP_FSETID, CAP_KILL,
	CAP_SETGID, CAP_SETUID, CAP_SETPCAP, CAP_NET_BIND_SERVICE,
	CAP_SYS_CHROOT, CAP_MKNOD, CAP_AUDIT_WRITE, CAP_SETFCAP,
}

// MinimalSet is a stricter preset for payloads that only need to
// manage their own users and files.
var MinimalSet = []Cap{CAP_CHOWN, CAP_SETGID, CAP_SETUID}

const linuxCapabilityVersion3 = 0x20080522

type capHeader struct {
	version uint32
	pid     int32
}

type capData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

func capget(hdr *capHeader, data *[2]capData) error {
	_, _, errno := unix.Syscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(hdr)), uintptr(unsafe.Pointer(&data[0])), 0)
	if errno != 0 {
		return runtimeerr.Syscall("capget", errno)
	}
	return nil
}

func capset(hdr *capHeader, data *[2]capData) error {
	_, _, errno := unix.Syscall(unix.SYS_CAPSET, uintptr(unsafe.Pointer(hdr)), uintptr(unsafe.Pointer(&data[0])), 0)
	if errno != 0 {
		return runtimeerr.Syscall("capset", errno)
	}
	return nil
}

func bitsFor(caps []Cap) [2]capData {
	var data [2]capData
	for _, c := range caps {
		word := c / 32
		bit := uint32(1) << (uint(c) % 32)
		switch word {
		case 0:
			data[0].effective |= bit
			data[0].permitted |= bit
		case 1:
			data[1].effective |= bit
			data[1].permitted |= bit
		}
	}
	return data
}

// DropAllExcept sets the effective and permitted sets to exactly caps,
// and clears the inheritable set.
func DropAllExcept(caps []Cap) error {
	hdr := &capHeader{version: linuxCapabilityVersion3, pid: 0}
	data := bitsFor(caps)
	return capset(hdr, &data)
}

// Current reads the calling process's effective, permitted, and
// inheritable capability words.
func Current() ([2]capData, error) {
	hdr := &capHeader{version: linuxCapabilityVersion3, pid: 0}
	var data [2]capData
	err := capget(hdr, &data)
	return data, err
}

// ResolveNames maps a list of capability names (as stored on
// ContainerRecord) to Cap values, returning an error naming the first
// unrecognized capability.
func ResolveNames(names []string) ([]Cap, error) {
	caps := make([]Cap, 0, len(names))
	for _, n := range names {
		c, ok := Lookup(n)
		if !ok {
			return nil, runtimeerr.New(runtimeerr.KindInvalidInput, "capabilities", errUnknownCap(n))
		}
		caps = append(caps, c)
	}
	return caps, nil
}

type errUnknownCap string

func (e errUnknownCap) Error() string { return "unknown capability: " + string(e) }
