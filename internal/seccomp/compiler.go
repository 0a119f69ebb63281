package seccomp

import (
	"fmt"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/sysx"
)

// forbidden is always subtracted from the requested allow set,
// regardless of what the caller asks for.
var forbidden = map[string]bool{
	"ptrace": true, "process_vm_readv": true, "process_vm_writev": true,
	"kcmp": true, "init_module": true, "finit_module": true,
	"delete_module": true, "kexec_load": true, "kexec_file_load": true,
	"reboot": true, "swapon": true, "swapoff": true, "mount": true,
	"umount": true, "umount2": true, "pivot_root": true,
	"settimeofday": true, "clock_settime": true, "clock_adjtime": true,
	"adjtimex": true, "sethostname": true, "setdomainname": true,
	"iopl": true, "ioperm": true, "acct": true, "syslog": true,
	"lookup_dcookie": true, "bpf": true, "perf_event_open": true,
	"userfaultfd": true, "fanotify_init": true, "fanotify_mark": true,
	"add_key": true, "keyctl": true, "request_key": true, "capset": true,
	"setns": true, "unshare": true, "personality": true, "quotactl": true,
	"vhangup": true, "move_pages": true, "seccomp": true,
}

// Compile builds a classic BPF program that, on x86-64, allows exactly
// the syscalls in allow minus forbidden and kills the process on every
// other syscall or on architecture mismatch. Allowed numbers are
// emitted in ascending order.
func Compile(allow []string) ([]sockFilter, error) {
	nums := make([]int, 0, len(allow))
	for _, name := range allow {
		if forbidden[name] {
			continue
		}
		nr, ok := SyscallNumber(name)
		if !ok {
			return nil, runtimeerr.New(runtimeerr.KindInvalidInput, "seccomp compile",
				fmt.Errorf("unknown syscall %q", name))
		}
		nums = append(nums, nr)
	}
	sort.Ints(nums)

	prog := []sockFilter{
		bpfStmt(bpfLd|bpfW|bpfAbs, seccompDataArchOffset),
		bpfJump(bpfJmp|bpfJeq|bpfK, auditArchX86_64, 1, 0),
		bpfStmt(bpfRet|bpfK, seccompRetKillProcess),
		bpfStmt(bpfLd|bpfW|bpfAbs, seccompDataNrOffset),
	}

	for _, nr := range nums {
		prog = append(prog,
			bpfJump(bpfJmp|bpfJeq|bpfK, uint32(nr), 0, 1),
			bpfStmt(bpfRet|bpfK, seccompRetAllow),
		)
	}

	prog = append(prog, bpfStmt(bpfRet|bpfK, seccompRetKillProcess))
	return prog, nil
}

// Install applies prog as the calling thread's seccomp filter. It first
// sets PR_SET_NO_NEW_PRIVS, since the kernel refuses SECCOMP_MODE_FILTER
// for an unprivileged caller without it.
func Install(prog []sockFilter) error {
	if err := sysx.PrctlSetNoNewPrivs(); err != nil {
		return err
	}

	fprog := sockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}

	if err := unix.Prctl(prSetSeccomp, seccompModeFilter, uintptr(unsafe.Pointer(&fprog)), 0, 0); err != nil {
		return runtimeerr.Syscall("prctl(PR_SET_SECCOMP)", err)
	}
	return nil
}
