package util

import (
	"golang.org/x/sys/unix"
)

/*
read a small, simple text file with fewer syscalls than os.ReadFile. intended for sysfs, procfs, etc.

with os.ReadFile:
openat(AT_FDCWD, "/sys/fs/cgroup/mini-docker/9a23a1b40c77/cgroup.procs", O_RDONLY|O_CLOEXEC) = 179
fcntl(179, F_GETFL)         = 0x20000 (flags O_RDONLY|O_LARGEFILE)
fcntl(179, F_SETFL, O_RDONLY|O_NONBLOCK|O_LARGEFILE) = 0
epoll_ctl(4, EPOLL_CTL_ADD, 179, {events=EPOLLIN|EPOLLOUT|EPOLLRDHUP|EPOLLET, data=0xffff6621c7f800f3}) = 0
fstat(179, {st_mode=S_IFREG|0444, st_size=0, ...}) = 0
read(179, "1374\n1375\n", 512) = 10
read(179, "", 502)          = 0
epoll_ctl(4, EPOLL_CTL_DEL, 179, 0x400376b0b0) = 0
close(179)                  = 0
*/
func ReadFileFast(path string) ([]byte, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	// stolen from io.ReadAll
	b := make([]byte, 0, 3072)
	for {
		n, err := unix.Read(fd, b[len(b):cap(b)])
		b = b[:len(b)+n]
		if err != nil {
			return b, err
		}
		if n == 0 {
			return b, nil
		}

		if len(b) == cap(b) {
			// Add more capacity (let append pick how much).
			b = append(b, 0)[:len(b)]
		}
	}
}
