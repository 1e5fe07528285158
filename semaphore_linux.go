package namedsem

import "golang.org/x/sys/unix"

// fionread is the FIONREAD ioctl request. On Linux FIONREAD and TIOCINQ
// share the same request number, and x/sys/unix only exports the latter.
const fionread = unix.TIOCINQ

// semDir is the directory backing the semaphore namespace. /dev/shm is
// the kernel tmpfs where glibc keeps POSIX shared memory and sem_open's
// own sem.* files, so counters never touch a real disk.
const semDir = "/dev/shm"
