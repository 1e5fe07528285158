package namedsem

// fionread is the FIONREAD ioctl request (_IOR('f', 127, int)); it is
// not exported by x/sys/unix on darwin.
const fionread = 0x4004667f

// semDir is the directory backing the semaphore namespace. macOS has no
// /dev/shm; /tmp is cleared on boot, which matches the lifetime of an
// orphaned semaphore whose owner never got to unlink it.
const semDir = "/tmp"
