//go:build linux || darwin

package namedsem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// A named semaphore is backed by a FIFO in semDir holding one byte per
// counter unit. The kernel gives us everything the counter needs: Mkfifo
// is an atomic exclusive create, one-byte pipe writes are atomic, each
// byte read wakes exactly one blocked reader, and unlink removes the name
// without invalidating descriptors other processes already hold.
const semFilePrefix = "sem."

// semPath maps a semaphore name to its FIFO path. Names follow the
// sem_open convention: an optional leading slash, then a single non-empty
// component with no further slashes.
func semPath(name string) (string, error) {
	base := strings.TrimPrefix(name, "/")
	if base == "" || strings.Contains(base, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return semDir + "/" + semFilePrefix + base, nil
}

// infoPath returns the path of the metadata sidecar for a FIFO path.
func infoPath(path string) string {
	return path + ".info"
}

// fifoSemaphore is the unix implementation of Semaphore.
//
// Two descriptors are held per handle: rfd is a blocking descriptor used
// only for Acquire's one-byte read, and wfd is a non-blocking descriptor
// used for Release, TryAcquire, timeout polling, and FIONREAD. Both are
// opened O_RDWR so the FIFO always has a live writer and a live reader;
// blocked Acquire calls therefore never see EOF, and open itself never
// blocks waiting for a peer.
type fifoSemaphore struct {
	name  string
	path  string
	rfd   int
	wfd   int
	owner bool

	// closed guards against use after Close. The handle is single-owner:
	// Close must not race Acquire or Release on the same handle, so no
	// lock is held around it.
	closed bool
}

func semCreate(name string, initial uint) (Semaphore, error) {
	path, err := semPath(name)
	if err != nil {
		return nil, err
	}
	if err := unix.Mkfifo(path, 0600); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, &OSError{Op: "create", Name: name, Err: ErrExist}
		}
		return nil, &OSError{Op: "create", Name: name, Err: err}
	}
	s, err := attachFIFO(name, path, true)
	if err != nil {
		unix.Unlink(path)
		return nil, err
	}
	if err := s.prime(initial); err != nil {
		s.abandon()
		return nil, err
	}
	info := &SemaphoreInfo{
		Name:         name,
		InitialValue: initial,
		CreatorPID:   os.Getpid(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := writeSemInfo(infoPath(path), info); err != nil {
		s.abandon()
		return nil, &OSError{Op: "create", Name: name, Err: err}
	}
	return s, nil
}

func semOpen(name string) (Semaphore, error) {
	path, err := semPath(name)
	if err != nil {
		return nil, err
	}
	return attachFIFO(name, path, false)
}

func semUnlink(name string) error {
	path, err := semPath(name)
	if err != nil {
		return err
	}
	if err := unix.Unlink(path); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return &OSError{Op: "unlink", Name: name, Err: ErrNotExist}
		}
		return &OSError{Op: "unlink", Name: name, Err: err}
	}
	// The sidecar is advisory; a missing one is not an error.
	unix.Unlink(infoPath(path))
	return nil
}

func semStat(name string) (*SemaphoreInfo, error) {
	path, err := semPath(name)
	if err != nil {
		return nil, err
	}
	info, err := readSemInfo(infoPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &OSError{Op: "stat", Name: name, Err: ErrNotExist}
		}
		return nil, &OSError{Op: "stat", Name: name, Err: err}
	}
	return info, nil
}

// attachFIFO opens both descriptors for an existing FIFO. On any failure
// every descriptor acquired so far is closed before returning, so a
// failed attach never leaks.
func attachFIFO(name, path string, owner bool) (*fifoSemaphore, error) {
	op := "open"
	if owner {
		op = "create"
	}
	rfd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, &OSError{Op: op, Name: name, Err: ErrNotExist}
		}
		return nil, &OSError{Op: op, Name: name, Err: err}
	}
	wfd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		unix.Close(rfd)
		return nil, &OSError{Op: op, Name: name, Err: err}
	}
	return &fifoSemaphore{
		name:  name,
		path:  path,
		rfd:   rfd,
		wfd:   wfd,
		owner: owner,
	}, nil
}

// prime writes the initial counter value into a freshly created FIFO.
// Nothing can have attached and consumed tokens yet, so a short write
// only means the pipe is filling; EAGAIN means initial exceeds the
// OS-defined counter maximum.
func (s *fifoSemaphore) prime(initial uint) error {
	remaining := int(initial)
	if remaining == 0 {
		return nil
	}
	chunk := remaining
	if chunk > 4096 {
		chunk = 4096
	}
	buf := make([]byte, chunk)
	for remaining > 0 {
		n := len(buf)
		if remaining < n {
			n = remaining
		}
		wrote, err := unix.Write(s.wfd, buf[:n])
		if wrote > 0 {
			remaining -= wrote
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			return &OSError{Op: "create", Name: s.name, Err: ErrOverflow}
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		return &OSError{Op: "create", Name: s.name, Err: err}
	}
	return nil
}

// abandon tears down a partially constructed owning handle, removing the
// name so a failed create leaves nothing behind.
func (s *fifoSemaphore) abandon() {
	unix.Close(s.rfd)
	unix.Close(s.wfd)
	unix.Unlink(s.path)
	unix.Unlink(infoPath(s.path))
}

// Acquire blocks until a token can be read, consuming exactly one.
// A signal arriving mid-wait surfaces as ErrInterrupted; the semaphore
// never retries internally so the caller keeps retry-or-abort policy.
func (s *fifoSemaphore) Acquire() error {
	if s.closed {
		return ErrClosed
	}
	var b [1]byte
	n, err := unix.Read(s.rfd, b[:])
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return &OSError{Op: "acquire", Name: s.name, Err: ErrInterrupted}
		}
		return &OSError{Op: "acquire", Name: s.name, Err: err}
	}
	if n == 0 {
		// Cannot happen while wfd holds the write side open; the
		// resource has been invalidated out from under us.
		return &OSError{Op: "acquire", Name: s.name, Err: io.EOF}
	}
	return nil
}

// Release writes one token, waking at most one blocked waiter in some
// process. A full pipe is the OS-defined counter maximum.
func (s *fifoSemaphore) Release() error {
	if s.closed {
		return ErrClosed
	}
	b := [1]byte{1}
	if _, err := unix.Write(s.wfd, b[:]); err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return &OSError{Op: "release", Name: s.name, Err: ErrOverflow}
		}
		return &OSError{Op: "release", Name: s.name, Err: err}
	}
	return nil
}

// TryAcquire consumes a token without blocking, via the non-blocking
// descriptor. EAGAIN means the counter was zero.
func (s *fifoSemaphore) TryAcquire() (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	var b [1]byte
	n, err := unix.Read(s.wfd, b[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return false, nil
		}
		if errors.Is(err, unix.EINTR) {
			return false, &OSError{Op: "acquire", Name: s.name, Err: ErrInterrupted}
		}
		return false, &OSError{Op: "acquire", Name: s.name, Err: err}
	}
	return n == 1, nil
}

// AcquireTimeout polls for a token until the deadline. A poll wakeup is
// only a hint: another waiter may consume the token first, so the
// non-blocking read is retried until the deadline passes. A timeout of
// zero or less degenerates to TryAcquire.
func (s *fifoSemaphore) AcquireTimeout(timeoutMs int) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		ok, err := s.TryAcquire()
		if ok || err != nil {
			return ok, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		ms := int(remaining / time.Millisecond)
		if ms <= 0 {
			ms = 1
		}
		fds := []unix.PollFd{{Fd: int32(s.rfd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				return false, &OSError{Op: "acquire", Name: s.name, Err: ErrInterrupted}
			}
			return false, &OSError{Op: "acquire", Name: s.name, Err: err}
		}
		if n == 0 {
			return false, nil
		}
	}
}

// Value reads the counter as the number of buffered token bytes. Like
// sem_getvalue on Linux, a counter with blocked waiters reads as zero.
func (s *fifoSemaphore) Value() (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	v, err := unix.IoctlGetInt(s.wfd, fionread)
	if err != nil {
		return 0, &OSError{Op: "value", Name: s.name, Err: err}
	}
	return v, nil
}

// Name returns the identifier this handle was opened with.
func (s *fifoSemaphore) Name() string {
	return s.name
}

// IsOwner reports whether this handle created the underlying FIFO.
func (s *fifoSemaphore) IsOwner() bool {
	return s.owner
}

// Close releases both descriptors and, on the owning handle, unlinks the
// FIFO and its sidecar. Teardown always runs to completion; the first
// error encountered is returned for the caller to log.
func (s *fifoSemaphore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	cerr := unix.Close(s.rfd)
	if err := unix.Close(s.wfd); cerr == nil {
		cerr = err
	}
	if s.owner {
		// ENOENT means the name was already removed, e.g. by Unlink;
		// the goal state is reached either way.
		if err := unix.Unlink(s.path); err != nil && !errors.Is(err, unix.ENOENT) && cerr == nil {
			cerr = err
		}
		if err := unix.Unlink(infoPath(s.path)); err != nil && !errors.Is(err, unix.ENOENT) && cerr == nil {
			cerr = err
		}
	}
	if cerr != nil {
		return &OSError{Op: "close", Name: s.name, Err: cerr}
	}
	return nil
}
