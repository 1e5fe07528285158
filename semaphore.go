package namedsem

import (
	"errors"
	"fmt"
)

// Semaphore is a handle to a named, cross-process counting semaphore.
// Any process that opens the same name observes the same counter.
//
// Each handle tracks whether it created the underlying OS resource; the
// creating handle is the owner and is responsible for removing the name
// from the namespace when it closes. Non-owning handles never remove the
// name, so cooperating processes can close in any order.
//
// Create a semaphore with CreateSemaphore, attach to an existing one with
// OpenSemaphore, or do either in one step with OpenOrCreateSemaphore.
// All processes must use the same name.
//
// Example:
//
//	sem, _ := namedsem.OpenOrCreateSemaphore("/jobslot", 1)
//	defer sem.Close()
//
//	sem.Acquire()
//	// critical section - access shared resource
//	sem.Release()
type Semaphore interface {
	// Acquire blocks until the counter is greater than zero, then
	// decrements it. It returns ErrInterrupted if the blocking wait was
	// interrupted by a signal before completing; the caller decides
	// whether to retry.
	Acquire() error

	// Release increments the counter, unblocking at most one waiter in
	// some process. Incrementing past the OS-defined maximum returns an
	// error wrapping ErrOverflow.
	Release() error

	// TryAcquire attempts to decrement the counter without blocking.
	// Returns true if acquired, false if the counter was zero.
	TryAcquire() (bool, error)

	// AcquireTimeout attempts to acquire with a maximum wait time in
	// milliseconds. Returns true if acquired, false if the timeout
	// elapsed.
	AcquireTimeout(timeoutMs int) (bool, error)

	// Value returns the current counter value. A counter with blocked
	// waiters reads as zero; the value never reads negative.
	Value() (int, error)

	// Name returns the identifier this handle was opened with.
	Name() string

	// IsOwner reports whether this handle created the underlying OS
	// resource. It is fixed at construction and never changes.
	IsOwner() bool

	// Close releases the handle. The owning handle additionally removes
	// the name from the namespace; handles other processes already hold
	// remain valid until they too close. Close is idempotent, and any
	// other method called after Close returns ErrClosed.
	Close() error
}

// Errors returned by semaphore operations. OS-level failures arrive as an
// *OSError wrapping one of these (or the underlying errno), so callers
// should test with errors.Is.
var (
	// ErrExist is returned by CreateSemaphore when the name is already
	// in use.
	ErrExist = errors.New("semaphore already exists")

	// ErrNotExist is returned by OpenSemaphore, Stat, and Unlink when no
	// semaphore with the given name exists.
	ErrNotExist = errors.New("semaphore does not exist")

	// ErrClosed is returned when a handle is used after Close.
	ErrClosed = errors.New("semaphore is closed")

	// ErrInterrupted is returned when a blocking Acquire is interrupted
	// by an asynchronous signal before it could complete. Callers
	// commonly retry on this condition; the semaphore never retries
	// internally so that termination signals are not masked.
	ErrInterrupted = errors.New("semaphore wait interrupted by signal")

	// ErrOverflow is returned by Release when the counter is at the
	// OS-defined maximum.
	ErrOverflow = errors.New("semaphore counter overflow")

	// ErrInvalidName is returned when a name is empty or contains a path
	// separator beyond the optional leading slash.
	ErrInvalidName = errors.New("invalid semaphore name")
)

// OSError records a failed OS-level semaphore operation along with the
// underlying diagnostic for the caller to log.
type OSError struct {
	// Op is the operation that failed: "create", "open", "acquire",
	// "release", "value", "close", "unlink", or "stat".
	Op string

	// Name is the semaphore name the operation targeted.
	Name string

	// Err is the underlying error, typically a unix.Errno or one of the
	// package sentinel errors.
	Err error
}

// Error formats the failure as "op semaphore name: cause".
func (e *OSError) Error() string {
	return fmt.Sprintf("%s semaphore %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As reach
// the root cause.
func (e *OSError) Unwrap() error {
	return e.Err
}

// CreateSemaphore creates a new named semaphore with the given initial
// counter value and returns an owning handle. The name should start with
// "/" and contain no further slashes, like POSIX sem_open names.
//
// Creation is atomic: when multiple processes race to create the same
// name, exactly one succeeds and the rest fail with an error wrapping
// ErrExist. No partially constructed resource is left behind on failure.
func CreateSemaphore(name string, initial uint) (Semaphore, error) {
	return semCreate(name, initial)
}

// OpenSemaphore attaches to an existing named semaphore without taking
// ownership. Closing the returned handle never removes the name from the
// namespace. Returns an error wrapping ErrNotExist if the name is absent.
func OpenSemaphore(name string) (Semaphore, error) {
	return semOpen(name)
}

// OpenOrCreateSemaphore attaches to the named semaphore if it exists, and
// creates it with the given initial value otherwise. The handle that
// actually caused the resource to be created reports IsOwner true; every
// other handle attaches and reports false.
//
// Concurrent calls from cooperating processes are safe: creation is
// atomic, so exactly one racer becomes the owner, and a racer that loses
// the create falls back to attaching. initial is only applied by the
// winning creator.
func OpenOrCreateSemaphore(name string, initial uint) (Semaphore, error) {
	s, err := semOpen(name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotExist) {
		return nil, err
	}
	s, err = semCreate(name, initial)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrExist) {
		return nil, err
	}
	// Another process created the name between our open and create
	// attempts; attach to it. If this open fails too the name was
	// unlinked again in the meantime, and the error is surfaced rather
	// than retried forever.
	return semOpen(name)
}

// Unlink removes a named semaphore from the namespace without opening it.
// Handles already open in any process remain valid; the counter is
// destroyed once the last of them closes. Returns an error wrapping
// ErrNotExist if the name is absent.
//
// Unlink is an escape hatch for cleaning up after a crashed owner; in
// normal operation the owning handle's Close removes the name.
func Unlink(name string) error {
	return semUnlink(name)
}

// Stat reads the metadata recorded when the named semaphore was created.
// The metadata is advisory; semaphore operations never depend on it.
func Stat(name string) (*SemaphoreInfo, error) {
	return semStat(name)
}
