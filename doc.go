// Package namedsem provides named, cross-process counting semaphores
// without requiring CGO.
//
// A named semaphore is an OS-visible counter identified by a string. Any
// process that opens the same name observes the same counter, so the
// package can coordinate work between independent processes, not just
// goroutines. On Linux and macOS the counter is backed by a FIFO in a
// tmpfs-backed namespace; other platforms receive a stub that reports
// ErrSemaphoresNotAvailable.
//
// # Ownership
//
// The handle whose create call actually allocated the OS resource is the
// owner. Ownership is fixed at construction: the owner's Close removes
// the name from the namespace, while a non-owner's Close only releases
// its local handle. This gives the resource exactly one unlinker no
// matter how many processes attach, and lets cooperating processes close
// in any order — unlinking a name never invalidates handles that are
// already open.
//
// # Creating and attaching
//
// Three constructors cover the create/attach spectrum:
//
//	// exclusive create; fails with ErrExist if the name is taken
//	sem, err := namedsem.CreateSemaphore("/jobslot", 1)
//
//	// attach only; fails with ErrNotExist if the name is absent
//	sem, err := namedsem.OpenSemaphore("/jobslot")
//
//	// attach if present, create otherwise
//	sem, err := namedsem.OpenOrCreateSemaphore("/jobslot", 1)
//
// OpenOrCreateSemaphore tolerates racing callers: creation is atomic, so
// when several processes race on one name exactly one becomes the owner
// and the rest attach to the counter it created.
//
// # Counter operations
//
//	sem.Acquire()              // block until the counter is positive, then decrement
//	sem.Release()              // increment, waking at most one waiter
//	ok, _ := sem.TryAcquire()  // decrement without blocking
//	ok, _ := sem.AcquireTimeout(250)
//	n, _ := sem.Value()        // current counter value
//
// Release wakes at most one waiter per call; the order in which multiple
// blocked waiters are released is unspecified. Acquire interrupted by an
// asynchronous signal returns an error wrapping ErrInterrupted rather
// than retrying internally, leaving retry-or-abort policy to the caller:
//
//	for {
//		err := sem.Acquire()
//		if err == nil || !errors.Is(err, namedsem.ErrInterrupted) {
//			break
//		}
//	}
//
// # Metadata
//
// The creator records the name, initial value, creator pid, and creation
// time in a MessagePack sidecar next to the counter. Stat reads it from
// any process:
//
//	info, err := namedsem.Stat("/jobslot")
//
// The sidecar is advisory; counter correctness never depends on it.
//
// # Cleanup after crashes
//
// If an owning process dies before Close, the name stays in the
// namespace. Unlink removes it without opening a handle:
//
//	namedsem.Unlink("/jobslot")
package namedsem
