package namedsem

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// TestNWaitersNPosts tests that each Release wakes exactly one blocked
// waiter: with N waiters and N posts, all N unblock and no token is left
// over.
func TestNWaitersNPosts(t *testing.T) {
	name := testSemName(t)
	const numWaiters = 16

	owner, err := CreateSemaphore(name, 0)
	if err != nil {
		t.Fatalf("CreateSemaphore failed: %v", err)
	}
	defer owner.Close()

	var unblocked atomic.Int32
	var g errgroup.Group
	for i := 0; i < numWaiters; i++ {
		g.Go(func() error {
			// Each waiter uses its own handle, as a separate process
			// would.
			sem, err := OpenSemaphore(name)
			if err != nil {
				return fmt.Errorf("waiter open: %w", err)
			}
			defer sem.Close()
			if err := sem.Acquire(); err != nil {
				return fmt.Errorf("waiter acquire: %w", err)
			}
			unblocked.Add(1)
			return nil
		})
	}

	// Give the waiters time to block before posting.
	time.Sleep(100 * time.Millisecond)
	if got := unblocked.Load(); got != 0 {
		t.Errorf("Expected no waiter to pass a zero counter, got %d", got)
	}

	for i := 0; i < numWaiters; i++ {
		if err := owner.Release(); err != nil {
			t.Fatalf("Release %d failed: %v", i, err)
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := unblocked.Load(); got != numWaiters {
		t.Errorf("Expected %d waiters unblocked, got %d", numWaiters, got)
	}
	if ok, _ := owner.TryAcquire(); ok {
		t.Error("Expected no leftover token after N posts woke N waiters")
	}
}

// TestConcurrentAcquireRelease tests that balanced acquire/release
// traffic from many goroutines conserves the counter.
func TestConcurrentAcquireRelease(t *testing.T) {
	sem, err := CreateSemaphore(testSemName(t), 4)
	if err != nil {
		t.Fatalf("CreateSemaphore failed: %v", err)
	}
	defer sem.Close()

	var wg sync.WaitGroup
	numGoroutines := 20
	numOps := 50

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				if err := sem.Acquire(); err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				if err := sem.Release(); err != nil {
					t.Errorf("Release failed: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()
	if v, err := sem.Value(); err != nil || v != 4 {
		t.Errorf("Expected value 4 after balanced traffic, got %d (err %v)", v, err)
	}
}

// TestOpenOrCreateRace tests that racing OpenOrCreateSemaphore calls on
// one name produce exactly one owner and that every handle couples to the
// same counter.
func TestOpenOrCreateRace(t *testing.T) {
	name := testSemName(t)
	const numRacers = 8

	handles := make([]Semaphore, numRacers)
	var g errgroup.Group
	for i := 0; i < numRacers; i++ {
		i := i
		g.Go(func() error {
			sem, err := OpenOrCreateSemaphore(name, 0)
			if err != nil {
				return fmt.Errorf("racer: %w", err)
			}
			handles[i] = sem
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	owners := 0
	for _, h := range handles {
		if h.IsOwner() {
			owners++
		}
	}
	if owners != 1 {
		t.Fatalf("Expected exactly one owner among %d racers, got %d", numRacers, owners)
	}

	// A post through any handle must be observable through any other.
	if err := handles[0].Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if ok, err := handles[numRacers-1].TryAcquire(); err != nil || !ok {
		t.Errorf("Expected token released via one handle to be visible via another, got %v (err %v)", ok, err)
	}

	// Close non-owners first; the name must survive until the owner
	// closes.
	for _, h := range handles {
		if !h.IsOwner() {
			if err := h.Close(); err != nil {
				t.Errorf("Close of non-owner failed: %v", err)
			}
		}
	}
	if _, err := Stat(name); err != nil {
		t.Errorf("Expected name to survive non-owner closes: %v", err)
	}
	for _, h := range handles {
		if h.IsOwner() {
			if err := h.Close(); err != nil {
				t.Errorf("Close of owner failed: %v", err)
			}
		}
	}
	if _, err := OpenSemaphore(name); err == nil {
		t.Error("Expected name to be gone after the owner closed")
	}
}

// TestAcquireTimeoutUnderContention tests that timed acquires under
// contention collectively consume exactly the posted tokens.
func TestAcquireTimeoutUnderContention(t *testing.T) {
	name := testSemName(t)
	const numWaiters = 8
	const numTokens = 3

	owner, err := CreateSemaphore(name, 0)
	if err != nil {
		t.Fatalf("CreateSemaphore failed: %v", err)
	}
	defer owner.Close()

	var acquired atomic.Int32
	var g errgroup.Group
	for i := 0; i < numWaiters; i++ {
		g.Go(func() error {
			sem, err := OpenSemaphore(name)
			if err != nil {
				return fmt.Errorf("waiter open: %w", err)
			}
			defer sem.Close()
			ok, err := sem.AcquireTimeout(500)
			if err != nil {
				return fmt.Errorf("timed acquire: %w", err)
			}
			if ok {
				acquired.Add(1)
			}
			return nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < numTokens; i++ {
		if err := owner.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := acquired.Load(); got != numTokens {
		t.Errorf("Expected exactly %d timed acquires to succeed, got %d", numTokens, got)
	}
	if ok, _ := owner.TryAcquire(); ok {
		t.Error("Expected no leftover token")
	}
}
