package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryAcquire_SecondCallerRejected(t *testing.T) {
	r := New()
	if !r.TryAcquire("han") {
		t.Fatal("first TryAcquire failed")
	}
	if r.TryAcquire("han") {
		t.Error("second TryAcquire succeeded for a held name")
	}
	if !r.TryAcquire("leia") {
		t.Error("TryAcquire failed for an unrelated name")
	}
}

func TestRelease_AllowsReacquire(t *testing.T) {
	r := New()
	r.TryAcquire("han")
	r.Release("han")
	if !r.TryAcquire("han") {
		t.Error("TryAcquire failed after Release")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	r := New()
	r.Release("ghost")
	r.TryAcquire("han")
	r.Release("han")
	r.Release("han")
	if !r.TryAcquire("han") {
		t.Error("TryAcquire failed after double Release")
	}
}

func TestTryAcquire_ConcurrentOneWinner(t *testing.T) {
	r := New()

	const goroutines = 50
	var winners atomic.Int32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if r.TryAcquire("chewie") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Errorf("concurrent winners = %d, want exactly 1", got)
	}
}

func TestTryAcquire_ConcurrentDistinctNames(t *testing.T) {
	r := New()

	const goroutines = 20
	var wg sync.WaitGroup
	var failures atomic.Int32
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			if !r.TryAcquire(fmt.Sprintf("user-%d", i)) {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := failures.Load(); got != 0 {
		t.Errorf("%d acquisitions of distinct names failed", got)
	}
}
