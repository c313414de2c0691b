package mpqueue_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/jctools-go/mpqueue"
)

// TestBoundedMpmcQueueSPSCFillThenDrain covers the single-producer,
// single-consumer fill-then-drain scenario: fill a batch using the
// look-ahead path, then drain it completely and check FIFO order.
func TestBoundedMpmcQueueSPSCFillThenDrain(t *testing.T) {
	q := mpqueue.NewBoundedMpmcQueue[int](256)

	next := 0
	n, err := q.Fill(func() int {
		v := next
		next++
		return v
	}, 200)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if n != 200 {
		t.Fatalf("Fill: got %d, want 200", n)
	}

	var got []int
	n, err = q.Drain(func(v int) { got = append(got, v) }, 200)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 200 {
		t.Fatalf("Drain: got %d, want 200", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order violation at %d: got %d, want %d", i, v, i)
		}
	}
}

// TestBoundedMpmcQueueInterleaved interleaves single-element offer/poll
// pairs and confirms FIFO order is preserved end to end.
func TestBoundedMpmcQueueInterleaved(t *testing.T) {
	q := mpqueue.NewBoundedMpmcQueue[int](16)
	for i := range 1000 {
		v := i
		if err := q.Offer(&v); err != nil {
			t.Fatalf("Offer(%d): %v", i, err)
		}
		got, err := q.Poll()
		if err != nil {
			t.Fatalf("Poll(%d): %v", i, err)
		}
		if got != i {
			t.Fatalf("Poll(%d): got %d, want %d", i, got, i)
		}
	}
}

// TestBoundedMpmcQueueLookAheadFillPartial fills part of a capacity-8 ring.
// WithLookAheadStep(4) is clamped to capacity/4 = 2, so the 6 elements are
// claimed as three look-ahead windows of 2 slots each.
func TestBoundedMpmcQueueLookAheadFillPartial(t *testing.T) {
	q := mpqueue.NewBoundedMpmcQueue[int](8, mpqueue.WithLookAheadStep(4))

	next := 0
	n, err := q.Fill(func() int {
		v := next
		next++
		return v
	}, 6)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if n != 6 {
		t.Fatalf("Fill: got %d, want 6", n)
	}
	if q.Size() != 6 {
		t.Fatalf("Size: got %d, want 6", q.Size())
	}
}

// TestBoundedMpmcQueueStressMPMC stress-tests the bounded queue under
// multiple concurrent producers and consumers, checking for lost or
// duplicated elements.
func TestBoundedMpmcQueueStressMPMC(t *testing.T) {
	if testing.Short() {
		t.Skip("skip in -short mode")
	}
	if mpqueue.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 4
		numConsumers = 4
		itemsPerProd = 25000
		timeout      = 20 * time.Second
	)

	q := mpqueue.NewBoundedMpmcQueue[int](64)
	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var produced, consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v := id*itemsPerProd + i
				for q.Offer(&v) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				produced.Add(1)
				backoff.Reset()
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := q.Poll()
				if err == nil {
					if v >= 0 && v < expectedTotal {
						seen[v].Add(1)
					}
					consumed.Add(1)
					backoff.Reset()
				} else {
					if produced.Load() == int64(expectedTotal) && consumed.Load() == int64(expectedTotal) {
						return
					}
					backoff.Wait()
				}
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout: produced=%d, consumed=%d/%d", produced.Load(), consumed.Load(), expectedTotal)
	}

	if got := consumed.Load(); got != int64(expectedTotal) {
		t.Errorf("consumed %d, want %d", got, expectedTotal)
	}

	var lost, duplicated int
	for i := range expectedTotal {
		switch seen[i].Load() {
		case 0:
			lost++
		case 1:
		default:
			duplicated++
		}
	}
	if lost > 0 {
		t.Errorf("%d elements lost", lost)
	}
	if duplicated > 0 {
		t.Errorf("%d elements duplicated", duplicated)
	}
}

// TestLinkedMPSCQueueTransientEmptyPoll covers the window where a producer
// has swung the tail but not yet linked the new node: a concurrent Poll
// must either spin through to the real value or correctly report
// ErrWouldBlock, never a stale or zero value.
func TestLinkedMPSCQueueTransientEmptyPoll(t *testing.T) {
	if testing.Short() {
		t.Skip("skip in -short mode")
	}

	q := mpqueue.NewLinkedMPSCQueue[int]()
	const n = 20000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := range n {
			v := i
			_ = q.Offer(&v)
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for len(got) < n {
			v, err := q.Poll()
			if err != nil {
				backoff.Wait()
				continue
			}
			backoff.Reset()
			got = append(got, v)
		}
	}()

	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("order violation at %d: got %d, want %d", i, v, i)
		}
	}
}

// TestLinkedMPSCQueueSizeDuringConsume checks that Size never reports a
// negative value between the polls of a consumer draining the queue, and
// that the queue is empty once every element has been consumed.
func TestLinkedMPSCQueueSizeDuringConsume(t *testing.T) {
	q := mpqueue.NewLinkedMPSCQueue[int]()
	const n = 5000

	for i := range n {
		v := i
		_ = q.Offer(&v)
	}

	var wg sync.WaitGroup
	var minObserved atomix.Int64
	minObserved.Store(int64(n) + 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if _, err := q.Poll(); err != nil {
				break
			}
			if s := int64(q.Size()); s < 0 {
				t.Errorf("negative size observed: %d", s)
			}
		}
	}()
	wg.Wait()

	if !q.IsEmpty() {
		t.Fatal("expected empty after full consume")
	}
}

// TestBoundedMpmcQueueStrictNeverSpuriouslyEmpty checks that Poll on a
// queue with one committed element does not return ErrWouldBlock (the
// strict-emptiness property). Offer and Poll run on a single goroutine.
func TestBoundedMpmcQueueStrictNeverSpuriouslyEmpty(t *testing.T) {
	q := mpqueue.NewBoundedMpmcQueue[int](64)
	v := 1
	_ = q.Offer(&v)

	if _, err := q.Poll(); err != nil {
		t.Fatalf("Poll on nonempty queue: got %v, want nil", err)
	}
}

// TestBoundedMpmcQueueRelaxedNeverWrong checks that when RelaxedPoll does
// return a value, it is always a value that was actually offered (never
// a torn or zero read), even though it may spuriously report
// ErrWouldBlock under contention.
func TestBoundedMpmcQueueRelaxedNeverWrong(t *testing.T) {
	q := mpqueue.NewBoundedMpmcQueue[int](64)
	for i := range 64 {
		v := i + 1
		_ = q.Offer(&v)
	}

	seen := map[int]bool{}
	for {
		v, err := q.RelaxedPoll()
		if err != nil {
			break
		}
		if v < 1 || v > 64 || seen[v] {
			t.Fatalf("RelaxedPoll returned invalid or duplicate value %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 64 {
		t.Fatalf("RelaxedPoll drained %d distinct values, want 64", len(seen))
	}
}
