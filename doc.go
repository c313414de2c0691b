// Package mpqueue provides lock-free message-passing queues for handing
// off references between producer and consumer goroutines without mutual
// exclusion.
//
// Two independent data structures:
//
//   - [BoundedMpmcQueue]: fixed-capacity, multi-producer/multi-consumer,
//     based on Vyukov's bounded MPMC ring with per-slot sequence numbers.
//   - [LinkedMPSCQueue] / [LinkedSPSCQueue]: unbounded, linked, single
//     consumer. Both share the poll/peek/size/drain core of an unbounded
//     base linked queue; they differ only in how Offer is made safe for
//     multiple producers versus exactly one.
//
// # Strict vs. relaxed
//
// Offer/Poll/Peek are strict: Offer returns ErrWouldBlock only when the
// queue is actually full at the observation point, Poll/Peek return
// ErrWouldBlock only when the queue is actually empty. RelaxedOffer/
// RelaxedPoll/RelaxedPeek skip the opposite-cursor consultation that gives
// strict operations their guarantee, so they may report full/empty
// spuriously under contention — but when they do return a value, it is
// always correct.
//
//	q := mpqueue.NewBoundedMpmcQueue[int](1024)
//
//	v := 42
//	if err := q.Offer(&v); err != nil {
//	    // mpqueue.IsWouldBlock(err): queue is full
//	}
//
//	elem, err := q.Poll()
//	if err == nil {
//	    fmt.Println(elem)
//	}
//
// # Bulk operations
//
// Drain and Fill claim a window of several cursor positions with a single
// CAS (look-ahead), amortizing contention across many elements:
//
//	n, err := q.Fill(func() int { return nextValue() }, 64)
//	n, err := q.Drain(func(v int) { process(v) }, 64)
//
// When the look-ahead window is not available, both fall back to a
// one-by-one loop for the remainder rather than failing outright.
//
// # Linked queue
//
//	q := mpqueue.NewLinkedMPSCQueue[Event]()
//
//	// Producers (any number)
//	go func() {
//	    ev := Event{}
//	    q.Offer(&ev)
//	}()
//
//	// Single consumer
//	for {
//	    ev, err := q.Poll()
//	    if err == nil {
//	        handle(ev)
//	    }
//	}
//
// [LinkedMPSCQueue.Offer] is safe for any number of concurrent producers.
// [LinkedSPSCQueue.Offer] assumes exactly one producer goroutine and skips
// the atomic tail exchange that MPSC needs to arbitrate between them. Capacity on both
// reports [UnboundedCapacity]: there is no fullness contract.
//
// Iterator support is deliberately unimplemented: [LinkedQueue.Iterator]
// always returns [ErrUnsupported].
//
// # Error handling
//
// Both queues return [ErrWouldBlock] when an operation cannot proceed right
// now. This is a control flow signal, not a failure — sourced from
// [code.hybscloud.com/iox] for ecosystem consistency:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Offer(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !mpqueue.IsWouldBlock(err) {
//	        return err // unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// ErrNullArgument and ErrInvalidArgument are returned for programmer
// errors (nil callback/argument, negative Drain/Fill limit) rather than
// panics, since they surface at ordinary call boundaries rather than at
// construction.
//
// # Capacity
//
// BoundedMpmcQueue capacity rounds up to the next power of 2 and panics if
// the requested capacity is below 2 — this is a construction-time
// precondition, not a runtime queue state, so it panics rather than
// returning an error:
//
//	q := mpqueue.NewBoundedMpmcQueue[int](1000) // actual capacity: 1024
//
// Length is intentionally approximate (Size) or absent by design —
// accurate concurrent counts require synchronization this package avoids
// on the hot path.
//
// # Race detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, atomic operations on the *same* variable) but not a
// happens-before edge established across two separate variables, such as a
// sequence-tag CAS guarding a plain element store. Tests whose correctness
// depends on that ordering are skipped under -race via [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions in CAS retry loops, and [code.hybscloud.com/iox] for
// semantic error classification.
package mpqueue
