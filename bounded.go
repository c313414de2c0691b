package mpqueue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// bmqSlot holds one ring position: its sequence tag and the element
// currently occupying it. The sequence tag orders all access to elem: a
// producer writes elem before a release-store of seq, and a consumer reads
// elem only after an acquire-load of seq shows it published.
type bmqSlot[T any] struct {
	seq  atomix.Uint64
	elem T
	_    padShort
}

// BoundedMpmcQueue is a lock-free, multi-producer/multi-consumer bounded
// FIFO ring buffer with a per-slot sequence number, following Vyukov's
// bounded MPMC queue design.
//
// Capacity rounds up to the next power of 2. Offer/Poll/Peek are strict:
// Offer returns ErrWouldBlock only when the queue is actually full at the
// observation point, and Poll/Peek return ErrWouldBlock only when the queue
// is actually empty at the observation point. RelaxedOffer/RelaxedPoll/
// RelaxedPeek skip the opposite-cursor consultation and so may report
// full/empty spuriously under contention, but never return a wrong value.
//
// The zero value is not usable; construct with [NewBoundedMpmcQueue].
type BoundedMpmcQueue[T any] struct {
	_             pad
	producerIndex atomix.Uint64
	_             pad
	consumerIndex atomix.Uint64
	_             pad
	buffer        []bmqSlot[T]
	mask          uint64
	capacity      uint64
	lookAheadStep uint64
}

// NewBoundedMpmcQueue creates a bounded MPMC queue. requestedCapacity must
// be >= 2; the actual capacity is the least power of 2 >= requestedCapacity.
// Panics if requestedCapacity < 2.
func NewBoundedMpmcQueue[T any](requestedCapacity int, opts ...Option) *BoundedMpmcQueue[T] {
	if requestedCapacity < 2 {
		panic("mpqueue: capacity must be >= 2")
	}

	cfg := lookAheadConfig{maxLookAheadStep: DefaultMaxLookAheadStep}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxLookAheadStep < 1 {
		cfg.maxLookAheadStep = DefaultMaxLookAheadStep
	}

	n := uint64(roundToPow2(requestedCapacity))
	q := &BoundedMpmcQueue[T]{
		buffer:   make([]bmqSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}
	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	step := n / 4
	if step > uint64(cfg.maxLookAheadStep) {
		step = uint64(cfg.maxLookAheadStep)
	}
	if step < 2 {
		step = 2
	}
	q.lookAheadStep = step

	return q
}

// Offer adds an element to the queue. Returns ErrNullArgument if elem is
// nil, ErrWouldBlock if the queue is full.
func (q *BoundedMpmcQueue[T]) Offer(elem *T) error {
	if elem == nil {
		return ErrNullArgument
	}
	sw := spin.Wait{}
	for {
		pIndex := q.producerIndex.LoadAcquire()
		slot := &q.buffer[pIndex&q.mask]
		seq := slot.seq.LoadAcquire()

		switch {
		case seq == pIndex:
			if q.producerIndex.CompareAndSwapAcqRel(pIndex, pIndex+1) {
				slot.elem = *elem
				slot.seq.StoreRelease(pIndex + 1)
				return nil
			}
		case seq < pIndex:
			cIndex := q.consumerIndex.LoadAcquire()
			if pIndex-q.capacity >= cIndex {
				cIndex = q.consumerIndex.LoadAcquire()
				if pIndex-q.capacity >= cIndex {
					return ErrWouldBlock
				}
			}
		}
		sw.Once()
	}
}

// RelaxedOffer behaves like Offer but may return ErrWouldBlock even when
// the queue is not actually full, if the consumer cursor is lagging.
func (q *BoundedMpmcQueue[T]) RelaxedOffer(elem *T) error {
	if elem == nil {
		return ErrNullArgument
	}
	sw := spin.Wait{}
	for {
		pIndex := q.producerIndex.LoadAcquire()
		slot := &q.buffer[pIndex&q.mask]
		seq := slot.seq.LoadAcquire()

		if seq == pIndex {
			if q.producerIndex.CompareAndSwapAcqRel(pIndex, pIndex+1) {
				slot.elem = *elem
				slot.seq.StoreRelease(pIndex + 1)
				return nil
			}
			sw.Once()
			continue
		}
		if seq < pIndex {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// Poll removes and returns the oldest element. Returns ErrWouldBlock if the
// queue is empty.
func (q *BoundedMpmcQueue[T]) Poll() (T, error) {
	sw := spin.Wait{}
	for {
		cIndex := q.consumerIndex.LoadAcquire()
		slot := &q.buffer[cIndex&q.mask]
		seq := slot.seq.LoadAcquire()
		expected := cIndex + 1

		switch {
		case seq == expected:
			if q.consumerIndex.CompareAndSwapAcqRel(cIndex, cIndex+1) {
				e := slot.elem
				var zero T
				slot.elem = zero
				slot.seq.StoreRelease(cIndex + q.capacity)
				return e, nil
			}
		case seq < expected:
			if cIndex == q.producerIndex.LoadAcquire() {
				var zero T
				return zero, ErrWouldBlock
			}
		}
		sw.Once()
	}
}

// RelaxedPoll behaves like Poll but may return ErrWouldBlock even when the
// queue is not actually empty, if the producer cursor is lagging.
func (q *BoundedMpmcQueue[T]) RelaxedPoll() (T, error) {
	sw := spin.Wait{}
	for {
		cIndex := q.consumerIndex.LoadAcquire()
		slot := &q.buffer[cIndex&q.mask]
		seq := slot.seq.LoadAcquire()
		expected := cIndex + 1

		if seq == expected {
			if q.consumerIndex.CompareAndSwapAcqRel(cIndex, cIndex+1) {
				e := slot.elem
				var zero T
				slot.elem = zero
				slot.seq.StoreRelease(cIndex + q.capacity)
				return e, nil
			}
			sw.Once()
			continue
		}
		if seq < expected {
			var zero T
			return zero, ErrWouldBlock
		}
		sw.Once()
	}
}

// Peek returns the oldest element without removing it. Returns
// ErrWouldBlock if the queue is empty.
func (q *BoundedMpmcQueue[T]) Peek() (T, error) {
	sw := spin.Wait{}
	for {
		cIndex := q.consumerIndex.LoadAcquire()
		slot := &q.buffer[cIndex&q.mask]
		seq := slot.seq.LoadAcquire()
		expected := cIndex + 1

		switch {
		case seq == expected:
			e := slot.elem
			if q.consumerIndex.LoadAcquire() == cIndex {
				return e, nil
			}
		case seq < expected:
			if cIndex == q.producerIndex.LoadAcquire() {
				var zero T
				return zero, ErrWouldBlock
			}
		}
		sw.Once()
	}
}

// RelaxedPeek behaves like Peek but may return ErrWouldBlock even when the
// queue is not actually empty, if the producer cursor is lagging.
func (q *BoundedMpmcQueue[T]) RelaxedPeek() (T, error) {
	sw := spin.Wait{}
	for {
		cIndex := q.consumerIndex.LoadAcquire()
		slot := &q.buffer[cIndex&q.mask]
		seq := slot.seq.LoadAcquire()
		expected := cIndex + 1

		if seq == expected {
			e := slot.elem
			if q.consumerIndex.LoadAcquire() == cIndex {
				return e, nil
			}
			sw.Once()
			continue
		}
		if seq < expected {
			var zero T
			return zero, ErrWouldBlock
		}
		sw.Once()
	}
}

// lookAheadUnavailable re-reads the slot at index and reports whether it is
// genuinely behind expectedSeq — used to tell a truly full/empty queue
// apart from a window that merely couldn't be claimed as a whole, before
// falling back to the one-by-one path.
func (q *BoundedMpmcQueue[T]) lookAheadUnavailable(index, expectedSeq uint64) bool {
	slot := &q.buffer[index&q.mask]
	return slot.seq.LoadAcquire() < expectedSeq
}

// Fill offers up to limit elements produced by supplier, using a look-ahead
// window to claim several producer-cursor positions with a single CAS.
// Returns the count actually produced; ErrNullArgument if supplier is nil;
// ErrInvalidArgument if limit < 0. supplier is called exactly once per
// element actually enqueued; a claim that fails is retried, never produced
// against.
func (q *BoundedMpmcQueue[T]) Fill(supplier Supplier[T], limit int) (int, error) {
	if supplier == nil {
		return 0, ErrNullArgument
	}
	if limit < 0 {
		return 0, ErrInvalidArgument
	}
	if limit == 0 {
		return 0, nil
	}

	maxStep := q.lookAheadStep
	if uint64(limit) < maxStep {
		maxStep = uint64(limit)
	}

	produced := 0
	for produced < limit {
		remaining := uint64(limit - produced)
		step := maxStep
		if remaining < step {
			step = remaining
		}

		pIndex := q.producerIndex.LoadAcquire()
		lookAheadIndex := pIndex + step - 1
		laSeq := q.buffer[lookAheadIndex&q.mask].seq.LoadAcquire()

		if laSeq == lookAheadIndex && q.producerIndex.CompareAndSwapAcqRel(pIndex, lookAheadIndex+1) {
			for i := uint64(0); i < step; i++ {
				idx := pIndex + i
				slot := &q.buffer[idx&q.mask]
				sw := spin.Wait{}
				for slot.seq.LoadAcquire() != idx {
					sw.Once()
				}
				slot.elem = supplier()
				slot.seq.StoreRelease(idx + 1)
			}
			produced += int(step)
			continue
		}

		if laSeq < lookAheadIndex && q.lookAheadUnavailable(pIndex, pIndex) {
			return produced, nil
		}
		n, err := q.fillOneByOne(supplier, int(remaining))
		return produced + n, err
	}
	return produced, nil
}

// fillOneByOne is Fill's fallback when the look-ahead window cannot be
// claimed as a whole. It claims one slot at a time with the same CAS loop
// as Offer, calling supplier only after a claim succeeds, so a produced
// element is never discarded.
func (q *BoundedMpmcQueue[T]) fillOneByOne(supplier Supplier[T], limit int) (int, error) {
	for i := 0; i < limit; i++ {
		sw := spin.Wait{}
		var pIndex uint64
		var slot *bmqSlot[T]
		claimed := false
		for !claimed {
			pIndex = q.producerIndex.LoadAcquire()
			slot = &q.buffer[pIndex&q.mask]
			seq := slot.seq.LoadAcquire()
			switch {
			case seq == pIndex:
				claimed = q.producerIndex.CompareAndSwapAcqRel(pIndex, pIndex+1)
			case seq < pIndex:
				return i, nil
			}
			if !claimed {
				sw.Once()
			}
		}
		slot.elem = supplier()
		slot.seq.StoreRelease(pIndex + 1)
	}
	return limit, nil
}

// Drain consumes up to limit elements, passing each to consumer, using a
// look-ahead window to claim several consumer-cursor positions with a
// single CAS. Returns the count actually drained; ErrNullArgument if
// consumer is nil; ErrInvalidArgument if limit < 0.
func (q *BoundedMpmcQueue[T]) Drain(consumer Consumer[T], limit int) (int, error) {
	if consumer == nil {
		return 0, ErrNullArgument
	}
	if limit < 0 {
		return 0, ErrInvalidArgument
	}
	if limit == 0 {
		return 0, nil
	}

	maxStep := q.lookAheadStep
	if uint64(limit) < maxStep {
		maxStep = uint64(limit)
	}

	drained := 0
	for drained < limit {
		remaining := uint64(limit - drained)
		step := maxStep
		if remaining < step {
			step = remaining
		}

		cIndex := q.consumerIndex.LoadAcquire()
		lookAheadIndex := cIndex + step - 1
		laSeq := q.buffer[lookAheadIndex&q.mask].seq.LoadAcquire()
		expectedLookAheadSeq := lookAheadIndex + 1

		if laSeq == expectedLookAheadSeq && q.consumerIndex.CompareAndSwapAcqRel(cIndex, expectedLookAheadSeq) {
			for i := uint64(0); i < step; i++ {
				idx := cIndex + i
				slot := &q.buffer[idx&q.mask]
				sw := spin.Wait{}
				for slot.seq.LoadAcquire() != idx+1 {
					sw.Once()
				}
				e := slot.elem
				var zero T
				slot.elem = zero
				slot.seq.StoreRelease(idx + q.capacity)
				consumer(e)
			}
			drained += int(step)
			continue
		}

		if laSeq < expectedLookAheadSeq && q.lookAheadUnavailable(cIndex, cIndex+1) {
			return drained, nil
		}
		n, err := q.drainOneByOne(consumer, int(remaining))
		return drained + n, err
	}
	return drained, nil
}

// drainOneByOne is Drain's fallback when the look-ahead window cannot be
// claimed as a whole. It claims one slot at a time with the same CAS loop
// as Poll, passing each element to consumer only after a claim succeeds.
func (q *BoundedMpmcQueue[T]) drainOneByOne(consumer Consumer[T], limit int) (int, error) {
	for i := 0; i < limit; i++ {
		sw := spin.Wait{}
		var cIndex uint64
		var slot *bmqSlot[T]
		claimed := false
		for !claimed {
			cIndex = q.consumerIndex.LoadAcquire()
			slot = &q.buffer[cIndex&q.mask]
			seq := slot.seq.LoadAcquire()
			expected := cIndex + 1
			switch {
			case seq == expected:
				claimed = q.consumerIndex.CompareAndSwapAcqRel(cIndex, cIndex+1)
			case seq < expected:
				return i, nil
			}
			if !claimed {
				sw.Once()
			}
		}
		e := slot.elem
		var zero T
		slot.elem = zero
		slot.seq.StoreRelease(cIndex + q.capacity)
		consumer(e)
	}
	return limit, nil
}

// Size returns an approximation of the number of elements currently
// queued. Not linearizable under concurrent mutation.
func (q *BoundedMpmcQueue[T]) Size() int {
	p := q.producerIndex.LoadAcquire()
	c := q.consumerIndex.LoadAcquire()
	if p < c {
		return 0
	}
	size := p - c
	if size > q.capacity {
		size = q.capacity
	}
	return int(size)
}

// IsEmpty reports whether the queue was empty at the observation point.
func (q *BoundedMpmcQueue[T]) IsEmpty() bool {
	return q.consumerIndex.LoadAcquire() == q.producerIndex.LoadAcquire()
}

// Capacity returns the normalized (power-of-2) capacity.
func (q *BoundedMpmcQueue[T]) Capacity() int {
	return int(q.capacity)
}
