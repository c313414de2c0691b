package mpqueue

// Consumer receives one element drained from a queue by Drain.
type Consumer[T any] func(elem T)

// Supplier produces one element to be offered into a queue by Fill.
//
// A Supplier is expected to always produce a usable element — unlike
// Poll/Offer, Fill has no notion of "supplier has nothing"; that policy,
// if needed, belongs to the caller's Supplier implementation.
type Supplier[T any] func() T

// BoundedQueue is the common strict/relaxed/bulk contract implemented by
// [BoundedMpmcQueue].
type BoundedQueue[T any] interface {
	Offer(elem *T) error
	Poll() (T, error)
	Peek() (T, error)
	RelaxedOffer(elem *T) error
	RelaxedPoll() (T, error)
	RelaxedPeek() (T, error)
	Drain(consumer Consumer[T], limit int) (int, error)
	Fill(supplier Supplier[T], limit int) (int, error)
	Size() int
	IsEmpty() bool
	Capacity() int
}

// LinkedQueue is the common poll/peek/size contract implemented by both
// [LinkedMPSCQueue] and [LinkedSPSCQueue]. Offer is not part of this
// interface: its safe concurrency pattern differs between the two
// concrete types (atomic exchange of the tail for MPSC, load then store of
// the tail for SPSC).
type LinkedQueue[T any] interface {
	Poll() (T, error)
	Peek() (T, error)
	RelaxedPoll() (T, error)
	RelaxedPeek() (T, error)
	Size() int
	IsEmpty() bool
	Drain(consumer Consumer[T], limit int) (int, error)
	Capacity() int
	Iterator() error
}
