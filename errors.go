package mpqueue

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrNullArgument is returned by Offer, RelaxedOffer, Drain, and Fill when
// the caller passes a nil element pointer or a nil callback.
var ErrNullArgument = errors.New("mpqueue: argument must not be nil")

// ErrInvalidArgument is returned when a bulk Drain or Fill limit is negative.
var ErrInvalidArgument = errors.New("mpqueue: invalid argument")

// ErrUnsupported is returned by operations the core deliberately does not
// implement, such as Iterator on the linked queue.
var ErrUnsupported = errors.New("mpqueue: unsupported operation")

// ErrWouldBlock indicates the operation cannot proceed immediately: the
// queue is full (Offer/RelaxedOffer) or empty (Poll/Peek and their relaxed
// forms). Fill and Drain do not return it; they report a short count.
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry with backoff rather than propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Offer(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if mpqueue.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err // unexpected error
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal, not a failure.
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
