package bus

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Receive once the bus has been shut down and
// its queues drained.
var ErrClosed = errors.New("bus: closed")

// Bus is the typed, reliable, per-sender-FIFO message exchange every
// component depends on. Implementations must preserve send order for
// messages originating from the same sender; ordering across senders is
// unspecified.
type Bus interface {
	// Send enqueues msg for delivery. Where the implementation has to
	// wait for room (MemoryBus with a full buffer), it waits until msg is
	// accepted or ctx is done.
	Send(ctx context.Context, msg Message) error

	// Receive blocks for up to timeout for the next message. It returns
	// (msg, true, nil) on success, (zero, false, nil) on timeout, and a
	// non-nil error (ErrClosed) once the bus has shut down.
	Receive(ctx context.Context, timeout time.Duration) (Message, bool, error)

	// Close shuts the bus down; pending Receive calls return ErrClosed.
	Close() error
}
