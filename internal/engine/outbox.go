package engine

import "sync"

// DefaultQueueSize is the outbound queue length of remote and subprocess
// engines.
const DefaultQueueSize = 64

// outbox is the bounded, non-blocking send queue shared by the adapters that
// write to another process.
type outbox struct {
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &outbox{
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
}

func (o *outbox) enqueue(msg []byte) error {
	select {
	case <-o.done:
		return ErrClosed
	default:
	}

	select {
	case o.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// close marks the outbox closed, reporting whether this call did it.
func (o *outbox) close() bool {
	closed := false
	o.once.Do(func() {
		close(o.done)
		closed = true
	})
	return closed
}
