package memory

import (
	"sync"

	"github.com/xraph/bastion/event"
)

// subscriber buffers change notifications for one consumer. Writers
// append to the queue under the subscriber's own lock and never block;
// the pump goroutine drains the queue into the output channel in order.
type subscriber struct {
	mu      sync.Mutex
	queue   []event.Change
	wake    chan struct{}
	done    chan struct{}
	out     chan event.Change
	stopped bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan event.Change),
	}
}

func (sub *subscriber) enqueue(ch event.Change) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped {
		return
	}
	sub.queue = append(sub.queue, ch)
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber) stop() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped {
		return
	}
	sub.stopped = true
	close(sub.done)
}

func (sub *subscriber) pump() {
	defer close(sub.out)
	for {
		sub.mu.Lock()
		batch := sub.queue
		sub.queue = nil
		sub.mu.Unlock()

		for _, ch := range batch {
			select {
			case sub.out <- ch:
			case <-sub.done:
				return
			}
		}

		select {
		case <-sub.wake:
		case <-sub.done:
			return
		}
	}
}
