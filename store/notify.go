package store

import "sync"

// Record names for change notifications.
const (
	RecordHidden  = "hidden_posts"
	RecordBlocked = "blocked_channels"
)

// Change identifies which persisted record was mutated.
type Change struct {
	Record string
}

// notifier fans Change events out to in-process subscribers. Sends never
// block: each subscriber channel is buffered and a pending notification is
// coalesced with the next.
type notifier struct {
	mu     sync.Mutex
	subs   []chan Change
	closed bool
}

func newNotifier() *notifier {
	return &notifier{}
}

// Subscribe returns a channel receiving a Change whenever a persisted
// record is mutated through this Store handle.
func (s *Store) Subscribe() <-chan Change {
	s.notify.mu.Lock()
	defer s.notify.mu.Unlock()

	ch := make(chan Change, 1)
	if s.notify.closed {
		close(ch)
		return ch
	}
	s.notify.subs = append(s.notify.subs, ch)
	return ch
}

func (n *notifier) send(c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default: // subscriber already has a pending change
		}
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for _, ch := range n.subs {
		close(ch)
	}
	n.subs = nil
}
