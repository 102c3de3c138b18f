package store

import "sync"

// ChangeNotifier fans out a generic "store changed" signal to in-process
// subscribers (the dispatcher status endpoint, future SSE feeds). Signals are
// coalesced: a subscriber that has not drained its channel misses nothing
// observable, since every signal means only "re-read the store".
type ChangeNotifier struct {
	mu   sync.Mutex
	subs []chan struct{}
}

func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{}
}

// Subscribe returns a channel that receives a signal after every mutation.
func (n *ChangeNotifier) Subscribe() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	n.subs = append(n.subs, ch)
	return ch
}

// Notify signals all subscribers without blocking the mutating caller.
func (n *ChangeNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
