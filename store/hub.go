package store

import (
	"sync"

	"github.com/statetree/go-statetree/patch"
)

// hub fans committed patches out to subscribers across goroutines. The tree
// itself is not safe for concurrent subscription; the hub is.
type hub struct {
	mu     sync.RWMutex
	subs   map[int]func(patch.Patch)
	nextID int
}

func newHub() *hub {
	return &hub{subs: map[int]func(patch.Patch){}}
}

func (h *hub) subscribe(f func(patch.Patch)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = f
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *hub) broadcast(p patch.Patch) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, f := range h.subs {
		f(p)
	}
}
