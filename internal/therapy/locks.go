package therapy

import "sync"

// convLocks serializes turns per conversation so two concurrent turns on the
// same thread cannot interleave their message writes.  Turns on different
// conversations proceed fully concurrently.  Entries are one mutex per
// conversation seen by this process and are not evicted.
type convLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *convLocks) get(conversationHash string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[conversationHash]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conversationHash] = l
	}
	return l
}
