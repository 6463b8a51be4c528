// Package seqguard tags asynchronous updates with a per-field sequence number
// so that a slow, superseded response never overwrites a newer one.
package seqguard

import "sync"

type Guard struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func New() *Guard {
	return &Guard{latest: make(map[string]uint64)}
}

// Issue returns the next sequence number for key. It becomes the only
// number Latest accepts for that key.
func (g *Guard) Issue(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[key]++
	return g.latest[key]
}

// Latest reports whether seq is still the most recently issued for key.
func (g *Guard) Latest(key string, seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[key] == seq
}

// Apply runs fn only if seq is still the latest for key. The check and fn
// run under the guard's lock, so fn must not call back into the guard.
func (g *Guard) Apply(key string, seq uint64, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest[key] != seq {
		return false
	}
	fn()
	return true
}
