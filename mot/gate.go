package mot

import "sync/atomic"

// Gate is a single-slot "in progress" flag for perception loops:
// a new cycle starts only when the previous one, including any asynchronous detection step, has finished.
// The zero value is an open gate.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire closes the gate and returns true, or returns false if a cycle is already in progress.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release opens the gate
func (g *Gate) Release() {
	g.busy.Store(false)
}

// Busy reports whether a cycle is in progress
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
