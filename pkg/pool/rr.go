package pool

import "sync/atomic"

// RoundRobin hands out slot indexes in turn. The zero value is ready to use.
type RoundRobin struct{ n atomic.Uint64 }

func (r *RoundRobin) Next(mod int) int {
	x := r.n.Add(1)
	return int((x - 1) % uint64(mod))
}
