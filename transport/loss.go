package transport

import (
	"math/rand"
	"sync"
)

// LossSimulator drops a configurable fraction of datagrams so the
// retransmission path can be exercised without a lossy network. Rate 0
// never drops, rate 1 drops everything.
type LossSimulator struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewLossSimulator returns a simulator with the given drop rate. A non-zero
// seed makes the drop pattern reproducible.
func NewLossSimulator(rate float64, seed int64) *LossSimulator {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &LossSimulator{
		rate: rate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Drop reports whether the next datagram should be discarded.
func (l *LossSimulator) Drop() bool {
	if l.rate <= 0 {
		return false
	}
	if l.rate >= 1 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64() < l.rate
}
