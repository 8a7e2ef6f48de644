package util

import (
	"math/rand"
	"sync"
)

// lockedSource is a random source that uses a mutex to ensure it is threadsafe.
type lockedSource struct {
	lk  sync.Mutex
	src rand.Source
}

func (r *lockedSource) Int63() (n int64) {
	r.lk.Lock()
	n = r.src.Int63()
	r.lk.Unlock()
	return
}

func (r *lockedSource) Seed(seed int64) {
	r.lk.Lock()
	r.src.Seed(seed)
	r.lk.Unlock()
}

// NewThreadsafeRand returns a *rand.Rand that is safe to share across multiple goroutines.
func NewThreadsafeRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{
		src: rand.NewSource(seed),
	})
}
