package service

import (
	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// BackoffPolicy tracks consecutive submission failures per queue across
// scheduling cycles. It is owned by the scheduler instance and lives for the
// process lifetime; the per-cycle catalog is rebuilt around it.
//
// A queue is retried only on cycles where its counter is a multiple of the
// cycle factor. Skipped cycles increment the counter, producing a periodic
// suppression pattern.
type BackoffPolicy struct {
	cycleFactor    int
	resetOnSuccess bool
	failures       map[domain.QueueKey]int
}

func NewBackoffPolicy(cycleFactor int, resetOnSuccess bool) *BackoffPolicy {
	return &BackoffPolicy{
		cycleFactor:    cycleFactor,
		resetOnSuccess: resetOnSuccess,
		failures:       map[domain.QueueKey]int{},
	}
}

// ShouldSkip reports whether the queue is suppressed this cycle and, if so,
// how many cycles remain until the next retry.
func (b *BackoffPolicy) ShouldSkip(key domain.QueueKey) (bool, int) {
	remainder := b.failures[key] % b.cycleFactor
	if remainder == 0 {
		return false, 0
	}
	b.failures[key]++
	return true, b.cycleFactor - remainder
}

func (b *BackoffPolicy) RecordFailure(key domain.QueueKey) {
	b.failures[key]++
}

// RecordSuccess zeroes the queue's counter when the reset-on-success policy is
// enabled; by default sustained success leaves the counter untouched.
func (b *BackoffPolicy) RecordSuccess(key domain.QueueKey) {
	if b.resetOnSuccess {
		delete(b.failures, key)
	}
}

func (b *BackoffPolicy) Failures(key domain.QueueKey) int {
	return b.failures[key]
}
