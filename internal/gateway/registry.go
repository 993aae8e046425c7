// internal/gateway/registry.go
package gateway

import (
	"context"
	"sync"
	"time"
)

// DefaultMinGap is the end-to-start spacing enforced between consecutive
// exchanges against the same gateway endpoint. The TCP bridge multiplexes a
// serial RTU bus that needs idle time between transactions.
const DefaultMinGap = 120 * time.Millisecond

// Registry serializes register exchanges across every driver that shares a
// gateway. One process-wide lock is intentional: the RTU bus behind the
// bridge is the real serialization point, so parallelism across distinct
// endpoints buys nothing.
type Registry struct {
	minGap time.Duration

	mu       sync.Mutex
	lastSend map[string]time.Time
}

// NewRegistry builds a registry with the given inter-request gap; a
// non-positive gap selects DefaultMinGap.
func NewRegistry(minGap time.Duration) *Registry {
	if minGap <= 0 {
		minGap = DefaultMinGap
	}
	return &Registry{
		minGap:   minGap,
		lastSend: make(map[string]time.Time),
	}
}

// Do runs fn under the global lock after waiting out the pacing gap for key.
// The lock is held through both the wait and fn, which yields strict FIFO
// ordering per endpoint; last-send is stamped when fn returns, success or
// not. Cancellation during the wait releases the lock without running fn.
func (r *Registry) Do(ctx context.Context, key string, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastSend[key]; ok {
		if wait := time.Until(last.Add(r.minGap)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	err := fn()
	r.lastSend[key] = time.Now()
	return err
}
