// internal/snapshot/renderer.go
package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the snapshot rendering rate.
const DefaultInterval = time.Second

// Renderer periodically prints every stored entry, sorted by key.
// Writes to Out are serialized so snapshot blocks do not interleave
// with interactive output.
type Renderer struct {
	Store    *Store
	Out      io.Writer
	Interval time.Duration

	mu sync.Mutex
}

func NewRenderer(store *Store, out io.Writer) *Renderer {
	return &Renderer{Store: store, Out: out, Interval: DefaultInterval}
}

// Run renders until ctx is cancelled.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RenderOnce()
		}
	}
}

// RenderOnce prints the current entries as one block.
func (r *Renderer) RenderOnce() {
	keys := r.Store.Keys()
	if len(keys) == 0 {
		return
	}

	var b strings.Builder
	for _, key := range keys {
		e, ok := r.Store.Get(key)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "[snapshot] %s ok=%t time=%s\n",
			key, e.OK(), e.At.Format("15:04:05"))

		switch {
		case e.Output != "":
			b.WriteString(e.Output)
			if !strings.HasSuffix(e.Output, "\n") {
				b.WriteByte('\n')
			}
		case e.Err != nil:
			b.WriteString("  " + e.Err.Error() + "\n")
		default:
			b.WriteString("  (no output)\n")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.Out, b.String())
}
