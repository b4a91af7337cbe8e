package clip

import (
    "context"
    "fmt"

    "golang.org/x/sync/errgroup"

    "bifrost/internal/frame"
)

// Batch is the request half of a two-phase fetch: Request issues every
// fetch at once so upstream work can overlap, Wait consumes them.
// Duplicate indices (clamped neighbours at the clip edges) are fetched once.
type Batch struct {
    g      *errgroup.Group
    slot   map[int]int
    frames []*frame.Frame
    done   bool
    err    error
}

// Request starts fetching indices from c. The first failure cancels the
// remaining fetches of the batch.
func Request(ctx context.Context, c Clip, indices ...int) *Batch {
    g, gctx := errgroup.WithContext(ctx)
    b := &Batch{g: g, slot: make(map[int]int, len(indices))}
    for _, n := range indices {
        if _, ok := b.slot[n]; ok { continue }
        i := len(b.frames)
        b.slot[n] = i
        b.frames = append(b.frames, nil)
    }
    for n, i := range b.slot {
        g.Go(func() error {
            f, err := c.Frame(gctx, n)
            if err != nil { return fmt.Errorf("fetch frame %d: %w", n, err) }
            b.frames[i] = f
            return nil
        })
    }
    return b
}

// Wait blocks until all fetches finished and returns the first error.
// It is safe to call more than once from the goroutine that owns the batch.
func (b *Batch) Wait() error {
    if !b.done {
        b.err = b.g.Wait()
        b.done = true
    }
    return b.err
}

// Get returns frame n after a successful Wait, or nil if n was not requested.
func (b *Batch) Get(n int) *frame.Frame {
    i, ok := b.slot[n]
    if !ok { return nil }
    return b.frames[i]
}

// Len is the number of distinct frames in the batch.
func (b *Batch) Len() int { return len(b.frames) }
