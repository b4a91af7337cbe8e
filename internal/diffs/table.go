// Package diffs holds the per-block luma-diff side channel: a table of one
// integer per block for each frame, computed once and then only read.
package diffs

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strconv"
    "sync"

    "golang.org/x/sync/singleflight"
)

var (
    ErrGeometry = errors.New("diffs: table does not match block grid")
    ErrMissing  = errors.New("diffs: no entry for frame")
)

// Source yields the diff table of frame n.
type Source interface {
    BlockDiffs(ctx context.Context, n int) ([]int32, error)
}

// Table maps frame index to its per-block diffs. Stored slices are never
// modified after Put.
type Table struct {
    BlocksX int
    BlocksY int
    Offset  int

    mu     sync.RWMutex
    frames map[int][]int32
}

func NewTable(blocksX, blocksY, offset int) *Table {
    return &Table{BlocksX: blocksX, BlocksY: blocksY, Offset: offset, frames: make(map[int][]int32)}
}

// Store holds computed diff tables. Table keeps every entry, Cache only
// the most recently used ones.
type Store interface {
    Get(n int) ([]int32, bool)
    Put(n int, d []int32) error
    Len() int
}

func checkGeometry(blocksX, blocksY, n int, d []int32) error {
    if len(d) != blocksX*blocksY {
        return fmt.Errorf("%w: frame %d has %d entries, want %dx%d", ErrGeometry, n, len(d), blocksX, blocksY)
    }
    return nil
}

// Put stores the diffs of frame n.
func (t *Table) Put(n int, d []int32) error {
    if err := checkGeometry(t.BlocksX, t.BlocksY, n, d); err != nil { return err }
    t.mu.Lock()
    t.frames[n] = d
    t.mu.Unlock()
    return nil
}

func (t *Table) Get(n int) ([]int32, bool) {
    t.mu.RLock()
    d, ok := t.frames[n]
    t.mu.RUnlock()
    return d, ok
}

func (t *Table) Len() int {
    t.mu.RLock()
    defer t.mu.RUnlock()
    return len(t.frames)
}

// Indices returns the stored frame indices in ascending order.
func (t *Table) Indices() []int {
    t.mu.RLock()
    out := make([]int, 0, len(t.frames))
    for n := range t.frames { out = append(out, n) }
    t.mu.RUnlock()
    sort.Ints(out)
    return out
}

// Matches reports whether the table was built for the given grid and offset.
func (t *Table) Matches(blocksX, blocksY, offset int) bool {
    return t.BlocksX == blocksX && t.BlocksY == blocksY && t.Offset == offset
}

// BlockDiffs implements Source over the stored entries only.
func (t *Table) BlockDiffs(_ context.Context, n int) ([]int32, error) {
    if d, ok := t.Get(n); ok { return d, nil }
    return nil, fmt.Errorf("%w %d", ErrMissing, n)
}

// OnDemand serves diffs from a store and computes missing entries through
// src. Concurrent requests for the same frame share one computation, which
// keeps running when a caller gives up; each caller only stops waiting.
type OnDemand struct {
    store Store
    src   Source
    group singleflight.Group
}

func NewOnDemand(src Source, s Store) *OnDemand {
    return &OnDemand{store: s, src: src}
}

func (o *OnDemand) Store() Store { return o.store }

// Len is the number of entries currently held.
func (o *OnDemand) Len() int { return o.store.Len() }

func (o *OnDemand) BlockDiffs(ctx context.Context, n int) ([]int32, error) {
    return o.BlockDiffsFrom(ctx, n, o.src)
}

// BlockDiffsFrom is BlockDiffs with src computing a missing entry in place
// of the default source. src must yield the same diffs.
func (o *OnDemand) BlockDiffsFrom(ctx context.Context, n int, src Source) ([]int32, error) {
    if d, ok := o.store.Get(n); ok { return d, nil }
    shared := context.WithoutCancel(ctx)
    ch := o.group.DoChan(strconv.Itoa(n), func() (any, error) {
        if d, ok := o.store.Get(n); ok { return d, nil }
        d, err := src.BlockDiffs(shared, n)
        if err != nil { return nil, err }
        if err := o.store.Put(n, d); err != nil { return nil, err }
        return d, nil
    })
    select {
    case r := <-ch:
        if r.Err != nil { return nil, r.Err }
        return r.Val.([]int32), nil
    case <-ctx.Done():
        return nil, ctx.Err()
    }
}
