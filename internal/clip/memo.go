package clip

import (
    "context"
    "strconv"
    "sync"

    "golang.org/x/sync/singleflight"

    "bifrost/internal/frame"
)

// Memo wraps a clip so every index is read from upstream at most once.
// Concurrent requests share the read, which runs to completion even if the
// caller that started it gives up. Failed reads are not remembered.
type Memo struct {
    c      Clip
    group  singleflight.Group
    mu     sync.Mutex
    frames map[int]*frame.Frame
}

var _ Clip = (*Memo)(nil)

func NewMemo(c Clip) *Memo {
    return &Memo{c: c, frames: make(map[int]*frame.Frame)}
}

func (m *Memo) Info() frame.Info { return m.c.Info() }

func (m *Memo) Frame(ctx context.Context, n int) (*frame.Frame, error) {
    m.mu.Lock()
    f, ok := m.frames[n]
    m.mu.Unlock()
    if ok { return f, nil }
    shared := context.WithoutCancel(ctx)
    ch := m.group.DoChan(strconv.Itoa(n), func() (any, error) {
        f, err := m.c.Frame(shared, n)
        if err != nil { return nil, err }
        m.mu.Lock()
        m.frames[n] = f
        m.mu.Unlock()
        return f, nil
    })
    select {
    case r := <-ch:
        if r.Err != nil { return nil, r.Err }
        return r.Val.(*frame.Frame), nil
    case <-ctx.Done():
        return nil, ctx.Err()
    }
}
