package stream

import (
    "context"
    "log/slog"
    "sync"
    "sync/atomic"
    "time"

    "bifrost/internal/clip"
    "bifrost/internal/frame"
)

// Source hands out raw frames of a fixed format and size.
type Source interface {
    // Next returns the most recent frame. It returns nil, true while no
    // frame is ready yet and false once the source is stopped.
    Next() (*frame.Frame, bool)
    Stop()
}

// ClipSource plays a clip in a loop at a fixed rate on its own goroutine,
// keeping only the newest rendered frame.
type ClipSource struct {
    c       clip.Clip
    fps     int
    last    atomic.Pointer[frame.Frame]
    pos     atomic.Int64
    quit    chan struct{}
    done    chan struct{}
    stopped atomic.Bool
    once    sync.Once
}

// NewClipSource starts playing c. The loop ends when ctx is cancelled or
// Stop is called.
func NewClipSource(ctx context.Context, c clip.Clip, fps int) *ClipSource {
    if fps <= 0 { fps = 25 }
    s := &ClipSource{c: c, fps: fps, quit: make(chan struct{}), done: make(chan struct{})}
    registerSource()
    go s.loop(ctx)
    return s
}

func (s *ClipSource) loop(ctx context.Context) {
    defer close(s.done)
    defer unregisterSource()
    ctx, cancel := context.WithCancel(ctx)
    defer cancel()
    go func() {
        select {
        case <-s.quit:
            cancel()
        case <-ctx.Done():
        }
    }()

    num := s.c.Info().NumFrames
    if num == 0 { return }
    ticker := time.NewTicker(time.Second / time.Duration(s.fps))
    defer ticker.Stop()
    logged := false
    for n := 0; ; n = (n + 1) % num {
        f, err := s.c.Frame(ctx, n)
        if err != nil {
            if ctx.Err() != nil { return }
            framesSkipped.Add(1)
            slog.Warn("stream: render failed", "frame", n, "err", err)
        } else {
            s.last.Store(f)
            s.pos.Store(int64(n))
            if !logged {
                logged = true
                slog.Info("stream: first frame rendered", "width", f.Width, "height", f.Height, "format", f.Format.String())
            }
        }
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
        }
    }
}

func (s *ClipSource) Next() (*frame.Frame, bool) {
    if s.stopped.Load() { return nil, false }
    return s.last.Load(), true
}

// Position is the index of the frame Next currently returns.
func (s *ClipSource) Position() int { return int(s.pos.Load()) }

// Stop ends playback and waits for the loop to exit. It is idempotent.
func (s *ClipSource) Stop() {
    s.once.Do(func() {
        s.stopped.Store(true)
        close(s.quit)
    })
    <-s.done
}
