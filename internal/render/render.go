// Package render drives a clip through a pool of workers and writes the
// frames out in index order.
package render

import (
    "context"
    "fmt"
    "log/slog"
    "runtime"
    "sync"
    "time"

    "github.com/google/uuid"
    "golang.org/x/sync/errgroup"

    "bifrost/internal/clip"
    "bifrost/internal/frame"
)

// FrameWriter consumes frames in order. *y4m.Writer satisfies it.
type FrameWriter interface {
    WriteFrame(f *frame.Frame) error
}

type Options struct {
    // Workers is the number of frames rendered concurrently. 0 means GOMAXPROCS.
    Workers int
    // Window caps how many frames may be in flight or waiting for the
    // writer. Values below Workers mean 2*Workers.
    Window int
    // First and Count select a frame range; Count 0 means to the end.
    First int
    Count int
    // Progress, when set, is called from the writer goroutine after each write.
    Progress func(done, total int)
}

func (o Options) withDefaults() Options {
    if o.Workers <= 0 { o.Workers = runtime.GOMAXPROCS(0) }
    if o.Window < o.Workers { o.Window = 2 * o.Workers }
    return o
}

// Result summarizes a finished run.
type Result struct {
    Job     string
    Frames  int
    Elapsed time.Duration
}

type rendered struct {
    n int
    f *frame.Frame
}

// Run renders the selected frames of c and hands them to w in order. The
// first error from c or w stops the run; so does cancelling ctx.
func Run(ctx context.Context, c clip.Clip, w FrameWriter, opts Options) (Result, error) {
    opts = opts.withDefaults()
    num := c.Info().NumFrames
    first, last := opts.First, num
    if opts.Count > 0 && first+opts.Count < last { last = first + opts.Count }
    if first < 0 || first > last {
        return Result{}, fmt.Errorf("render: first frame %d: %w", first, clip.ErrOutOfRange)
    }
    total := last - first

    res := Result{Job: uuid.NewString()}
    log := slog.With("job", res.Job)
    log.Info("render: start", "frames", total, "first", first, "workers", opts.Workers)
    start := time.Now()

    g, gctx := errgroup.WithContext(ctx)
    jobs := make(chan int)
    results := make(chan rendered, opts.Window)
    tokens := make(chan struct{}, opts.Window)

    g.Go(func() error {
        defer close(jobs)
        for n := first; n < last; n++ {
            select {
            case tokens <- struct{}{}:
            case <-gctx.Done():
                return gctx.Err()
            }
            select {
            case jobs <- n:
            case <-gctx.Done():
                return gctx.Err()
            }
        }
        return nil
    })

    var wg sync.WaitGroup
    for i := 0; i < opts.Workers; i++ {
        wg.Add(1)
        g.Go(func() error {
            defer wg.Done()
            for n := range jobs {
                f, err := c.Frame(gctx, n)
                if err != nil { return fmt.Errorf("render: frame %d: %w", n, err) }
                select {
                case results <- rendered{n, f}:
                case <-gctx.Done():
                    return gctx.Err()
                }
            }
            return nil
        })
    }
    go func() { wg.Wait(); close(results) }()

    g.Go(func() error {
        pending := make(map[int]*frame.Frame, opts.Window)
        next := first
        for r := range results {
            pending[r.n] = r.f
            for {
                f, ok := pending[next]
                if !ok { break }
                delete(pending, next)
                if err := w.WriteFrame(f); err != nil { return fmt.Errorf("render: write frame %d: %w", next, err) }
                next++
                res.Frames++
                <-tokens
                if opts.Progress != nil { opts.Progress(res.Frames, total) }
            }
        }
        return nil
    })

    err := g.Wait()
    res.Elapsed = time.Since(start)
    if err != nil {
        log.Error("render: failed", "written", res.Frames, "err", err)
        return res, err
    }
    fps := 0.0
    if s := res.Elapsed.Seconds(); s > 0 { fps = float64(res.Frames) / s }
    log.Info("render: done", "frames", res.Frames, "elapsed", res.Elapsed.Round(time.Millisecond), "fps", fmt.Sprintf("%.1f", fps))
    return res, nil
}
