// Package clip defines the frame source contract the filter consumes and
// a few in-process implementations of it.
package clip

import (
    "context"
    "errors"
    "fmt"

    "bifrost/internal/frame"
)

var (
    ErrOutOfRange = errors.New("clip: frame index out of range")
    ErrNoFrames   = errors.New("clip: no frames")
    ErrMixed      = errors.New("clip: frames differ in format or size")
)

// Clip is a random-access sequence of frames. Frame must be safe for
// concurrent use and must not mutate frames it has already returned.
type Clip interface {
    Info() frame.Info
    Frame(ctx context.Context, n int) (*frame.Frame, error)
}

// Clamp limits n to the valid index range of a clip with numFrames frames.
func Clamp(n, numFrames int) int {
    if n < 0 { return 0 }
    if n > numFrames-1 { return numFrames - 1 }
    return n
}

// CheckIndex returns ErrOutOfRange unless 0 <= n < numFrames.
func CheckIndex(n, numFrames int) error {
    if n < 0 || n >= numFrames {
        return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, n, numFrames)
    }
    return nil
}

// Memory is a clip over frames already held in memory.
type Memory struct {
    info   frame.Info
    frames []*frame.Frame
}

// NewMemory builds a clip from frames of identical format and size.
func NewMemory(frames []*frame.Frame, fpsNum, fpsDen int) (*Memory, error) {
    if len(frames) == 0 { return nil, ErrNoFrames }
    f0 := frames[0]
    for i, f := range frames {
        if f.Format != f0.Format || f.Width != f0.Width || f.Height != f0.Height {
            return nil, fmt.Errorf("%w: frame %d is %dx%d %s", ErrMixed, i, f.Width, f.Height, f.Format)
        }
    }
    return &Memory{
        info: frame.Info{
            Format: f0.Format, Width: f0.Width, Height: f0.Height,
            NumFrames: len(frames), FPSNum: fpsNum, FPSDen: fpsDen,
        },
        frames: frames,
    }, nil
}

func (m *Memory) Info() frame.Info { return m.info }

func (m *Memory) Frame(ctx context.Context, n int) (*frame.Frame, error) {
    if err := ctx.Err(); err != nil { return nil, err }
    if err := CheckIndex(n, len(m.frames)); err != nil { return nil, err }
    return m.frames[n], nil
}

// Collect renders every frame of c into memory.
func Collect(ctx context.Context, c Clip) (*Memory, error) {
    info := c.Info()
    frames := make([]*frame.Frame, info.NumFrames)
    for n := range frames {
        f, err := c.Frame(ctx, n)
        if err != nil { return nil, fmt.Errorf("clip: collect frame %d: %w", n, err) }
        frames[n] = f
    }
    return NewMemory(frames, info.FPSNum, info.FPSDen)
}
