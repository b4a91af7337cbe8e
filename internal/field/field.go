// Package field splits frames into fields and weaves them back, so that a
// temporal filter can treat interlaced material as a sequence of fields.
package field

import (
    "context"
    "errors"
    "fmt"

    "bifrost/internal/clip"
    "bifrost/internal/frame"
)

var (
    ErrFieldHeight = errors.New("field: frame height must split evenly into fields")
    ErrOddFields   = errors.New("field: weave needs an even number of fields")
)

// Separated exposes every frame of a clip as two half-height fields. Field
// 2n is the first field of frame n in display order.
type Separated struct {
    src  clip.Clip
    tff  bool
    info frame.Info
}

// Separate returns the field sequence of src. With tff the top field (even
// rows) comes first.
func Separate(src clip.Clip, tff bool) (*Separated, error) {
    info := src.Info()
    if info.Height%(2<<info.Format.SubH) != 0 {
        return nil, fmt.Errorf("%w: height %d, chroma subsampling 1/%d", ErrFieldHeight, info.Height, 1<<info.Format.SubH)
    }
    out := info
    out.Height /= 2
    out.NumFrames *= 2
    out.FPSNum *= 2
    return &Separated{src: src, tff: tff, info: out}, nil
}

func (s *Separated) Info() frame.Info { return s.info }

// Frame returns field n as a view into the parent frame; no samples are copied.
func (s *Separated) Frame(ctx context.Context, n int) (*frame.Frame, error) {
    if err := clip.CheckIndex(n, s.info.NumFrames); err != nil { return nil, err }
    f, err := s.src.Frame(ctx, n/2)
    if err != nil { return nil, err }
    top := (n%2 == 0) == s.tff
    out := &frame.Frame{Format: f.Format, Width: f.Width, Height: f.Height / 2}
    for p := 0; p < f.Format.NumPlanes(); p++ {
        out.Planes[p] = fieldView(f.Planes[p], top)
    }
    return out, nil
}

func fieldView(p frame.Plane, top bool) frame.Plane {
    start := 0
    if !top { start = p.Stride }
    h := p.Height / 2
    end := start + (2*h-2)*p.Stride + p.Width
    return frame.Plane{Data: p.Data[start:end], Stride: 2 * p.Stride, Width: p.Width, Height: h}
}

// Woven interleaves pairs of fields back into frames. Frame n is built from
// fields 2n and 2n+1, which matches weaving every field pair and keeping the
// even results.
type Woven struct {
    src  clip.Clip
    tff  bool
    info frame.Info
}

// Weave is the inverse of Separate.
func Weave(src clip.Clip, tff bool) (*Woven, error) {
    info := src.Info()
    if info.NumFrames%2 != 0 {
        return nil, fmt.Errorf("%w: %d fields", ErrOddFields, info.NumFrames)
    }
    out := info
    out.Height *= 2
    out.NumFrames /= 2
    if out.FPSNum%2 == 0 { out.FPSNum /= 2 } else { out.FPSDen *= 2 }
    return &Woven{src: src, tff: tff, info: out}, nil
}

func (w *Woven) Info() frame.Info { return w.info }

func (w *Woven) Frame(ctx context.Context, n int) (*frame.Frame, error) {
    if err := clip.CheckIndex(n, w.info.NumFrames); err != nil { return nil, err }
    b := clip.Request(ctx, w.src, 2*n, 2*n+1)
    if err := b.Wait(); err != nil { return nil, err }
    first, second := b.Get(2*n), b.Get(2*n+1)
    top, bottom := first, second
    if !w.tff { top, bottom = second, first }
    out := frame.New(w.info.Format, w.info.Width, w.info.Height)
    for p := 0; p < out.Format.NumPlanes(); p++ {
        dst := out.Planes[p]
        frame.CopyPlane(fieldView(dst, true), top.Planes[p])
        frame.CopyPlane(fieldView(dst, false), bottom.Planes[p])
    }
    return out, nil
}
