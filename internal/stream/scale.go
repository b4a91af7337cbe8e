package stream

import "bifrost/internal/frame"

// ScaleFrame resizes f to w×h with nearest-neighbour sampling, plane by
// plane. It returns f itself when the size already matches.
func ScaleFrame(f *frame.Frame, w, h int) *frame.Frame {
    if w <= 0 || h <= 0 || (w == f.Width && h == f.Height) { return f }
    out := frame.New(f.Format, w, h)
    for p := 0; p < f.Format.NumPlanes(); p++ {
        scalePlane(out.Planes[p], f.Planes[p])
    }
    return out
}

func scalePlane(dst, src frame.Plane) {
    if src.Width <= 0 || src.Height <= 0 { return }
    for y := 0; y < dst.Height; y++ {
        sr := src.Row(y * src.Height / dst.Height)
        dr := dst.Row(y)
        for x := range dr {
            dr[x] = sr[x*src.Width/dst.Width]
        }
    }
}
