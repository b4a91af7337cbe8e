package frame

// Plane is a 2D view over 8-bit samples. Row y starts at Data[y*Stride] and
// holds Width samples; Stride may exceed Width and need not match between
// planes or frames.
type Plane struct {
    Data   []byte
    Stride int
    Width  int
    Height int
}

// NewPlane allocates a w×h plane whose stride is rounded up to align bytes.
func NewPlane(w, h, align int) Plane {
    stride := w
    if align > 1 { stride = (w + align - 1) / align * align }
    return Plane{Data: make([]byte, stride*h), Stride: stride, Width: w, Height: h}
}

// Row returns the Width samples of row y.
func (p Plane) Row(y int) []byte {
    off := y * p.Stride
    return p.Data[off : off+p.Width]
}

// At returns the sample at (x, y).
func (p Plane) At(x, y int) byte { return p.Data[y*p.Stride+x] }

// Set stores v at (x, y).
func (p Plane) Set(x, y int, v byte) { p.Data[y*p.Stride+x] = v }

// Window returns a w×h view whose origin is (x, y) in p. The view shares
// memory with p.
func (p Plane) Window(x, y, w, h int) Plane {
    if w <= 0 || h <= 0 { return Plane{Stride: p.Stride} }
    off := y*p.Stride + x
    end := off + (h-1)*p.Stride + w
    return Plane{Data: p.Data[off:end], Stride: p.Stride, Width: w, Height: h}
}

// Fill sets every sample of the plane to v.
func (p Plane) Fill(v byte) {
    for y := 0; y < p.Height; y++ {
        row := p.Row(y)
        for x := range row { row[x] = v }
    }
}

// CopyPlane copies the overlapping region of src into dst row by row.
func CopyPlane(dst, src Plane) {
    w, h := min(dst.Width, src.Width), min(dst.Height, src.Height)
    for y := 0; y < h; y++ {
        copy(dst.Row(y)[:w], src.Row(y)[:w])
    }
}

// EqualPlanes reports whether a and b have the same size and samples,
// ignoring padding.
func EqualPlanes(a, b Plane) bool {
    if a.Width != b.Width || a.Height != b.Height { return false }
    for y := 0; y < a.Height; y++ {
        ra, rb := a.Row(y), b.Row(y)
        for x := range ra {
            if ra[x] != rb[x] { return false }
        }
    }
    return true
}
