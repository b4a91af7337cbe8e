package frame

import (
    "errors"
    "fmt"
    "image"
)

// strideAlign mirrors the row alignment video hosts commonly hand out, so
// code paths never get to assume Stride == Width.
const strideAlign = 32

var ErrNotYCbCr = errors.New("frame: format has no image.YCbCr equivalent")

// Frame is a planar picture for one time index. Frames handed out by a clip
// are treated as immutable by every consumer.
type Frame struct {
    Format Format
    Width  int
    Height int
    Planes [3]Plane
}

// New allocates a zeroed frame. Chroma planes of YUV formats start at 128.
func New(f Format, w, h int) *Frame {
    fr := &Frame{Format: f, Width: w, Height: h}
    for p := 0; p < f.NumPlanes(); p++ {
        pw, ph := f.PlaneSize(p, w, h)
        fr.Planes[p] = NewPlane(pw, ph, strideAlign)
        if p > 0 && f.Family == FamilyYUV { fr.Planes[p].Fill(128) }
    }
    return fr
}

// Clone returns a deep copy with freshly allocated planes.
func (f *Frame) Clone() *Frame {
    out := New(f.Format, f.Width, f.Height)
    for p := 0; p < f.Format.NumPlanes(); p++ {
        CopyPlane(out.Planes[p], f.Planes[p])
    }
    return out
}

// Equal compares visible samples of every plane.
func (f *Frame) Equal(o *Frame) bool {
    if f.Format != o.Format || f.Width != o.Width || f.Height != o.Height { return false }
    for p := 0; p < f.Format.NumPlanes(); p++ {
        if !EqualPlanes(f.Planes[p], o.Planes[p]) { return false }
    }
    return true
}

// YCbCr copies the frame into an image.YCbCr for encoding or drawing.
func (f *Frame) YCbCr() (*image.YCbCr, error) {
    if f.Format.Family != FamilyYUV || f.Format.Bits != 8 {
        return nil, fmt.Errorf("%w: %s", ErrNotYCbCr, f.Format)
    }
    var ratio image.YCbCrSubsampleRatio
    switch {
    case f.Format.SubW == 1 && f.Format.SubH == 1:
        ratio = image.YCbCrSubsampleRatio420
    case f.Format.SubW == 1 && f.Format.SubH == 0:
        ratio = image.YCbCrSubsampleRatio422
    case f.Format.SubW == 0 && f.Format.SubH == 0:
        ratio = image.YCbCrSubsampleRatio444
    case f.Format.SubW == 2 && f.Format.SubH == 2:
        ratio = image.YCbCrSubsampleRatio410
    default:
        return nil, fmt.Errorf("%w: %s", ErrNotYCbCr, f.Format)
    }
    img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), ratio)
    CopyPlane(Plane{Data: img.Y, Stride: img.YStride, Width: f.Width, Height: f.Height}, f.Planes[0])
    cw, ch := f.Planes[1].Width, f.Planes[1].Height
    CopyPlane(Plane{Data: img.Cb, Stride: img.CStride, Width: cw, Height: ch}, f.Planes[1])
    CopyPlane(Plane{Data: img.Cr, Stride: img.CStride, Width: cw, Height: ch}, f.Planes[2])
    return img, nil
}

// Info describes a clip: format, dimensions, length and frame rate.
type Info struct {
    Format    Format
    Width     int
    Height    int
    NumFrames int
    FPSNum    int
    FPSDen    int
}

// SameVideo reports whether two clips share format, dimensions and length.
// Frame rate is not compared.
func (i Info) SameVideo(o Info) bool {
    return i.Format == o.Format && i.Width == o.Width && i.Height == o.Height && i.NumFrames == o.NumFrames
}

func (i Info) String() string {
    return fmt.Sprintf("%dx%d %s, %d frames @ %d/%d", i.Width, i.Height, i.Format, i.NumFrames, i.FPSNum, i.FPSDen)
}
