package frame

import "fmt"

// ColorFamily identifies how the planes of a Format are interpreted.
type ColorFamily int

const (
    FamilyUndefined ColorFamily = iota
    FamilyGray
    FamilyYUV
    FamilyRGB
)

func (c ColorFamily) String() string {
    switch c {
    case FamilyGray:
        return "gray"
    case FamilyYUV:
        return "yuv"
    case FamilyRGB:
        return "rgb"
    default:
        return "undefined"
    }
}

// Format describes the sample layout of a planar frame. SubW and SubH are
// log2 chroma subsampling factors, so 4:2:0 is SubW=1, SubH=1.
// The zero Format stands for a clip whose format changes between frames.
type Format struct {
    Name   string
    Family ColorFamily
    Bits   int
    SubW   int
    SubH   int
}

var (
    YUV420P8  = Format{Name: "yuv420p", Family: FamilyYUV, Bits: 8, SubW: 1, SubH: 1}
    YUV422P8  = Format{Name: "yuv422p", Family: FamilyYUV, Bits: 8, SubW: 1, SubH: 0}
    YUV444P8  = Format{Name: "yuv444p", Family: FamilyYUV, Bits: 8, SubW: 0, SubH: 0}
    YUV410P8  = Format{Name: "yuv410p", Family: FamilyYUV, Bits: 8, SubW: 2, SubH: 2}
    YUV420P10 = Format{Name: "yuv420p10", Family: FamilyYUV, Bits: 10, SubW: 1, SubH: 1}
    Gray8     = Format{Name: "gray", Family: FamilyGray, Bits: 8}
)

// IsConstant reports whether the format is fixed for the whole clip.
func (f Format) IsConstant() bool { return f.Family != FamilyUndefined && f.Bits > 0 }

// NumPlanes returns 1 for gray formats and 3 otherwise.
func (f Format) NumPlanes() int {
    if f.Family == FamilyGray { return 1 }
    return 3
}

// PlaneSize returns the dimensions of plane p for a frame of w×h luma
// samples. Subsampled sizes round up, as in Y4M and ffmpeg.
func (f Format) PlaneSize(p, w, h int) (int, int) {
    if p == 0 || f.Family != FamilyYUV { return w, h }
    return (w + 1<<f.SubW - 1) >> f.SubW, (h + 1<<f.SubH - 1) >> f.SubH
}

func (f Format) String() string {
    if f.Name != "" { return f.Name }
    if !f.IsConstant() { return "variable" }
    return fmt.Sprintf("%s%d(%d,%d)", f.Family, f.Bits, f.SubW, f.SubH)
}
