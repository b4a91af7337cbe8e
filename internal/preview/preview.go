// Package preview renders a side by side PNG of a frame before and after
// filtering, plus a map of the per-block decisions.
package preview

import (
    "errors"
    "image"
    "image/color"
    "image/draw"
    "image/png"
    "io"
    "os"

    xdraw "golang.org/x/image/draw"

    "bifrost/internal/filter"
    "bifrost/internal/frame"
)

var ErrSizeMismatch = errors.New("preview: frames differ in size")

var (
    fallbackTint = color.RGBA{R: 220, G: 40, B: 40, A: 255}
    repairTint   = color.RGBA{R: 40, G: 200, B: 80, A: 255}
    gridColor    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Options control the snapshot layout.
type Options struct {
    // Scale enlarges every panel by an integer factor; 0 means 1.
    Scale int
    // Grid draws block boundaries on the decision map when the scaled
    // block is at least 4 pixels wide.
    Grid bool
}

// Snapshot lays out before | after | decisions. rep may be nil, in which
// case only the first two panels are drawn.
func Snapshot(before, after *frame.Frame, rep *filter.Report, opts Options) (*image.RGBA, error) {
    if before.Width != after.Width || before.Height != after.Height { return nil, ErrSizeMismatch }
    scale := opts.Scale
    if scale < 1 { scale = 1 }
    b, err := before.YCbCr()
    if err != nil { return nil, err }
    a, err := after.YCbCr()
    if err != nil { return nil, err }

    pw, ph := before.Width*scale, before.Height*scale
    panels := 2
    if rep != nil { panels = 3 }
    out := image.NewRGBA(image.Rect(0, 0, pw*panels, ph))

    xdraw.NearestNeighbor.Scale(out, image.Rect(0, 0, pw, ph), b, b.Bounds(), draw.Src, nil)
    xdraw.NearestNeighbor.Scale(out, image.Rect(pw, 0, 2*pw, ph), a, a.Bounds(), draw.Src, nil)
    if rep != nil {
        dm := decisionMap(a, rep)
        r := image.Rect(2*pw, 0, 3*pw, ph)
        xdraw.NearestNeighbor.Scale(out, r, dm, dm.Bounds(), draw.Src, nil)
        if opts.Grid && rep.Geometry.BlockW*scale >= 4 { drawGrid(out, r, rep.Geometry, scale) }
    }
    return out, nil
}

// decisionMap greys out the frame and tints each block by its outcome:
// red for fallback, green for blocks that had samples repaired.
func decisionMap(img *image.YCbCr, rep *filter.Report) *image.RGBA {
    bounds := img.Bounds()
    out := image.NewRGBA(bounds)
    for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
        for x := bounds.Min.X; x < bounds.Max.X; x++ {
            l := img.Y[img.YOffset(x, y)] / 2
            out.SetRGBA(x, y, color.RGBA{R: l, G: l, B: l, A: 255})
        }
    }
    g := rep.Geometry
    for _, br := range rep.Blocks {
        var tint color.RGBA
        switch {
        case br.Action == filter.Fallback:
            tint = fallbackTint
        case br.Repaired > 0:
            tint = repairTint
        default:
            continue
        }
        r := image.Rect(br.X*g.BlockW, br.Y*g.BlockH, (br.X+1)*g.BlockW, (br.Y+1)*g.BlockH)
        for y := r.Min.Y; y < r.Max.Y; y++ {
            for x := r.Min.X; x < r.Max.X; x++ {
                out.SetRGBA(x, y, mix(out.RGBAAt(x, y), tint))
            }
        }
    }
    return out
}

func mix(a, b color.RGBA) color.RGBA {
    return color.RGBA{R: uint8((uint16(a.R) + uint16(b.R)) / 2), G: uint8((uint16(a.G) + uint16(b.G)) / 2), B: uint8((uint16(a.B) + uint16(b.B)) / 2), A: 255}
}

func drawGrid(dst *image.RGBA, r image.Rectangle, g filter.Geometry, scale int) {
    step := g.BlockW * scale
    for x := r.Min.X; x < r.Min.X+g.BlocksX*step; x += step {
        for y := r.Min.Y; y < r.Max.Y; y++ { dst.SetRGBA(x, y, gridColor) }
    }
    step = g.BlockH * scale
    for y := r.Min.Y; y < r.Min.Y+g.BlocksY*step; y += step {
        for x := r.Min.X; x < r.Max.X; x++ { dst.SetRGBA(x, y, gridColor) }
    }
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
    enc := png.Encoder{CompressionLevel: png.BestSpeed}
    return enc.Encode(w, img)
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
    f, err := os.Create(path)
    if err != nil { return err }
    if err := WritePNG(f, img); err != nil {
        f.Close()
        return err
    }
    return f.Close()
}
