package filter

import (
    "context"

    "bifrost/internal/clip"
    "bifrost/internal/frame"
)

// LumaDiff returns the sum of absolute differences between two luma blocks
// of the same size. Strides may differ.
func LumaDiff(a, b frame.Plane) int {
    diff := 0
    for y := 0; y < a.Height; y++ {
        ra, rb := a.Row(y), b.Row(y)
        for x, va := range ra {
            d := int(va) - int(rb[x])
            if d < 0 { d = -d }
            diff += d
        }
    }
    return diff
}

// BlockDiffs computes LumaDiff for every block of the grid, row-major.
func BlockDiffs(cur, next *frame.Frame, g Geometry) []int32 {
    out := make([]int32, g.NumBlocks())
    for by := 0; by < g.BlocksY; by++ {
        for bx := 0; bx < g.BlocksX; bx++ {
            out[by*g.BlocksX+bx] = int32(LumaDiff(g.Luma(cur, bx, by), g.Luma(next, bx, by)))
        }
    }
    return out
}

// DiffSource supplies the per-block luma diffs of frame n against frame
// n+offset (clamped to the last frame). Tables are shared and must not be
// modified by the caller.
type DiffSource interface {
    BlockDiffs(ctx context.Context, n int) ([]int32, error)
}

// BlockDiffer computes the luma-diff side channel straight from a clip.
type BlockDiffer struct {
    src    clip.Clip
    geom   Geometry
    offset int
}

func NewBlockDiffer(src clip.Clip, g Geometry, offset int) *BlockDiffer {
    if offset < 1 { offset = 1 }
    return &BlockDiffer{src: src, geom: g, offset: offset}
}

func (d *BlockDiffer) Geometry() Geometry { return d.geom }
func (d *BlockDiffer) Offset() int        { return d.offset }

func (d *BlockDiffer) BlockDiffs(ctx context.Context, n int) ([]int32, error) {
    num := d.src.Info().NumFrames
    if err := clip.CheckIndex(n, num); err != nil { return nil, err }
    next := clip.Clamp(n+d.offset, num)
    b := clip.Request(ctx, d.src, n, next)
    if err := b.Wait(); err != nil { return nil, err }
    return BlockDiffs(b.Get(n), b.Get(next), d.geom), nil
}
