package filter

import (
    "fmt"

    "bifrost/internal/frame"
)

// Geometry is the block grid laid over a frame. Trailing columns and rows
// that do not fill a whole block are not part of the grid.
type Geometry struct {
    BlockW   int
    BlockH   int
    BlockWUV int
    BlockHUV int
    BlocksX  int
    BlocksY  int
}

// NewGeometry validates the block size against the format and frame size.
func NewGeometry(f frame.Format, width, height, bx, by int) (Geometry, error) {
    if bx <= 0 || by <= 0 {
        return Geometry{}, fmt.Errorf("%w: %dx%d", ErrBlockTooSmall, bx, by)
    }
    if bx%(1<<f.SubW) != 0 || by%(1<<f.SubH) != 0 {
        return Geometry{}, fmt.Errorf("%w: %dx%d with %s", ErrBlockSubsampling, bx, by, f)
    }
    g := Geometry{
        BlockW: bx, BlockH: by,
        BlockWUV: bx >> f.SubW, BlockHUV: by >> f.SubH,
        BlocksX: width / bx, BlocksY: height / by,
    }
    if g.BlockWUV < 2 || g.BlockHUV < 2 {
        return Geometry{}, fmt.Errorf("%w: chroma block %dx%d", ErrBlockTooSmall, g.BlockWUV, g.BlockHUV)
    }
    return g, nil
}

// NumBlocks is the size of a per-block table.
func (g Geometry) NumBlocks() int { return g.BlocksX * g.BlocksY }

// Luma returns the luma samples of block (bx, by).
func (g Geometry) Luma(f *frame.Frame, bx, by int) frame.Plane {
    return f.Planes[0].Window(bx*g.BlockW, by*g.BlockH, g.BlockW, g.BlockH)
}

// Chroma returns the U and V samples of block (bx, by).
func (g Geometry) Chroma(f *frame.Frame, bx, by int) Chroma {
    x, y := bx*g.BlockWUV, by*g.BlockHUV
    return Chroma{
        U: f.Planes[1].Window(x, y, g.BlockWUV, g.BlockHUV),
        V: f.Planes[2].Window(x, y, g.BlockWUV, g.BlockHUV),
    }
}

// Chroma pairs the U and V views of one block.
type Chroma struct {
    U frame.Plane
    V frame.Plane
}
