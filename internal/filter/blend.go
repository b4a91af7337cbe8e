package filter

// Blend writes the repaired chroma of one block to dst. Masked samples are
// averaged with the neighbour(s) chosen by dir, rounding half up; the rest
// are copied from cur. It returns the number of masked samples.
func Blend(dst, prev, cur, next Chroma, m Mask, dir Direction) int {
    n := 0
    for y := 0; y < m.Height; y++ {
        n += blendRow(dst.U.Row(y), prev.U.Row(y), cur.U.Row(y), next.U.Row(y), m.Row(y), dir)
        blendRow(dst.V.Row(y), prev.V.Row(y), cur.V.Row(y), next.V.Row(y), m.Row(y), dir)
    }
    return n
}

func blendRow(dst, p, c, nx, mask []byte, dir Direction) int {
    n := 0
    for x, on := range mask {
        if on == 0 {
            dst[x] = c[x]
            continue
        }
        n++
        switch dir {
        case BlendNext:
            dst[x] = byte((int(c[x]) + int(nx[x]) + 1) >> 1)
        case BlendPrev:
            dst[x] = byte((int(c[x]) + int(p[x]) + 1) >> 1)
        default:
            dst[x] = byte((2*int(c[x]) + int(p[x]) + int(nx[x]) + 3) >> 2)
        }
    }
    return n
}

// CopyChroma copies one block of U and V verbatim.
func CopyChroma(dst, src Chroma) {
    for y := 0; y < dst.U.Height; y++ {
        copy(dst.U.Row(y), src.U.Row(y))
        copy(dst.V.Row(y), src.V.Row(y))
    }
}
