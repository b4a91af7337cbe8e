package filter

// Mask is a block-local binary map over chroma samples, one byte per
// sample, 0 or 1.
type Mask struct {
    Bits   []byte
    Width  int
    Height int
}

// NewMask allocates an empty w×h mask.
func NewMask(w, h int) Mask { return Mask{Bits: make([]byte, w*h), Width: w, Height: h} }

func (m Mask) Row(y int) []byte { return m.Bits[y*m.Width : (y+1)*m.Width] }
func (m Mask) At(x, y int) byte  { return m.Bits[y*m.Width+x] }

// Count returns the number of set samples.
func (m Mask) Count() int {
    n := 0
    for _, b := range m.Bits { n += int(b) }
    return n
}

// Clear zeroes the mask.
func (m Mask) Clear() {
    for i := range m.Bits { m.Bits[i] = 0 }
}

// rainbowSample reports whether chroma at one position swings against both
// temporal neighbours by more than variation. The sum ucup+variation is
// negative exactly when the delta lies below -variation, so ANDing two
// biased deltas leaves the sign bit set only if both do.
func rainbowSample(up, uc, un, vp, vc, vn uint8, variation int) bool {
    ucup := int(uc) - int(up)
    ucun := int(uc) - int(un)
    vcvp := int(vc) - int(vp)
    vcvn := int(vc) - int(vn)
    return ((ucup+variation)&(ucun+variation)) < 0 ||
        ((-ucup+variation)&(-ucun+variation)) < 0 ||
        ((vcvp+variation)&(vcvn+variation)) < 0 ||
        ((-vcvp+variation)&(-vcvn+variation)) < 0
}

// BuildMask marks the samples of the cur block whose U or V oscillates
// relative to prev and next.
func BuildMask(dst Mask, prev, cur, next Chroma, variation int) {
    for y := 0; y < dst.Height; y++ {
        pu, pv := prev.U.Row(y), prev.V.Row(y)
        cu, cv := cur.U.Row(y), cur.V.Row(y)
        nu, nv := next.U.Row(y), next.V.Row(y)
        row := dst.Row(y)
        for x := range row {
            row[x] = 0
            if rainbowSample(pu[x], cu[x], nu[x], pv[x], cv[x], nv[x], variation) { row[x] = 1 }
        }
    }
}
