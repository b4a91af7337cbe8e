package filter

// Denoise writes src to dst keeping only samples that have a marked
// horizontal neighbour. Edge columns look at their single inner neighbour.
// Masks must be at least two samples wide.
func Denoise(dst, src Mask) {
    last := src.Width - 1
    for y := 0; y < src.Height; y++ {
        s, d := src.Row(y), dst.Row(y)
        d[0] = s[0] & s[1]
        for x := 1; x < last; x++ {
            d[x] = s[x] & (s[x-1] | s[x+1])
        }
        d[last] = s[last] & s[last-1]
    }
}

// ExpandVertical marks samples whose upper and lower neighbours are both
// marked. The sweep runs top-down in place, so a row sees the already
// expanded row above it. The top row takes the row below it and the bottom
// row the row above it. Masks must be at least two samples tall.
func ExpandVertical(m Mask) {
    last := m.Height - 1
    top, below := m.Row(0), m.Row(1)
    for x := range top { top[x] |= below[x] }
    for y := 1; y < last; y++ {
        up, row, down := m.Row(y-1), m.Row(y), m.Row(y+1)
        for x := range row { row[x] |= up[x] & down[x] }
    }
    bottom, above := m.Row(last), m.Row(last-1)
    for x := range bottom { bottom[x] |= above[x] }
}
