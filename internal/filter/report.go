package filter

// BlockReport records how one block of a frame was handled.
type BlockReport struct {
    X, Y int
    Decision
    LDPrev int32
    LDNext int32
    // LDPrevPrev and LDNextNext are -1 unless the classifier consulted them.
    LDPrevPrev int32
    LDNextNext int32
    // Repaired counts masked chroma positions (each covers a U and a V sample).
    Repaired int
}

// Report is the per-block trace of one output frame.
type Report struct {
    N        int
    Window   [5]int
    Geometry Geometry
    Blocks   []BlockReport
}

// Block returns the report of block (bx, by).
func (r *Report) Block(bx, by int) BlockReport { return r.Blocks[by*r.Geometry.BlocksX+bx] }

// Totals sums the report.
func (r *Report) Totals() (analyzed, fallback, repaired int) {
    for _, b := range r.Blocks {
        if b.Action == Fallback {
            fallback++
            continue
        }
        analyzed++
        repaired += b.Repaired
    }
    return analyzed, fallback, repaired
}
