package filter

import "sync/atomic"

// Stats are running counters of one filter instance, safe for concurrent
// update by parallel frame requests.
type Stats struct {
    frames   atomic.Uint64 // output frames produced
    analyzed atomic.Uint64 // blocks that went through mask synthesis
    fallback atomic.Uint64 // blocks copied from the alternate clip
    repaired atomic.Uint64 // chroma positions blended
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
    s.frames.Store(0)
    s.analyzed.Store(0)
    s.fallback.Store(0)
    s.repaired.Store(0)
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() map[string]uint64 {
    return map[string]uint64{
        "frames":           s.frames.Load(),
        "blocks_analyzed":  s.analyzed.Load(),
        "blocks_fallback":  s.fallback.Load(),
        "samples_repaired": s.repaired.Load(),
    }
}

func (s *Stats) addFrame(analyzed, fallback, repaired int) {
    s.frames.Add(1)
    s.analyzed.Add(uint64(analyzed))
    s.fallback.Add(uint64(fallback))
    s.repaired.Add(uint64(repaired))
}
