package stream

import "sync/atomic"

// Process-wide counters for the preview stream, reported on /health.
var (
    framesIn       atomic.Uint64 // filtered frames handed to the encoder
    framesSkipped  atomic.Uint64 // ticks with no frame ready, or a failed render
    accessUnits    atomic.Uint64 // H.264 access units read back from the encoder
    samplesSent    atomic.Uint64 // samples queued to a session track
    samplesDropped atomic.Uint64 // samples dropped because a session queue was full
    activeSources  atomic.Int64
)

// ResetCounters zeroes all counters except the live source gauge.
func ResetCounters() {
    framesIn.Store(0)
    framesSkipped.Store(0)
    accessUnits.Store(0)
    samplesSent.Store(0)
    samplesDropped.Store(0)
}

// GetCounters returns a snapshot of the counters.
func GetCounters() map[string]uint64 {
    src := activeSources.Load()
    if src < 0 { src = 0 }
    return map[string]uint64{
        "frames_in":       framesIn.Load(),
        "frames_skipped":  framesSkipped.Load(),
        "access_units":    accessUnits.Load(),
        "samples_sent":    samplesSent.Load(),
        "samples_dropped": samplesDropped.Load(),
        "sources":         uint64(src),
    }
}

func registerSource()   { activeSources.Add(1) }
func unregisterSource() { activeSources.Add(-1) }
