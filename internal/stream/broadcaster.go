package stream

import (
    "sync"

    "github.com/pion/webrtc/v3/pkg/media"
)

const sinkQueue = 4

// SampleBroadcaster fans one encoded stream out to every session track.
// It is itself a SampleWriter, so the pipeline writes to it like a track.
type SampleBroadcaster struct {
    mu    sync.RWMutex
    sinks map[*asyncSampleWriter]struct{}
}

func NewSampleBroadcaster() *SampleBroadcaster {
    return &SampleBroadcaster{sinks: make(map[*asyncSampleWriter]struct{})}
}

// Add registers a track and returns the function that removes it again.
func (b *SampleBroadcaster) Add(track SampleWriter) (remove func()) {
    s := newAsyncSampleWriter(track, sinkQueue)
    b.mu.Lock()
    b.sinks[s] = struct{}{}
    b.mu.Unlock()
    return func() {
        b.mu.Lock()
        if _, ok := b.sinks[s]; ok {
            delete(b.sinks, s)
            s.stop()
        }
        b.mu.Unlock()
    }
}

// Len is the number of registered tracks.
func (b *SampleBroadcaster) Len() int {
    b.mu.RLock()
    defer b.mu.RUnlock()
    return len(b.sinks)
}

func (b *SampleBroadcaster) WriteSample(sm media.Sample) error {
    b.mu.RLock()
    for s := range b.sinks {
        if s.enqueue(sm) {
            samplesSent.Add(1)
        } else {
            samplesDropped.Add(1)
        }
    }
    b.mu.RUnlock()
    return nil
}

// Close stops every sink worker.
func (b *SampleBroadcaster) Close() {
    b.mu.Lock()
    for s := range b.sinks {
        s.stop()
        delete(b.sinks, s)
    }
    b.mu.Unlock()
}
