package stream

import (
    "github.com/pion/webrtc/v3/pkg/media"
)

// SampleWriter is the part of *webrtc.TrackLocalStaticSample the stream
// needs.
type SampleWriter interface {
    WriteSample(media.Sample) error
}

// asyncSampleWriter decouples one session track from the encoder loop. The
// queue is short; when it is full the sample is dropped so a slow peer
// never stalls the others.
type asyncSampleWriter struct {
    ch   chan media.Sample
    quit chan struct{}
}

func newAsyncSampleWriter(w SampleWriter, depth int) *asyncSampleWriter {
    aw := &asyncSampleWriter{ch: make(chan media.Sample, depth), quit: make(chan struct{})}
    go func() {
        for {
            select {
            case s := <-aw.ch:
                _ = w.WriteSample(s)
            case <-aw.quit:
                return
            }
        }
    }()
    return aw
}

func (aw *asyncSampleWriter) enqueue(s media.Sample) bool {
    select {
    case aw.ch <- s:
        return true
    default:
        return false
    }
}

func (aw *asyncSampleWriter) stop() { close(aw.quit) }
