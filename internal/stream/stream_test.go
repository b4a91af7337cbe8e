package stream

import (
    "bytes"
    "context"
    "io"
    "sync"
    "testing"
    "time"

    "github.com/pion/webrtc/v3/pkg/media"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "bifrost/internal/clip"
    "bifrost/internal/frame"
)

func annexB(nals ...[]byte) []byte {
    var out []byte
    for i, n := range nals {
        if i%2 == 0 {
            out = append(out, startCode4...)
        } else {
            out = append(out, startCode3...)
        }
        out = append(out, n...)
    }
    return out
}

func au(nals ...[]byte) []byte {
    var out []byte
    for _, n := range nals {
        out = append(out, startCode4...)
        out = append(out, n...)
    }
    return out
}

var (
    sps     = []byte{0x67, 0x42, 0xc0, 0x1e}
    pps     = []byte{0x68, 0xce, 0x3c, 0x80}
    idr     = []byte{0x65, 0x88, 0x84, 0x21}
    slice0  = []byte{0x41, 0x9a, 0x02, 0x03}
    slice1  = []byte{0x41, 0x9a, 0x04, 0x05}
    slice1b = []byte{0x41, 0x40, 0x06, 0x07} // second slice of the same picture
)

func readAll(t *testing.T, r *AccessUnitReader) [][]byte {
    t.Helper()
    var out [][]byte
    for {
        a, err := r.Next()
        if err == io.EOF { return out }
        require.NoError(t, err)
        out = append(out, a)
    }
}

func TestAccessUnitReader(t *testing.T) {
    stream := annexB(sps, pps, idr, slice0, slice1, slice1b)
    got := readAll(t, NewAccessUnitReader(bytes.NewReader(stream)))
    assert.Equal(t, [][]byte{
        au(sps, pps, idr),
        au(slice0),
        au(slice1, slice1b),
    }, got)
}

func TestAccessUnitReaderSmallReads(t *testing.T) {
    stream := annexB(sps, pps, idr, slice0, slice1)
    got := readAll(t, NewAccessUnitReader(&oneByteReader{data: stream}))
    assert.Len(t, got, 3)
    assert.Equal(t, au(slice1), got[2])
}

func TestAccessUnitReaderEmpty(t *testing.T) {
    _, err := NewAccessUnitReader(bytes.NewReader(nil)).Next()
    assert.Equal(t, io.EOF, err)
}

type oneByteReader struct{ data []byte }

func (r *oneByteReader) Read(p []byte) (int, error) {
    if len(r.data) == 0 { return 0, io.EOF }
    p[0] = r.data[0]
    r.data = r.data[1:]
    return 1, nil
}

func TestWriteRawSkipsPadding(t *testing.T) {
    f := frame.New(frame.YUV420P8, 4, 2)
    f.Planes[0].Fill(1)
    f.Planes[1].Fill(2)
    f.Planes[2].Fill(3)
    var buf bytes.Buffer
    require.NoError(t, WriteRaw(&buf, f))
    assert.Equal(t, []byte{1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 3, 3}, buf.Bytes())
}

func TestScaleFrame(t *testing.T) {
    f := frame.New(frame.YUV420P8, 4, 4)
    for y := 0; y < 4; y++ {
        for x := 0; x < 4; x++ { f.Planes[0].Set(x, y, byte(10*y+x)) }
    }
    assert.Same(t, f, ScaleFrame(f, 4, 4))

    up := ScaleFrame(f, 8, 8)
    assert.Equal(t, 8, up.Planes[0].Width)
    assert.Equal(t, 4, up.Planes[1].Width)
    assert.Equal(t, byte(0), up.Planes[0].At(1, 1))
    assert.Equal(t, byte(33), up.Planes[0].At(7, 7))
    assert.Equal(t, byte(128), up.Planes[1].At(3, 3))

    down := ScaleFrame(f, 2, 2)
    assert.Equal(t, []byte{0, 2}, down.Planes[0].Row(0))
    assert.Equal(t, []byte{20, 22}, down.Planes[0].Row(1))
}

type recordingTrack struct {
    mu  sync.Mutex
    got []media.Sample
}

func (r *recordingTrack) WriteSample(s media.Sample) error {
    r.mu.Lock()
    r.got = append(r.got, s)
    r.mu.Unlock()
    return nil
}

func (r *recordingTrack) len() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.got)
}

// blockedTrack never returns until released.
type blockedTrack struct{ release chan struct{} }

func (b *blockedTrack) WriteSample(media.Sample) error {
    <-b.release
    return nil
}

func TestBroadcasterFansOut(t *testing.T) {
    ResetCounters()
    b := NewSampleBroadcaster()
    defer b.Close()
    t1, t2 := &recordingTrack{}, &recordingTrack{}
    remove1 := b.Add(t1)
    b.Add(t2)
    assert.Equal(t, 2, b.Len())

    require.NoError(t, b.WriteSample(media.Sample{Data: []byte{1}}))
    assert.Eventually(t, func() bool { return t1.len() == 1 && t2.len() == 1 }, time.Second, time.Millisecond)

    remove1()
    remove1()
    assert.Equal(t, 1, b.Len())
    require.NoError(t, b.WriteSample(media.Sample{Data: []byte{2}}))
    assert.Eventually(t, func() bool { return t2.len() == 2 }, time.Second, time.Millisecond)
    assert.Equal(t, 1, t1.len())
    assert.Equal(t, uint64(3), GetCounters()["samples_sent"])
}

func TestBroadcasterDropsForSlowSink(t *testing.T) {
    ResetCounters()
    b := NewSampleBroadcaster()
    slow := &blockedTrack{release: make(chan struct{})}
    b.Add(slow)
    for i := 0; i < 20; i++ {
        require.NoError(t, b.WriteSample(media.Sample{}))
    }
    c := GetCounters()
    assert.Equal(t, uint64(20), c["samples_sent"]+c["samples_dropped"])
    assert.GreaterOrEqual(t, c["samples_dropped"], uint64(20-sinkQueue-1))
    close(slow.release)
    b.Close()
    assert.Equal(t, 0, b.Len())
}

func TestClipSourceLoops(t *testing.T) {
    frames := make([]*frame.Frame, 3)
    for i := range frames {
        frames[i] = frame.New(frame.YUV420P8, 4, 4)
        frames[i].Planes[0].Fill(byte(i))
    }
    m, err := clip.NewMemory(frames, 25, 1)
    require.NoError(t, err)

    before := GetCounters()["sources"]
    s := NewClipSource(context.Background(), m, 200)
    assert.Eventually(t, func() bool {
        f, ok := s.Next()
        return ok && f != nil && f.Planes[0].At(0, 0) == 2
    }, 2*time.Second, time.Millisecond)
    assert.Eventually(t, func() bool {
        f, _ := s.Next()
        return f.Planes[0].At(0, 0) == 0
    }, 2*time.Second, time.Millisecond, "wraps around")
    assert.Equal(t, before+1, GetCounters()["sources"])

    s.Stop()
    s.Stop()
    _, ok := s.Next()
    assert.False(t, ok)
    assert.Equal(t, before, GetCounters()["sources"])
}

func TestStartH264PipelineValidates(t *testing.T) {
    _, err := StartH264Pipeline(PipelineConfig{})
    assert.ErrorIs(t, err, ErrNoSource)

    m, err := clip.NewMemory([]*frame.Frame{frame.New(frame.YUV420P8, 4, 4)}, 25, 1)
    require.NoError(t, err)
    src := NewClipSource(context.Background(), m, 25)
    defer src.Stop()
    _, err = StartH264Pipeline(PipelineConfig{Source: src, Track: &recordingTrack{}})
    assert.ErrorIs(t, err, ErrSize)

    _, err = StartH264Pipeline(PipelineConfig{
        Source: src, Track: &recordingTrack{}, Width: 4, Height: 4, Format: frame.YUV420P8,
        FFmpeg: "bifrost-no-such-encoder",
    })
    assert.Error(t, err)
}
