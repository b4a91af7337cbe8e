package y4m

import (
    "bytes"
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "bifrost/internal/frame"
)

func TestParseHeader(t *testing.T) {
    h, err := ParseHeader("YUV4MPEG2 W720 H480 F30000:1001 It A10:11 C420mpeg2 XYSCSS=420MPEG2")
    require.NoError(t, err)
    assert.Equal(t, 720, h.Width)
    assert.Equal(t, 480, h.Height)
    assert.Equal(t, 30000, h.FPSNum)
    assert.Equal(t, 1001, h.FPSDen)
    assert.Equal(t, TopFieldFirst, h.Interlace)
    assert.Equal(t, frame.YUV420P8, h.Format)
}

func TestParseHeaderErrors(t *testing.T) {
    for _, tc := range []struct {
        name, line string
        want       error
    }{
        {"signature", "YUV4MPEG W8 H8", ErrBadHeader},
        {"no size", "YUV4MPEG2 F25:1", ErrBadHeader},
        {"bad rate", "YUV4MPEG2 W8 H8 F25", ErrBadHeader},
        {"deep colour", "YUV4MPEG2 W8 H8 C420p10", ErrUnsupported},
        {"unknown tag", "YUV4MPEG2 W8 H8 Q1", ErrBadHeader},
    } {
        t.Run(tc.name, func(t *testing.T) {
            _, err := ParseHeader(tc.line)
            assert.ErrorIs(t, err, tc.want)
        })
    }
}

func TestWriterReaderRoundTrip(t *testing.T) {
    info := frame.Info{Format: frame.YUV420P8, Width: 6, Height: 4, NumFrames: 3, FPSNum: 50, FPSDen: 1}
    var buf bytes.Buffer
    w, err := NewWriter(&buf, info, TopFieldFirst)
    require.NoError(t, err)
    for n := 0; n < 3; n++ {
        f := frame.New(info.Format, info.Width, info.Height)
        f.Planes[0].Set(5, 3, byte(10+n))
        f.Planes[1].Set(2, 1, byte(20+n))
        f.Planes[2].Set(0, 0, byte(30+n))
        require.NoError(t, w.WriteFrame(f))
    }
    require.NoError(t, w.Flush())

    r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
    require.NoError(t, err)
    assert.Equal(t, 3, r.Info().NumFrames)
    assert.Equal(t, TopFieldFirst, r.Header().Interlace)
    f, err := r.Frame(context.Background(), 2)
    require.NoError(t, err)
    assert.Equal(t, byte(12), f.Planes[0].At(5, 3))
    assert.Equal(t, byte(22), f.Planes[1].At(2, 1))
    assert.Equal(t, byte(32), f.Planes[2].At(0, 0))
    assert.Equal(t, 3, f.Planes[1].Width)

    _, err = r.Frame(context.Background(), 3)
    assert.Error(t, err)
}

func TestWriterRejectsForeignFrame(t *testing.T) {
    info := frame.Info{Format: frame.YUV420P8, Width: 4, Height: 4, NumFrames: 1}
    w, err := NewWriter(&bytes.Buffer{}, info, Progressive)
    require.NoError(t, err)
    assert.ErrorIs(t, w.WriteFrame(frame.New(frame.YUV444P8, 4, 4)), ErrUnsupported)
}

func TestReaderRejectsCorruptFrame(t *testing.T) {
    data := []byte("YUV4MPEG2 W2 H2 C444\nFRAMX\n" + "abcdefghijkl")
    r, err := NewReader(bytes.NewReader(data), int64(len(data)))
    require.NoError(t, err)
    _, err = r.Frame(context.Background(), 0)
    assert.ErrorIs(t, err, ErrBadFrame)
}

func TestOddSizeRoundTrip(t *testing.T) {
    info := frame.Info{Format: frame.YUV420P8, Width: 5, Height: 3, NumFrames: 2, FPSNum: 25, FPSDen: 1}
    var buf bytes.Buffer
    w, err := NewWriter(&buf, info, Progressive)
    require.NoError(t, err)
    frames := make([]*frame.Frame, 2)
    for n := range frames {
        f := frame.New(info.Format, info.Width, info.Height)
        f.Planes[0].Set(4, 2, byte(10+n))
        f.Planes[1].Set(2, 1, byte(20+n))
        f.Planes[2].Set(2, 1, byte(30+n))
        frames[n] = f
        require.NoError(t, w.WriteFrame(f))
    }
    require.NoError(t, w.Flush())
    header := len("YUV4MPEG2 W5 H3 F25:1 Ip A1:1 C420jpeg\n")
    assert.Equal(t, header+2*(len("FRAME\n")+15+2*3*2), buf.Len())

    r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
    require.NoError(t, err)
    require.Equal(t, 2, r.Info().NumFrames)
    for n, want := range frames {
        got, err := r.Frame(context.Background(), n)
        require.NoError(t, err)
        assert.True(t, want.Equal(got), "frame %d", n)
    }
}
