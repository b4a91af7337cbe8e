package frame

import (
    "image"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewAllocatesPaddedPlanes(t *testing.T) {
    f := New(YUV420P8, 10, 6)
    require.Equal(t, 10, f.Planes[0].Width)
    assert.Equal(t, 32, f.Planes[0].Stride)
    assert.Equal(t, 5, f.Planes[1].Width)
    assert.Equal(t, 3, f.Planes[2].Height)
    assert.Equal(t, byte(128), f.Planes[1].At(4, 2))
    assert.Equal(t, byte(0), f.Planes[0].At(9, 5))
}

func TestOddSizesRoundChromaUp(t *testing.T) {
    for _, tc := range []struct {
        f      Format
        w, h   int
        cw, ch int
    }{
        {YUV420P8, 9, 5, 5, 3},
        {YUV420P8, 1, 1, 1, 1},
        {YUV422P8, 7, 3, 4, 3},
        {YUV410P8, 10, 6, 3, 2},
        {YUV444P8, 7, 3, 7, 3},
    } {
        cw, ch := tc.f.PlaneSize(1, tc.w, tc.h)
        assert.Equal(t, [2]int{tc.cw, tc.ch}, [2]int{cw, ch}, "%s %dx%d", tc.f, tc.w, tc.h)
    }
    img, err := New(YUV420P8, 9, 5).YCbCr()
    require.NoError(t, err)
    assert.Equal(t, 5, img.CStride)
}

func TestWindowSharesMemory(t *testing.T) {
    p := NewPlane(8, 8, 16)
    w := p.Window(2, 3, 4, 2)
    w.Set(0, 0, 7)
    w.Set(3, 1, 9)
    assert.Equal(t, byte(7), p.At(2, 3))
    assert.Equal(t, byte(9), p.At(5, 4))
    assert.Len(t, w.Row(1), 4)
}

func TestCopyPlaneIgnoresStride(t *testing.T) {
    src := NewPlane(4, 2, 1)
    for i := range src.Data { src.Data[i] = byte(i + 1) }
    dst := NewPlane(4, 2, 32)
    CopyPlane(dst, src)
    assert.True(t, EqualPlanes(dst, src))
    assert.Equal(t, byte(5), dst.At(0, 1))
}

func TestCloneAndEqual(t *testing.T) {
    f := New(YUV422P8, 8, 4)
    f.Planes[2].Set(1, 1, 42)
    c := f.Clone()
    assert.True(t, f.Equal(c))
    c.Planes[2].Set(1, 1, 43)
    assert.False(t, f.Equal(c))
}

func TestYCbCr(t *testing.T) {
    f := New(YUV420P8, 4, 4)
    f.Planes[0].Set(3, 3, 200)
    f.Planes[1].Set(1, 1, 90)
    img, err := f.YCbCr()
    require.NoError(t, err)
    assert.Equal(t, image.YCbCrSubsampleRatio420, img.SubsampleRatio)
    assert.Equal(t, byte(200), img.Y[img.YOffset(3, 3)])
    assert.Equal(t, byte(90), img.Cb[img.COffset(3, 3)])

    _, err = New(Gray8, 4, 4).YCbCr()
    assert.ErrorIs(t, err, ErrNotYCbCr)
}

func TestInfoSameVideo(t *testing.T) {
    a := Info{Format: YUV420P8, Width: 8, Height: 8, NumFrames: 3, FPSNum: 25, FPSDen: 1}
    b := a
    b.FPSNum = 30
    assert.True(t, a.SameVideo(b))
    b.NumFrames = 4
    assert.False(t, a.SameVideo(b))
    assert.False(t, Format{}.IsConstant())
}
