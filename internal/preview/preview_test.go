package preview

import (
    "bytes"
    "image/color"
    "image/png"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "bifrost/internal/filter"
    "bifrost/internal/frame"
)

func grey(y byte) *frame.Frame {
    f := frame.New(frame.YUV420P8, 8, 4)
    f.Planes[0].Fill(y)
    return f
}

func report(t *testing.T) *filter.Report {
    t.Helper()
    g, err := filter.NewGeometry(frame.YUV420P8, 8, 4, 4, 4)
    require.NoError(t, err)
    return &filter.Report{
        Geometry: g,
        Blocks: []filter.BlockReport{
            {X: 0, Y: 0, Decision: filter.Decision{Action: filter.Fallback}},
            {X: 1, Y: 0, Repaired: 3},
        },
    }
}

func TestSnapshotLayout(t *testing.T) {
    img, err := Snapshot(grey(40), grey(200), report(t), Options{Scale: 2})
    require.NoError(t, err)
    assert.Equal(t, 8*2*3, img.Bounds().Dx())
    assert.Equal(t, 4*2, img.Bounds().Dy())

    r, g, b, _ := img.At(1, 1).RGBA()
    assert.Equal(t, r>>8, g>>8, "neutral chroma stays grey")
    assert.Equal(t, g>>8, b>>8)
    assert.InDelta(t, 40, float64(r>>8), 3)

    r, _, _, _ = img.At(16+1, 1).RGBA()
    assert.InDelta(t, 200, float64(r>>8), 3)

    // decision panel: fallback block red, repaired block green
    fb := img.RGBAAt(32+1, 1)
    assert.Greater(t, fb.R, fb.G)
    rp := img.RGBAAt(32+8+1, 1)
    assert.Greater(t, rp.G, rp.R)
}

func TestSnapshotWithoutReport(t *testing.T) {
    img, err := Snapshot(grey(0), grey(0), nil, Options{})
    require.NoError(t, err)
    assert.Equal(t, 16, img.Bounds().Dx())
}

func TestSnapshotGrid(t *testing.T) {
    img, err := Snapshot(grey(255), grey(255), report(t), Options{Scale: 2, Grid: true})
    require.NoError(t, err)
    assert.Equal(t, gridColor, img.RGBAAt(32, 3))
    assert.Equal(t, gridColor, img.RGBAAt(40, 5))
    assert.NotEqual(t, gridColor, img.RGBAAt(33, 3))
}

func TestSnapshotRejects(t *testing.T) {
    _, err := Snapshot(grey(0), frame.New(frame.YUV420P8, 4, 4), nil, Options{})
    assert.ErrorIs(t, err, ErrSizeMismatch)

    g := frame.New(frame.Gray8, 8, 4)
    _, err = Snapshot(g, g, nil, Options{})
    assert.ErrorIs(t, err, frame.ErrNotYCbCr)
}

func TestWritePNG(t *testing.T) {
    img, err := Snapshot(grey(10), grey(20), report(t), Options{})
    require.NoError(t, err)
    var buf bytes.Buffer
    require.NoError(t, WritePNG(&buf, img))
    dec, err := png.Decode(&buf)
    require.NoError(t, err)
    assert.Equal(t, img.Bounds(), dec.Bounds())
    assert.Equal(t, color.RGBAModel.Convert(img.At(3, 3)), color.RGBAModel.Convert(dec.At(3, 3)))
}
