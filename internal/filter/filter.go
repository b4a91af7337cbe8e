// Package filter implements the Bifrost temporal chroma filter. For every
// block of a frame it compares luma against the neighbouring frames,
// decides whether the temporal window is trustworthy, and if so repairs
// chroma samples that oscillate frame to frame ("rainbows") by blending
// them with their neighbours. Untrusted blocks take their chroma from an
// alternate clip. Luma is never modified.
package filter

import (
    "context"
    "fmt"
    "log/slog"
    "runtime"

    "golang.org/x/sync/errgroup"

    "bifrost/internal/clip"
    "bifrost/internal/diffs"
    "bifrost/internal/frame"
)

// Config configures a Filter over an already field-separated or
// progressive clip.
type Config struct {
    Options
    // Offset is the temporal neighbour distance; 0 means 1.
    Offset int
    // Diffs supplies the luma-diff side channel. When nil the diffs are
    // computed from the source on first use and kept in a cache of
    // CacheFrames entries.
    Diffs DiffSource
    // CacheFrames bounds the default diff cache; 0 means
    // (GOMAXPROCS+5)×Offset, enough for one window per busy worker.
    CacheFrames int
}

// Filter produces repaired frames on request. It holds no per-call state,
// so Frame may be called from many goroutines at once.
type Filter struct {
    src    clip.Clip
    alt    clip.Clip
    info   frame.Info
    geom   Geometry
    offset int
    cls    Classifier
    opts   Options
    diffs  DiffSource
    // od is set when diffs computes missing entries, which then read
    // their frames through the calling frame's memo.
    od     *diffs.OnDemand
    // ownAlt means fallback chroma comes from src itself
    ownAlt bool
    stats  Stats
}

var _ clip.Clip = (*Filter)(nil)

// CheckClips validates the input format and the alternate clip. alt may be
// nil.
func CheckClips(src, alt clip.Clip) error {
    info := src.Info()
    f := info.Format
    if !f.IsConstant() || f.Family != frame.FamilyYUV || f.Bits != 8 {
        return fmt.Errorf("%w: got %s", ErrUnsupportedFormat, f)
    }
    if alt != nil && !info.SameVideo(alt.Info()) {
        return fmt.Errorf("%w: %v vs %v", ErrClipMismatch, info, alt.Info())
    }
    return nil
}

// New validates the configuration and builds a filter. alt defaults to src.
func New(src, alt clip.Clip, cfg Config) (*Filter, error) {
    if err := CheckClips(src, alt); err != nil { return nil, err }
    ownAlt := alt == nil
    if ownAlt { alt = src }
    info := src.Info()
    g, err := NewGeometry(info.Format, info.Width, info.Height, cfg.BlockX, cfg.BlockY)
    if err != nil { return nil, err }
    off := cfg.Offset
    if off < 1 { off = 1 }
    ds := cfg.Diffs
    if ds == nil {
        size := cfg.CacheFrames
        if size < 1 { size = (runtime.GOMAXPROCS(0) + 5) * off }
        cache, err := diffs.NewCache(g.BlocksX, g.BlocksY, size)
        if err != nil { return nil, err }
        ds = diffs.NewOnDemand(NewBlockDiffer(src, g, off), cache)
    }
    od, _ := ds.(*diffs.OnDemand)
    f := &Filter{
        src: src, alt: alt, info: info, geom: g, offset: off,
        cls:    NewClassifier(cfg.LumaThresh, cfg.BlockX*cfg.BlockY),
        opts:   cfg.Options,
        diffs:  ds,
        od:     od,
        ownAlt: ownAlt,
    }
    slog.Debug("bifrost: filter created",
        "clip", info.String(),
        "blocks", fmt.Sprintf("%dx%d", g.BlocksX, g.BlocksY),
        "block", fmt.Sprintf("%dx%d", g.BlockW, g.BlockH),
        "offset", off,
        "thresh", f.cls.Thresh,
        "variation", cfg.Variation,
        "conservative", cfg.ConservativeMask)
    return f, nil
}

func (f *Filter) Info() frame.Info       { return f.info }
func (f *Filter) Geometry() Geometry     { return f.geom }
func (f *Filter) Stats() *Stats          { return &f.stats }
func (f *Filter) Classifier() Classifier { return f.cls }

// Window returns the clamped indices (n-2o, n-o, n, n+o, n+2o).
func (f *Filter) Window(n int) [5]int {
    num, o := f.info.NumFrames, f.offset
    return [5]int{clip.Clamp(n-2*o, num), clip.Clamp(n-o, num), n, clip.Clamp(n+o, num), clip.Clamp(n+2*o, num)}
}

// Frame returns the repaired frame n.
func (f *Filter) Frame(ctx context.Context, n int) (*frame.Frame, error) {
    return f.render(ctx, n, nil)
}

// Analyze returns frame n together with the per-block decisions that
// produced it.
func (f *Filter) Analyze(ctx context.Context, n int) (*frame.Frame, *Report, error) {
    rep := &Report{N: n, Window: f.Window(n), Geometry: f.geom, Blocks: make([]BlockReport, f.geom.NumBlocks())}
    out, err := f.render(ctx, n, rep)
    if err != nil { return nil, nil, err }
    return out, rep, nil
}

// inputs is everything one output frame depends on.
type inputs struct {
    pp, p, c, nx, nn *frame.Frame
    alt              *frame.Frame
    // diff tables of pp, p, c and nx against their next neighbour
    ld [4][]int32
}

// fetch requests all frames and diff tables of the window up front and
// waits for them together. Diffs computed on the way read their frames
// from the same memo as the window, so each frame is read once per call.
func (f *Filter) fetch(ctx context.Context, n int) (*inputs, error) {
    w := f.Window(n)
    frames := clip.NewMemo(f.src)
    lookup := f.diffs.BlockDiffs
    if f.od != nil {
        differ := NewBlockDiffer(frames, f.geom, f.offset)
        lookup = func(ctx context.Context, n int) ([]int32, error) { return f.od.BlockDiffsFrom(ctx, n, differ) }
    }

    g, gctx := errgroup.WithContext(ctx)
    src := clip.Request(gctx, frames, w[:]...)
    altSrc := f.alt
    if f.ownAlt { altSrc = frames }
    alt := clip.Request(gctx, altSrc, n)
    g.Go(src.Wait)
    g.Go(alt.Wait)

    in := &inputs{}
    want := f.geom.NumBlocks()
    for i := range in.ld {
        g.Go(func() error {
            t, err := lookup(gctx, w[i])
            if err != nil { return fmt.Errorf("luma diffs of frame %d: %w", w[i], err) }
            if len(t) != want {
                return fmt.Errorf("%w: frame %d has %d entries, want %d", ErrDiffGeometry, w[i], len(t), want)
            }
            in.ld[i] = t
            return nil
        })
    }
    if err := g.Wait(); err != nil { return nil, err }
    in.pp, in.p, in.c, in.nx, in.nn = src.Get(w[0]), src.Get(w[1]), src.Get(w[2]), src.Get(w[3]), src.Get(w[4])
    in.alt = alt.Get(n)
    return in, nil
}

func (f *Filter) render(ctx context.Context, n int, rep *Report) (*frame.Frame, error) {
    if err := clip.CheckIndex(n, f.info.NumFrames); err != nil { return nil, err }
    in, err := f.fetch(ctx, n)
    if err != nil { return nil, fmt.Errorf("bifrost: frame %d: %w", n, err) }
    out, analyzed, fallback, repaired := f.assemble(in, rep)
    f.stats.addFrame(analyzed, fallback, repaired)
    return out, nil
}

// assemble builds the output frame. Luma and any chroma outside the block
// grid come from the current frame unchanged.
func (f *Filter) assemble(in *inputs, rep *Report) (out *frame.Frame, analyzed, fallback, repaired int) {
    g := f.geom
    out = frame.New(in.c.Format, in.c.Width, in.c.Height)
    for p := 0; p < 3; p++ {
        frame.CopyPlane(out.Planes[p], in.c.Planes[p])
    }

    raw := NewMask(g.BlockWUV, g.BlockHUV)
    mask := NewMask(g.BlockWUV, g.BlockHUV)

    for by := 0; by < g.BlocksY; by++ {
        for bx := 0; bx < g.BlocksX; bx++ {
            b := by*g.BlocksX + bx
            br := BlockReport{X: bx, Y: by, LDPrev: in.ld[1][b], LDNext: in.ld[2][b], LDPrevPrev: -1, LDNextNext: -1}
            d := f.cls.Classify(float32(br.LDPrev), float32(br.LDNext),
                func() float32 { br.LDPrevPrev = in.ld[0][b]; return float32(br.LDPrevPrev) },
                func() float32 { br.LDNextNext = in.ld[3][b]; return float32(br.LDNextNext) })
            br.Decision = d

            dst := g.Chroma(out, bx, by)
            if d.Action == Fallback {
                CopyChroma(dst, g.Chroma(in.alt, bx, by))
                fallback++
            } else {
                a, m, z := in.p, in.c, in.nx
                switch d.Triplet {
                case Backward:
                    a, m, z = in.pp, in.p, in.c
                case Forward:
                    a, m, z = in.c, in.nx, in.nn
                }
                BuildMask(raw, g.Chroma(a, bx, by), g.Chroma(m, bx, by), g.Chroma(z, bx, by), f.opts.Variation)
                Denoise(mask, raw)
                if !f.opts.ConservativeMask { ExpandVertical(mask) }
                br.Repaired = Blend(dst, g.Chroma(in.p, bx, by), g.Chroma(in.c, bx, by), g.Chroma(in.nx, bx, by), mask, d.Direction)
                analyzed++
                repaired += br.Repaired
            }
            if rep != nil { rep.Blocks[b] = br }
        }
    }
    return out, analyzed, fallback, repaired
}
