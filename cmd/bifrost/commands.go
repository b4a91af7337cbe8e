package main

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net"
    "net/http"
    "os"
    "strconv"
    "time"

    "bifrost/internal/clip"
    "bifrost/internal/diffs"
    "bifrost/internal/filter"
    "bifrost/internal/preview"
    "bifrost/internal/render"
    "bifrost/internal/server"
    "bifrost/internal/stream"
    "bifrost/internal/y4m"
)

// inputs are the opened source clips of a command.
type inputs struct {
    src *y4m.Reader
    alt *y4m.Reader
}

func openInputs(cfg filter.Options, path, altPath string) (*inputs, error) {
    src, err := y4m.Open(path)
    if err != nil { return nil, err }
    in := &inputs{src: src}
    if altPath != "" {
        if in.alt, err = y4m.Open(altPath); err != nil {
            src.Close()
            return nil, err
        }
    }
    il := src.Header().Interlace
    if cfg.Interlaced && il == y4m.Progressive {
        slog.Warn("bifrost: clip is flagged progressive but interlaced filtering is on", "input", path)
    }
    if cfg.Interlaced && (il == y4m.TopFieldFirst || il == y4m.BottomFieldFirst) && (il == y4m.TopFieldFirst) != cfg.TopFieldFirst {
        slog.Warn("bifrost: field order differs from the clip header", "header", string(il), "tff", cfg.TopFieldFirst)
    }
    return in, nil
}

func (in *inputs) altClip() clip.Clip {
    if in.alt == nil { return nil }
    return in.alt
}

func (in *inputs) Close() {
    in.src.Close()
    if in.alt != nil { in.alt.Close() }
}

// diffSource loads the sidecar at path, if any, behind an on-demand source
// that computes whatever the file lacks.
func diffSource(path string, src clip.Clip, opts filter.Options) (filter.DiffSource, error) {
    if path == "" { return nil, nil }
    prepared, err := filter.Prepare(src, opts)
    if err != nil { return nil, err }
    info := prepared.Info()
    g, err := filter.NewGeometry(info.Format, info.Width, info.Height, opts.BlockX, opts.BlockY)
    if err != nil { return nil, err }
    t, err := diffs.LoadFile(path)
    if err != nil { return nil, err }
    if !t.Matches(g.BlocksX, g.BlocksY, opts.Offset()) {
        return nil, fmt.Errorf("%s: %w: file is %dx%d offset %d, clip needs %dx%d offset %d",
            path, diffs.ErrGeometry, t.BlocksX, t.BlocksY, t.Offset, g.BlocksX, g.BlocksY, opts.Offset())
    }
    slog.Info("bifrost: loaded luma diffs", "file", path, "frames", t.Len(), "of", info.NumFrames)
    return diffs.NewOnDemand(filter.NewBlockDiffer(prepared, g, opts.Offset()), t), nil
}

func buildClip(f *flags) (*inputs, clip.Clip, *filter.Filter, error) {
    in, err := openInputs(f.cfg.Filter, f.cfg.Input, f.cfg.AltInput)
    if err != nil { return nil, nil, nil, err }
    ds, err := diffSource(f.cfg.Diffs, in.src, f.cfg.Filter)
    if err != nil {
        in.Close()
        return nil, nil, nil, err
    }
    out, flt, err := filter.NewClip(in.src, in.altClip(), f.cfg.Filter, ds)
    if err != nil {
        in.Close()
        return nil, nil, nil, err
    }
    return in, out, flt, nil
}

func runFilter(ctx context.Context, args []string) error {
    f := newFlags("filter")
    f.StringVar(&f.cfg.Output, "o", getEnv("BIFROST_OUTPUT", "-"), `output Y4M file, "-" for stdout`)
    first := f.Int("first", 0, "first frame to render")
    count := f.Int("count", 0, "number of frames to render (0 = all)")
    if err := f.parse(args); err != nil { return err }

    in, out, flt, err := buildClip(f)
    if err != nil { return err }
    defer in.Close()

    var w io.Writer = os.Stdout
    if f.cfg.Output != "-" && f.cfg.Output != "" {
        file, err := os.Create(f.cfg.Output)
        if err != nil { return err }
        defer file.Close()
        w = file
    }
    yw, err := y4m.NewWriter(w, out.Info(), in.src.Header().Interlace)
    if err != nil { return err }

    res, err := render.Run(ctx, out, yw, render.Options{Workers: f.cfg.Workers, First: *first, Count: *count})
    if ferr := yw.Flush(); err == nil { err = ferr }
    if err != nil { return err }
    slog.Info("bifrost: filtered", "job", res.Job, "frames", res.Frames, "stats", flt.Stats().Snapshot())
    return nil
}

func runDiffs(ctx context.Context, args []string) error {
    f := newFlags("diffs")
    out := f.String("o", "", "sidecar file to write (default: -diffs)")
    if err := f.parse(args); err != nil { return err }
    path := *out
    if path == "" { path = f.cfg.Diffs }
    if path == "" { return errors.New("no sidecar path (-o or -diffs)") }

    src, err := y4m.Open(f.cfg.Input)
    if err != nil { return err }
    defer src.Close()
    opts := f.cfg.Filter
    prepared, err := filter.Prepare(src, opts)
    if err != nil { return err }
    info := prepared.Info()
    g, err := filter.NewGeometry(info.Format, info.Width, info.Height, opts.BlockX, opts.BlockY)
    if err != nil { return err }

    t := diffs.NewTable(g.BlocksX, g.BlocksY, opts.Offset())
    if existing, err := diffs.LoadFile(path); err == nil && existing.Matches(g.BlocksX, g.BlocksY, opts.Offset()) {
        t = existing
        slog.Info("bifrost: resuming sidecar", "file", path, "frames", t.Len())
    }
    start := time.Now()
    d := filter.NewBlockDiffer(prepared, g, opts.Offset())
    if err := diffs.Precompute(ctx, d, t, info.NumFrames, f.cfg.Workers); err != nil { return err }
    if err := diffs.SaveFile(path, t); err != nil { return err }
    slog.Info("bifrost: wrote luma diffs", "file", path, "frames", t.Len(), "blocks", g.NumBlocks(), "elapsed", time.Since(start).Round(time.Millisecond))
    return nil
}

func runSnapshot(ctx context.Context, args []string) error {
    f := newFlags("snapshot")
    n := f.Int("frame", 0, "frame to inspect")
    out := f.String("o", "snapshot.png", "PNG file to write")
    scale := f.Int("scale", 1, "integer zoom")
    grid := f.Bool("grid", false, "draw the block grid on the decision map")
    if err := f.parse(args); err != nil { return err }

    in, _, flt, err := buildClip(f)
    if err != nil { return err }
    defer in.Close()

    // interlaced clips are inspected on the first field of the frame
    idx := *n
    base := clip.Clip(in.src)
    if f.cfg.Filter.Interlaced {
        idx = 2 * *n
        if base, err = filter.Prepare(in.src, f.cfg.Filter); err != nil { return err }
    }
    before, err := base.Frame(ctx, idx)
    if err != nil { return err }
    after, rep, err := flt.Analyze(ctx, idx)
    if err != nil { return err }
    img, err := preview.Snapshot(before, after, rep, preview.Options{Scale: *scale, Grid: *grid})
    if err != nil { return err }
    if err := preview.SavePNG(*out, img); err != nil { return err }
    analyzed, fallback, repaired := rep.Totals()
    slog.Info("bifrost: snapshot", "file", *out, "frame", *n, "analyzed", analyzed, "fallback", fallback, "repaired", repaired)
    return nil
}

func runServe(ctx context.Context, args []string) error {
    f := newFlags("serve")
    sc := &f.cfg.Serve
    f.StringVar(&sc.Host, "host", getEnv("HOST", sc.Host), "bind host")
    f.IntVar(&sc.Port, "port", getEnvInt("PORT", sc.Port), "bind port")
    f.IntVar(&sc.FPS, "fps", getEnvInt("FPS", sc.FPS), "playback rate")
    f.IntVar(&sc.Width, "width", getEnvInt("VIDEO_WIDTH", 0), "stream width (0 = clip width)")
    f.IntVar(&sc.Height, "height", getEnvInt("VIDEO_HEIGHT", 0), "stream height (0 = clip height)")
    if err := f.parse(args); err != nil { return err }

    in, out, flt, err := buildClip(f)
    if err != nil { return err }
    defer in.Close()

    info := out.Info()
    cfg := server.Config{Host: sc.Host, Port: sc.Port, FPS: sc.FPS, Width: sc.Width, Height: sc.Height, Format: info.Format}
    if cfg.Width == 0 { cfg.Width = info.Width }
    if cfg.Height == 0 { cfg.Height = info.Height }

    src := stream.NewClipSource(ctx, out, cfg.FPS)
    defer src.Stop()
    whep := server.NewWhepServer(cfg, src, flt.Stats().Snapshot)
    defer whep.Close()
    mux := http.NewServeMux()
    whep.RegisterRoutes(mux)

    srv := &http.Server{
        Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
        Handler:           mux,
        ReadHeaderTimeout: 10 * time.Second,
    }
    errc := make(chan error, 1)
    go func() {
        slog.Info("bifrost: WHEP server listening", "url", "http://"+srv.Addr, "clip", info.String())
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errc <- err
        }
        close(errc)
    }()

    select {
    case err := <-errc:
        return err
    case <-ctx.Done():
    }
    shutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    return srv.Shutdown(shutdown)
}
