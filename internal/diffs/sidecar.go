package diffs

import (
    "context"
    "errors"
    "fmt"
    "io"
    "os"
    "runtime"

    "github.com/klauspost/compress/zstd"
    "github.com/vmihailenco/msgpack/v5"
    "golang.org/x/sync/errgroup"
)

const sidecarVersion = 1

var ErrVersion = errors.New("diffs: unsupported sidecar version")

// sidecar is the on-disk form of a Table: msgpack inside a zstd frame.
type sidecar struct {
    Version int             `msgpack:"version"`
    BlocksX int             `msgpack:"blocks_x"`
    BlocksY int             `msgpack:"blocks_y"`
    Offset  int             `msgpack:"offset"`
    Frames  map[int][]int32 `msgpack:"frames"`
}

// Save writes t to w.
func Save(w io.Writer, t *Table) error {
    sc := sidecar{Version: sidecarVersion, BlocksX: t.BlocksX, BlocksY: t.BlocksY, Offset: t.Offset, Frames: map[int][]int32{}}
    for _, n := range t.Indices() {
        d, _ := t.Get(n)
        sc.Frames[n] = d
    }
    enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression), zstd.WithEncoderConcurrency(1))
    if err != nil { return fmt.Errorf("zstd encoder: %w", err) }
    if err := msgpack.NewEncoder(enc).Encode(&sc); err != nil {
        enc.Close()
        return fmt.Errorf("diffs: encode sidecar: %w", err)
    }
    return enc.Close()
}

// Load reads a table written by Save.
func Load(r io.Reader) (*Table, error) {
    dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
    if err != nil { return nil, fmt.Errorf("zstd decoder: %w", err) }
    defer dec.Close()
    var sc sidecar
    if err := msgpack.NewDecoder(dec).Decode(&sc); err != nil {
        return nil, fmt.Errorf("diffs: decode sidecar: %w", err)
    }
    if sc.Version != sidecarVersion {
        return nil, fmt.Errorf("%w: %d", ErrVersion, sc.Version)
    }
    t := NewTable(sc.BlocksX, sc.BlocksY, sc.Offset)
    for n, d := range sc.Frames {
        if err := t.Put(n, d); err != nil { return nil, err }
    }
    return t, nil
}

// SaveFile writes t to path, replacing any existing file.
func SaveFile(path string, t *Table) error {
    f, err := os.Create(path)
    if err != nil { return err }
    if err := Save(f, t); err != nil {
        f.Close()
        return err
    }
    return f.Close()
}

// LoadFile reads a sidecar from path.
func LoadFile(path string) (*Table, error) {
    f, err := os.Open(path)
    if err != nil { return nil, err }
    defer f.Close()
    t, err := Load(f)
    if err != nil { return nil, fmt.Errorf("%s: %w", path, err) }
    return t, nil
}

// Precompute fills t with the diffs of frames [0, numFrames) using up to
// workers concurrent computations (0 means GOMAXPROCS). Frames already
// present are skipped.
func Precompute(ctx context.Context, src Source, t *Table, numFrames, workers int) error {
    if workers < 1 { workers = runtime.GOMAXPROCS(0) }
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(workers)
    for n := 0; n < numFrames; n++ {
        if _, ok := t.Get(n); ok { continue }
        g.Go(func() error {
            d, err := src.BlockDiffs(gctx, n)
            if err != nil { return fmt.Errorf("diffs: frame %d: %w", n, err) }
            return t.Put(n, d)
        })
    }
    return g.Wait()
}
