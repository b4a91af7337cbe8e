package stream

import (
    "bufio"
    "bytes"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "os/exec"
    "strconv"
    "sync"
    "time"

    "github.com/pion/webrtc/v3/pkg/media"

    "bifrost/internal/frame"
)

var (
    ErrNoSource = errors.New("stream: pipeline needs a source and a track")
    ErrSize     = errors.New("stream: output size and format required")
)

// PipelineConfig defines how to produce H.264 and feed a track.
type PipelineConfig struct {
    Width, Height int // output size; frames of another size are rescaled
    FPS           int
    Format        frame.Format
    Source        Source
    Track         SampleWriter
    // FFmpeg is the encoder binary; empty means "ffmpeg" on PATH.
    FFmpeg string
}

// Pipeline pumps frames from a Source through ffmpeg (libx264, zero
// latency) and writes the resulting access units to Track as samples.
type Pipeline struct {
    cfg    PipelineConfig
    cmd    *exec.Cmd
    stdin  io.WriteCloser
    stdout io.ReadCloser
    quit   chan struct{}
    wg     sync.WaitGroup
    once   sync.Once
}

// StartH264Pipeline starts the encoder process and both pump goroutines.
func StartH264Pipeline(cfg PipelineConfig) (*Pipeline, error) {
    if cfg.Source == nil || cfg.Track == nil { return nil, ErrNoSource }
    if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Format.Name == "" { return nil, ErrSize }
    if cfg.FPS <= 0 { cfg.FPS = 25 }
    if cfg.FFmpeg == "" { cfg.FFmpeg = "ffmpeg" }
    p := &Pipeline{cfg: cfg}
    if err := p.start(); err != nil { return nil, err }
    return p, nil
}

func (p *Pipeline) args() []string {
    return []string{
        "-hide_banner", "-loglevel", "warning",
        "-f", "rawvideo",
        "-pix_fmt", p.cfg.Format.Name,
        "-s:v", sizeArg(p.cfg.Width, p.cfg.Height),
        "-r", strconv.Itoa(p.cfg.FPS),
        "-i", "-",
        "-an",
        "-c:v", "libx264",
        "-preset", "veryfast",
        "-tune", "zerolatency",
        "-g", strconv.Itoa(2 * p.cfg.FPS),
        "-pix_fmt", "yuv420p",
        "-f", "h264",
        "-",
    }
}

func (p *Pipeline) start() error {
    cmd := exec.Command(p.cfg.FFmpeg, p.args()...)
    stdin, err := cmd.StdinPipe()
    if err != nil { return err }
    stdout, err := cmd.StdoutPipe()
    if err != nil { return err }
    cmd.Stderr = &logWriter{prefix: "ffmpeg"}
    if err := cmd.Start(); err != nil { return fmt.Errorf("stream: start %s: %w", p.cfg.FFmpeg, err) }
    p.cmd, p.stdin, p.stdout = cmd, stdin, stdout
    p.quit = make(chan struct{})
    slog.Info("stream: encoder started", "pid", cmd.Process.Pid, "size", sizeArg(p.cfg.Width, p.cfg.Height), "fps", p.cfg.FPS, "pix_fmt", p.cfg.Format.Name)

    p.wg.Add(2)
    go p.pump()
    go p.drain()
    return nil
}

// pump feeds one raw frame per tick to the encoder.
func (p *Pipeline) pump() {
    defer p.wg.Done()
    w := bufio.NewWriterSize(p.stdin, 1<<20)
    ticker := time.NewTicker(time.Second / time.Duration(p.cfg.FPS))
    defer ticker.Stop()
    for {
        select {
        case <-p.quit:
            return
        case <-ticker.C:
        }
        f, ok := p.cfg.Source.Next()
        if !ok { return }
        if f == nil {
            framesSkipped.Add(1)
            continue
        }
        f = ScaleFrame(f, p.cfg.Width, p.cfg.Height)
        if err := WriteRaw(w, f); err != nil { return }
        if err := w.Flush(); err != nil { return }
        framesIn.Add(1)
    }
}

// drain reads access units back and writes them as samples.
func (p *Pipeline) drain() {
    defer p.wg.Done()
    r := NewAccessUnitReader(p.stdout)
    dur := time.Second / time.Duration(p.cfg.FPS)
    for {
        au, err := r.Next()
        if err != nil {
            if !errors.Is(err, io.EOF) { slog.Warn("stream: encoder output", "err", err) }
            return
        }
        accessUnits.Add(1)
        _ = p.cfg.Track.WriteSample(media.Sample{Data: au, Duration: dur})
    }
}

// Stop terminates the encoder and waits for the pumps. The source is left
// running; its owner stops it.
func (p *Pipeline) Stop() {
    p.once.Do(func() {
        close(p.quit)
        _ = p.stdin.Close()
        if p.cmd != nil && p.cmd.Process != nil {
            _ = p.cmd.Process.Kill()
            _ = p.cmd.Wait()
        }
        p.wg.Wait()
        slog.Info("stream: encoder stopped")
    })
}

// WriteRaw writes the visible samples of every plane, which is the layout
// ffmpeg's rawvideo demuxer expects for planar formats.
func WriteRaw(w io.Writer, f *frame.Frame) error {
    for p := 0; p < f.Format.NumPlanes(); p++ {
        pl := f.Planes[p]
        for y := 0; y < pl.Height; y++ {
            if _, err := w.Write(pl.Row(y)); err != nil { return err }
        }
    }
    return nil
}

func sizeArg(w, h int) string { return strconv.Itoa(w) + "x" + strconv.Itoa(h) }

// logWriter forwards ffmpeg's stderr to the debug log line by line.
type logWriter struct {
    prefix string
    buf    []byte
}

func (l *logWriter) Write(b []byte) (int, error) {
    l.buf = append(l.buf, b...)
    for {
        i := bytes.IndexByte(l.buf, '\n')
        if i < 0 { break }
        if line := bytes.TrimSpace(l.buf[:i]); len(line) > 0 {
            slog.Debug("stream: "+l.prefix, "msg", string(line))
        }
        l.buf = l.buf[i+1:]
    }
    return len(b), nil
}
