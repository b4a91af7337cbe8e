// Package y4m reads and writes YUV4MPEG2 streams of 8-bit planar frames.
package y4m

import (
    "bufio"
    "bytes"
    "context"
    "errors"
    "fmt"
    "io"
    "os"
    "strconv"
    "strings"

    "bifrost/internal/clip"
    "bifrost/internal/frame"
)

const (
    magic       = "YUV4MPEG2"
    frameMarker = "FRAME\n"
    maxHeader   = 1024
)

var (
    ErrBadHeader   = errors.New("y4m: malformed stream header")
    ErrUnsupported = errors.New("y4m: unsupported stream")
    ErrBadFrame    = errors.New("y4m: malformed frame header")
)

// Interlace is the I tag of the stream header.
type Interlace byte

const (
    Progressive      Interlace = 'p'
    TopFieldFirst    Interlace = 't'
    BottomFieldFirst Interlace = 'b'
    MixedFields      Interlace = 'm'
)

// Header is the parsed stream header.
type Header struct {
    Width     int
    Height    int
    FPSNum    int
    FPSDen    int
    Interlace Interlace
    Format    frame.Format
}

func chromaTag(f frame.Format) (string, error) {
    switch f {
    case frame.YUV420P8:
        return "420jpeg", nil
    case frame.YUV422P8:
        return "422", nil
    case frame.YUV444P8:
        return "444", nil
    case frame.YUV410P8:
        return "410", nil
    case frame.Gray8:
        return "mono", nil
    }
    return "", fmt.Errorf("%w: format %s", ErrUnsupported, f)
}

func formatForTag(tag string) (frame.Format, error) {
    switch tag {
    case "420jpeg", "420mpeg2", "420paldv", "420":
        return frame.YUV420P8, nil
    case "422":
        return frame.YUV422P8, nil
    case "444":
        return frame.YUV444P8, nil
    case "410":
        return frame.YUV410P8, nil
    case "mono":
        return frame.Gray8, nil
    }
    return frame.Format{}, fmt.Errorf("%w: colorspace %q", ErrUnsupported, tag)
}

// ParseHeader parses one header line without its trailing newline.
func ParseHeader(line string) (Header, error) {
    fields := strings.Fields(line)
    if len(fields) == 0 || fields[0] != magic {
        return Header{}, fmt.Errorf("%w: missing %s signature", ErrBadHeader, magic)
    }
    h := Header{FPSNum: 25, FPSDen: 1, Interlace: Progressive, Format: frame.YUV420P8}
    for _, f := range fields[1:] {
        tag, val := f[0], f[1:]
        var err error
        switch tag {
        case 'W':
            h.Width, err = strconv.Atoi(val)
        case 'H':
            h.Height, err = strconv.Atoi(val)
        case 'F':
            h.FPSNum, h.FPSDen, err = parseRatio(val)
        case 'I':
            if len(val) != 1 { err = fmt.Errorf("interlace %q", val) } else { h.Interlace = Interlace(val[0]) }
        case 'C':
            h.Format, err = formatForTag(val)
        case 'A', 'X':
        default:
            err = fmt.Errorf("unknown tag %q", f)
        }
        if err != nil {
            if errors.Is(err, ErrUnsupported) { return Header{}, err }
            return Header{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
        }
    }
    if h.Width <= 0 || h.Height <= 0 {
        return Header{}, fmt.Errorf("%w: size %dx%d", ErrBadHeader, h.Width, h.Height)
    }
    return h, nil
}

func parseRatio(s string) (int, int, error) {
    a, b, ok := strings.Cut(s, ":")
    if !ok { return 0, 0, fmt.Errorf("ratio %q", s) }
    num, err := strconv.Atoi(a)
    if err != nil { return 0, 0, err }
    den, err := strconv.Atoi(b)
    if err != nil { return 0, 0, err }
    if num <= 0 || den <= 0 { return 0, 0, fmt.Errorf("ratio %q", s) }
    return num, den, nil
}

// String renders the header line including the trailing newline.
func (h Header) String() string {
    tag, err := chromaTag(h.Format)
    if err != nil { tag = "420jpeg" }
    il := h.Interlace
    if il == 0 { il = Progressive }
    return fmt.Sprintf("%s W%d H%d F%d:%d I%c A1:1 C%s\n", magic, h.Width, h.Height, h.FPSNum, h.FPSDen, il, tag)
}

func (h Header) frameSize() int {
    n := 0
    for p := 0; p < h.Format.NumPlanes(); p++ {
        w, ht := h.Format.PlaneSize(p, h.Width, h.Height)
        n += w * ht
    }
    return n
}

// Reader is a random-access clip over a Y4M stream. Frame offsets are
// derived from the fixed frame size, so frame headers carrying parameters
// are rejected.
type Reader struct {
    r       io.ReaderAt
    closer  io.Closer
    header  Header
    dataOff int64
    info    frame.Info
}

var _ clip.Clip = (*Reader)(nil)

// NewReader reads the header of a stream of size bytes.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
    buf := make([]byte, maxHeader)
    n, err := r.ReadAt(buf, 0)
    if err != nil && !errors.Is(err, io.EOF) { return nil, err }
    i := bytes.IndexByte(buf[:n], '\n')
    if i < 0 { return nil, fmt.Errorf("%w: no header terminator", ErrBadHeader) }
    h, err := ParseHeader(string(buf[:i]))
    if err != nil { return nil, err }
    rd := &Reader{r: r, header: h, dataOff: int64(i + 1)}
    per := int64(len(frameMarker) + h.frameSize())
    rd.info = frame.Info{
        Format: h.Format, Width: h.Width, Height: h.Height,
        NumFrames: int((size - rd.dataOff) / per),
        FPSNum: h.FPSNum, FPSDen: h.FPSDen,
    }
    return rd, nil
}

// Open opens a Y4M file. Close releases it.
func Open(path string) (*Reader, error) {
    f, err := os.Open(path)
    if err != nil { return nil, err }
    st, err := f.Stat()
    if err != nil { f.Close(); return nil, err }
    rd, err := NewReader(f, st.Size())
    if err != nil { f.Close(); return nil, fmt.Errorf("%s: %w", path, err) }
    rd.closer = f
    return rd, nil
}

func (r *Reader) Header() Header   { return r.header }
func (r *Reader) Info() frame.Info { return r.info }

func (r *Reader) Close() error {
    if r.closer == nil { return nil }
    return r.closer.Close()
}

// Frame reads frame n. Each call allocates its own buffer, so concurrent
// calls only share the underlying ReaderAt.
func (r *Reader) Frame(ctx context.Context, n int) (*frame.Frame, error) {
    if err := ctx.Err(); err != nil { return nil, err }
    if err := clip.CheckIndex(n, r.info.NumFrames); err != nil { return nil, err }
    size := r.header.frameSize()
    buf := make([]byte, len(frameMarker)+size)
    off := r.dataOff + int64(n)*int64(len(buf))
    if got, err := r.r.ReadAt(buf, off); err != nil && !(errors.Is(err, io.EOF) && got == len(buf)) {
        return nil, fmt.Errorf("y4m: read frame %d: %w", n, err)
    }
    if string(buf[:len(frameMarker)]) != frameMarker {
        return nil, fmt.Errorf("%w: frame %d", ErrBadFrame, n)
    }
    data := buf[len(frameMarker):]
    f := &frame.Frame{Format: r.header.Format, Width: r.header.Width, Height: r.header.Height}
    for p := 0; p < f.Format.NumPlanes(); p++ {
        w, h := f.Format.PlaneSize(p, f.Width, f.Height)
        f.Planes[p] = frame.Plane{Data: data[:w*h], Stride: w, Width: w, Height: h}
        data = data[w*h:]
    }
    return f, nil
}

// Writer writes a Y4M stream frame by frame.
type Writer struct {
    w      *bufio.Writer
    header Header
}

// NewWriter writes the stream header for info to w.
func NewWriter(w io.Writer, info frame.Info, il Interlace) (*Writer, error) {
    h := Header{Width: info.Width, Height: info.Height, FPSNum: info.FPSNum, FPSDen: info.FPSDen, Interlace: il, Format: info.Format}
    if h.FPSNum <= 0 || h.FPSDen <= 0 { h.FPSNum, h.FPSDen = 25, 1 }
    if _, err := chromaTag(info.Format); err != nil { return nil, err }
    bw := bufio.NewWriterSize(w, 1<<20)
    if _, err := bw.WriteString(h.String()); err != nil { return nil, err }
    return &Writer{w: bw, header: h}, nil
}

// WriteFrame appends one frame. Padding beyond each plane's width is skipped.
func (w *Writer) WriteFrame(f *frame.Frame) error {
    if f.Format != w.header.Format || f.Width != w.header.Width || f.Height != w.header.Height {
        return fmt.Errorf("%w: frame %dx%d %s does not match stream", ErrUnsupported, f.Width, f.Height, f.Format)
    }
    if _, err := w.w.WriteString(frameMarker); err != nil { return err }
    for p := 0; p < f.Format.NumPlanes(); p++ {
        pl := f.Planes[p]
        for y := 0; y < pl.Height; y++ {
            if _, err := w.w.Write(pl.Row(y)); err != nil { return err }
        }
    }
    return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }
