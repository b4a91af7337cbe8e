package stream

import (
    "bufio"
    "bytes"
    "io"
)

var (
    startCode3 = []byte{0, 0, 1}
    startCode4 = []byte{0, 0, 0, 1}
)

const maxAccessUnit = 4 << 20

// splitNAL is a bufio.SplitFunc yielding the NAL units of an AnnexB byte
// stream without their start codes.
func splitNAL(data []byte, atEOF bool) (int, []byte, error) {
    start := bytes.Index(data, startCode3)
    if start < 0 {
        if atEOF { return len(data), nil, nil }
        // a start code may straddle the buffer end
        if len(data) > 2 { return len(data) - 2, nil, nil }
        return 0, nil, nil
    }
    body := start + len(startCode3)
    if end := bytes.Index(data[body:], startCode3); end >= 0 {
        return body + end, bytes.TrimRight(data[body:body+end], "\x00"), nil
    }
    if atEOF {
        return len(data), bytes.TrimRight(data[body:], "\x00"), nil
    }
    return start, nil, nil
}

func nalType(nal []byte) byte { return nal[0] & 0x1f }

func isVCL(t byte) bool { return t >= 1 && t <= 5 }

// startsAccessUnit reports whether nal opens a new access unit once the
// current one already holds a picture: a slice with first_mb_in_slice 0,
// or any of AUD, SEI, SPS, PPS and the reserved 14..18 range.
func startsAccessUnit(nal []byte) bool {
    t := nalType(nal)
    switch {
    case isVCL(t):
        return len(nal) > 1 && nal[1]&0x80 != 0
    case t >= 6 && t <= 9, t >= 14 && t <= 18:
        return true
    }
    return false
}

// AccessUnitReader groups the NAL units of an H.264 AnnexB stream into
// access units, each returned with 4-byte start codes.
type AccessUnitReader struct {
    sc  *bufio.Scanner
    au  []byte
    vcl bool
}

func NewAccessUnitReader(r io.Reader) *AccessUnitReader {
    sc := bufio.NewScanner(r)
    sc.Buffer(make([]byte, 0, 1<<20), maxAccessUnit)
    sc.Split(splitNAL)
    return &AccessUnitReader{sc: sc}
}

// Next returns the next complete access unit, or io.EOF after the last.
func (r *AccessUnitReader) Next() ([]byte, error) {
    for r.sc.Scan() {
        nal := r.sc.Bytes()
        if len(nal) == 0 { continue }
        if r.vcl && startsAccessUnit(nal) {
            au := r.au
            r.au, r.vcl = nil, false
            r.add(nal)
            return au, nil
        }
        r.add(nal)
    }
    if err := r.sc.Err(); err != nil { return nil, err }
    if len(r.au) == 0 { return nil, io.EOF }
    au := r.au
    r.au, r.vcl = nil, false
    return au, nil
}

func (r *AccessUnitReader) add(nal []byte) {
    r.au = append(r.au, startCode4...)
    r.au = append(r.au, nal...)
    if isVCL(nalType(nal)) { r.vcl = true }
}
