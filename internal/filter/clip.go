package filter

import (
    "bifrost/internal/clip"
    "bifrost/internal/field"
)

// NewClip wraps src in the filter the way the options ask for. Interlaced
// material is split into fields, filtered with a temporal offset of 2 so
// neighbours share field parity, and woven back. The returned Filter works
// on fields in that case; its stats and reports are per field.
// ds may be nil; when given it must have been built for the same clip
// layout (fields when interlaced) and offset.
func NewClip(src, alt clip.Clip, opts Options, ds DiffSource) (clip.Clip, *Filter, error) {
    if err := CheckClips(src, alt); err != nil { return nil, nil, err }
    cfg := Config{Options: opts, Offset: opts.Offset(), Diffs: ds}
    if !opts.Interlaced {
        f, err := New(src, alt, cfg)
        if err != nil { return nil, nil, err }
        return f, f, nil
    }
    fsrc, err := field.Separate(src, opts.TopFieldFirst)
    if err != nil { return nil, nil, err }
    var falt clip.Clip
    if alt != nil {
        if falt, err = field.Separate(alt, opts.TopFieldFirst); err != nil { return nil, nil, err }
    }
    f, err := New(fsrc, falt, cfg)
    if err != nil { return nil, nil, err }
    w, err := field.Weave(f, opts.TopFieldFirst)
    if err != nil { return nil, nil, err }
    return w, f, nil
}

// Prepare returns the clip the filter actually runs on: the field sequence
// when interlaced, src otherwise. Diff tables are computed against it.
func Prepare(src clip.Clip, opts Options) (clip.Clip, error) {
    if !opts.Interlaced { return src, nil }
    return field.Separate(src, opts.TopFieldFirst)
}
