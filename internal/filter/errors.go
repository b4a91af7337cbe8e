package filter

import "errors"

// Configuration errors. New returns them wrapped with the offending values.
var (
    ErrUnsupportedFormat = errors.New("bifrost: only constant format 8 bit integer YUV allowed")
    ErrClipMismatch      = errors.New("bifrost: the two input clips must have the same format, dimensions and length")
    ErrBlockSubsampling  = errors.New("bifrost: the requested block size is incompatible with the clip's subsampling")
    ErrBlockTooSmall     = errors.New("bifrost: the requested block size is too small")
)

// ErrDiffGeometry is returned when a luma-diff side channel does not have
// one entry per block.
var ErrDiffGeometry = errors.New("bifrost: luma diff table does not match block grid")
