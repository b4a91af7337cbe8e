package filter

// Options are the user-facing filter settings.
type Options struct {
    // LumaThresh is the scene-change threshold as a mean absolute luma
    // difference per sample. It is multiplied by the block area internally.
    LumaThresh float64 `yaml:"luma_thresh"`
    // Variation widens the sign test of the mask builder.
    Variation int `yaml:"variation"`
    // ConservativeMask disables vertical mask expansion.
    ConservativeMask bool `yaml:"conservative_mask"`
    // Interlaced filters field-separated material with a temporal offset of 2.
    Interlaced bool `yaml:"interlaced"`
    // TopFieldFirst selects the field order used when Interlaced is set.
    TopFieldFirst bool `yaml:"tff"`
    BlockX        int  `yaml:"blockx"`
    BlockY        int  `yaml:"blocky"`
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
    return Options{
        LumaThresh:    10,
        Variation:     5,
        Interlaced:    true,
        TopFieldFirst: true,
        BlockX:        4,
        BlockY:        4,
    }
}

// Offset is the distance between temporal neighbours: fields of the same
// parity are two apart once a clip is field separated.
func (o Options) Offset() int {
    if o.Interlaced { return 2 }
    return 1
}
