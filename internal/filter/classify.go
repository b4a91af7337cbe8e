package filter

// relativeFrameDiff is how much larger one side's luma diff must be before
// the blend leans toward the other side.
const relativeFrameDiff float32 = 1.2

// Action is what happens to a block's chroma.
type Action int

const (
    // Analyze builds a rainbow mask and blends masked samples.
    Analyze Action = iota
    // Fallback copies the block's chroma from the alternate clip.
    Fallback
)

func (a Action) String() string {
    if a == Fallback { return "fallback" }
    return "analyze"
}

// Triplet names the three frames the mask is built from.
type Triplet int

const (
    // Centered uses (prev, cur, next); no scene change nearby.
    Centered Triplet = iota
    // Backward uses (prevprev, prev, cur) when cur→next is a scene change.
    Backward
    // Forward uses (cur, next, nextnext) when prev→cur is a scene change.
    Forward
)

func (t Triplet) String() string {
    switch t {
    case Backward:
        return "backward"
    case Forward:
        return "forward"
    default:
        return "centered"
    }
}

// Direction selects which neighbours contribute to a repaired sample.
type Direction int

const (
    BlendNext Direction = iota
    BlendPrev
    BlendBoth
)

func (d Direction) String() string {
    switch d {
    case BlendNext:
        return "next"
    case BlendPrev:
        return "prev"
    default:
        return "both"
    }
}

// Decision is the classifier's verdict for one block. Triplet and
// Direction are meaningful only for Analyze.
type Decision struct {
    Action    Action
    Triplet   Triplet
    Direction Direction
}

// Classifier decides per block whether the temporal window can be trusted.
// Thresh is an absolute block sum, i.e. the per-sample threshold times the
// block area.
type Classifier struct {
    Thresh float32
    Ratio  float32
}

// NewClassifier scales a per-sample threshold to a block of area samples.
func NewClassifier(lumaThresh float64, area int) Classifier {
    return Classifier{Thresh: float32(lumaThresh) * float32(area), Ratio: relativeFrameDiff}
}

// Classify applies the decision order to the diffs around the current
// frame. prevprev and nextnext are consulted only when a scene change on
// one side needs confirming.
func (c Classifier) Classify(ldprev, ldnext float32, prevprev, nextnext func() float32) Decision {
    t := c.Thresh
    if ldnext > t && ldprev > t {
        return Decision{Action: Fallback}
    }
    if ldnext > t {
        if prevprev() > t { return Decision{Action: Fallback} }
    } else if ldprev > t {
        if nextnext() > t { return Decision{Action: Fallback} }
    }

    d := Decision{Action: Analyze, Triplet: Centered}
    if ldnext > t {
        d.Triplet = Backward
    } else if ldprev > t {
        d.Triplet = Forward
    }

    switch {
    case ldprev > ldnext*c.Ratio:
        d.Direction = BlendNext
    case ldnext > ldprev*c.Ratio:
        d.Direction = BlendPrev
    default:
        d.Direction = BlendBoth
    }
    return d
}
