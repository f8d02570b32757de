package locate

// Reason says why a candidate pixel was not kept.
type Reason int

const (
	BelowThreshold Reason = iota
	BelowCutoff
	OutOfWindow
	Overlap
	SinglePixel
	BadPixels
)

func (r Reason) String() string {
	switch r {
	case BelowThreshold:
		return "below-threshold"
	case BelowCutoff:
		return "below-cutoff"
	case OutOfWindow:
		return "out-of-window"
	case Overlap:
		return "overlap"
	case SinglePixel:
		return "single-pixel"
	case BadPixels:
		return "bad-pixels"
	default:
		return "unknown"
	}
}

// Candidate is the outcome of evaluating one pixel: Accepted or Rejected.
type Candidate interface {
	Position() (col, row int)
}

// Accepted is a candidate whose sky-subtracted aperture sum passed the cutoff.
type Accepted struct {
	Col, Row int
	ADU      float64
}

// Rejected is a candidate that was dropped.
type Rejected struct {
	Col, Row int
	Reason   Reason
}

func (a Accepted) Position() (int, int) { return a.Col, a.Row }
func (r Rejected) Position() (int, int) { return r.Col, r.Row }
