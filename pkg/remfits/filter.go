package remfits

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter identifies an optical bandpass.
type Filter int

const (
	FilterUnknown Filter = iota
	FilterG
	FilterR
	FilterI
	FilterZ
	FilterH
	FilterJ
	FilterK
)

// Filters lists every known filter in catalog magnitude order.
var Filters = []Filter{FilterG, FilterI, FilterR, FilterZ, FilterH, FilterJ, FilterK}

func (f Filter) String() string {
	switch f {
	case FilterG:
		return "g"
	case FilterR:
		return "r"
	case FilterI:
		return "i"
	case FilterZ:
		return "z"
	case FilterH:
		return "H"
	case FilterJ:
		return "J"
	case FilterK:
		return "K"
	default:
		return "unknown"
	}
}

// IsNearIR reports whether f belongs to the infrared camera rather than
// the four-quadrant optical CCD.
func (f Filter) IsNearIR() bool {
	return f == FilterH || f == FilterJ || f == FilterK
}

// ParseFilter accepts the header spellings used by the telescope. Optical
// bands are case-insensitive; near-IR bands must be upper case.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "H":
		return FilterH, nil
	case "J":
		return FilterJ, nil
	case "K", "Ks":
		return FilterK, nil
	}
	switch strings.ToLower(s) {
	case "g", "g'", "sloan_g":
		return FilterG, nil
	case "r", "r'", "sloan_r":
		return FilterR, nil
	case "i", "i'", "sloan_i":
		return FilterI, nil
	case "z", "z'", "sloan_z":
		return FilterZ, nil
	}
	return FilterUnknown, fmt.Errorf("unknown filter %q", s)
}

func (f Filter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Filter) UnmarshalText(b []byte) error {
	p, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = p
	return nil
}

// Quadrant is one of the four sub-windows of the optical CCD.
type Quadrant int

const (
	QuadrantUnknown Quadrant = iota
	BottomLeft
	BottomRight
	TopLeft
	TopRight
)

// quadrantSplit is the CCD pixel at which the upper/right quadrants begin.
const quadrantSplit = 1024

func (q Quadrant) String() string {
	switch q {
	case BottomLeft:
		return "BL"
	case BottomRight:
		return "BR"
	case TopLeft:
		return "UL"
	case TopRight:
		return "UR"
	default:
		return "unknown"
	}
}

// Filter returns the filter permanently mounted over q.
func (q Quadrant) Filter() Filter {
	switch q {
	case BottomLeft:
		return FilterZ
	case BottomRight:
		return FilterR
	case TopLeft:
		return FilterI
	case TopRight:
		return FilterG
	default:
		return FilterUnknown
	}
}

// QuadrantAt returns the quadrant containing CCD pixel (startX, startY).
func QuadrantAt(startX, startY int) Quadrant {
	right := startX >= quadrantSplit
	top := startY >= quadrantSplit
	switch {
	case right && top:
		return TopRight
	case right:
		return BottomRight
	case top:
		return TopLeft
	default:
		return BottomLeft
	}
}

var internalNameRe = regexp.MustCompile(`^[FBImCR].*([UB])([LR])`)

// QuadrantFromFilename decodes the internal file naming convention, whose
// trailing letters give upper/bottom and left/right.
func QuadrantFromFilename(name string) Quadrant {
	m := internalNameRe.FindStringSubmatch(name)
	if m == nil {
		return QuadrantUnknown
	}
	switch m[1] + m[2] {
	case "BL":
		return BottomLeft
	case "BR":
		return BottomRight
	case "UL":
		return TopLeft
	default:
		return TopRight
	}
}

// ImageType classifies an image by pipeline stage.
type ImageType int

const (
	TypeImage ImageType = iota
	TypeRaw
	TypeDailyFlat
	TypeDailyBias
	TypeMaster
	TypeCombined
	TypeProcessed
)

func (t ImageType) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeRaw:
		return "raw"
	case TypeDailyFlat:
		return "dailyflat"
	case TypeDailyBias:
		return "dailybias"
	case TypeMaster:
		return "master"
	case TypeCombined:
		return "combined"
	case TypeProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// NeedsWCS reports whether images of this type carry a sky solution.
func (t ImageType) NeedsWCS() bool {
	return t == TypeImage || t == TypeProcessed || t == TypeMaster
}
