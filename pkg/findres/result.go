package findres

import (
	"fmt"
	"math"
	"sort"
	"time"

	"remphot/pkg/remfits"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Label returns the label of the k-th result in brightness order.
func Label(k int) string {
	if k >= 0 && k < len(alphabet) {
		return alphabet[k : k+1]
	}
	return fmt.Sprintf("Obj%03d", k)
}

// Pixel is an integer image position. Row 0 is the bottom row.
type Pixel struct {
	Col, Row int
}

// OffImage marks a result whose sky position projects outside the image.
var OffImage = Pixel{Col: -1, Row: -1}

// OnImage reports whether p refers to a real pixel.
func (p Pixel) OnImage() bool { return p.Col >= 0 && p.Row >= 0 }

// Result is one object found in an image.
type Result struct {
	Pixel    *Pixel // nil when the position is unknown
	RA       float64
	Dec      float64
	ApSize   int
	ADUs     float64
	Label    string
	Name     string
	DispName string
	IsTarget bool
	// ObjName is the canonical catalog name, empty for unmatched results.
	ObjName string
}

func (r *Result) String() string {
	if r.Pixel == nil {
		return fmt.Sprintf("%s %s (%.6f,%.6f) ap=%d adus=%.1f", r.Label, r.Name, r.RA, r.Dec, r.ApSize, r.ADUs)
	}
	return fmt.Sprintf("%s %s [%d,%d] (%.6f,%.6f) ap=%d adus=%.1f",
		r.Label, r.Name, r.Pixel.Col, r.Pixel.Row, r.RA, r.Dec, r.ApSize, r.ADUs)
}

// DisplayLabel is the display name when set, otherwise the name.
func (r *Result) DisplayLabel() string {
	if r.DispName != "" {
		return r.DispName
	}
	return r.Name
}

// ResultSet holds the results of one image, brightest first.
type ResultSet struct {
	ObsDate time.Time
	Filter  remfits.Filter
	Results []Result

	apsq int
}

// NewResultSet returns an empty set for an observation. apsize is the
// aperture radius used for proximity tests.
func NewResultSet(obsDate time.Time, filter remfits.Filter, apsize int) *ResultSet {
	return &ResultSet{ObsDate: obsDate.UTC(), Filter: filter, apsq: apsize * apsize}
}

// ApSq is the squared aperture radius used by Nearest.
func (rs *ResultSet) ApSq() int { return rs.apsq }

// SetApSize changes the radius used by Nearest.
func (rs *ResultSet) SetApSize(apsize int) { rs.apsq = apsize * apsize }

func (rs *ResultSet) Len() int { return len(rs.Results) }

// Add appends r. Labels are not reassigned until Reorder or Relabel.
func (rs *ResultSet) Add(r Result) {
	rs.Results = append(rs.Results, r)
}

// Remove deletes the i-th result.
func (rs *ResultSet) Remove(i int) {
	rs.Results = append(rs.Results[:i], rs.Results[i+1:]...)
}

// Reorder drops results without an on-image pixel, sorts the rest by ADU
// sum descending and relabels them.
func (rs *ResultSet) Reorder() {
	kept := rs.Results[:0]
	for _, r := range rs.Results {
		if r.Pixel != nil && r.Pixel.OnImage() {
			kept = append(kept, r)
		}
	}
	rs.Results = kept
	sort.SliceStable(rs.Results, func(i, j int) bool {
		return rs.Results[i].ADUs > rs.Results[j].ADUs
	})
	rs.Relabel()
}

// Relabel assigns labels by position.
func (rs *ResultSet) Relabel() {
	for i := range rs.Results {
		rs.Results[i].Label = Label(i)
	}
}

// RefreshPixels recomputes each pixel position from its sky position.
// Results that fall outside the image become OffImage.
func (rs *ResultSet) RefreshPixels(img remfits.Provider) {
	w := img.WCS()
	if w == nil || len(rs.Results) == 0 {
		return
	}
	coords := make([]remfits.SkyPos, len(rs.Results))
	for i, r := range rs.Results {
		coords[i] = remfits.SkyPos{RA: r.RA, Dec: r.Dec}
	}
	for i, p := range w.SkyToPix(coords) {
		px := OffImage
		if !math.IsNaN(p.Col) && !math.IsNaN(p.Row) {
			c, r := int(math.Round(p.Col)), int(math.Round(p.Row))
			if c >= 0 && c < img.Cols() && r >= 0 && r < img.Rows() {
				px = Pixel{Col: c, Row: r}
			}
		}
		rs.Results[i].Pixel = &px
	}
}

// RefreshCoords recomputes each sky position from its pixel position.
// Results without an on-image pixel keep their coordinates.
func (rs *ResultSet) RefreshCoords(img remfits.Provider) {
	w := img.WCS()
	if w == nil {
		return
	}
	for i := range rs.Results {
		r := &rs.Results[i]
		if r.Pixel == nil || !r.Pixel.OnImage() {
			continue
		}
		sky := w.PixToSky([]remfits.PixPos{{Col: float64(r.Pixel.Col), Row: float64(r.Pixel.Row)}})[0]
		r.RA, r.Dec = sky.RA, sky.Dec
	}
}

// Target returns the index of the target result, or -1.
func (rs *ResultSet) Target() int {
	for i, r := range rs.Results {
		if r.IsTarget {
			return i
		}
	}
	return -1
}

// Nearest returns the index of the result closest to (col,row) whose
// centre lies within the cached aperture radius, or -1.
func (rs *ResultSet) Nearest(col, row int) int {
	best, bestD := -1, math.MaxInt
	for i, r := range rs.Results {
		if r.Pixel == nil || !r.Pixel.OnImage() {
			continue
		}
		dc, dr := r.Pixel.Col-col, r.Pixel.Row-row
		d := dc*dc + dr*dr
		if d <= rs.apsq && d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Find returns the index of the result with the given label, or -1.
func (rs *ResultSet) Find(label string) int {
	for i, r := range rs.Results {
		if r.Label == label {
			return i
		}
	}
	return -1
}

// SetTarget marks the i-th result as the target and clears the flag on
// every other result.
func (rs *ResultSet) SetTarget(i int) {
	for j := range rs.Results {
		rs.Results[j].IsTarget = j == i
	}
}
