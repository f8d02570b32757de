package remfits

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"remphot/pkg/photerr"
)

// PixPos is a 0-based pixel position, column first.
type PixPos struct {
	Col, Row float64
}

// SkyPos is an equatorial position in degrees.
type SkyPos struct {
	RA, Dec float64
}

// WCS is a gnomonic (TAN) sky solution plus a translation that keeps it
// valid after the image has been trimmed.
type WCS struct {
	crval   SkyPos
	crpix   [2]float64 // FITS 1-based reference pixel
	cd      [4]float64 // degrees per pixel, row-major CD1_1 CD1_2 CD2_1 CD2_2
	cdInv   [4]float64
	xoffset float64
	yoffset float64
}

// NewTanWCS builds a solution from its reference point, 1-based reference
// pixel and CD matrix.
func NewTanWCS(crval SkyPos, crpix1, crpix2 float64, cd [4]float64) (*WCS, error) {
	m := mat.NewDense(2, 2, cd[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%w: singular CD matrix: %v", photerr.ErrHeader, err)
	}
	w := &WCS{
		crval: crval,
		crpix: [2]float64{crpix1, crpix2},
		cd:    cd,
		cdInv: [4]float64{inv.At(0, 0), inv.At(0, 1), inv.At(1, 0), inv.At(1, 1)},
	}
	return w, nil
}

// wcsFromHeader reads CRVAL/CRPIX and either a CD matrix, a PC matrix with
// CDELT, or CDELT with CROTA2.
func wcsFromHeader(h *Header) (*WCS, error) {
	crval1, ok1 := h.Float("CRVAL1")
	crval2, ok2 := h.Float("CRVAL2")
	crpix1, ok3 := h.Float("CRPIX1")
	crpix2, ok4 := h.Float("CRPIX2")
	if !(ok1 && ok2 && ok3 && ok4) {
		return nil, fmt.Errorf("%w: missing CRVAL/CRPIX keys", photerr.ErrHeader)
	}

	var cd [4]float64
	cd11, okA := h.Float("CD1_1")
	cd22, okB := h.Float("CD2_2")
	switch {
	case okA && okB:
		cd12, _ := h.Float("CD1_2")
		cd21, _ := h.Float("CD2_1")
		cd = [4]float64{cd11, cd12, cd21, cd22}
	default:
		cdelt1, okC := h.Float("CDELT1")
		cdelt2, okD := h.Float("CDELT2")
		if !(okC && okD) {
			return nil, fmt.Errorf("%w: no CD matrix or CDELT keys", photerr.ErrHeader)
		}
		if pc11, ok := h.Float("PC1_1"); ok {
			pc12, _ := h.Float("PC1_2")
			pc21, _ := h.Float("PC2_1")
			pc22, _ := h.Float("PC2_2")
			cd = [4]float64{cdelt1 * pc11, cdelt1 * pc12, cdelt2 * pc21, cdelt2 * pc22}
		} else {
			rot, _ := h.Float("CROTA2")
			s, c := math.Sincos(rot * math.Pi / 180)
			cd = [4]float64{cdelt1 * c, -cdelt2 * s, cdelt1 * s, cdelt2 * c}
		}
	}
	return NewTanWCS(SkyPos{RA: crval1, Dec: crval2}, crpix1, crpix2, cd)
}

// SetOffsets sets the translation added to pixel inputs of PixToSky and
// subtracted from outputs of SkyToPix.
func (w *WCS) SetOffsets(x, y float64) {
	w.xoffset = x
	w.yoffset = y
}

func (w *WCS) Offsets() (float64, float64) {
	return w.xoffset, w.yoffset
}

// Clone returns an independent copy, so trimmed images do not share offsets.
func (w *WCS) Clone() *WCS {
	c := *w
	return &c
}

// PixToSky converts 0-based (col,row) pixels to (ra,dec) degrees.
func (w *WCS) PixToSky(points []PixPos) []SkyPos {
	out := make([]SkyPos, len(points))
	ra0 := w.crval.RA * math.Pi / 180
	sd0, cd0 := math.Sincos(w.crval.Dec * math.Pi / 180)
	for i, p := range points {
		u := p.Col + w.xoffset + 1 - w.crpix[0]
		v := p.Row + w.yoffset + 1 - w.crpix[1]
		x := (w.cd[0]*u + w.cd[1]*v) * math.Pi / 180
		y := (w.cd[2]*u + w.cd[3]*v) * math.Pi / 180

		denom := cd0 - y*sd0
		ra := ra0 + math.Atan2(x, denom)
		dec := math.Atan2(sd0+y*cd0, math.Hypot(x, denom))
		out[i] = SkyPos{RA: normRA(ra * 180 / math.Pi), Dec: dec * 180 / math.Pi}
	}
	return out
}

// SkyToPix converts (ra,dec) degrees to fractional 0-based (col,row).
// Points on the far hemisphere from the reference point come back as NaN.
func (w *WCS) SkyToPix(coords []SkyPos) []PixPos {
	out := make([]PixPos, len(coords))
	ra0 := w.crval.RA * math.Pi / 180
	sd0, cd0 := math.Sincos(w.crval.Dec * math.Pi / 180)
	for i, s := range coords {
		sd, cd := math.Sincos(s.Dec * math.Pi / 180)
		sa, ca := math.Sincos(s.RA*math.Pi/180 - ra0)
		cosc := sd0*sd + cd0*cd*ca
		if cosc <= 0 {
			out[i] = PixPos{Col: math.NaN(), Row: math.NaN()}
			continue
		}
		x := cd * sa / cosc * 180 / math.Pi
		y := (cd0*sd - sd0*cd*ca) / cosc * 180 / math.Pi
		u := w.cdInv[0]*x + w.cdInv[1]*y
		v := w.cdInv[2]*x + w.cdInv[3]*y
		out[i] = PixPos{
			Col: u + w.crpix[0] - 1 - w.xoffset,
			Row: v + w.crpix[1] - 1 - w.yoffset,
		}
	}
	return out
}

// headerCards returns the keys needed to rebuild the solution, with the
// current offsets folded into CRPIX.
func (w *WCS) headerCards() []card {
	return []card{
		{"CTYPE1", "RA---TAN", ""},
		{"CTYPE2", "DEC--TAN", ""},
		{"CRVAL1", w.crval.RA, ""},
		{"CRVAL2", w.crval.Dec, ""},
		{"CRPIX1", w.crpix[0] - w.xoffset, ""},
		{"CRPIX2", w.crpix[1] - w.yoffset, ""},
		{"CD1_1", w.cd[0], ""},
		{"CD1_2", w.cd[1], ""},
		{"CD2_1", w.cd[2], ""},
		{"CD2_2", w.cd[3], ""},
	}
}

func normRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	if ra >= 360 {
		ra -= 360
	}
	return ra
}
