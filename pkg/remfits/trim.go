package remfits

import (
	"fmt"
	"image"
	"math"

	"remphot/pkg/photerr"
)

// TrimSpec gives the number of pixels removed from each edge. Blanks
// first strips trailing rows and columns that are entirely zero or NaN.
type TrimSpec struct {
	Left   int  `xml:"left" mapstructure:"left" yaml:"left"`
	Right  int  `xml:"right" mapstructure:"right" yaml:"right"`
	Top    int  `xml:"top" mapstructure:"top" yaml:"top"`
	Bottom int  `xml:"bottom" mapstructure:"bottom" yaml:"bottom"`
	Blanks bool `xml:"blanks,attr,omitempty" mapstructure:"blanks" yaml:"blanks"`
}

// Trim crops the image and shifts the WCS offsets so that pixel (0,0) of
// the result still maps to the same sky position as before.
func (img *Image) Trim(spec TrimSpec) error {
	rows, cols := img.Rows(), img.Cols()
	if spec.Blanks {
		rows, cols = trailingBlanks(img.pixels)
	}
	newCols := cols - spec.Left - spec.Right
	newRows := rows - spec.Bottom - spec.Top
	if spec.Left < 0 || spec.Right < 0 || spec.Top < 0 || spec.Bottom < 0 || newCols <= 0 || newRows <= 0 {
		return fmt.Errorf("%w: trim %+v leaves no pixels of %dx%d", photerr.ErrGeometry, spec, img.Rows(), img.Cols())
	}

	view := img.pixels.Region(image.Rect(spec.Left, spec.Bottom, spec.Left+newCols, spec.Bottom+newRows))
	trimmed := view.Clone()
	view.Close()
	img.SetPixels(trimmed)

	img.StartX += spec.Left
	img.StartY += spec.Bottom
	img.EndX = img.StartX + newCols
	img.EndY = img.StartY + newRows

	if img.wcs != nil {
		xo, yo := img.wcs.Offsets()
		img.wcs.SetOffsets(xo+float64(spec.Left), yo+float64(spec.Bottom))
	}
	return nil
}

// trailingBlanks returns the row and column counts left after removing
// trailing rows and columns that hold only zeros or NaNs.
func trailingBlanks(m Mat) (int, int) {
	rows, cols := m.Rows(), m.Cols()
	blank := func(v float32) bool { return v == 0 || math.IsNaN(float64(v)) }

	for rows > 0 {
		empty := true
		for c := 0; c < cols; c++ {
			if !blank(m.At(rows-1, c)) {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
		rows--
	}
	for cols > 0 {
		empty := true
		for r := 0; r < rows; r++ {
			if !blank(m.At(r, cols-1)) {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
		cols--
	}
	return rows, cols
}

// Calibrate subtracts a bias frame and divides by a flat normalised to
// unit mean. Either frame may be nil.
func (img *Image) Calibrate(bias, flat *Image) error {
	rows, cols := img.Rows(), img.Cols()
	for _, f := range []*Image{bias, flat} {
		if f != nil && (f.Rows() != rows || f.Cols() != cols) {
			return fmt.Errorf("%w: calibration frame %dx%d does not match image %dx%d",
				photerr.ErrGeometry, f.Rows(), f.Cols(), rows, cols)
		}
	}

	out := img.pixels.Clone()
	flatMean := 1.0
	if flat != nil && flat.Mean() != 0 {
		flatMean = flat.Mean()
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := float64(out.At(r, c))
			if bias != nil {
				v -= float64(bias.pixels.At(r, c))
			}
			if flat != nil {
				f := float64(flat.pixels.At(r, c)) / flatMean
				if f == 0 {
					v = math.NaN()
				} else {
					v /= f
				}
			}
			out.SetAt(r, c, float32(v))
		}
	}
	img.SetPixels(out)
	return nil
}
