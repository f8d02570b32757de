package remfits

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Provider is what the locator, result set and edit log need from an image.
type Provider interface {
	Pixels() Mat
	WCS() *WCS
	Mean() float64
	Std() float64
	HasStats() bool
	ObsDate() time.Time
	Filter() Filter
	Rows() int
	Cols() int
}

// Image is a bias/flat-corrected pixel grid with its header metadata.
// Row 0 is the bottom of the CCD sub-window.
type Image struct {
	Name    string
	Type    ImageType
	Header  *Header
	StartX  int
	StartY  int
	EndX    int // exclusive
	EndY    int // exclusive
	CCDTemp float64
	HasTemp bool
	ExpTime float64

	obsDate  time.Time
	filter   Filter
	pixels   Mat
	mean     float64
	std      float64
	hasStats bool
	wcs      *WCS
}

// NewImage wraps rows*cols row-major pixel values. The sub-window covers
// the whole grid and statistics are computed immediately.
func NewImage(rows, cols int, data []float32) *Image {
	img := &Image{
		Type:   TypeImage,
		Header: NewHeader(),
		EndX:   cols,
		EndY:   rows,
	}
	img.SetPixels(NewMatFromData(rows, cols, data))
	return img
}

func (img *Image) Pixels() Mat        { return img.pixels }
func (img *Image) WCS() *WCS          { return img.wcs }
func (img *Image) Mean() float64      { return img.mean }
func (img *Image) Std() float64       { return img.std }
func (img *Image) HasStats() bool     { return img.hasStats }
func (img *Image) ObsDate() time.Time { return img.obsDate }
func (img *Image) Filter() Filter     { return img.filter }
func (img *Image) Rows() int          { return img.pixels.Rows() }
func (img *Image) Cols() int          { return img.pixels.Cols() }

func (img *Image) SetObsDate(t time.Time) { img.obsDate = t.UTC() }
func (img *Image) SetFilter(f Filter)     { img.filter = f }
func (img *Image) SetWCS(w *WCS)          { img.wcs = w }

// Quadrant returns the CCD quadrant of the sub-window origin.
func (img *Image) Quadrant() Quadrant {
	return QuadrantAt(img.StartX, img.StartY)
}

// SetPixels replaces the pixel grid and recomputes mean and standard
// deviation.
func (img *Image) SetPixels(m Mat) {
	if !img.pixels.Empty() {
		img.pixels.Close()
	}
	img.pixels = m
	img.mean, img.std = pixelStats(m)
	img.hasStats = true
}

// Close releases the pixel storage.
func (img *Image) Close() {
	img.pixels.Close()
}

// pixelStats returns the population mean and standard deviation of the
// finite pixels.
func pixelStats(m Mat) (float64, float64) {
	rows, cols := m.Rows(), m.Cols()
	vals := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for _, v := range RowValues(m, r) {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(vals, nil)
}
