package locate

import (
	"math"
	"time"

	"remphot/pkg/remfits"
)

// fakeImage is a Provider with caller-chosen statistics.
type fakeImage struct {
	pixels    remfits.Mat
	mean, std float64
	noStats   bool
	wcs       *remfits.WCS
}

func (f *fakeImage) Pixels() remfits.Mat    { return f.pixels }
func (f *fakeImage) WCS() *remfits.WCS      { return f.wcs }
func (f *fakeImage) Mean() float64          { return f.mean }
func (f *fakeImage) Std() float64           { return f.std }
func (f *fakeImage) HasStats() bool         { return !f.noStats }
func (f *fakeImage) ObsDate() time.Time     { return time.Date(2019, 3, 2, 1, 0, 0, 0, time.UTC) }
func (f *fakeImage) Filter() remfits.Filter { return remfits.FilterI }
func (f *fakeImage) Rows() int              { return f.pixels.Rows() }
func (f *fakeImage) Cols() int              { return f.pixels.Cols() }

type grid struct {
	rows, cols int
	data       []float32
}

func newGrid(rows, cols int, level float32) *grid {
	g := &grid{rows: rows, cols: cols, data: make([]float32, rows*cols)}
	for i := range g.data {
		g.data[i] = level
	}
	return g
}

func (g *grid) bump(col, row int, amp, sigma float64) *grid {
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			d2 := float64((c-col)*(c-col) + (r-row)*(r-row))
			g.data[r*g.cols+c] += float32(amp * math.Exp(-d2/(2*sigma*sigma)))
		}
	}
	return g
}

func (g *grid) set(col, row int, v float32) *grid {
	g.data[row*g.cols+col] = v
	return g
}

func (g *grid) mat() remfits.Mat { return remfits.NewMatFromData(g.rows, g.cols, g.data) }

func (g *grid) image(mean, std float64) *fakeImage {
	return &fakeImage{pixels: g.mat(), mean: mean, std: std}
}

// arcsecWCS is a one arcsecond per pixel solution centred on the grid.
func arcsecWCS(rows, cols int) *remfits.WCS {
	w, err := remfits.NewTanWCS(remfits.SkyPos{RA: 150, Dec: 10},
		float64(cols)/2+0.5, float64(rows)/2+0.5, [4]float64{-1.0 / 3600, 0, 0, 1.0 / 3600})
	if err != nil {
		panic(err)
	}
	return w
}
