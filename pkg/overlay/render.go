package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"remphot/pkg/findres"
	"remphot/pkg/remfits"
)

// Options control how a result set is drawn over its image.
type Options struct {
	// Width of the rendered image in pixels; zero keeps the image width.
	Width   int
	Palette Palette
	// Low and High set the display stretch in units of sigma below and
	// above the image mean.
	Low, High float64
	Quality   int
}

// DefaultOptions renders 800 pixels wide in grey from mean-1σ to mean+5σ.
func DefaultOptions() Options {
	return Options{Width: 800, Palette: DefaultPalettes()[0], Low: 1, High: 5, Quality: 90}
}

var (
	objectColour = color.RGBA{80, 220, 80, 255}
	targetColour = color.RGBA{255, 80, 80, 255}
	textColour   = color.RGBA{220, 220, 220, 255}
)

const summaryH = 20

// Render draws img through the palette with each result's aperture and
// label on top. Row 0 of the image is drawn at the bottom.
func Render(img remfits.Provider, rs *findres.ResultSet, opt Options) (*image.RGBA, error) {
	rows, cols := img.Rows(), img.Cols()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("empty image")
	}
	lut, err := opt.Palette.LUT(256)
	if err != nil {
		return nil, err
	}
	width := opt.Width
	if width <= 0 {
		width = cols
	}
	scale := float64(width) / float64(cols)
	height := int(math.Max(1, math.Round(float64(rows)*scale)))

	out := image.NewRGBA(image.Rect(0, 0, width, height+summaryH))
	lo := img.Mean() - opt.Low*img.Std()
	hi := img.Mean() + opt.High*img.Std()
	if hi <= lo {
		hi = lo + 1
	}
	pixels := img.Pixels()
	for y := 0; y < height; y++ {
		row := rows - 1 - int(float64(y)/scale)
		if row < 0 {
			row = 0
		}
		for x := 0; x < width; x++ {
			col := int(float64(x) / scale)
			if col >= cols {
				col = cols - 1
			}
			// NaN pixels take the low end of the palette
			t := (float64(pixels.At(row, col)) - lo) / (hi - lo)
			if math.IsNaN(t) {
				t = 0
			}
			i := int(math.Round(math.Max(0, math.Min(1, t)) * 255))
			out.SetRGBA(x, y, lut[i])
		}
	}
	for y := height; y < height+summaryH; y++ {
		for x := 0; x < width; x++ {
			out.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	face := basicfont.Face7x13
	dc := gg.NewContextForRGBA(out)
	dc.SetLineWidth(1.5)
	if rs != nil {
		for _, r := range rs.Results {
			if r.Pixel == nil || !r.Pixel.OnImage() {
				continue
			}
			cx := (float64(r.Pixel.Col) + 0.5) * scale
			cy := (float64(rows-r.Pixel.Row) - 0.5) * scale
			c := objectColour
			if r.IsTarget {
				c = targetColour
			}
			dc.SetColor(c)
			dc.DrawCircle(cx, cy, math.Max(2, float64(r.ApSize)*scale))
			dc.Stroke()
			drawText(out, face, r.Label, int(cx+float64(r.ApSize)*scale)+2, int(cy)+4, c)
		}
		summary := fmt.Sprintf("%s  %s  %d objects", rs.ObsDate.Format("2006-01-02 15:04:05"), findres.FilterText(rs.Filter), rs.Len())
		drawText(out, face, summary, 5, height+summaryH-6, textColour)
	}
	return out, nil
}

// WriteJPEG renders and encodes as JPEG.
func WriteJPEG(w io.Writer, img remfits.Provider, rs *findres.ResultSet, opt Options) error {
	out, err := Render(img, rs, opt)
	if err != nil {
		return err
	}
	q := opt.Quality
	if q <= 0 {
		q = 90
	}
	return jpeg.Encode(w, out, &jpeg.Options{Quality: q})
}

// RenderFile renders to a JPEG file at path.
func RenderFile(path string, img remfits.Provider, rs *findres.ResultSet, opt Options) error {
	var buf bytes.Buffer
	if err := WriteJPEG(&buf, img, rs, opt); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write overlay file: %w", err)
	}
	return nil
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
