package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remphot/pkg/findres"
	"remphot/pkg/remfits"
)

func TestPaletteLUT(t *testing.T) {
	grey, ok := FindPalette(DefaultPalettes(), "grey")
	require.True(t, ok)
	lut, err := grey.LUT(256)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, lut[0])
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, lut[255])
	for i := 1; i < len(lut); i++ {
		assert.GreaterOrEqual(t, lut[i].R, lut[i-1].R)
	}

	inv, _ := FindPalette(DefaultPalettes(), "inverse")
	ilut, err := inv.LUT(2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, ilut[0])

	_, ok = FindPalette(DefaultPalettes(), "rainbow")
	assert.False(t, ok)
}

func TestPaletteValidate(t *testing.T) {
	for _, p := range DefaultPalettes() {
		assert.NoError(t, p.Validate(), p.Name)
	}
	assert.Error(t, Palette{Name: "one", Stops: []Stop{{0, "#000000"}}}.Validate())
	assert.Error(t, Palette{Name: "bad", Stops: []Stop{{0, "#000000"}, {1, "white"}}}.Validate())
	assert.Error(t, Palette{Name: "range", Stops: []Stop{{0, "#000000"}, {2, "#ffffff"}}}.Validate())
}

func testImage() *remfits.Image {
	const rows, cols = 50, 100
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = 10
	}
	data[5*cols+20] = 5000 // row 5 near the bottom
	return remfits.NewImage(rows, cols, data)
}

func TestRender(t *testing.T) {
	img := testImage()
	rs := findres.NewResultSet(time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC), remfits.FilterR, 6)
	rs.Add(findres.Result{Pixel: &findres.Pixel{Col: 70, Row: 25}, ApSize: 6, IsTarget: true})
	rs.Add(findres.Result{Pixel: &findres.OffImage, ApSize: 6})
	rs.Relabel()

	opt := DefaultOptions()
	opt.Width = 200
	out, err := Render(img, rs, opt)
	require.NoError(t, err)
	assert.Equal(t, 200, out.Bounds().Dx())
	assert.Equal(t, 100+summaryH, out.Bounds().Dy())

	// the hot pixel at row 5 is drawn near the bottom of the picture
	hot := out.RGBAAt(41, 100-11)
	assert.Equal(t, uint8(255), hot.R)
	assert.Equal(t, uint8(255), hot.G)

	// the target circle is red: rightmost point of the circle on the
	// centre row
	cx, cy := int((70+0.5)*2), int((50-25-0.5)*2)
	found := false
	for x := cx + 10; x <= cx+14; x++ {
		if c := out.RGBAAt(x, cy); int(c.R) > int(c.G)+50 {
			found = true
		}
	}
	assert.True(t, found, "target circle drawn in red")
}

func TestWriteJPEG(t *testing.T) {
	var buf bytes.Buffer
	opt := DefaultOptions()
	opt.Width = 0
	require.NoError(t, WriteJPEG(&buf, testImage(), nil, opt))
	decoded, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50+summaryH, decoded.Bounds().Dy())

	opt.Palette = Palette{Name: "broken"}
	assert.Error(t, WriteJPEG(&buf, testImage(), nil, opt))
}

func TestRenderNaNPixels(t *testing.T) {
	const rows, cols = 40, 40
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = float32(i % 7)
	}
	data[5*cols+5] = float32(math.NaN())
	img := remfits.NewImage(rows, cols, data)

	opt := DefaultOptions()
	opt.Width = 0
	var out *image.RGBA
	require.NotPanics(t, func() {
		var err error
		out, err = Render(img, nil, opt)
		require.NoError(t, err)
	})
	// row 5 is drawn 5 rows up from the bottom, in the palette's low colour
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(5, rows-1-5))
}
