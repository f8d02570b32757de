package remfits

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFITS writes the image as a single BITPIX -32 HDU carrying the
// metadata needed to load it again.
func (img *Image) WriteFITS(w io.Writer) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("creating FITS: %w", err)
	}
	defer f.Close()

	rows, cols := img.Rows(), img.Cols()
	hdu := fitsio.NewImage(-32, []int{cols, rows})
	defer hdu.Close()

	cards := []card{
		{"DATE-OBS", img.obsDate.Format("2006-01-02T15:04:05.000"), "UTC start of exposure"},
		{"startX", img.StartX, "Starting CCD pixel column"},
		{"endX", img.EndX, "Ending CCD pixel column+1"},
		{"startY", img.StartY, "Starting CCD pixel row"},
		{"endY", img.EndY, "Ending CCD pixel row+1"},
	}
	if img.filter != FilterUnknown {
		cards = append(cards, card{"FILTER", img.filter.String(), ""})
	}
	if img.Name != "" {
		cards = append(cards, card{"FILENAME", img.Name, ""})
	}
	if img.ExpTime > 0 {
		cards = append(cards, card{"EXPTIME", img.ExpTime, "seconds"})
	}
	if img.HasTemp {
		cards = append(cards, card{"CCDTEMP", img.CCDTemp, ""})
	}
	if img.wcs != nil {
		cards = append(cards, img.wcs.headerCards()...)
	}
	fc := make([]fitsio.Card, len(cards))
	for i, c := range cards {
		fc[i] = c.fits()
	}
	if err := hdu.Header().Append(fc...); err != nil {
		return fmt.Errorf("writing FITS header: %w", err)
	}

	data := make([]float32, rows*cols)
	for r := 0; r < rows; r++ {
		copy(data[r*cols:], RowValues(img.pixels, r))
	}
	if err := hdu.Write(data); err != nil {
		return fmt.Errorf("writing FITS data: %w", err)
	}
	if err := f.Write(hdu); err != nil {
		return fmt.Errorf("writing FITS HDU: %w", err)
	}
	return nil
}
