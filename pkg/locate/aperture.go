package locate

import (
	"fmt"
	"image"
	"math"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

// window returns the square of side 2ap+1 centred on (col,row), or
// ErrBoundary if any part of it lies outside a rows x cols grid.
func window(rows, cols, col, row, ap int) (image.Rectangle, error) {
	if col-ap < 0 || row-ap < 0 || col+ap >= cols || row+ap >= rows {
		return image.Rectangle{}, fmt.Errorf("%w: aperture %d at (%d,%d) in %dx%d image",
			photerr.ErrBoundary, ap, col, row, cols, rows)
	}
	return image.Rect(col-ap, row-ap, col+ap+1, row+ap+1), nil
}

// ApertureSum sums the pixels within ap of (col,row). When errs is not nil
// it also returns the mean squared error over the aperture.
func ApertureSum(pixels remfits.Mat, errs *remfits.Mat, col, row, ap int) (float64, float64, error) {
	mask, n := CircularMask(ap)
	defer mask.Close()
	return maskedSum(pixels, errs, mask, n, col, row, ap)
}

func maskedSum(pixels remfits.Mat, errs *remfits.Mat, mask remfits.Mat, n, col, row, ap int) (float64, float64, error) {
	r, err := window(pixels.Rows(), pixels.Cols(), col, row, ap)
	if err != nil {
		return 0, 0, err
	}
	region := pixels.Region(r)
	sum := remfits.MaskedSum(region, mask)
	region.Close()
	if !finite(sum) {
		return 0, 0, fmt.Errorf("%w: aperture %d at (%d,%d)", photerr.ErrBadPixels, ap, col, row)
	}

	var ms float64
	if errs != nil {
		if errs.Rows() != pixels.Rows() || errs.Cols() != pixels.Cols() {
			return 0, 0, fmt.Errorf("%w: error array %dx%d does not match image %dx%d",
				photerr.ErrGeometry, errs.Cols(), errs.Rows(), pixels.Cols(), pixels.Rows())
		}
		eregion := errs.Region(r)
		ms = remfits.MaskedSquareSum(eregion, mask) / float64(n)
		eregion.Close()
	}
	return sum, ms, nil
}

// FractionalApertureSum sums the pixels within a non-integer radius of
// (col,row), weighting edge pixels by the fraction of their area inside.
func FractionalApertureSum(pixels remfits.Mat, col, row int, r float64) (float64, float64, error) {
	mask, weight := FractionalMask(r, 5)
	defer mask.Close()
	half := (mask.Rows() - 1) / 2
	win, err := window(pixels.Rows(), pixels.Cols(), col, row, half)
	if err != nil {
		return 0, 0, err
	}
	region := pixels.Region(win)
	defer region.Close()
	sum := remfits.MaskedSum(region, mask)
	if !finite(sum) {
		return 0, 0, fmt.Errorf("%w: aperture %.2f at (%d,%d)", photerr.ErrBadPixels, r, col, row)
	}
	return sum, weight, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
