package locate

import (
	"fmt"
	"image"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

// Peak is the brightest aperture position found by a directed search.
// Sum is the raw masked sum; the caller subtracts sky.
type Peak struct {
	Col, Row int
	Sum      float64
	Area     int
}

// FindBestColRow searches every integer centre within maxshift of
// (col,row) whose aperture fits inside the image and returns the one with
// the largest masked sum. Ties go to the centre nearest (col,row).
// Windows holding NaN or infinite pixels are skipped.
func FindBestColRow(pixels remfits.Mat, col, row, ap, maxshift int) (Peak, error) {
	mask, n := CircularMask(ap)
	defer mask.Close()

	best := Peak{Col: -1, Row: -1, Area: n}
	bestD := 0
	for r := row - maxshift; r <= row+maxshift; r++ {
		for c := col - maxshift; c <= col+maxshift; c++ {
			if c-ap < 0 || r-ap < 0 || c+ap >= pixels.Cols() || r+ap >= pixels.Rows() {
				continue
			}
			region := pixels.Region(image.Rect(c-ap, r-ap, c+ap+1, r+ap+1))
			sum := remfits.MaskedSum(region, mask)
			region.Close()
			if !finite(sum) {
				continue
			}

			d := (c-col)*(c-col) + (r-row)*(r-row)
			if best.Col < 0 || sum > best.Sum || (sum == best.Sum && d < bestD) {
				best.Col, best.Row, best.Sum = c, r, sum
				bestD = d
			}
		}
	}
	if best.Col < 0 {
		return best, fmt.Errorf("%w: no usable aperture of %d within %d of (%d,%d)",
			photerr.ErrBoundary, ap, maxshift, col, row)
	}
	return best, nil
}
