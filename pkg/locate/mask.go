package locate

import (
	"math"

	"remphot/pkg/remfits"
)

// CircularMask returns a (2r+1)-square mask with 1 at every pixel whose
// centre lies within r of the middle, and the number of such pixels.
func CircularMask(r int) (remfits.Mat, int) {
	side := 2*r + 1
	m := remfits.NewMatWithSize(side, side)
	m.SetToZero()
	n := 0
	r2 := r * r
	for dr := -r; dr <= r; dr++ {
		for dc := -r; dc <= r; dc++ {
			if dr*dr+dc*dc <= r2 {
				m.SetAt(dr+r, dc+r, 1)
				n++
			}
		}
	}
	return m, n
}

// FractionalMask returns a mask for a non-integer radius in which each
// pixel holds the fraction of its area inside the circle, estimated on a
// sub x sub grid, and the total weight.
func FractionalMask(r float64, sub int) (remfits.Mat, float64) {
	if sub < 1 {
		sub = 1
	}
	half := int(math.Ceil(r))
	side := 2*half + 1
	m := remfits.NewMatWithSize(side, side)
	m.SetToZero()
	r2 := r * r
	step := 1 / float64(sub)
	var total float64
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			inside := 0
			for i := 0; i < sub; i++ {
				y := float64(row-half) - 0.5 + (float64(i)+0.5)*step
				for j := 0; j < sub; j++ {
					x := float64(col-half) - 0.5 + (float64(j)+0.5)*step
					if x*x+y*y <= r2 {
						inside++
					}
				}
			}
			if inside > 0 {
				f := float64(inside) / float64(sub*sub)
				m.SetAt(row, col, float32(f))
				total += f
			}
		}
	}
	return m, total
}
