package locate

import (
	"errors"
	"math"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

// Sky is the per-pixel background level and its spread.
type Sky struct {
	Mean, Std float64
}

// ApResult is the outcome of an aperture optimisation.
type ApResult struct {
	ApSize int
	// ADUs is the sky-subtracted sum at ApSize.
	ADUs float64
	// Score is the value of the objective: signal to noise when an error
	// array was given, otherwise ADUs.
	Score float64
}

// OptimalAperture tries every aperture from p.MinAp to p.MaxAp in steps
// of p.ApStep at (col,row), starting from a0, and returns the one that
// maximises the objective. A larger aperture only replaces a smaller one
// when its extra flux exceeds p.NSigmaAp times the sky noise of the extra
// pixels. Apertures that would leave the image or take in non-finite
// pixels end the search.
func OptimalAperture(pixels remfits.Mat, errs *remfits.Mat, col, row, a0 int, sky Sky, p *Params) (ApResult, error) {
	eval := func(ap int) (ApResult, int, error) {
		mask, n := CircularMask(ap)
		defer mask.Close()
		sum, ms, err := maskedSum(pixels, errs, mask, n, col, row, ap)
		if err != nil {
			return ApResult{}, n, err
		}
		net := sum - float64(n)*sky.Mean
		res := ApResult{ApSize: ap, ADUs: net, Score: net}
		if errs != nil {
			if noise := math.Sqrt(ms * float64(n)); noise > 0 {
				res.Score = net / noise
			}
		}
		return res, n, nil
	}

	best, bestN, err := eval(a0)
	if err != nil {
		return ApResult{}, err
	}
	step := p.ApStep
	if step <= 0 {
		step = 1
	}
	for ap := p.MinAp; ap <= p.MaxAp; ap += step {
		if ap == best.ApSize || ap <= 0 {
			continue
		}
		res, n, err := eval(ap)
		if errors.Is(err, photerr.ErrBoundary) || errors.Is(err, photerr.ErrBadPixels) {
			break
		}
		if err != nil {
			return ApResult{}, err
		}
		if res.Score <= best.Score {
			continue
		}
		if n > bestN {
			gain := res.ADUs - best.ADUs
			if gain <= p.NSigmaAp*sky.Std*math.Sqrt(float64(n-bestN)) {
				continue
			}
		}
		best, bestN = res, n
	}
	return best, nil
}
