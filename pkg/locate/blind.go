package locate

import (
	"context"
	"fmt"
	"image"
	"sort"

	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/findres"
	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

// Locator finds objects in one image. It carries the image, the aperture
// mask and the thresholds derived from the image statistics.
type Locator struct {
	img    remfits.Provider
	params Params
	ap     int
	mask   remfits.Mat
	maskN  int

	threshold   float64
	cutoff      float64
	skyBaseline float64
	// win holds the aperture centres whose mask fits inside the image and
	// clears the edge margins (X is the column, Y the row).
	win image.Rectangle
}

// NewLocator prepares a blind search of img with aperture p.DefApSize.
// The image must have its statistics computed.
func NewLocator(img remfits.Provider, p *Params) (*Locator, error) {
	if !img.HasStats() {
		return nil, fmt.Errorf("%w: image statistics not computed", photerr.ErrHeader)
	}
	if p.DefApSize <= 0 {
		return nil, fmt.Errorf("aperture must be positive, got %d", p.DefApSize)
	}
	ap := p.DefApSize
	mask, n := CircularMask(ap)
	mean, std := img.Mean(), img.Std()
	m := p.Margins
	return &Locator{
		img:         img,
		params:      *p,
		ap:          ap,
		mask:        mask,
		maskN:       n,
		threshold:   mean + p.Signif*std,
		cutoff:      float64(n) * p.TotSig * std,
		skyBaseline: float64(n) * mean,
		win: image.Rectangle{
			Min: image.Pt(ap+m.Left, ap+m.Bottom),
			Max: image.Pt(img.Cols()-ap-m.Right, img.Rows()-ap-m.Top),
		},
	}, nil
}

// Close releases the aperture mask.
func (l *Locator) Close() { l.mask.Close() }

func (l *Locator) Threshold() float64 { return l.threshold }
func (l *Locator) Cutoff() float64    { return l.cutoff }
func (l *Locator) MaskArea() int      { return l.maskN }

// Evaluate decides whether an aperture centred on (col,row) holds an object.
func (l *Locator) Evaluate(col, row int) Candidate {
	if !image.Pt(col, row).In(l.win) {
		return Rejected{Col: col, Row: row, Reason: OutOfWindow}
	}
	pixels := l.img.Pixels()
	if float64(pixels.At(row, col)) <= l.threshold {
		return Rejected{Col: col, Row: row, Reason: BelowThreshold}
	}
	region := pixels.Region(image.Rect(col-l.ap, row-l.ap, col+l.ap+1, row+l.ap+1))
	defer region.Close()

	if l.params.SinglePixN > 0 && l.countAbove(region) < l.params.SinglePixN {
		return Rejected{Col: col, Row: row, Reason: SinglePixel}
	}
	sum := remfits.MaskedSum(region, l.mask) - l.skyBaseline
	if !finite(sum) {
		return Rejected{Col: col, Row: row, Reason: BadPixels}
	}
	if sum < l.cutoff {
		return Rejected{Col: col, Row: row, Reason: BelowCutoff}
	}
	return Accepted{Col: col, Row: row, ADU: sum}
}

func (l *Locator) countAbove(region remfits.Mat) int {
	n := 0
	for r := 0; r < region.Rows(); r++ {
		for c := 0; c < region.Cols(); c++ {
			if l.mask.At(r, c) != 0 && float64(region.At(r, c)) > l.threshold {
				n++
			}
		}
	}
	return n
}

type hit struct {
	value    float32
	col, row int
}

// Find runs the blind search. Every pixel above threshold is tried as an
// aperture centre, brightest pixel value first; survivors are taken in
// descending ADU order provided their apertures do not overlap one
// already taken. An image with nothing above threshold yields an empty set.
func (l *Locator) Find(ctx context.Context) (*findres.ResultSet, *Metrics, error) {
	metrics := NewMetrics()
	metrics.Threshold = l.threshold
	metrics.Cutoff = l.cutoff
	metrics.SkyBaseline = l.skyBaseline

	pixels := l.img.Pixels()
	var hits []hit
	for row := l.win.Min.Y; row < l.win.Max.Y; row++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		for col := l.win.Min.X; col < l.win.Max.X; col++ {
			if v := pixels.At(row, col); float64(v) > l.threshold {
				hits = append(hits, hit{value: v, col: col, row: row})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].value > hits[j].value })

	var accepted []Accepted
	for _, h := range hits {
		c := l.Evaluate(h.col, h.row)
		metrics.record(c)
		if a, ok := c.(Accepted); ok {
			accepted = append(accepted, a)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].ADU > accepted[j].ADU })

	kept := selectNonOverlapping(accepted, l.ap, metrics)
	if n := l.params.BrightestOnly; n > 0 && len(kept) > n {
		kept = kept[:n]
	}
	metrics.Accepted = len(kept)

	rs := findres.NewResultSet(l.img.ObsDate(), l.img.Filter(), l.ap)
	var sky []remfits.SkyPos
	if w := l.img.WCS(); w != nil {
		pts := make([]remfits.PixPos, len(kept))
		for i, a := range kept {
			pts[i] = remfits.PixPos{Col: float64(a.Col), Row: float64(a.Row)}
		}
		sky = w.PixToSky(pts)
	}
	for i, a := range kept {
		r := findres.Result{
			Pixel:  &findres.Pixel{Col: a.Col, Row: a.Row},
			ApSize: l.ap,
			ADUs:   a.ADU,
		}
		if sky != nil {
			r.RA, r.Dec = sky[i].RA, sky[i].Dec
		}
		rs.Add(r)
	}
	rs.Relabel()

	logger.L.Info("blind find complete", metrics.field(), zap.Int("results", rs.Len()))
	return rs, metrics, nil
}

// selectNonOverlapping keeps, in order, each candidate further than two
// aperture radii from every candidate already kept.
func selectNonOverlapping(sorted []Accepted, ap int, metrics *Metrics) []Accepted {
	limit := 4 * ap * ap
	var kept []Accepted
	for _, a := range sorted {
		free := true
		for _, k := range kept {
			dc, dr := a.Col-k.Col, a.Row-k.Row
			if dc*dc+dr*dr <= limit {
				free = false
				break
			}
		}
		if !free {
			metrics.Rejected[Overlap]++
			continue
		}
		kept = append(kept, a)
	}
	return kept
}
