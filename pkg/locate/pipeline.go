package locate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/catalog"
	"remphot/pkg/findres"
	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

// Located is the outcome of a catalog-directed search.
type Located struct {
	Results *findres.ResultSet
	// Objloc holds the predicted position of every object considered.
	Objloc *findres.Objloc
	// ColShift and RowShift are the offset of the found target from its
	// predicted position, applied to every companion.
	ColShift, RowShift int
	// Missed lists the companions that were not found.
	Missed []string
}

// SkyBox returns the RA and Dec ranges covered by img widened by margin
// pixels on every side.
func SkyBox(img remfits.Provider, margin int) ([2]float64, [2]float64) {
	w := img.WCS()
	lo, hiC, hiR := float64(-margin), float64(img.Cols()+margin), float64(img.Rows()+margin)
	corners := w.PixToSky([]remfits.PixPos{
		{Col: lo, Row: lo}, {Col: hiC, Row: lo}, {Col: lo, Row: hiR}, {Col: hiC, Row: hiR},
		{Col: (lo + hiC) / 2, Row: lo}, {Col: (lo + hiC) / 2, Row: hiR},
		{Col: lo, Row: (lo + hiR) / 2}, {Col: hiC, Row: (lo + hiR) / 2},
	})
	ra := [2]float64{math.Inf(1), math.Inf(-1)}
	dec := [2]float64{math.Inf(1), math.Inf(-1)}
	ref := corners[0].RA
	wraps := false
	for _, c := range corners {
		if math.Abs(c.RA-ref) > 180 {
			wraps = true
		}
	}
	for _, c := range corners {
		r := c.RA
		if wraps && r > 180 {
			r -= 360
		}
		ra[0], ra[1] = math.Min(ra[0], r), math.Max(ra[1], r)
		dec[0], dec[1] = math.Min(dec[0], c.Dec), math.Max(dec[1], c.Dec)
	}
	if ra[0] < 0 {
		ra[0] += 360
	}
	return ra, dec
}

// LocateCatalog finds the catalog objects of a vicinity in img. objects
// must start with the target. The target is searched for within
// p.MaxShift of its predicted position; its offset is then applied to
// every companion inside the image, each searched within p.MaxShift2.
// ADU sums are sky-subtracted with the image mean. A target whose sum is
// below the p.TotSig cutoff fails with ErrTargetMiss.
func LocateCatalog(ctx context.Context, img remfits.Provider, objects []catalog.Object, p *Params) (*Located, error) {
	w := img.WCS()
	if w == nil {
		return nil, fmt.Errorf("%w: image has no WCS", photerr.ErrHeader)
	}
	if !img.HasStats() {
		return nil, fmt.Errorf("%w: image statistics not computed", photerr.ErrHeader)
	}
	if len(objects) == 0 || !objects[0].IsTarget() {
		return nil, fmt.Errorf("%w: object list does not start with a target", photerr.ErrNotFound)
	}

	target := objects[0]
	raRange, decRange := SkyBox(img, p.LookAround)
	objects = append([]catalog.Object{target}, catalog.PruneToBox(objects[1:], raRange, decRange)...)

	coords := make([]remfits.SkyPos, len(objects))
	for i := range objects {
		coords[i] = objects[i].Sky()
	}
	predicted := w.SkyToPix(coords)

	loc := &findres.Objloc{ObsDate: img.ObsDate(), Filter: findres.FilterText(img.Filter())}
	for i, o := range objects {
		loc.Objects = append(loc.Objects, findres.ObjLoc{
			Target:   findres.Flag(i == 0),
			Unusable: findres.Flag(!o.Usable),
			RA:       o.RA,
			Dec:      o.Dec,
			Col:      roundPix(predicted[i].Col),
			Row:      roundPix(predicted[i].Row),
			Name:     o.Name,
			DispName: o.DispName,
		})
	}

	mean, std := img.Mean(), img.Std()
	pixels := img.Pixels()
	ap := apertureOf(&target, p)
	if !projected(predicted[0]) {
		return nil, fmt.Errorf("%w: %s is not on the image hemisphere", photerr.ErrTargetMiss, target.Name)
	}
	tc, tr := roundPix(predicted[0].Col), roundPix(predicted[0].Row)
	peak, err := FindBestColRow(pixels, tc, tr, ap, p.MaxShift)
	if errors.Is(err, photerr.ErrBoundary) {
		return nil, fmt.Errorf("%w: %s predicted at (%d,%d) is off the image", photerr.ErrTargetMiss, target.Name, tc, tr)
	}
	if err != nil {
		return nil, err
	}
	net := peak.Sum - float64(peak.Area)*mean
	if cutoff := float64(peak.Area) * p.TotSig * std; net < cutoff {
		return nil, fmt.Errorf("%w: %s sum %.1f below cutoff %.1f", photerr.ErrTargetMiss, target.Name, net, cutoff)
	}

	out := &Located{
		Results:  findres.NewResultSet(img.ObsDate(), img.Filter(), ap),
		Objloc:   loc,
		ColShift: peak.Col - tc,
		RowShift: peak.Row - tr,
	}
	out.Results.Add(resultFor(w, &target, peak, ap, net, true))

	for i := 1; i < len(objects); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := &objects[i]
		if !o.Usable || !projected(predicted[i]) {
			continue
		}
		c := roundPix(predicted[i].Col) + out.ColShift
		r := roundPix(predicted[i].Row) + out.RowShift
		oap := apertureOf(o, p)
		cpeak, err := FindBestColRow(pixels, c, r, oap, p.MaxShift2)
		if err != nil {
			out.Missed = append(out.Missed, o.Name)
			continue
		}
		cnet := cpeak.Sum - float64(cpeak.Area)*mean
		if cnet < float64(cpeak.Area)*p.TotSig*std {
			out.Missed = append(out.Missed, o.Name)
			continue
		}
		out.Results.Add(resultFor(w, o, cpeak, oap, cnet, false))
	}
	out.Results.Reorder()

	logger.L.Info("catalog objects located",
		zap.String("target", target.Name),
		zap.Int("found", out.Results.Len()),
		zap.Int("missed", len(out.Missed)),
		zap.Int("colShift", out.ColShift),
		zap.Int("rowShift", out.RowShift))
	return out, nil
}

func resultFor(w *remfits.WCS, o *catalog.Object, pk Peak, ap int, net float64, target bool) findres.Result {
	sky := w.PixToSky([]remfits.PixPos{{Col: float64(pk.Col), Row: float64(pk.Row)}})[0]
	return findres.Result{
		Pixel:    &findres.Pixel{Col: pk.Col, Row: pk.Row},
		RA:       sky.RA,
		Dec:      sky.Dec,
		ApSize:   ap,
		ADUs:     net,
		Name:     o.Name,
		DispName: o.DispName,
		IsTarget: target,
		ObjName:  o.Name,
	}
}

func apertureOf(o *catalog.Object, p *Params) int {
	if o.ApSize > 0 {
		return o.ApSize
	}
	return p.DefApSize
}

// roundPix rounds a projected coordinate. Positions on the far side of
// the sky come back as -1.
func roundPix(v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	return int(math.Round(v))
}

func projected(p remfits.PixPos) bool {
	return !math.IsNaN(p.Col) && !math.IsNaN(p.Row)
}
