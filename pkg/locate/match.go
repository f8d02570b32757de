package locate

import (
	"fmt"
	"math/cmplx"
	"sort"

	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/catalog"
	"remphot/pkg/findres"
	"remphot/pkg/photerr"
)

// Pair links catalog object Object to find result Result.
type Pair struct {
	Object int
	Result int
	// Dist is the separation in degrees after removing the target offset.
	Dist float64
}

// Matching is the outcome of aligning a result set to a catalog list.
type Matching struct {
	// Offset is the target position error (RA + i*Dec) in degrees.
	Offset complex128
	Pairs  []Pair
	// Ambiguous lists pairs within threshold that lost to a closer pair
	// sharing their object or result.
	Ambiguous []Pair
}

// MatchToCatalog aligns rs to objects, whose first entry must be the
// target. The target offset comes from the brightest result, or from the
// result nearest the target when p.TargetNearest is set; if it exceeds
// the threshold the match fails with ErrTargetMiss. After removing the
// offset every object/result pair within threshold is assigned greedily,
// closest first. Matched results take the object's names and the target
// flag.
func MatchToCatalog(objects []catalog.Object, rs *findres.ResultSet, p *Params) (*Matching, error) {
	threshold := p.ThresholdDeg()
	if len(objects) == 0 || rs.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing to match (%d objects, %d results)",
			photerr.ErrTargetMiss, len(objects), rs.Len())
	}

	d := make([][]complex128, len(objects))
	for i, o := range objects {
		d[i] = make([]complex128, rs.Len())
		for j, r := range rs.Results {
			d[i][j] = complex(o.RA, o.Dec) - complex(r.RA, r.Dec)
		}
	}

	tj := 0
	if p.TargetNearest {
		for j := range d[0] {
			if cmplx.Abs(d[0][j]) < cmplx.Abs(d[0][tj]) {
				tj = j
			}
		}
	}
	delta := d[0][tj]
	if cmplx.Abs(delta) > threshold {
		return nil, fmt.Errorf("%w: %s is %.1f arcsec from result %s",
			photerr.ErrTargetMiss, objects[0].Name, cmplx.Abs(delta)*3600, rs.Results[tj].Label)
	}

	var cands []Pair
	for i := range d {
		for j := range d[i] {
			if dist := cmplx.Abs(d[i][j] - delta); dist <= threshold {
				cands = append(cands, Pair{Object: i, Result: j, Dist: dist})
			}
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].Dist < cands[b].Dist })

	m := &Matching{Offset: delta}
	usedObj := make(map[int]bool)
	usedRes := make(map[int]bool)
	for _, c := range cands {
		if usedObj[c.Object] || usedRes[c.Result] {
			m.Ambiguous = append(m.Ambiguous, c)
			logger.L.Warn("ambiguous catalog match",
				zap.String("object", objects[c.Object].Name),
				zap.String("result", rs.Results[c.Result].Label),
				zap.Float64("arcsec", c.Dist*3600))
			continue
		}
		usedObj[c.Object] = true
		usedRes[c.Result] = true
		m.Pairs = append(m.Pairs, c)
	}

	for j := range rs.Results {
		rs.Results[j].IsTarget = false
	}
	for _, pr := range m.Pairs {
		o := &objects[pr.Object]
		r := &rs.Results[pr.Result]
		r.Name = o.Name
		r.DispName = o.DispName
		r.ObjName = o.Name
		r.IsTarget = pr.Object == 0 && o.IsTarget()
	}
	return m, nil
}
