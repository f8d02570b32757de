package edits

import (
	"fmt"

	"github.com/google/uuid"

	"remphot/pkg/findres"
	"remphot/pkg/locate"
	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

// Op is the kind of a manual correction to a result set.
type Op string

const (
	OpCreate     Op = "create"
	OpCreateCalc Op = "createcalc"
	OpHide       Op = "hide"
	OpDelDisp    Op = "deldisp"
	OpNewDisp    Op = "newdisp"
	OpAdjAp      Op = "adjap"
	OpCalcAp     Op = "calcap"
)

func (o Op) valid() bool {
	switch o {
	case OpCreate, OpCreateCalc, OpHide, OpDelDisp, OpNewDisp, OpAdjAp, OpCalcAp:
		return true
	}
	return false
}

// Edit is one correction anchored at the pixel the user picked. Which
// payload fields matter depends on Op.
type Edit struct {
	ID   uuid.UUID
	Op   Op
	Col  int
	Row  int
	Done bool

	// Name is the name of a created object.
	Name string
	// DispName is the display name given by create or newdisp.
	DispName string
	// ApSize is the aperture of create and adjap, and the aperture chosen
	// by createcalc and calcap once applied.
	ApSize int
	// ADUs is the sum computed when the edit was applied.
	ADUs float64
	// ObjInd is the index of the affected result when the edit was made,
	// nil when unknown.
	ObjInd   *int
	OldLabel string
	NewLabel string
}

// Env is what applying an edit needs besides the result set.
type Env struct {
	Image  remfits.Provider
	Params *locate.Params
	// Errors is an optional per-pixel error array for aperture optimisation.
	Errors *remfits.Mat
}

func (env *Env) sky() locate.Sky {
	return locate.Sky{Mean: env.Image.Mean(), Std: env.Image.Std()}
}

// Apply performs the edit on rs. An edit already done is left alone.
func (e *Edit) Apply(rs *findres.ResultSet, env *Env) error {
	if e.Done {
		return nil
	}
	var err error
	switch e.Op {
	case OpCreate, OpCreateCalc:
		err = e.create(rs, env)
	case OpHide:
		var i int
		if i, err = e.target(rs); err == nil {
			e.OldLabel = rs.Results[i].Label
			rs.Remove(i)
			rs.Relabel()
		}
	case OpDelDisp, OpNewDisp:
		var i int
		if i, err = e.target(rs); err == nil {
			r := &rs.Results[i]
			e.OldLabel, e.NewLabel = r.Label, r.Label
			if e.Op == OpDelDisp {
				r.DispName = ""
			} else {
				r.DispName = e.DispName
			}
		}
	case OpAdjAp, OpCalcAp:
		err = e.resize(rs, env)
	default:
		err = fmt.Errorf("unknown edit operation %q", e.Op)
	}
	if err != nil {
		return fmt.Errorf("%s edit at (%d,%d): %w", e.Op, e.Col, e.Row, err)
	}
	e.Done = true
	return nil
}

// target finds the result an edit refers to: by its recorded index and
// label, then by label alone, then by proximity to the anchor.
func (e *Edit) target(rs *findres.ResultSet) (int, error) {
	if e.ObjInd != nil {
		if i := *e.ObjInd; i >= 0 && i < rs.Len() && (e.OldLabel == "" || rs.Results[i].Label == e.OldLabel) {
			return i, nil
		}
	}
	if e.OldLabel != "" {
		if i := rs.Find(e.OldLabel); i >= 0 {
			return i, nil
		}
	}
	if i := rs.Nearest(e.Col, e.Row); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: no result near (%d,%d)", photerr.ErrNotFound, e.Col, e.Row)
}

func (e *Edit) measure(env *Env, col, row, ap int, optimise bool) (int, float64, error) {
	pixels := env.Image.Pixels()
	if optimise {
		res, err := locate.OptimalAperture(pixels, env.Errors, col, row, ap, env.sky(), env.Params)
		if err != nil {
			return 0, 0, err
		}
		return res.ApSize, res.ADUs, nil
	}
	sum, _, err := locate.ApertureSum(pixels, nil, col, row, ap)
	if err != nil {
		return 0, 0, err
	}
	mask, n := locate.CircularMask(ap)
	mask.Close()
	return ap, sum - float64(n)*env.Image.Mean(), nil
}

func (e *Edit) create(rs *findres.ResultSet, env *Env) error {
	if e.Name == "" {
		return fmt.Errorf("created object needs a name")
	}
	ap := e.ApSize
	if ap <= 0 {
		ap = env.Params.DefApSize
	}
	ap, adus, err := e.measure(env, e.Col, e.Row, ap, e.Op == OpCreateCalc)
	if err != nil {
		return err
	}
	r := findres.Result{
		Pixel:    &findres.Pixel{Col: e.Col, Row: e.Row},
		ApSize:   ap,
		ADUs:     adus,
		Name:     e.Name,
		DispName: e.DispName,
	}
	if w := env.Image.WCS(); w != nil {
		s := w.PixToSky([]remfits.PixPos{{Col: float64(e.Col), Row: float64(e.Row)}})[0]
		r.RA, r.Dec = s.RA, s.Dec
	}
	rs.Add(r)
	rs.Reorder()
	e.ApSize, e.ADUs = ap, adus
	for i := range rs.Results {
		if rs.Results[i].Name == e.Name {
			e.ObjInd, e.NewLabel = &i, rs.Results[i].Label
			break
		}
	}
	return nil
}

func (e *Edit) resize(rs *findres.ResultSet, env *Env) error {
	i, err := e.target(rs)
	if err != nil {
		return err
	}
	r := rs.Results[i]
	if r.Pixel == nil || !r.Pixel.OnImage() {
		return fmt.Errorf("%w: result %s has no pixel position", photerr.ErrBoundary, r.Label)
	}
	ap := e.ApSize
	if e.Op == OpCalcAp || ap <= 0 {
		ap = r.ApSize
	}
	ap, adus, err := e.measure(env, r.Pixel.Col, r.Pixel.Row, ap, e.Op == OpCalcAp)
	if err != nil {
		return err
	}
	e.OldLabel = r.Label
	e.ApSize, e.ADUs = ap, adus
	rs.Results[i].ApSize = ap
	rs.Results[i].ADUs = adus
	name := r.Name
	rs.Reorder()
	for j := range rs.Results {
		if rs.Results[j].Name == name && rs.Results[j].ADUs == adus {
			e.ObjInd, e.NewLabel = &j, rs.Results[j].Label
			break
		}
	}
	return nil
}
