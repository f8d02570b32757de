package catalog

import (
	"math"

	"remphot/pkg/remfits"
)

// DefaultApSize is the aperture radius in pixels used when an object has
// no preferred one.
const DefaultApSize = 6

// Mag is one optional magnitude with its error.
type Mag struct {
	Value float64
	Err   float64
	Valid bool
}

// Magnitudes holds one optional magnitude per filter, indexed by
// remfits.Filter.
type Magnitudes [remfits.FilterK + 1]Mag

func (m *Magnitudes) Get(f remfits.Filter) Mag {
	if f <= remfits.FilterUnknown || int(f) >= len(m) {
		return Mag{}
	}
	return m[f]
}

func (m *Magnitudes) Set(f remfits.Filter, value, err float64) {
	if f <= remfits.FilterUnknown || int(f) >= len(m) {
		return
	}
	m[f] = Mag{Value: value, Err: err, Valid: true}
}

// Average is the mean of the known magnitudes, or NaN if there are none.
func (m *Magnitudes) Average() float64 {
	var sum float64
	var n int
	for _, f := range remfits.Filters {
		if mg := m[f]; mg.Valid {
			sum += mg.Value
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Object is a catalog entry. RA and Dec are J2000 degrees; proper motion
// is in mas/yr, distance in parsecs and radial velocity in km/s.
type Object struct {
	Name     string
	DispName string
	Type     string
	Vicinity string
	RA       float64
	Dec      float64
	RAPM     *float64
	DecPM    *float64
	RAErr    *float64
	DecErr   *float64
	Dist     *float64
	RV       *float64
	Mags     Magnitudes
	ApSize   int
	Usable   bool
}

// IsTarget reports whether o is the principal object of its vicinity.
func (o *Object) IsTarget() bool {
	return o.Name == o.Vicinity
}

// Label is the display name when set, otherwise the canonical name.
func (o *Object) Label() string {
	if o.DispName != "" {
		return o.DispName
	}
	return o.Name
}

func (o *Object) Sky() remfits.SkyPos {
	return remfits.SkyPos{RA: o.RA, Dec: o.Dec}
}

type magCols struct {
	v, e **float64
}

func (r *objRow) magCols() map[remfits.Filter]magCols {
	return map[remfits.Filter]magCols{
		remfits.FilterG: {&r.GMag, &r.GMagErr},
		remfits.FilterI: {&r.IMag, &r.IMagErr},
		remfits.FilterR: {&r.RMag, &r.RMagErr},
		remfits.FilterZ: {&r.ZMag, &r.ZMagErr},
		remfits.FilterH: {&r.HMag, &r.HMagErr},
		remfits.FilterJ: {&r.JMag, &r.JMagErr},
		remfits.FilterK: {&r.KMag, &r.KMagErr},
	}
}

func (r *objRow) toObject() Object {
	o := Object{
		Name:     r.ObjName,
		DispName: r.DispName,
		Type:     r.ObjType,
		Vicinity: r.Vicinity,
		RA:       r.RADeg,
		Dec:      r.DecDeg,
		RAPM:     r.RAPM,
		DecPM:    r.DecPM,
		RAErr:    r.RAErr,
		DecErr:   r.DecErr,
		Dist:     r.Dist,
		RV:       r.RV,
		ApSize:   r.ApSize,
		Usable:   r.Usable,
	}
	if o.ApSize <= 0 {
		o.ApSize = DefaultApSize
	}
	for f, cols := range r.magCols() {
		if *cols.v != nil {
			var e float64
			if *cols.e != nil {
				e = **cols.e
			}
			o.Mags.Set(f, **cols.v, e)
		}
	}
	return o
}

func rowFromObject(o *Object) objRow {
	r := objRow{
		ObjName:  o.Name,
		DispName: o.DispName,
		ObjType:  o.Type,
		Vicinity: o.Vicinity,
		RADeg:    o.RA,
		DecDeg:   o.Dec,
		RAPM:     o.RAPM,
		DecPM:    o.DecPM,
		RAErr:    o.RAErr,
		DecErr:   o.DecErr,
		Dist:     o.Dist,
		RV:       o.RV,
		ApSize:   o.ApSize,
		Usable:   o.Usable,
	}
	if r.ApSize <= 0 {
		r.ApSize = DefaultApSize
	}
	for f, cols := range r.magCols() {
		if m := o.Mags.Get(f); m.Valid {
			v, e := m.Value, m.Err
			*cols.v = &v
			*cols.e = &e
		}
	}
	return r
}
