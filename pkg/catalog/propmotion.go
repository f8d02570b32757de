package catalog

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"
)

const (
	jdJ2000     = 2451545.0
	daysPerYear = 365.25
	masPerDeg   = 3.6e6
	// kmsToPcYr converts a radial velocity in km/s to parsecs per Julian year.
	kmsToPcYr = 1.0227121650537077e-6
)

// DaysSinceJ2000 returns the Julian days elapsed between J2000.0 and t.
func DaysSinceJ2000(t time.Time) float64 {
	return julian.TimeToJD(t.UTC()) - jdJ2000
}

// At returns a copy of o with its position carried from J2000 to epoch.
// Distance and radial velocity, when both known, select a full space-motion
// propagation; otherwise proper motion is applied linearly in RA and Dec.
func (o Object) At(epoch time.Time) Object {
	if o.RAPM == nil && o.DecPM == nil {
		return o
	}
	var rapm, decpm float64
	if o.RAPM != nil {
		rapm = *o.RAPM
	}
	if o.DecPM != nil {
		decpm = *o.DecPM
	}
	days := DaysSinceJ2000(epoch)

	if o.Dist != nil && o.RV != nil && *o.Dist > 0 {
		from := &coord.Equatorial{RA: unit.RAFromDeg(o.RA), Dec: unit.AngleFromDeg(o.Dec)}
		to := &coord.Equatorial{}
		mra := unit.HourAngle(rapm / masPerDeg * math.Pi / 180)
		mdec := unit.AngleFromDeg(decpm / masPerDeg)
		precess.ProperMotion3D(from, to, 2000, 2000+days/daysPerYear,
			*o.Dist, *o.RV*kmsToPcYr, mra, mdec)
		o.RA = normRA(to.RA.Rad() * 180 / math.Pi)
		o.Dec = to.Dec.Deg()
		return o
	}

	o.RA = normRA(o.RA + rapm/masPerDeg/daysPerYear*days)
	o.Dec = clampDec(o.Dec + decpm/masPerDeg/daysPerYear*days)
	return o
}

func normRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	if ra >= 360 {
		ra -= 360
	}
	return ra
}

func clampDec(dec float64) float64 {
	return math.Max(-90, math.Min(90, dec))
}

// PruneToBox keeps the objects whose position lies inside the RA and Dec
// ranges. An RA range whose low end exceeds its high end wraps through 0.
func PruneToBox(objects []Object, raRange, decRange [2]float64) []Object {
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		if o.Dec < decRange[0] || o.Dec > decRange[1] {
			continue
		}
		lo, hi := raRange[0], raRange[1]
		if lo <= hi {
			if o.RA < lo || o.RA > hi {
				continue
			}
		} else if o.RA < lo && o.RA > hi {
			continue
		}
		out = append(out, o)
	}
	return out
}
