package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

func TestPlanarProperMotion(t *testing.T) {
	o := Object{Name: "x", RA: 10, Dec: 20, RAPM: f64(1000), DecPM: f64(-500)}
	epoch := j2000.Add(time.Duration(10 * daysPerYear * 24 * float64(time.Hour)))

	moved := o.At(epoch)
	assert.InDelta(t, 10.0+10000.0/3.6e6, moved.RA, 1e-9)
	assert.InDelta(t, 20.0-5000.0/3.6e6, moved.Dec, 1e-9)
	assert.InDelta(t, 10.00278, moved.RA, 1e-5)
	assert.InDelta(t, 19.99861, moved.Dec, 1e-5)
	assert.Equal(t, 10.0, o.RA, "receiver is not modified")
}

func TestProperMotionIsLinear(t *testing.T) {
	o := Object{RA: 120, Dec: -30, RAPM: f64(-250), DecPM: f64(800)}
	for _, years := range []float64{-5, 1, 7.5, 30} {
		days := years * daysPerYear
		epoch := j2000.Add(time.Duration(days * 24 * float64(time.Hour)))
		moved := o.At(epoch)
		assert.InDelta(t, 120+(-250.0/masPerDeg/daysPerYear)*days, moved.RA, 1e-9)
		assert.InDelta(t, -30+(800.0/masPerDeg/daysPerYear)*days, moved.Dec, 1e-9)
	}
}

func TestProperMotionWrapsRA(t *testing.T) {
	o := Object{RA: 0.0001, Dec: 0, RAPM: f64(-3600)}
	moved := o.At(j2000.AddDate(1, 0, 0))
	assert.Greater(t, moved.RA, 359.0)
	assert.Less(t, moved.RA, 360.0)
}

func TestSpaceMotionCloseToPlanar(t *testing.T) {
	planar := Object{RA: 217.42894, Dec: -62.67949, RAPM: f64(-3781.3), DecPM: f64(769.8)}
	full := planar
	full.Dist = f64(1.3012)
	full.RV = f64(-22.2)
	epoch := j2000.AddDate(19, 0, 0)

	a := planar.At(epoch)
	b := full.At(epoch)
	// both move the star by ~0.02 degrees; the models agree to well under
	// an arcsecond over two decades.
	assert.InDelta(t, a.Dec, b.Dec, 1.0/3600)
	assert.NotEqual(t, planar.Dec, b.Dec)
}

func TestNoMotionLeavesPosition(t *testing.T) {
	o := Object{RA: 5, Dec: 6}
	assert.Equal(t, o, o.At(j2000.AddDate(20, 0, 0)))
}

func TestPruneToBox(t *testing.T) {
	objs := []Object{
		{Name: "in", RA: 10, Dec: 5},
		{Name: "decout", RA: 10, Dec: 15},
		{Name: "raout", RA: 30, Dec: 5},
		{Name: "wrap", RA: 359.5, Dec: 5},
	}
	got := PruneToBox(objs, [2]float64{5, 20}, [2]float64{0, 10})
	assert.Len(t, got, 1)
	assert.Equal(t, "in", got[0].Name)

	wrapped := PruneToBox(objs, [2]float64{359, 11}, [2]float64{0, 10})
	assert.Len(t, wrapped, 2)
}
