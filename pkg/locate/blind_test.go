package locate

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

func blindParams() *Params {
	p := NewParams()
	p.Signif = 10
	p.DefApSize = 6
	p.TotSig = 5
	return p
}

func find(t *testing.T, img remfits.Provider, p *Params) ([]Accepted, *Metrics) {
	t.Helper()
	l, err := NewLocator(img, p)
	require.NoError(t, err)
	defer l.Close()
	rs, m, err := l.Find(context.Background())
	require.NoError(t, err)
	out := make([]Accepted, rs.Len())
	for i, r := range rs.Results {
		require.NotNil(t, r.Pixel)
		out[i] = Accepted{Col: r.Pixel.Col, Row: r.Pixel.Row, ADU: r.ADUs}
	}
	return out, m
}

func TestBlindFindEmptyImage(t *testing.T) {
	img := remfits.NewImage(512, 512, make([]float32, 512*512))
	require.True(t, img.HasStats())
	assert.Zero(t, img.Mean())
	assert.Zero(t, img.Std())

	got, m := find(t, img, blindParams())
	assert.Empty(t, got)
	assert.Zero(t, m.Candidates)
}

func TestBlindFindSingleGaussian(t *testing.T) {
	img := newGrid(300, 300, 10).bump(100, 150, 1000, 2).image(10, 1)
	l, err := NewLocator(img, blindParams())
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, 20.0, l.Threshold())
	assert.Equal(t, 565.0, l.Cutoff())

	rs, m, err := l.Find(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	r := rs.Results[0]
	assert.Equal(t, "A", r.Label)
	assert.InDelta(t, 100, r.Pixel.Col, 1)
	assert.InDelta(t, 150, r.Pixel.Row, 1)
	assert.Greater(t, r.ADUs, 0.0)
	assert.Equal(t, 6, r.ApSize)
	assert.Greater(t, m.Rejected[Overlap], 0)
	assert.Equal(t, 1, m.Accepted)
}

func TestBlindFindNonOverlap(t *testing.T) {
	img := newGrid(300, 300, 10).bump(100, 100, 1000, 2).bump(100, 105, 1000, 2).image(10, 1)
	got, _ := find(t, img, blindParams())
	assert.Len(t, got, 1)
}

func TestBlindFindResultsNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := newGrid(400, 400, 10)
	for i := 0; i < 40; i++ {
		g.bump(10+rng.Intn(380), 10+rng.Intn(380), 200+rng.Float64()*2000, 1.5+rng.Float64())
	}
	p := blindParams()
	got, _ := find(t, g.image(10, 1), p)
	require.NotEmpty(t, got)
	lim := 4 * p.DefApSize * p.DefApSize
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			dc, dr := got[i].Col-got[j].Col, got[i].Row-got[j].Row
			assert.Greater(t, dc*dc+dr*dr, lim)
		}
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].ADU, got[i].ADU)
		}
	}
}

func TestBlindFindBrightestOnlyAndMargins(t *testing.T) {
	g := newGrid(200, 200, 10).
		bump(50, 50, 3000, 2).
		bump(150, 50, 2000, 2).
		bump(100, 150, 1000, 2).
		bump(10, 100, 5000, 2)
	p := blindParams()

	all, _ := find(t, g.image(10, 1), p)
	require.Len(t, all, 4)
	assert.Equal(t, 10, all[0].Col)

	p.Margins.Left = 20
	noEdge, _ := find(t, g.image(10, 1), p)
	require.Len(t, noEdge, 3)
	assert.Equal(t, Accepted{Col: 50, Row: 50, ADU: noEdge[0].ADU}, noEdge[0])

	p.BrightestOnly = 2
	top, _ := find(t, g.image(10, 1), p)
	require.Len(t, top, 2)
	assert.Equal(t, 50, top[0].Col)
	assert.Equal(t, 150, top[1].Col)
}

func TestBlindFindCoordinatesAndLabels(t *testing.T) {
	img := newGrid(200, 200, 10).bump(60, 60, 3000, 2).bump(140, 120, 1500, 2).image(10, 1)
	img.wcs = arcsecWCS(200, 200)
	l, err := NewLocator(img, blindParams())
	require.NoError(t, err)
	defer l.Close()
	rs, _, err := l.Find(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "A", rs.Results[0].Label)
	assert.Equal(t, "B", rs.Results[1].Label)
	assert.Equal(t, remfits.FilterI, rs.Filter)
	assert.Equal(t, 36, rs.ApSq())

	want := img.wcs.PixToSky([]remfits.PixPos{{Col: 140, Row: 120}})[0]
	assert.InDelta(t, want.RA, rs.Results[1].RA, 1e-9)
	assert.InDelta(t, want.Dec, rs.Results[1].Dec, 1e-9)
}

func TestEvaluateVariants(t *testing.T) {
	g := newGrid(100, 100, 10).set(50, 50, 25).set(30, 30, 900)
	p := blindParams()
	p.SinglePixN = 3
	img := g.image(10, 1)
	l, err := NewLocator(img, p)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, Rejected{Col: 2, Row: 2, Reason: OutOfWindow}, l.Evaluate(2, 2))
	assert.Equal(t, Rejected{Col: 40, Row: 40, Reason: BelowThreshold}, l.Evaluate(40, 40))
	assert.Equal(t, Rejected{Col: 30, Row: 30, Reason: SinglePixel}, l.Evaluate(30, 30))

	p.SinglePixN = 0
	l2, err := NewLocator(img, p)
	require.NoError(t, err)
	defer l2.Close()
	assert.Equal(t, Rejected{Col: 50, Row: 50, Reason: BelowCutoff}, l2.Evaluate(50, 50))
	acc, ok := l2.Evaluate(30, 30).(Accepted)
	require.True(t, ok)
	assert.InDelta(t, 890, acc.ADU, 1e-3)
}

func TestBlindFindNeedsStats(t *testing.T) {
	img := newGrid(50, 50, 0).image(0, 0)
	img.noStats = true
	_, err := NewLocator(img, blindParams())
	assert.True(t, errors.Is(err, photerr.ErrHeader))
}

func TestBlindFindCancelled(t *testing.T) {
	img := newGrid(100, 100, 10).bump(50, 50, 1000, 2).image(10, 1)
	l, err := NewLocator(img, blindParams())
	require.NoError(t, err)
	defer l.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = l.Find(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlindFindRejectsBadPixels(t *testing.T) {
	nan := float32(math.NaN())
	img := newGrid(100, 100, 10).bump(50, 50, 1000, 2).set(53, 50, nan).image(10, 1)
	l, err := NewLocator(img, blindParams())
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, Rejected{Col: 50, Row: 50, Reason: BadPixels}, l.Evaluate(50, 50))

	rs, m, err := l.Find(context.Background())
	require.NoError(t, err)
	for _, r := range rs.Results {
		assert.False(t, math.IsNaN(r.ADUs), "result %s", r.Label)
		assert.GreaterOrEqual(t, r.ADUs, l.Cutoff())
	}
	assert.Greater(t, m.Rejected[BadPixels], 0)
}
