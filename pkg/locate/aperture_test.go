package locate

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

func TestCircularMaskCount(t *testing.T) {
	m, n := CircularMask(6)
	defer m.Close()
	assert.Equal(t, 113, n)
	assert.Equal(t, 13, m.Rows())
	assert.Equal(t, 13, m.Cols())

	for r := 0; r <= 12; r++ {
		want := 0
		for dr := -r; dr <= r; dr++ {
			for dc := -r; dc <= r; dc++ {
				if dr*dr+dc*dc <= r*r {
					want++
				}
			}
		}
		mask, got := CircularMask(r)
		assert.Equal(t, want, got, "radius %d", r)
		assert.InDelta(t, float64(want), remfits.MaskedSum(mask, mask), 1e-9)
		mask.Close()
	}
}

func TestFractionalMask(t *testing.T) {
	m, w := FractionalMask(4.5, 8)
	defer m.Close()
	assert.Equal(t, 11, m.Rows())
	assert.InDelta(t, 3.14159*4.5*4.5, w, 2.0)
	assert.Equal(t, float32(1), m.At(5, 5))
	assert.Equal(t, float32(0), m.At(0, 0))
	corner := m.At(8, 8)
	assert.Greater(t, corner, float32(0))
	assert.Less(t, corner, float32(1))
}

func TestApertureSumMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := newGrid(64, 64, 0)
	for i := range g.data {
		g.data[i] = float32(rng.Float64() * 100)
	}
	pixels := g.mat()
	prev := -1.0
	for a := 0; a <= 12; a++ {
		sum, _, err := ApertureSum(pixels, nil, 32, 30, a)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sum, prev, "aperture %d", a)
		prev = sum
	}
}

func TestApertureSumFlatAndErrors(t *testing.T) {
	pixels := newGrid(40, 40, 3).mat()
	errs := newGrid(40, 40, 2).mat()
	sum, ms, err := ApertureSum(pixels, &errs, 20, 20, 6)
	require.NoError(t, err)
	assert.InDelta(t, 3*113, sum, 1e-6)
	assert.InDelta(t, 4, ms, 1e-6)

	_, ms, err = ApertureSum(pixels, nil, 20, 20, 6)
	require.NoError(t, err)
	assert.Zero(t, ms)

	bad := newGrid(10, 10, 1).mat()
	_, _, err = ApertureSum(pixels, &bad, 20, 20, 3)
	assert.True(t, errors.Is(err, photerr.ErrGeometry))
}

func TestApertureSumBoundary(t *testing.T) {
	pixels := newGrid(40, 40, 1).mat()
	for _, tc := range []struct{ col, row int }{{5, 20}, {20, 5}, {34, 20}, {20, 34}} {
		_, _, err := ApertureSum(pixels, nil, tc.col, tc.row, 6)
		assert.True(t, errors.Is(err, photerr.ErrBoundary), "(%d,%d)", tc.col, tc.row)
	}
	_, _, err := ApertureSum(pixels, nil, 6, 6, 6)
	assert.NoError(t, err)
	_, _, err = ApertureSum(pixels, nil, 33, 33, 6)
	assert.NoError(t, err)
}

func TestFractionalApertureSum(t *testing.T) {
	pixels := newGrid(40, 40, 2).mat()
	sum, w, err := FractionalApertureSum(pixels, 20, 20, 3.5)
	require.NoError(t, err)
	assert.InDelta(t, 2*w, sum, 1e-3)

	_, _, err = FractionalApertureSum(pixels, 2, 20, 3.5)
	assert.True(t, errors.Is(err, photerr.ErrBoundary))
}

func TestOptimalAperture(t *testing.T) {
	pixels := newGrid(80, 80, 0).bump(40, 40, 1000, 1.5).mat()
	p := NewParams()
	p.MinAp, p.MaxAp = 1, 15

	plain, err := OptimalAperture(pixels, nil, 40, 40, 6, Sky{Mean: 0, Std: 1}, p)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plain.ApSize, 5)
	assert.LessOrEqual(t, plain.ApSize, 7)
	assert.Equal(t, plain.ADUs, plain.Score)

	errs := newGrid(80, 80, 1).mat()
	snr, err := OptimalAperture(pixels, &errs, 40, 40, 6, Sky{Mean: 0, Std: 1}, p)
	require.NoError(t, err)
	assert.Less(t, snr.ApSize, plain.ApSize)
	assert.Greater(t, snr.Score, 0.0)
}

func TestOptimalApertureStopsAtEdge(t *testing.T) {
	pixels := newGrid(30, 30, 0).bump(8, 15, 1000, 3).mat()
	p := NewParams()
	res, err := OptimalAperture(pixels, nil, 8, 15, 4, Sky{Std: 0.1}, p)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.ApSize, 8)

	_, err = OptimalAperture(pixels, nil, 8, 15, 10, Sky{}, p)
	assert.True(t, errors.Is(err, photerr.ErrBoundary))
}

func TestApertureSumRejectsBadPixels(t *testing.T) {
	nan := float32(math.NaN())
	pixels := newGrid(80, 80, 0).bump(40, 40, 1000, 1.5).set(48, 40, nan).mat()
	p := NewParams()
	p.MinAp, p.MaxAp = 1, 15

	_, _, err := ApertureSum(pixels, nil, 40, 40, 8)
	assert.True(t, errors.Is(err, photerr.ErrBadPixels))
	_, _, err = FractionalApertureSum(pixels, 40, 40, 8.2)
	assert.True(t, errors.Is(err, photerr.ErrBadPixels))

	res, err := OptimalAperture(pixels, nil, 40, 40, 6, Sky{Mean: 0, Std: 1}, p)
	require.NoError(t, err, "the scan stops before the bad pixel")
	assert.Less(t, res.ApSize, 8)
	assert.False(t, math.IsNaN(res.ADUs))

	_, err = OptimalAperture(pixels, nil, 40, 40, 8, Sky{}, p)
	assert.True(t, errors.Is(err, photerr.ErrBadPixels))
}
