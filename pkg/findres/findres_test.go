package findres

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		k    int
		want string
	}{
		{0, "A"},
		{25, "Z"},
		{26, "a"},
		{51, "z"},
		{52, "Obj052"},
		{53, "Obj053"},
		{120, "Obj120"},
		{1234, "Obj1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.k), "k=%d", tt.k)
	}
}

func px(c, r int) *Pixel { return &Pixel{Col: c, Row: r} }

func TestReorderSortsAndRelabels(t *testing.T) {
	rs := NewResultSet(time.Date(2019, 3, 2, 1, 2, 3, 0, time.UTC), remfits.FilterI, 6)
	rs.Add(Result{Pixel: px(1, 1), ADUs: 50, Name: "faint"})
	rs.Add(Result{ADUs: 900, Name: "nopixel"})
	rs.Add(Result{Pixel: px(5, 5), ADUs: 500, Name: "bright"})
	rs.Add(Result{Pixel: &OffImage, ADUs: 700, Name: "gone"})
	rs.Add(Result{Pixel: px(9, 9), ADUs: 100, Name: "middle"})

	rs.Reorder()

	require.Equal(t, 3, rs.Len())
	var names, labels []string
	for i, r := range rs.Results {
		names = append(names, r.Name)
		labels = append(labels, r.Label)
		if i > 0 {
			assert.GreaterOrEqual(t, rs.Results[i-1].ADUs, r.ADUs)
		}
	}
	assert.Equal(t, []string{"bright", "middle", "faint"}, names)
	assert.Equal(t, []string{"A", "B", "C"}, labels)
}

func TestRelabelOverflow(t *testing.T) {
	rs := NewResultSet(time.Now(), remfits.FilterR, 3)
	for i := 0; i < 60; i++ {
		rs.Add(Result{Pixel: px(i, i), ADUs: float64(1000 - i)})
	}
	rs.Reorder()
	for k, r := range rs.Results {
		assert.Equal(t, Label(k), r.Label)
	}
	assert.Equal(t, "z", rs.Results[51].Label)
	assert.Equal(t, "Obj052", rs.Results[52].Label)
}

func testImage(t *testing.T) *remfits.Image {
	t.Helper()
	img := remfits.NewImage(100, 200, make([]float32, 100*200))
	w, err := remfits.NewTanWCS(remfits.SkyPos{RA: 150, Dec: 10}, 100.5, 50.5,
		[4]float64{-1e-4, 0, 0, 1e-4})
	require.NoError(t, err)
	img.SetWCS(w)
	return img
}

func TestRefreshPixelsAndCoords(t *testing.T) {
	img := testImage(t)
	rs := NewResultSet(time.Now(), remfits.FilterI, 6)
	rs.Add(Result{Pixel: px(20, 30), Name: "in"})
	rs.Add(Result{Pixel: px(199, 99), Name: "corner"})
	rs.RefreshCoords(img)

	far := img.WCS().PixToSky([]remfits.PixPos{{Col: 250, Row: 30}})[0]
	rs.Add(Result{RA: far.RA, Dec: far.Dec, Name: "outside"})
	rs.Results[0].Pixel = nil

	rs.RefreshPixels(img)
	assert.Equal(t, Pixel{Col: 20, Row: 30}, *rs.Results[0].Pixel)
	assert.Equal(t, Pixel{Col: 199, Row: 99}, *rs.Results[1].Pixel)
	assert.Equal(t, OffImage, *rs.Results[2].Pixel)
}

func TestNearestAndTarget(t *testing.T) {
	rs := NewResultSet(time.Now(), remfits.FilterZ, 4)
	rs.Add(Result{Pixel: px(10, 10), Name: "a"})
	rs.Add(Result{Pixel: px(20, 10), Name: "b", IsTarget: true})
	rs.Relabel()

	assert.Equal(t, 0, rs.Nearest(12, 11))
	assert.Equal(t, 1, rs.Nearest(18, 10))
	assert.Equal(t, -1, rs.Nearest(15, 10))
	assert.Equal(t, 1, rs.Target())
	assert.Equal(t, 1, rs.Find("B"))

	rs.SetTarget(0)
	assert.Equal(t, 0, rs.Target())
	assert.False(t, rs.Results[1].IsTarget)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.findres")
	rs := NewResultSet(time.Date(2019, 3, 2, 1, 2, 3, 0, time.UTC), remfits.FilterZ, 6)
	rs.Add(Result{Pixel: px(100, 150), RA: 217.428, Dec: -62.679, ApSize: 6, ADUs: 12345.5,
		Name: "Proxima", DispName: "Proxima Cen", IsTarget: true, ObjName: "Proxima"})
	rs.Add(Result{Pixel: px(40, 20), RA: 217.41, Dec: -62.69, ApSize: 5, ADUs: 800.25, Name: "Prox-c2", ObjName: "Prox-c2"})
	rs.Add(Result{RA: 217.5, Dec: -62.7, ApSize: 6, ADUs: 10, Name: "unplaced"})
	rs.Relabel()

	require.NoError(t, rs.Save(path, false))
	got, err := LoadResultSet(path)
	require.NoError(t, err)

	assert.True(t, rs.ObsDate.Equal(got.ObsDate))
	assert.Equal(t, rs.Filter, got.Filter)
	assert.Equal(t, rs.ApSq(), got.ApSq())
	assert.Equal(t, rs.Results, got.Results)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "obs.findres")
	rs := NewResultSet(time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC), remfits.FilterG, 6)
	require.NoError(t, rs.Save(path, false))

	err := rs.Save(path, false)
	assert.True(t, errors.Is(err, photerr.ErrExists), "got %v", err)
	require.NoError(t, rs.Save(path, true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are renamed away")
}

func TestFlagAttribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.findres")
	rs := NewResultSet(time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC), remfits.FilterG, 6)
	rs.Add(Result{Pixel: px(1, 2), Name: "t", IsTarget: true})
	rs.Add(Result{Pixel: px(3, 4), Name: "c"})
	rs.Relabel()
	require.NoError(t, rs.Save(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<result target="y" label="A">`)
	assert.Contains(t, string(data), `<result label="B">`)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadResultSet(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, photerr.ErrSerialisation))

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("<Findres><obsdate>yesterday</obsdate></Findres>"), 0o644))
	_, err = LoadResultSet(bad)
	assert.True(t, errors.Is(err, photerr.ErrSerialisation))
}

func TestOtherDocuments(t *testing.T) {
	dir := t.TempDir()
	obs := time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC)

	loc := Objloc{ObsDate: obs, Filter: "i", Objects: []ObjLoc{
		{Target: true, RA: 1, Dec: 2, Col: 3, Row: 4, Name: "T"},
		{Unusable: true, RA: 5, Dec: 6, Col: 7, Row: 8, Name: "U", DispName: "u"},
	}}
	require.NoError(t, SaveXML(filepath.Join(dir, "o.objloc"), &loc, false))
	var gotLoc Objloc
	require.NoError(t, LoadXML(filepath.Join(dir, "o.objloc"), &gotLoc))
	assert.Equal(t, loc.Objects, gotLoc.Objects)

	ap := APopt{ObsDate: obs, ObsInd: 42, Filter: "z", Cutoff: 12.5,
		Apertures: []APEntry{{ApSize: 7, ObjInd: 0, ObjName: "T"}}}
	require.NoError(t, SaveXML(filepath.Join(dir, "o.apopt"), &ap, false))
	var gotAP APopt
	require.NoError(t, LoadXML(filepath.Join(dir, "o.apopt"), &gotAP))
	assert.Equal(t, ap.Apertures, gotAP.Apertures)
	assert.Equal(t, uint(42), gotAP.ObsInd)

	var wrong Findres
	assert.Error(t, LoadXML(filepath.Join(dir, "o.apopt"), &wrong))
}
