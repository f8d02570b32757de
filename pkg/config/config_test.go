package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remphot/pkg/locate"
	"remphot/pkg/overlay"
	"remphot/pkg/photerr"
)

func TestDefault(t *testing.T) {
	home := t.TempDir()
	cfg, err := Default(home)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Log.Mode)
	assert.Equal(t, filepath.Join(home, "catalog.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(home, "data"), cfg.Data.Dir)
	assert.Equal(t, *locate.NewParams(), cfg.Search)
	assert.Equal(t, DefaultGeometry(), cfg.Geometry)

	opt, err := cfg.OverlayOptions()
	require.NoError(t, err)
	assert.Equal(t, overlay.DefaultOptions(), opt)
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	yml := `
log:
  mode: release
search:
  signif: 7.5
  maxshift: 30
  margins:
    left: 12
overlay:
  palette: heat
geometry:
  window:
    width: 512
    height: 512
  trim:
    left: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path, home)
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Log.Mode)
	assert.Equal(t, 7.5, cfg.Search.Signif)
	assert.Equal(t, 30, cfg.Search.MaxShift)
	assert.Equal(t, 12, cfg.Search.Margins.Left)
	// untouched keys keep their defaults
	assert.Equal(t, 5.0, cfg.Search.TotSig)
	assert.Equal(t, 20.0, cfg.Search.ThresholdArcsec)
	assert.Equal(t, Window{512, 512}, cfg.Geometry.Window)
	assert.Equal(t, 4, cfg.Geometry.Trim.Left)
	assert.Len(t, cfg.Geometry.Palettes, len(overlay.DefaultPalettes()))

	opt, err := cfg.OverlayOptions()
	require.NoError(t, err)
	assert.Equal(t, "heat", opt.Palette.Name)
}

func TestLoadErrors(t *testing.T) {
	home := t.TempDir()
	_, err := Load(filepath.Join(home, "missing.yaml"), home)
	assert.Error(t, err)

	path := filepath.Join(home, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("geometry:\n  window:\n    width: 0\n"), 0o600))
	_, err = Load(path, home)
	assert.ErrorIs(t, err, photerr.ErrGeometry)

	cfg, err := Default(home)
	require.NoError(t, err)
	cfg.Overlay.Palette = "rainbow"
	_, err = cfg.OverlayOptions()
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("REMPHOT_LOG_MODE", "release")
	cfg, err := Default(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Log.Mode)
}

func TestEnsureHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "remphot")
	t.Setenv("REMPHOT_HOME", home)

	got, err := EnsureHome()
	require.NoError(t, err)
	assert.Equal(t, home, got)
	st, err := os.Stat(home)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
	assert.Equal(t, os.FileMode(0o700), st.Mode().Perm())

	cfg, gotHome, err := LoadHome()
	require.NoError(t, err)
	assert.Equal(t, home, gotHome)
	assert.Equal(t, filepath.Join(home, "catalog.db"), cfg.Database.Path)
}

func TestDump(t *testing.T) {
	cfg, err := Default("/tmp/remphot")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, "signif: 10")
	assert.Contains(t, out, "path: /tmp/remphot/catalog.db")
	assert.Contains(t, out, "name: heat")
}

func TestSearchParamsDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.xml")

	p := locate.NewParams()
	p.Signif = 8
	p.MaxAp = 12
	p.Margins = locate.Margins{Left: 3, Bottom: 2}
	require.NoError(t, SaveSearchParams(path, p, false))
	assert.ErrorIs(t, SaveSearchParams(path, p, false), photerr.ErrExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<SEARCHPAR>")
	assert.Contains(t, string(data), "<signif>8</signif>")

	got, err := LoadSearchParams(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSearchParamsPartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.xml")
	doc := `<?xml version="1.0"?><SEARCHPAR><signif>6</signif><apstep>2</apstep></SEARCHPAR>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := LoadSearchParams(path)
	require.NoError(t, err)
	want := locate.NewParams()
	want.Signif = 6
	want.ApStep = 2
	assert.Equal(t, want, got)

	_, err = LoadSearchParams(filepath.Join(t.TempDir(), "none.xml"))
	assert.ErrorIs(t, err, photerr.ErrSerialisation)
}

func TestGeometryDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geom.xml")
	g := DefaultGeometry()
	g.Trim.Left, g.Trim.Top, g.Trim.Blanks = 2, 5, true
	g.Window = Window{Width: 512, Height: 256}

	require.NoError(t, SaveGeometry(path, &g, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<REMGEOM>")
	assert.Contains(t, string(data), `<trim blanks="true">`)

	got, err := LoadGeometry(path)
	require.NoError(t, err)
	assert.Equal(t, &g, got)
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(g *Geometry)
		want error
	}{
		{"default", func(g *Geometry) {}, nil},
		{"zero window", func(g *Geometry) { g.Window.Height = 0 }, photerr.ErrGeometry},
		{"negative trim", func(g *Geometry) { g.Trim.Right = -1 }, photerr.ErrGeometry},
		{"trim covers window", func(g *Geometry) { g.Trim.Left, g.Trim.Right = 600, 424 }, photerr.ErrGeometry},
		{"duplicate palette", func(g *Geometry) { g.Palettes = append(g.Palettes, g.Palettes[0]) }, photerr.ErrDuplicate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := DefaultGeometry()
			tc.edit(&g)
			err := g.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}

	bad := DefaultGeometry()
	bad.Palettes = []overlay.Palette{{Name: "short", Stops: []overlay.Stop{{Pos: 0, Colour: "#000000"}}}}
	assert.Error(t, bad.Validate())
	assert.Error(t, SaveGeometry(filepath.Join(t.TempDir(), "g.xml"), &bad, false))
}
