package config

import (
	"encoding/xml"
	"fmt"

	"remphot/pkg/findres"
	"remphot/pkg/locate"
	"remphot/pkg/overlay"
	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

type searchPar struct {
	XMLName xml.Name `xml:"SEARCHPAR"`
	locate.Params
}

// SaveSearchParams writes p as a SEARCHPAR document.
func SaveSearchParams(path string, p *locate.Params, force bool) error {
	return findres.SaveXML(path, &searchPar{Params: *p}, force)
}

// LoadSearchParams reads a SEARCHPAR document. Elements missing from the
// file keep their default values.
func LoadSearchParams(path string) (*locate.Params, error) {
	doc := searchPar{Params: *locate.NewParams()}
	if err := findres.LoadXML(path, &doc); err != nil {
		return nil, err
	}
	return &doc.Params, nil
}

// Window is the CCD window format in pixels.
type Window struct {
	Width  int `xml:"width" mapstructure:"width" yaml:"width"`
	Height int `xml:"height" mapstructure:"height" yaml:"height"`
}

// Geometry holds the image trimming, window format and display palettes.
type Geometry struct {
	Trim     remfits.TrimSpec  `xml:"trim" mapstructure:"trim" yaml:"trim"`
	Window   Window            `xml:"window" mapstructure:"window" yaml:"window"`
	Palettes []overlay.Palette `xml:"palette" mapstructure:"palettes" yaml:"palettes"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		Window:   Window{Width: 1024, Height: 1024},
		Palettes: overlay.DefaultPalettes(),
	}
}

func (g *Geometry) Validate() error {
	if g.Window.Width <= 0 || g.Window.Height <= 0 {
		return fmt.Errorf("%w: window %dx%d", photerr.ErrGeometry, g.Window.Width, g.Window.Height)
	}
	if g.Trim.Left < 0 || g.Trim.Right < 0 || g.Trim.Top < 0 || g.Trim.Bottom < 0 {
		return fmt.Errorf("%w: negative trim", photerr.ErrGeometry)
	}
	if g.Trim.Left+g.Trim.Right >= g.Window.Width || g.Trim.Top+g.Trim.Bottom >= g.Window.Height {
		return fmt.Errorf("%w: trim removes the whole window", photerr.ErrGeometry)
	}
	seen := make(map[string]bool, len(g.Palettes))
	for _, p := range g.Palettes {
		if seen[p.Name] {
			return fmt.Errorf("%w: palette %q", photerr.ErrDuplicate, p.Name)
		}
		seen[p.Name] = true
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type remGeom struct {
	XMLName xml.Name `xml:"REMGEOM"`
	Geometry
}

// SaveGeometry writes g as a REMGEOM document.
func SaveGeometry(path string, g *Geometry, force bool) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return findres.SaveXML(path, &remGeom{Geometry: *g}, force)
}

// LoadGeometry reads and validates a REMGEOM document.
func LoadGeometry(path string) (*Geometry, error) {
	var doc remGeom
	if err := findres.LoadXML(path, &doc); err != nil {
		return nil, err
	}
	if err := doc.Geometry.Validate(); err != nil {
		return nil, err
	}
	return &doc.Geometry, nil
}
