package overlay

import (
	"fmt"
	"image/color"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Stop is one colour of a palette at a position in [0,1].
type Stop struct {
	Pos    float64 `xml:"pos,attr" mapstructure:"pos" yaml:"pos"`
	Colour string  `xml:"colour,attr" mapstructure:"colour" yaml:"colour"`
}

// Palette maps normalised pixel values to colours by blending between
// stops.
type Palette struct {
	Name  string `xml:"name,attr" mapstructure:"name" yaml:"name"`
	Stops []Stop `xml:"stop" mapstructure:"stops" yaml:"stops"`
}

// DefaultPalettes returns the built-in palettes, grey first.
func DefaultPalettes() []Palette {
	return []Palette{
		{Name: "grey", Stops: []Stop{{0, "#000000"}, {1, "#ffffff"}}},
		{Name: "inverse", Stops: []Stop{{0, "#ffffff"}, {1, "#000000"}}},
		{Name: "heat", Stops: []Stop{{0, "#000000"}, {0.4, "#a01010"}, {0.8, "#ffc000"}, {1, "#ffffff"}}},
	}
}

// FindPalette returns the palette called name.
func FindPalette(palettes []Palette, name string) (Palette, bool) {
	for _, p := range palettes {
		if p.Name == name {
			return p, true
		}
	}
	return Palette{}, false
}

type stop struct {
	pos float64
	c   colorful.Color
}

func (p Palette) parse() ([]stop, error) {
	if len(p.Stops) < 2 {
		return nil, fmt.Errorf("palette %q needs at least two stops", p.Name)
	}
	out := make([]stop, len(p.Stops))
	for i, s := range p.Stops {
		if s.Pos < 0 || s.Pos > 1 {
			return nil, fmt.Errorf("palette %q: stop position %g outside [0,1]", p.Name, s.Pos)
		}
		c, err := colorful.Hex(s.Colour)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", p.Name, err)
		}
		out[i] = stop{pos: s.Pos, c: c}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out, nil
}

// Validate checks the stops parse.
func (p Palette) Validate() error {
	_, err := p.parse()
	return err
}

// LUT returns n colours sampled evenly from 0 to 1.
func (p Palette) LUT(n int) ([]color.RGBA, error) {
	stops, err := p.parse()
	if err != nil {
		return nil, err
	}
	lut := make([]color.RGBA, n)
	for i := range lut {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		r, g, b := blend(stops, t).Clamped().RGB255()
		lut[i] = color.RGBA{r, g, b, 255}
	}
	return lut, nil
}

func blend(stops []stop, t float64) colorful.Color {
	if t <= stops[0].pos {
		return stops[0].c
	}
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].pos {
			a, b := stops[i-1], stops[i]
			if b.pos == a.pos {
				return b.c
			}
			return a.c.BlendRgb(b.c, (t-a.pos)/(b.pos-a.pos))
		}
	}
	return stops[len(stops)-1].c
}
