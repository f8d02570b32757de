package locate

// Margins exclude a band of pixels along each edge from the blind search.
// Bottom is row 0.
type Margins struct {
	Left   int `xml:"left" mapstructure:"left" yaml:"left"`
	Right  int `xml:"right" mapstructure:"right" yaml:"right"`
	Top    int `xml:"top" mapstructure:"top" yaml:"top"`
	Bottom int `xml:"bottom" mapstructure:"bottom" yaml:"bottom"`
}

// Params is the search parameter record shared by the blind finder, the
// directed finder, the catalog pipeline and the aperture optimiser.
type Params struct {
	// Signif is the per-pixel significance threshold in units of sigma.
	Signif float64 `xml:"signif" mapstructure:"signif" yaml:"signif"`
	// TotSig is the significance of an aperture sum in units of sigma.
	TotSig float64 `xml:"totsig" mapstructure:"totsig" yaml:"totsig"`
	// MaxShift is the search radius for the target.
	MaxShift int `xml:"maxshift" mapstructure:"maxshift" yaml:"maxshift"`
	// MaxShift2 is the search radius for companions once the target
	// offset has been applied.
	MaxShift2 int `xml:"maxshift2" mapstructure:"maxshift2" yaml:"maxshift2"`
	// LookAround widens the sky box used to select catalog objects.
	LookAround int `xml:"lookaround" mapstructure:"lookaround" yaml:"lookaround"`
	// SinglePixN is the minimum number of above-threshold pixels inside an
	// aperture. Zero disables the check.
	SinglePixN int     `xml:"singlepixn" mapstructure:"singlepixn" yaml:"singlepixn"`
	DefApSize  int     `xml:"defapsize" mapstructure:"defapsize" yaml:"defapsize"`
	NSigmaAp   float64 `xml:"nsigmaap" mapstructure:"nsigmaap" yaml:"nsigmaap"`
	MinAp      int     `xml:"minap" mapstructure:"minap" yaml:"minap"`
	MaxAp      int     `xml:"maxap" mapstructure:"maxap" yaml:"maxap"`
	ApStep     int     `xml:"apstep" mapstructure:"apstep" yaml:"apstep"`

	// BrightestOnly caps the number of blind-find results; zero means no cap.
	BrightestOnly int     `xml:"brightest,omitempty" mapstructure:"brightest" yaml:"brightest"`
	Margins       Margins `xml:"margins" mapstructure:"margins" yaml:"margins"`
	// ThresholdArcsec is the match-to-catalog tolerance.
	ThresholdArcsec float64 `xml:"threshold" mapstructure:"threshold" yaml:"threshold"`
	// TargetNearest takes the target offset from the find result nearest
	// the target instead of from the brightest one.
	TargetNearest bool `xml:"targetnearest,omitempty" mapstructure:"targetnearest" yaml:"targetnearest"`
}

// NewParams creates a Params with default values.
func NewParams() *Params {
	return &Params{
		Signif:          10,
		TotSig:          5,
		MaxShift:        20,
		MaxShift2:       5,
		LookAround:      10,
		SinglePixN:      0,
		DefApSize:       6,
		NSigmaAp:        1,
		MinAp:           2,
		MaxAp:           15,
		ApStep:          1,
		ThresholdArcsec: 20,
	}
}

// ThresholdDeg is the match tolerance in degrees.
func (p *Params) ThresholdDeg() float64 {
	return p.ThresholdArcsec / 3600
}
