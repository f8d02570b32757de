// Package config holds the settings of the finder: the viper-backed
// config.yaml in the configuration home and the SEARCHPAR and REMGEOM
// documents.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"remphot/pkg/locate"
	"remphot/pkg/overlay"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
	Search   locate.Params  `mapstructure:"search" yaml:"search"`
	Overlay  OverlayConfig  `mapstructure:"overlay" yaml:"overlay"`
	Geometry Geometry       `mapstructure:"geometry" yaml:"geometry"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type OverlayConfig struct {
	Width   int     `mapstructure:"width" yaml:"width"`
	Palette string  `mapstructure:"palette" yaml:"palette"`
	Low     float64 `mapstructure:"low" yaml:"low"`
	High    float64 `mapstructure:"high" yaml:"high"`
	Quality int     `mapstructure:"quality" yaml:"quality"`
}

const envPrefix = "REMPHOT"

// Home is the configuration directory: $REMPHOT_HOME when set, otherwise
// ~/.remphot.
func Home() (string, error) {
	if h := os.Getenv(envPrefix + "_HOME"); h != "" {
		return h, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(dir, ".remphot"), nil
}

// EnsureHome returns the configuration directory, creating it with mode
// 0700 if needed.
func EnsureHome() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", home, err)
	}
	return home, nil
}

func newViper(home string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, home)
	return v
}

// Load reads the YAML file at path on top of the defaults. Relative
// database and data paths default to files under home.
func Load(path, home string) (*Config, error) {
	v := newViper(home)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v)
}

// Default returns the configuration with no file read. Environment
// overrides still apply.
func Default(home string) (*Config, error) {
	return unmarshal(newViper(home))
}

// LoadHome creates the configuration home if needed and loads its
// config.yaml, falling back to the defaults when there is none.
func LoadHome() (*Config, string, error) {
	home, err := EnsureHome()
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := Default(home)
		return cfg, home, err
	}
	cfg, err := Load(path, home)
	return cfg, home, err
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("log.mode", "development")
	v.SetDefault("database.path", filepath.Join(home, "catalog.db"))
	v.SetDefault("data.dir", filepath.Join(home, "data"))

	p := locate.NewParams()
	v.SetDefault("search.signif", p.Signif)
	v.SetDefault("search.totsig", p.TotSig)
	v.SetDefault("search.maxshift", p.MaxShift)
	v.SetDefault("search.maxshift2", p.MaxShift2)
	v.SetDefault("search.lookaround", p.LookAround)
	v.SetDefault("search.singlepixn", p.SinglePixN)
	v.SetDefault("search.defapsize", p.DefApSize)
	v.SetDefault("search.nsigmaap", p.NSigmaAp)
	v.SetDefault("search.minap", p.MinAp)
	v.SetDefault("search.maxap", p.MaxAp)
	v.SetDefault("search.apstep", p.ApStep)
	v.SetDefault("search.brightest", p.BrightestOnly)
	v.SetDefault("search.margins.left", 0)
	v.SetDefault("search.margins.right", 0)
	v.SetDefault("search.margins.top", 0)
	v.SetDefault("search.margins.bottom", 0)
	v.SetDefault("search.threshold", p.ThresholdArcsec)
	v.SetDefault("search.targetnearest", false)

	o := overlay.DefaultOptions()
	v.SetDefault("overlay.width", o.Width)
	v.SetDefault("overlay.palette", o.Palette.Name)
	v.SetDefault("overlay.low", o.Low)
	v.SetDefault("overlay.high", o.High)
	v.SetDefault("overlay.quality", o.Quality)

	g := DefaultGeometry()
	v.SetDefault("geometry.trim.left", g.Trim.Left)
	v.SetDefault("geometry.trim.right", g.Trim.Right)
	v.SetDefault("geometry.trim.top", g.Trim.Top)
	v.SetDefault("geometry.trim.bottom", g.Trim.Bottom)
	v.SetDefault("geometry.trim.blanks", g.Trim.Blanks)
	v.SetDefault("geometry.window.width", g.Window.Width)
	v.SetDefault("geometry.window.height", g.Window.Height)
	v.SetDefault("geometry.palettes", g.Palettes)
}

// OverlayOptions resolves the configured palette name against the
// geometry palettes.
func (c *Config) OverlayOptions() (overlay.Options, error) {
	pal, ok := overlay.FindPalette(c.Geometry.Palettes, c.Overlay.Palette)
	if !ok {
		return overlay.Options{}, fmt.Errorf("unknown palette %q", c.Overlay.Palette)
	}
	return overlay.Options{
		Width:   c.Overlay.Width,
		Palette: pal,
		Low:     c.Overlay.Low,
		High:    c.Overlay.High,
		Quality: c.Overlay.Quality,
	}, nil
}

// Dump writes cfg as YAML.
func Dump(w io.Writer, cfg *Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = w.Write(out)
	return err
}
