// Package config loads run configuration for the delta.snow tools from
// defaults, a YAML file or SQLite profile database, and the environment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/chrissnell/deltasnow/internal/hsfilter"
	"github.com/chrissnell/deltasnow/pkg/deltasnow"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv
const EnvPrefix = "DELTASNOW_"

// Config is the complete run configuration
type Config struct {
	Model         ModelConfig  `yaml:"model" envPrefix:"MODEL_"`
	Gaps          GapConfig    `yaml:"gaps" envPrefix:"GAPS_"`
	Input         InputConfig  `yaml:"input" envPrefix:"INPUT_"`
	Output        OutputConfig `yaml:"output" envPrefix:"OUTPUT_"`
	Smoothing     SmoothConfig `yaml:"smoothing" envPrefix:"SMOOTHING_"`
	Workers       int          `yaml:"workers" env:"WORKERS"`
	DespikeKernel int          `yaml:"despike_kernel" env:"DESPIKE_KERNEL"`
}

// ModelConfig holds the delta.snow model constants and units
type ModelConfig struct {
	RhoMax  float64 `yaml:"rho_max" env:"RHO_MAX"`
	RhoNull float64 `yaml:"rho_null" env:"RHO_NULL"`
	COv     float64 `yaml:"c_ov" env:"C_OV"`
	KOv     float64 `yaml:"k_ov" env:"K_OV"`
	K       float64 `yaml:"k" env:"K"`
	Tau     float64 `yaml:"tau" env:"TAU"`
	EtaNull float64 `yaml:"eta_null" env:"ETA_NULL"`
	HSUnit  string  `yaml:"hs_unit" env:"HS_UNIT"`
	SWEUnit string  `yaml:"swe_unit" env:"SWE_UNIT"`
}

// GapConfig holds the missing value policy
type GapConfig struct {
	Interpolate        bool `yaml:"interpolate" env:"INTERPOLATE"`
	MaxLength          int  `yaml:"max_length" env:"MAX_LENGTH"`
	IgnoreZeroPadded   bool `yaml:"ignore_zero_padded" env:"IGNORE_ZERO_PADDED"`
	IgnoreTrailingZero bool `yaml:"ignore_trailing_zero" env:"IGNORE_TRAILING_ZERO"`
}

// InputConfig holds the column layout of HS input files
type InputConfig struct {
	DateColumn    string `yaml:"date_column" env:"DATE_COLUMN"`
	HSColumn      string `yaml:"hs_column" env:"HS_COLUMN"`
	StationColumn string `yaml:"station_column,omitempty" env:"STATION_COLUMN"`
	YearColumn    string `yaml:"year_column,omitempty" env:"YEAR_COLUMN"`
	Delimiter     string `yaml:"delimiter" env:"DELIMITER"`
}

// OutputConfig selects how results are written
type OutputConfig struct {
	Format string `yaml:"format" env:"FORMAT"`
}

// SmoothConfig holds the quantile smoothing filter for sub-daily series.
// Depths and rates are in the HS input unit.
type SmoothConfig struct {
	Enabled       bool    `yaml:"enabled" env:"ENABLED"`
	WindowMinutes int     `yaml:"window_minutes" env:"WINDOW_MINUTES"`
	Quantile      float64 `yaml:"quantile" env:"QUANTILE"`
	MaxUpRate     float64 `yaml:"max_up_rate" env:"MAX_UP_RATE"`
	MaxDownRate   float64 `yaml:"max_down_rate" env:"MAX_DOWN_RATE"`
}

// Defaults returns the configuration used when nothing else is given
func Defaults() *Config {
	p := deltasnow.DefaultParams()
	sp := hsfilter.DefaultSmoothingParams()
	return &Config{
		Model: ModelConfig{
			RhoMax:  p.RhoMax,
			RhoNull: p.RhoNull,
			COv:     p.COv,
			KOv:     p.KOv,
			K:       p.K,
			Tau:     p.Tau,
			EtaNull: p.EtaNull,
			HSUnit:  p.HSInputUnit.String(),
			SWEUnit: p.SWEOutputUnit.String(),
		},
		Gaps: GapConfig{
			Interpolate: p.InterpolateSmallGaps,
			MaxLength:   p.MaxGapLength,
		},
		Input: InputConfig{
			DateColumn: "date",
			HSColumn:   "hs",
			Delimiter:  ",",
		},
		Output: OutputConfig{
			Format: "csv",
		},
		Smoothing: SmoothConfig{
			WindowMinutes: int(sp.Window.Minutes()),
			Quantile:      sp.Quantile,
			MaxUpRate:     sp.MaxUpRate,
			MaxDownRate:   sp.MaxDownRate,
		},
		Workers: 4,
	}
}

// Params converts the model and gap sections into engine parameters.
// Ranges are checked by deltasnow.Params.Validate when the model is built.
func (c *Config) Params() (deltasnow.Params, error) {
	hsUnit, err := deltasnow.ParseUnit(c.Model.HSUnit)
	if err != nil {
		return deltasnow.Params{}, fmt.Errorf("model.hs_unit: %w", err)
	}
	sweUnit, err := deltasnow.ParseUnit(c.Model.SWEUnit)
	if err != nil {
		return deltasnow.Params{}, fmt.Errorf("model.swe_unit: %w", err)
	}

	return deltasnow.Params{
		RhoMax:                 c.Model.RhoMax,
		RhoNull:                c.Model.RhoNull,
		COv:                    c.Model.COv,
		KOv:                    c.Model.KOv,
		K:                      c.Model.K,
		Tau:                    c.Model.Tau,
		EtaNull:                c.Model.EtaNull,
		HSInputUnit:            hsUnit,
		SWEOutputUnit:          sweUnit,
		InterpolateSmallGaps:   c.Gaps.Interpolate,
		MaxGapLength:           c.Gaps.MaxLength,
		IgnoreZeroPaddedGaps:   c.Gaps.IgnoreZeroPadded,
		IgnoreTrailingZeroGaps: c.Gaps.IgnoreTrailingZero,
	}, nil
}

// SmoothingParams returns the smoothing filter settings, nil when disabled
func (c *Config) SmoothingParams() *hsfilter.SmoothingParams {
	if !c.Smoothing.Enabled {
		return nil
	}
	return &hsfilter.SmoothingParams{
		Window:      time.Duration(c.Smoothing.WindowMinutes) * time.Minute,
		Quantile:    c.Smoothing.Quantile,
		MaxUpRate:   c.Smoothing.MaxUpRate,
		MaxDownRate: c.Smoothing.MaxDownRate,
	}
}

// Validate checks the settings that are not model parameters
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.DespikeKernel < 0 || (c.DespikeKernel > 1 && c.DespikeKernel%2 == 0) {
		return fmt.Errorf("despike_kernel must be 0 or a positive odd number, got %d", c.DespikeKernel)
	}
	if len([]rune(c.Input.Delimiter)) != 1 {
		return fmt.Errorf("input.delimiter must be a single character, got %q", c.Input.Delimiter)
	}
	switch c.Output.Format {
	case "csv", "json", "msgpack":
	default:
		return fmt.Errorf("output.format must be one of csv, json, msgpack, got %q", c.Output.Format)
	}
	if sp := c.SmoothingParams(); sp != nil {
		if err := sp.Validate(); err != nil {
			return err
		}
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	return nil
}

// ApplyEnv overrides c with DELTASNOW_* environment variables. Variables
// that are not set leave the current values untouched.
func ApplyEnv(c *Config) error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// NewProvider picks the provider for filename: SQLite databases by their
// .db/.sqlite extension, YAML otherwise.
func NewProvider(filename, profile string) (ConfigProvider, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".db", ".sqlite", ".sqlite3":
		provider, err := NewSQLiteProvider(filename, profile)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return NewYAMLProvider(filename), nil
	}
}

// SaveProfile stores cfg as the named profile in the source at filename.
// Read-only sources such as YAML files are refused.
func SaveProfile(filename, name string, cfg *Config) error {
	provider, err := NewProvider(filename, name)
	if err != nil {
		return err
	}
	defer provider.Close()

	writer, ok := provider.(ProfileWriter)
	if provider.IsReadOnly() || !ok {
		return fmt.Errorf("configuration source %s is read-only", filename)
	}
	if err := writer.InitSchema(); err != nil {
		return err
	}
	return writer.SaveProfile(name, cfg)
}

// Load builds the configuration from defaults, the optional file and the
// environment, in that order of precedence.
func Load(filename, profile string) (*Config, error) {
	cfg := Defaults()

	if filename != "" {
		provider, err := NewProvider(filename, profile)
		if err != nil {
			return nil, err
		}
		defer provider.Close()

		cfg, err = provider.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("could not load configuration from %s: %w", filename, err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
