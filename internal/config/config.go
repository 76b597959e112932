package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	defaultWarmup = 1000
	defaultSeed   = 42
)

// Config represents the complete application configuration
type Config struct {
	Data    DataConfig    `yaml:"data" envconfig:"DATA"`
	Model   ModelConfig   `yaml:"model" envconfig:"MODEL"`
	Sampler SamplerConfig `yaml:"sampler" envconfig:"SAMPLER"`
	Output  OutputConfig  `yaml:"output" envconfig:"OUTPUT"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// DataConfig describes the input price table and how to slice it.
// CSVPath and the two symbols usually arrive as command-line flags, so
// their presence is only enforced by Validate, not at Load time.
type DataConfig struct {
	CSVPath string `yaml:"csv_path" envconfig:"CSV_PATH"`
	XSymbol string `yaml:"x_symbol" envconfig:"X_SYMBOL"`
	YSymbol string `yaml:"y_symbol" envconfig:"Y_SYMBOL"`
	Format  string `yaml:"format" envconfig:"FORMAT" validate:"oneof=auto wide long"`
	Stride  int    `yaml:"stride" envconfig:"STRIDE" validate:"min=1"`
	From    string `yaml:"from" envconfig:"FROM"`
	To      string `yaml:"to" envconfig:"TO"`
}

// ModelConfig contains the prior hyperparameters of the time-varying
// regression and the reporting credible level
type ModelConfig struct {
	InitVar       float64 `yaml:"init_var" envconfig:"INIT_VAR" validate:"gt=0"`
	WalkShape     float64 `yaml:"walk_shape" envconfig:"WALK_SHAPE" validate:"gt=1"`
	WalkScale     float64 `yaml:"walk_scale" envconfig:"WALK_SCALE" validate:"gt=0"`
	NoiseShape    float64 `yaml:"noise_shape" envconfig:"NOISE_SHAPE" validate:"gt=1"`
	NoiseScale    float64 `yaml:"noise_scale" envconfig:"NOISE_SCALE" validate:"gt=0"`
	CredibleLevel float64 `yaml:"credible_level" envconfig:"CREDIBLE_LEVEL" validate:"gt=0,lt=1"`
}

// SamplerConfig contains MCMC run parameters. Warmup and Seed are
// pointers because 0 is a meaningful setting for both; nil means unset,
// so an explicit zero from a file or the environment survives the merge
type SamplerConfig struct {
	Chains int     `yaml:"chains" envconfig:"CHAINS" validate:"min=1"`
	Draws  int     `yaml:"draws" envconfig:"DRAWS" validate:"min=1"`
	Warmup *int    `yaml:"warmup" envconfig:"WARMUP" validate:"omitempty,min=0"`
	Thin   int     `yaml:"thin" envconfig:"THIN" validate:"min=1"`
	Seed   *uint64 `yaml:"seed" envconfig:"SEED"`
	Cores  int     `yaml:"cores" envconfig:"CORES" validate:"min=0"`
}

// WarmupIters returns the warmup iteration count, defaulting when unset
func (s SamplerConfig) WarmupIters() int {
	if s.Warmup == nil {
		return defaultWarmup
	}
	return *s.Warmup
}

// SeedValue returns the random seed, defaulting when unset
func (s SamplerConfig) SeedValue() uint64 {
	if s.Seed == nil {
		return defaultSeed
	}
	return *s.Seed
}

// OutputConfig controls which artifacts a run writes and where. The two
// toggles are pointers so that an explicit false survives the merge; nil
// means unset and defaults to on
type OutputConfig struct {
	Dir            string `yaml:"dir" envconfig:"DIR" validate:"required"`
	WriteFigures   *bool  `yaml:"write_figures" envconfig:"WRITE_FIGURES"`
	WriteWorkbook  *bool  `yaml:"write_workbook" envconfig:"WRITE_WORKBOOK"`
	SpaghettiPaths int    `yaml:"spaghetti_paths" envconfig:"SPAGHETTI_PATHS" validate:"min=0"`
	FitLines       int    `yaml:"fit_lines" envconfig:"FIT_LINES" validate:"min=2"`
	RollingWindow  int    `yaml:"rolling_window" envconfig:"ROLLING_WINDOW" validate:"min=3"`
}

// FiguresEnabled reports whether the run writes PNG figures
func (o OutputConfig) FiguresEnabled() bool {
	return o.WriteFigures == nil || *o.WriteFigures
}

// WorkbookEnabled reports whether the run writes the XLSX workbook
func (o OutputConfig) WorkbookEnabled() bool {
	return o.WriteWorkbook == nil || *o.WriteWorkbook
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json console"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load loads configuration from environment variables and the first
// config file found in the discovery locations
func Load() (*Config, error) {
	return load(getConfigFilePath())
}

// LoadFromFile is Load with an explicit YAML file instead of discovery.
// The file must exist.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	return load(path)
}

func load(configFile string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("BETADRIFT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Fill remaining unset fields with defaults
	cfg = mergeConfigs(*Default(), cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges base config into overlay (overlay takes precedence,
// base fills fields the overlay left at their zero value)
func mergeConfigs(base, overlay Config) Config {
	// Data config
	if overlay.Data.CSVPath == "" {
		overlay.Data.CSVPath = base.Data.CSVPath
	}
	if overlay.Data.XSymbol == "" {
		overlay.Data.XSymbol = base.Data.XSymbol
	}
	if overlay.Data.YSymbol == "" {
		overlay.Data.YSymbol = base.Data.YSymbol
	}
	if overlay.Data.Format == "" {
		overlay.Data.Format = base.Data.Format
	}
	if overlay.Data.Stride == 0 {
		overlay.Data.Stride = base.Data.Stride
	}
	if overlay.Data.From == "" {
		overlay.Data.From = base.Data.From
	}
	if overlay.Data.To == "" {
		overlay.Data.To = base.Data.To
	}

	// Model config
	if overlay.Model.InitVar == 0 {
		overlay.Model.InitVar = base.Model.InitVar
	}
	if overlay.Model.WalkShape == 0 {
		overlay.Model.WalkShape = base.Model.WalkShape
	}
	if overlay.Model.WalkScale == 0 {
		overlay.Model.WalkScale = base.Model.WalkScale
	}
	if overlay.Model.NoiseShape == 0 {
		overlay.Model.NoiseShape = base.Model.NoiseShape
	}
	if overlay.Model.NoiseScale == 0 {
		overlay.Model.NoiseScale = base.Model.NoiseScale
	}
	if overlay.Model.CredibleLevel == 0 {
		overlay.Model.CredibleLevel = base.Model.CredibleLevel
	}

	// Sampler config
	if overlay.Sampler.Chains == 0 {
		overlay.Sampler.Chains = base.Sampler.Chains
	}
	if overlay.Sampler.Draws == 0 {
		overlay.Sampler.Draws = base.Sampler.Draws
	}
	if overlay.Sampler.Warmup == nil {
		overlay.Sampler.Warmup = base.Sampler.Warmup
	}
	if overlay.Sampler.Thin == 0 {
		overlay.Sampler.Thin = base.Sampler.Thin
	}
	if overlay.Sampler.Seed == nil {
		overlay.Sampler.Seed = base.Sampler.Seed
	}
	if overlay.Sampler.Cores == 0 {
		overlay.Sampler.Cores = base.Sampler.Cores
	}

	// Output config
	if overlay.Output.Dir == "" {
		overlay.Output.Dir = base.Output.Dir
	}
	if overlay.Output.WriteFigures == nil {
		overlay.Output.WriteFigures = base.Output.WriteFigures
	}
	if overlay.Output.WriteWorkbook == nil {
		overlay.Output.WriteWorkbook = base.Output.WriteWorkbook
	}
	if overlay.Output.SpaghettiPaths == 0 {
		overlay.Output.SpaghettiPaths = base.Output.SpaghettiPaths
	}
	if overlay.Output.FitLines == 0 {
		overlay.Output.FitLines = base.Output.FitLines
	}
	if overlay.Output.RollingWindow == 0 {
		overlay.Output.RollingWindow = base.Output.RollingWindow
	}

	// Logging config
	if overlay.Logging.Level == "" {
		overlay.Logging.Level = base.Logging.Level
	}
	if overlay.Logging.Format == "" {
		overlay.Logging.Format = base.Logging.Format
	}
	if overlay.Logging.Output == "" {
		overlay.Logging.Output = base.Logging.Output
	}
	if overlay.Logging.FilePath == "" {
		overlay.Logging.FilePath = base.Logging.FilePath
	}

	return overlay
}

// newValidator builds the struct validator with yaml tag names in messages
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate checks everything that can be known at load time; the data
// selection fields are deferred to Validate because flags fill them later
func (c *Config) validate() error {
	v := newValidator()
	if err := v.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, ve := range verrs {
			msgs = append(msgs, formatFieldError(ve))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}

	// Hand checks the tags cannot express
	from, err := c.Data.FromTime()
	if err != nil {
		return err
	}
	to, err := c.Data.ToTime()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("date range is inverted: from %s, to %s", c.Data.From, c.Data.To)
	}
	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/betadrift.log"
	}

	return nil
}

// Validate runs the full check, including the data selection fields the
// command-line flags supply. Call it after flag overrides are applied.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.Data.CSVPath == "" {
		return fmt.Errorf("csv_path is required")
	}
	if c.Data.XSymbol == "" {
		return fmt.Errorf("x_symbol is required")
	}
	if c.Data.YSymbol == "" {
		return fmt.Errorf("y_symbol is required")
	}
	if strings.EqualFold(c.Data.XSymbol, c.Data.YSymbol) {
		return fmt.Errorf("x_symbol and y_symbol must differ: %q", c.Data.XSymbol)
	}
	return nil
}

// formatFieldError formats a single validation error message
func formatFieldError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, err.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Replace(err.Param(), " ", ", ", -1))
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, err.Tag())
	}
}

// FromTime parses the configured start of the date range (zero when unset)
func (d *DataConfig) FromTime() (time.Time, error) {
	return parseDateBound(d.From, "from")
}

// ToTime parses the configured end of the date range (zero when unset)
func (d *DataConfig) ToTime() (time.Time, error) {
	return parseDateBound(d.To, "to")
}

func parseDateBound(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", field, s)
	}
	return t, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"betadrift.yaml",
		"configs/betadrift.yaml",
		"../configs/betadrift.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

func intPtr(v int) *int { return &v }

func uint64Ptr(v uint64) *uint64 { return &v }

func boolPtr(v bool) *bool { return &v }

// Default returns default configuration
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Format: "auto",
			Stride: 1,
		},
		Model: ModelConfig{
			InitVar:       1.0,
			WalkShape:     2.0,
			WalkScale:     5e-4,
			NoiseShape:    2.0,
			NoiseScale:    5e-3,
			CredibleLevel: 0.90,
		},
		Sampler: SamplerConfig{
			Chains: 4,
			Draws:  1000,
			Warmup: intPtr(defaultWarmup),
			Thin:   1,
			Seed:   uint64Ptr(defaultSeed),
		},
		Output: OutputConfig{
			Dir:            "output",
			WriteFigures:   boolPtr(true),
			WriteWorkbook:  boolPtr(true),
			SpaghettiPaths: 30,
			FitLines:       8,
			RollingWindow:  60,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/betadrift.log",
		},
	}
}
