package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ancientfall/logistics-enrich/internal/bulk"
	"github.com/ancientfall/logistics-enrich/internal/enrich"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EnrichConfig tunes the enrichment engine.
type EnrichConfig struct {
	Workers            int     `yaml:"workers" mapstructure:"workers"`
	ChunkSize          int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	PercentTolerance   float64 `yaml:"percent_tolerance" mapstructure:"percent_tolerance"`
	VolumeTolerancePct float64 `yaml:"volume_tolerance_pct" mapstructure:"volume_tolerance_pct"`
	DedupWindowMinutes int     `yaml:"dedup_window_minutes" mapstructure:"dedup_window_minutes"`
	DefaultDensity     float64 `yaml:"default_density" mapstructure:"default_density"`
}

// Options converts the configuration into engine options.
func (c EnrichConfig) Options() enrich.Options {
	return enrich.Options{
		Workers:          c.Workers,
		ChunkSize:        c.ChunkSize,
		PercentTolerance: c.PercentTolerance,
		Bulk: bulk.Options{
			Window:             time.Duration(c.DedupWindowMinutes) * time.Minute,
			VolumeTolerancePct: c.VolumeTolerancePct,
			DefaultDensity:     c.DefaultDensity,
		},
	}
}

// ReferenceConfig locates the reference tables.
type ReferenceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus textfile output.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("enrich.workers", 0)
	v.SetDefault("enrich.chunk_size", enrich.DefaultChunkSize)
	v.SetDefault("enrich.percent_tolerance", 0.5)
	v.SetDefault("enrich.volume_tolerance_pct", bulk.DefaultVolumeTolerancePct)
	v.SetDefault("enrich.dedup_window_minutes", int(bulk.DefaultWindow/time.Minute))
	v.SetDefault("enrich.default_density", bulk.DefaultDensityKgPerM3)
	v.SetDefault("reference.path", "reference.yaml")
	v.SetDefault("metrics.textfile_path", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode
// ("enrich", "runs" or "reference").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "enrich":
		errs = append(errs, c.validateEnrich()...)
		errs = append(errs, c.validateStore()...)
		if c.Reference.Path == "" {
			errs = append(errs, "reference.path is required")
		}
	case "runs":
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver must not be none to list runs")
		}
	case "reference":
		if c.Reference.Path == "" {
			errs = append(errs, "reference.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateEnrich() []string {
	var errs []string
	e := c.Enrich
	if e.Workers < 0 || e.Workers > 256 {
		errs = append(errs, fmt.Sprintf("enrich.workers must be between 0 and 256, got %d", e.Workers))
	}
	if e.ChunkSize < 1 {
		errs = append(errs, "enrich.chunk_size must be >= 1")
	}
	if e.PercentTolerance < 0 || e.PercentTolerance > 100 {
		errs = append(errs, "enrich.percent_tolerance must be between 0 and 100")
	}
	if e.VolumeTolerancePct < 0 || e.VolumeTolerancePct > 100 {
		errs = append(errs, "enrich.volume_tolerance_pct must be between 0 and 100")
	}
	if e.DedupWindowMinutes < 1 {
		errs = append(errs, "enrich.dedup_window_minutes must be >= 1")
	}
	if e.DefaultDensity <= 0 {
		errs = append(errs, "enrich.default_density must be > 0")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "none":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver must be sqlite, postgres or none, got %q", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
