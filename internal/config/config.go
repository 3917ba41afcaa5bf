// Package config loads and validates mktables configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/annotation-tables/internal/jobs"
	"github.com/JakeFAU/annotation-tables/internal/table"
)

// DefaultRefGenome is the reference genome used when none is configured.
const DefaultRefGenome = "GRCh38"

// Keys that may also be set from command-line flags.
const (
	KeyOutputDir        = "output_dir"
	KeyDefaultRefGenome = "default_ref_genome"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	// DataPath roots the default output directory (<data_path>/data/ht).
	DataPath         string                  `mapstructure:"data_path"`
	OutputDir        string                  `mapstructure:"output_dir"`
	DefaultRefGenome string                  `mapstructure:"default_ref_genome"`
	Sources          map[string]table.Source `mapstructure:"sources"`
	Logging          LoggingConfig           `mapstructure:"logging"`
	History          HistoryConfig           `mapstructure:"history"`
	Notify           NotifyConfig            `mapstructure:"notify"`
	Metrics          MetricsConfig           `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HistoryConfig enables the Postgres build history when DSN is set.
type HistoryConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// NotifyConfig enables Pub/Sub run notifications when Topic is set.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the Prometheus textfile export when Textfile is set.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from disk, environment and, when flags is non-nil,
// the output_dir and default_ref_genome command-line flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VATK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for _, key := range []string{KeyOutputDir, KeyDefaultRefGenome} {
			f := flags.Lookup(key)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", key, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = DefaultOutputDir(cfg.DataPath)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultOutputDir is where tables land when no output directory is configured.
func DefaultOutputDir(dataPath string) string {
	return filepath.Join(dataPath, "data", "ht")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_path", ".")
	v.SetDefault(KeyOutputDir, "")
	v.SetDefault(KeyDefaultRefGenome, DefaultRefGenome)
	v.SetDefault("logging.development", true)
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.table", "table_builds")
	v.SetDefault("history.max_conns", 2)
	v.SetDefault("history.max_conn_lifetime", "30m")
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("metrics.textfile", "")
	// Registering every source key lets VATK_SOURCES_<JOB>_PATH reach Unmarshal.
	for _, d := range jobs.Catalog {
		v.SetDefault("sources."+d.ID+".path", "")
		v.SetDefault("sources."+d.ID+".delimiter", "\t")
		v.SetDefault("sources."+d.ID+".comment", "")
	}
}

// Validate enforces required values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir must be set")
	}
	if strings.TrimSpace(c.DefaultRefGenome) == "" {
		return fmt.Errorf("default_ref_genome must be set")
	}
	known := make(map[string]struct{}, len(jobs.Catalog))
	for _, d := range jobs.Catalog {
		known[d.ID] = struct{}{}
	}
	for id := range c.Sources {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("sources.%s: %w", id, &jobs.UnknownJobError{ID: id})
		}
	}
	if c.Notify.Topic != "" && c.Notify.ProjectID == "" {
		return fmt.Errorf("notify.project_id must be set when notify.topic is set")
	}
	return nil
}
