// Package config loads fishcount settings from FISHCOUNT_* environment
// variables. Command-line flags override the loaded values in main.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/fishcount/pipeline"
)

// Prefix is prepended to every environment variable name.
const Prefix = "FISHCOUNT_"

type Config struct {
	MaskDir       string  `env:"MASK_DIR"       envDefault:"saved_masks"`
	OutputDir     string  `env:"OUTPUT_DIR"     envDefault:"processed_videos"`
	ResultsFile   string  `env:"RESULTS_FILE"   envDefault:"results/results.csv"`
	MinArea       int     `env:"MIN_AREA"       envDefault:"500"`
	DiffThreshold float32 `env:"DIFF_THRESHOLD" envDefault:"30"`
	Codec         string  `env:"CODEC"          envDefault:"mp4v"`
	Extension     string  `env:"EXTENSION"      envDefault:"mp4"`
	LogLevel      string  `env:"LOG_LEVEL"      envDefault:"info"`
	MetricsAddr   string  `env:"METRICS_ADDR"`
	Show          bool    `env:"SHOW"           envDefault:"false"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errors.Wrap(err, "config: parse environment")
	}
	return cfg, nil
}

// Validate checks the settings shared by every command. Run-specific checks
// happen again in pipeline.Config.Validate.
func (c *Config) Validate() error {
	switch {
	case c.MaskDir == "":
		return errors.New("config: mask directory is empty")
	case c.OutputDir == "":
		return errors.New("config: output directory is empty")
	case c.ResultsFile == "":
		return errors.New("config: results file is empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config")
	}
	if err := c.Pipeline("placeholder", "").Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Pipeline builds the snapshot for one run over video with the named mask.
func (c *Config) Pipeline(video, maskName string) pipeline.Config {
	return pipeline.Config{
		VideoPath:     video,
		MaskName:      maskName,
		OutputDir:     c.OutputDir,
		MinArea:       c.MinArea,
		DiffThreshold: c.DiffThreshold,
		Codec:         c.Codec,
		Extension:     c.Extension,
	}
}
