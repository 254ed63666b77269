package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jtomasevic/incscore/pkg/score"
)

// Config is the file form of the session options.
type Config struct {
	// ScoreType is "simple", "hard_soft", "hard_medium_soft" or "bendable:<hard>/<soft>".
	ScoreType         string `yaml:"score_type"`
	ConstraintMatches bool   `yaml:"constraint_matches"`
	Assert            bool   `yaml:"assert"`
	Metrics           bool   `yaml:"metrics"`
	LogLevel          string `yaml:"log_level"`
	// Weights overrides constraint weights by constraint id, in the textual
	// score form of ScoreType ("1hard/0soft"). A zero weight disables the
	// constraint.
	Weights map[string]string `yaml:"weights"`
}

func DefaultConfig() Config {
	return Config{
		ScoreType:         "hard_soft",
		ConstraintMatches: false,
		Assert:            false,
		Metrics:           false,
		LogLevel:          "info",
	}
}

// LoadConfig reads configuration with priority: env > file > defaults. A
// missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadConfigFromEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadConfigFromEnv(cfg *Config) error {
	if v := os.Getenv("INCSCORE_SCORE_TYPE"); v != "" {
		cfg.ScoreType = v
	}
	for name, dst := range map[string]*bool{
		"INCSCORE_CONSTRAINT_MATCHES": &cfg.ConstraintMatches,
		"INCSCORE_ASSERT":             &cfg.Assert,
		"INCSCORE_METRICS":            &cfg.Metrics,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}
	if v := os.Getenv("INCSCORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks that the score type, the log level and every weight parse.
func (c Config) Validate() error {
	def, err := c.Definition()
	if err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	_, err = c.ParsedWeights(def)
	return err
}

func (c Config) Definition() (score.Definition, error) {
	return score.ParseDefinition(c.ScoreType)
}

// Level maps log_level onto slog levels; empty means info.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// ParsedWeights parses the weight overrides against def.
func (c Config) ParsedWeights(def score.Definition) (map[string]score.Score, error) {
	if len(c.Weights) == 0 {
		return nil, nil
	}
	out := make(map[string]score.Score, len(c.Weights))
	for id, text := range c.Weights {
		s, err := def.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("weight of %q: %w", id, err)
		}
		out[id] = s
	}
	return out, nil
}
