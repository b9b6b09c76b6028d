package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the environment prefix for process defaults.
const EnvPrefix = "QDISPATCH"

// EnvConfig holds process defaults read from QDISPATCH_* variables.
// Command-line flags override every field.
type EnvConfig struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"warn"`
	MaxSimulators    int    `envconfig:"MAX_SIMULATORS" default:"0"`
	CoefficientsPath string `envconfig:"COEFFICIENTS_PATH"`
	Seed             string `envconfig:"SEED"` // empty means unseeded
}

// LoadEnvConfig reads envFile (when it exists) into the environment without
// overriding variables already set, then processes QDISPATCH_* variables.
func LoadEnvConfig(envFile string) (*EnvConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	var cfg EnvConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.SeedValue(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SeedValue returns the parsed seed, or nil when unset.
func (c *EnvConfig) SeedValue() (*int64, error) {
	if c.Seed == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(c.Seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s_SEED: %w", EnvPrefix, err)
	}
	return &v, nil
}

func readFile(path, what string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no %s file given", what)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return data, nil
}
