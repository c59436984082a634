package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Execution ExecutionConfig `yaml:"execution"`
	Output    OutputConfig    `yaml:"output"`
	Logs      LogsConfig      `yaml:"logs"`
}

type ExecutionConfig struct {
	// Parallelism is the maximum number of concurrently executing partitions, 0 means unbounded.
	Parallelism int `yaml:"parallelism"`
}

type OutputConfig struct {
	// Format is one of table, csv or json.
	Format string `yaml:"format"`
}

type LogsConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format: "table",
		},
		Logs: LogsConfig{
			Level: "info",
		},
	}
}

var OctoplanCacheDir = func() string {
	dir, err := homedir.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, ".octoplan")
}()

var DefaultPath = filepath.Join(OctoplanCacheDir, "config.yml")

// Read reads the configuration file at path. A missing file results in the default configuration.
func Read(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "couldn't read config file")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "couldn't decode yaml configuration")
	}

	if config.Execution.Parallelism < 0 {
		return nil, errors.Errorf("execution parallelism must be non-negative, is %d", config.Execution.Parallelism)
	}
	switch config.Output.Format {
	case "table", "csv", "json":
	default:
		return nil, errors.Errorf("unknown output format '%s', expected table, csv or json", config.Output.Format)
	}

	return config, nil
}
