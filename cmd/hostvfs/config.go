package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// runOptions are the settings of the run command. A YAML file supplies
// defaults, which flags set on the command line override.
type runOptions struct {
	Root         string `yaml:"root"`
	WritableRoot string `yaml:"writable_root"`
	Module       string `yaml:"module"`
	Name         string `yaml:"name"`
	MaxPathname  uint32 `yaml:"max_pathname"`
	Interp       bool   `yaml:"interp"`
	LogLevel     string `yaml:"log_level"`

	level logrus.Level
}

// loadConfig reads runOptions from a YAML file.
func loadConfig(path string) (*runOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var opts runOptions
	if err = yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &opts, nil
}

func loadRunOptions(c *cli.Context) (*runOptions, error) {
	opts := &runOptions{}
	if path := c.String("config"); path != "" {
		var err error
		if opts, err = loadConfig(path); err != nil {
			return nil, err
		}
	}

	if v := c.String("root"); c.IsSet("root") || opts.Root == "" {
		opts.Root = v
	}
	if v := c.String("writable-root"); c.IsSet("writable-root") || opts.WritableRoot == "" {
		opts.WritableRoot = v
	}
	if v := c.String("module"); c.IsSet("module") || opts.Module == "" {
		opts.Module = v
	}
	if v := c.String("name"); c.IsSet("name") || opts.Name == "" {
		opts.Name = v
	}
	if v := uint32(c.Uint("max-pathname")); c.IsSet("max-pathname") || opts.MaxPathname == 0 {
		opts.MaxPathname = v
	}
	if c.IsSet("interp") {
		opts.Interp = c.Bool("interp")
	}

	opts.level = logrus.InfoLevel
	if opts.LogLevel != "" {
		level, err := logrus.ParseLevel(opts.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level: %w", err)
		}
		opts.level = level
	}
	if c.Bool("debug") {
		opts.level = logrus.DebugLevel
	}
	return opts, nil
}
