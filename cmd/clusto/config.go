package main

import (
	"io"

	yaml "gopkg.in/yaml.v2"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	clustoURL FlagType = iota
	configPath

	debug
	logFormat
)

type Config struct {
	URL       string `yaml:"url"`
	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"logFormat"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, cfg)

	return cfg, err
}

// merge lets explicitly given flags override values from the config file.
func (cfg *Config) merge(flags FlagMap) {
	if flags[clustoURL] != "" {
		cfg.URL = flags[clustoURL]
	}

	if flags[debug] == "true" {
		cfg.Debug = true
	}

	if flags[logFormat] != "" {
		cfg.LogFormat = flags[logFormat]
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}
