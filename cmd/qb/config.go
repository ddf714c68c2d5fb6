package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const defaultConfigFile = "qb.yaml"

// config holds the connection settings, loaded from a YAML file and
// QB_-prefixed environment variables. Environment variables override the
// file.
type config struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

func loadConfig(path string) (config, error) {
	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// QB_DRIVER -> driver, QB_DSN -> dsn
	if err := k.Load(env.Provider("QB_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "QB_"))
	}), nil); err != nil {
		return config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg config
	if err := k.Unmarshal("", &cfg); err != nil {
		return config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Driver == "" {
		return config{}, fmt.Errorf("missing driver; set it in %s or QB_DRIVER", defaultConfigFile)
	}
	if cfg.DSN == "" {
		return config{}, fmt.Errorf("missing dsn; set it in %s or QB_DSN", defaultConfigFile)
	}
	return cfg, nil
}
