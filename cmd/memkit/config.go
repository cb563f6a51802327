package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Config describes one arena/pool experiment run. Defaults are sized off
// the platform page size (see pagesize_*.go) unless overridden by a YAML
// profile file or environment variables.
type Config struct {
	ArenaSize     int `yaml:"arena_size"`
	ArenaMaxNodes int `yaml:"arena_max_nodes"`

	PoolSize     int `yaml:"pool_size"`
	PoolBlock    int `yaml:"pool_block"`
	PoolMaxNodes int `yaml:"pool_max_nodes"`
}

func defaultConfig() Config {
	page := pageSize()

	return Config{
		ArenaSize:     page,
		ArenaMaxNodes: 8,
		PoolSize:      page * 4,
		PoolBlock:     64,
		PoolMaxNodes:  8,
	}
}

// loadConfig starts from defaultConfig, overlays a YAML profile if path is
// non-empty, then applies MEMKIT_* environment overrides.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "opening config %q", path)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config %q", path)
		}
	}

	cfg.ArenaSize = env.IntOr("MEMKIT_ARENA_SIZE", cfg.ArenaSize)
	cfg.ArenaMaxNodes = env.IntOr("MEMKIT_ARENA_MAX_NODES", cfg.ArenaMaxNodes)
	cfg.PoolSize = env.IntOr("MEMKIT_POOL_SIZE", cfg.PoolSize)
	cfg.PoolBlock = env.IntOr("MEMKIT_POOL_BLOCK", cfg.PoolBlock)
	cfg.PoolMaxNodes = env.IntOr("MEMKIT_POOL_MAX_NODES", cfg.PoolMaxNodes)

	return cfg, nil
}
