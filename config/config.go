package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

/*
Process configuration, loaded from an ini file:

	[storage]
	data_dir         = data
	buffer_frames    = 1024
	leaf_capacity    = 0   ; 0 = derive from page size
	nonleaf_capacity = 0

	[log]
	level = info

A missing file yields the defaults; a malformed file is an error.
*/

type Cfg struct {
	Raw *ini.File

	DataDir      string
	RelationsDir string
	IndexesDir   string

	BufferFrames    int
	LeafCapacity    int
	NonLeafCapacity int

	LogLevel string
}

func defaults() *Cfg {
	return &Cfg{
		DataDir:      "data",
		BufferFrames: 1024,
		LogLevel:     "info",
	}
}

// Load reads cfg from path, falling back to defaults when the file does
// not exist.
func Load(path string) (*Cfg, error) {
	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			raw, err := ini.Load(path)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse config %s", path)
			}
			cfg.Raw = raw

			storage := raw.Section("storage")
			cfg.DataDir = storage.Key("data_dir").MustString(cfg.DataDir)
			cfg.BufferFrames = storage.Key("buffer_frames").MustInt(cfg.BufferFrames)
			cfg.LeafCapacity = storage.Key("leaf_capacity").MustInt(0)
			cfg.NonLeafCapacity = storage.Key("nonleaf_capacity").MustInt(0)

			cfg.LogLevel = raw.Section("log").Key("level").MustString(cfg.LogLevel)
		}
	}

	if cfg.BufferFrames <= 0 {
		return nil, errors.Errorf("buffer_frames must be positive, got %d", cfg.BufferFrames)
	}

	cfg.RelationsDir = filepath.Join(cfg.DataDir, "relations")
	cfg.IndexesDir = filepath.Join(cfg.DataDir, "indexes")
	return cfg, nil
}
