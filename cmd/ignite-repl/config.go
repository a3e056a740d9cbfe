package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/ignite-kv/ignite/pkg/filesys"
	"github.com/ignite-kv/ignite/pkg/options"
)

// config is the REPL's on-disk configuration, loaded from an optional
// HJSON file and overridable by flags. Field names match pkg/options so
// asOptions can map them directly onto functional options.
type config struct {
	DataDir          string `json:"dataDir,omitempty"`
	MaxLogLength     uint64 `json:"maxLogLength,omitempty"`
	MaxKeySize       uint64 `json:"maxKeySize,omitempty"`
	MaxValueSize     uint64 `json:"maxValueSize,omitempty"`
	MergeRatio       uint8  `json:"mergeRatio,omitempty"`
	MergeWindow      uint8  `json:"mergeWindow,omitempty"`
	LogBufwriterSize uint32 `json:"logBufwriterSize,omitempty"`
}

// loadConfig reads an HJSON config file at path, if it exists. A missing
// file is not an error; an empty config is returned instead.
func loadConfig(path string) (config, error) {
	if path == "" {
		return config{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config{}, nil
		}
		return config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return config{}, fmt.Errorf("invalid HJSON in %s: %w", path, err)
	}

	var cfg config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return config{}, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig atomically writes cfg to path as indented JSON, for the
// REPL's :save-config command.
func saveConfig(path string, cfg config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting config: %w", err)
	}
	return filesys.WriteFileAtomic(path, data)
}

// asOptions converts a loaded config into functional options layered
// over ignite's defaults. Zero fields are skipped, so no option is
// produced for them and ignite's defaults stay in place.
func (c config) asOptions() []options.OptionFunc {
	var opts []options.OptionFunc
	if c.DataDir != "" {
		opts = append(opts, options.WithDataDir(c.DataDir))
	}
	if c.MaxLogLength != 0 {
		opts = append(opts, options.WithMaxLogLength(c.MaxLogLength))
	}
	if c.MaxKeySize != 0 {
		opts = append(opts, options.WithMaxKeySize(c.MaxKeySize))
	}
	if c.MaxValueSize != 0 {
		opts = append(opts, options.WithMaxValueSize(c.MaxValueSize))
	}
	if c.MergeRatio != 0 {
		opts = append(opts, options.WithMergeRatio(c.MergeRatio))
	}
	if c.MergeWindow != 0 {
		opts = append(opts, options.WithMergeWindow(c.MergeWindow))
	}
	if c.LogBufwriterSize != 0 {
		opts = append(opts, options.WithLogBufwriterSize(c.LogBufwriterSize))
	}
	return opts
}
