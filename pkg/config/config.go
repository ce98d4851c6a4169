// Package config loads CLI configuration for reqtrace from JSON or YAML
// files. Malformed or partial values never fail a run: anything the file
// does not pin down falls back to the defaults, field by field.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/reqtrace/pkg/sink"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// File is the on-disk configuration shape.
type File struct {
	// LogLevel is the minimum structured-log level (debug, info, warn, error).
	LogLevel string `json:"logLevel" yaml:"logLevel"`

	// LogFormat is the structured-log output format (text, json).
	LogFormat string `json:"logFormat" yaml:"logFormat"`

	// Emit lists enabled emission modes (passthrough, full, summary).
	Emit []string `json:"emit" yaml:"emit"`

	// DevtoolsListen is the address the debug-channel endpoint binds to.
	// Empty disables the endpoint.
	DevtoolsListen string `json:"devtoolsListen" yaml:"devtoolsListen"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		LogLevel:  "info",
		LogFormat: "text",
		Emit:      []string{string(sink.ModeSummaryLog)},
	}
}

// Load reads a File from a JSON or YAML file. The format is auto-detected
// from the extension (.yaml/.yml for YAML, otherwise JSON). Fields the file
// omits keep their defaults.
func Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML syntax: %w", err)
		}
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON syntax: %w", err)
	}
	return cfg, nil
}

// Modes parses the configured emission modes. Unknown names are skipped and
// reported; an empty result falls back to the default summary mode.
func (f *File) Modes() (modes []sink.Mode, unknown []string) {
	for _, name := range f.Emit {
		m, ok := sink.ParseMode(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		modes = append(modes, m)
	}
	if len(modes) == 0 {
		modes = []sink.Mode{sink.ModeSummaryLog}
	}
	return modes, unknown
}
