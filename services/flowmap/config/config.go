// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads user-provided analyzer overrides from the scanned
// project root.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the override file looked up in the project root.
const ConfigFileName = "flowmap.config.yaml"

// Config holds user-provided overrides for scanning and analysis.
//
// Description:
//
//	Loaded from <projectRoot>/flowmap.config.yaml. All fields are optional.
//	A missing config file is not an error (zero-config works out of the
//	box). Zero values mean "use the built-in default".
//
// Thread Safety: Safe for concurrent reads after construction.
type Config struct {
	// MaxEdges is the edge budget applied after aggregation.
	// 0 means unlimited.
	MaxEdges int `yaml:"max_edges"`

	// CouplingThreshold overrides the high-coupling threshold (default 5).
	CouplingThreshold int `yaml:"coupling_threshold"`

	// ExcludeSuffixes replaces the default file exclusion suffix list.
	// Example: [".d.ts", ".spec.ts", ".stories.ts"]
	ExcludeSuffixes []string `yaml:"exclude_suffixes"`

	// DispatchMethods replaces the method names recognized as bus dispatch
	// calls (default: publish, execute, dispatch). Matched exactly.
	DispatchMethods []string `yaml:"dispatch_methods"`
}

// Load reads flowmap.config.yaml from the project root.
//
// Description:
//
//	Reads and parses the config file. If the project root is empty or the
//	file does not exist, returns an empty config with no error. Only
//	returns an error if the file exists but cannot be parsed.
//
// Inputs:
//
//	projectRoot - Path to the project root. May be empty.
//
// Outputs:
//
//	Config - The parsed config, or empty config if the file is missing.
//	error - Non-nil only if the file exists but has invalid YAML.
//
// Thread Safety: Safe for concurrent use (stateless function).
func Load(projectRoot string) (Config, error) {
	if projectRoot == "" {
		return Config{}, nil
	}

	configPath := filepath.Join(projectRoot, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	return cfg, nil
}
