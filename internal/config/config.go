// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads options of the feedkit command from environment
// variables, .env and YAML files.
package config // import "github.com/dsh2dsh/feedkit/internal/config"

// Opts holds parsed configuration options.
var Opts *Options

// Load loads configuration values from a local file (if filename isn't empty)
// and from environment variables after that.
func Load(filename string) (err error) {
	cfg := NewParser()
	if filename != "" {
		Opts, err = cfg.ParseEnvFile(filename)
		return
	}
	Opts, err = cfg.ParseEnvironmentVariables()
	return
}

// LoadYAML loads configuration values from YAML file yamlFile, if it isn't
// empty, and after that from envFile like [Load] does.
func LoadYAML(yamlFile, envFile string) error {
	cfg := NewParser()
	if yamlFile != "" {
		if err := cfg.ParseYAML(yamlFile); err != nil {
			return err
		}
	}

	opts, err := cfg.ParseEnvOrFile(envFile)
	if err != nil {
		return err
	}
	Opts = opts
	return nil
}
