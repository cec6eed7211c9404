// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

type options struct {
	Schema   string
	Format   string
	Version  string
	Strict   bool
	LogLevel string
}

func defaultOptions() options {
	return options{
		Format:   "json",
		LogLevel: "warn",
	}
}

type fileConfig struct {
	Schema   string `toml:"schema"`
	Format   string `toml:"format"`
	Version  string `toml:"version"`
	Strict   bool   `toml:"strict"`
	LogLevel string `toml:"log_level"`
}

// loadConfig overlays the keys present in the TOML file at path onto opts
func loadConfig(path string, opts *options) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load bfpdump config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load bfpdump config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("schema") {
		opts.Schema = strings.TrimSpace(raw.Schema)
	}
	if meta.IsDefined("format") {
		opts.Format = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("version") {
		opts.Version = strings.TrimSpace(raw.Version)
	}
	if meta.IsDefined("strict") {
		opts.Strict = raw.Strict
	}
	if meta.IsDefined("log_level") {
		opts.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return nil
}

// applyFlags overlays the flags given on the command line onto opts
func applyFlags(fs *pflag.FlagSet, flags options, opts *options) {
	if fs.Changed("schema") {
		opts.Schema = flags.Schema
	}
	if fs.Changed("format") {
		opts.Format = flags.Format
	}
	if fs.Changed("version") {
		opts.Version = flags.Version
	}
	if fs.Changed("strict") {
		opts.Strict = flags.Strict
	}
	if fs.Changed("log-level") {
		opts.LogLevel = flags.LogLevel
	}
}
