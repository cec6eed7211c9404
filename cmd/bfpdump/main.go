// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// bfpdump parses a binary file against a schema file and prints the decoded
// record.
//
//     bfpdump --schema scenario.yaml [--version 1.2] [--format json|yaml|cbor]
//             [--strict] [--config bfpdump.toml] [--log-level info] FILE
//
// Settings are taken from the defaults, then the TOML config file, then the
// command line
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"

	"go.e43.eu/bfp"
	"go.e43.eu/bfp/internal/codec"
	"go.e43.eu/bfp/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "bfpdump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var (
		flags      options
		configPath string
	)

	fs := pflag.NewFlagSet("bfpdump", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.Schema, "schema", "", "schema file (.yaml, .json or .jsonc)")
	fs.StringVar(&flags.Format, "format", "json", "output format: json, yaml or cbor")
	fs.StringVar(&flags.Version, "version", "", "requested version, e.g. 1.47")
	fs.BoolVar(&flags.Strict, "strict", false, "fail if bytes remain after the record")
	fs.StringVar(&configPath, "config", "", "TOML config file")
	fs.StringVar(&flags.LogLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	opts := defaultOptions()
	if configPath != "" {
		if err := loadConfig(configPath, &opts); err != nil {
			return err
		}
	}
	applyFlags(fs, flags, &opts)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one input file, got %d", fs.NArg())
	}
	if opts.Schema == "" {
		return fmt.Errorf("no schema given (use --schema or the config file)")
	}

	logger, err := logging.New("bfpdump", opts.LogLevel, stderr)
	if err != nil {
		return err
	}

	format, err := codec.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	var ver bfp.Version
	if opts.Version != "" {
		if ver, err = bfp.ParseVersion(opts.Version); err != nil {
			return err
		}
	}

	schema, err := bfp.LoadSchema(opts.Schema)
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sum := blake3.Sum256(data)
	logger.Info().
		Str("file", path).
		Int("size", len(data)).
		Hex("blake3", sum[:]).
		Msg("read input")

	rec, err := bfp.Parse(schema.Root, data, bfp.ParseOptions{
		Version: ver,
		Strict:  opts.Strict,
		Logger:  &logger,
	})
	if err != nil {
		return err
	}
	logger.Info().
		Str("struct", schema.Root.Name()).
		Stringer("version", rec.Version()).
		Msg("parsed record")

	return codec.Write(stdout, format, rec)
}
