// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hashicorp/go-dissect"
)

// CLI are the cli parameters for the go-dissect binary
type CLI struct {
	Archive           string           `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN)"`
	Destination       string           `arg:"" name:"destination" default:"." help:"Output directory."`
	CreateDestination bool             `short:"c" help:"Create destination directory if it does not exist."`
	DenySymlinks      bool             `short:"D" help:"Deny symlink extraction."`
	DisableCodecs     []string         `optional:"" help:"Codecs that must not be decoded (e.g. lzma)."`
	Format            string           `short:"f" optional:"" help:"Force the format of the outer archive instead of sniffing it."`
	Manifest          string           `short:"m" optional:"" help:"Write the JSON manifest to this file (\"-\" for STDOUT)."`
	MaxDepth          int              `optional:"" default:"16" help:"Maximum nesting depth for nested archives. (refuse descent: 0, disable check: -1)"`
	MaxEntries        int64            `optional:"" default:"100000" help:"Maximum entries across the whole run. (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum raw input size (in bytes). (disable check: -1)"`
	MaxTime           int64            `optional:"" default:"60" help:"Maximum time a run may take (in seconds). (disable check: -1)"`
	MaxTotalBytes     int64            `optional:"" default:"1073741824" help:"Maximum decoded bytes across the whole run. (disable check: -1)"`
	Overwrite         bool             `short:"O" help:"Overwrite existing files in the destination."`
	Pattern           []string         `short:"p" optional:"" help:"Only extract entries matching these patterns."`
	Queue             int              `optional:"" help:"Capacity of the extraction job queue."`
	Telemetry         bool             `short:"T" optional:"" default:"false" help:"Print telemetry data to log after the run."`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
	Workers           int              `short:"w" optional:"" help:"Number of extraction workers."`
}

// Run is the entrypoint into go-dissect as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A secure dissection utility for nested archives"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	telemetryToLog := func(ctx context.Context, td *dissect.TelemetryData) {
		if cli.Telemetry {
			logger.Info("dissection finished", "telemetry", td)
		}
	}

	disabled := make([]dissect.Kind, 0, len(cli.DisableCodecs))
	for _, c := range cli.DisableCodecs {
		disabled = append(disabled, dissect.Kind(c))
	}

	cfg := dissect.NewConfig(
		dissect.WithCreateDestination(cli.CreateDestination),
		dissect.WithDenySymlinkExtraction(cli.DenySymlinks),
		dissect.WithDisabledCodecs(disabled...),
		dissect.WithFormatHint(dissect.Kind(cli.Format)),
		dissect.WithLogger(logger),
		dissect.WithMaxEntries(cli.MaxEntries),
		dissect.WithMaxInputSize(cli.MaxInputSize),
		dissect.WithMaxNestingDepth(cli.MaxDepth),
		dissect.WithMaxTotalBytes(cli.MaxTotalBytes),
		dissect.WithOverwrite(cli.Overwrite),
		dissect.WithPatterns(cli.Pattern...),
		dissect.WithQueueCapacity(cli.Queue),
		dissect.WithTelemetryHook(telemetryToLog),
		dissect.WithWorkerCount(cli.Workers),
	)

	// open archive
	var archive io.Reader
	if cli.Archive == "-" {
		archive = bufio.NewReader(os.Stdin)
	} else {
		f, err := os.Open(cli.Archive)
		if err != nil {
			logger.Error("opening archive failed", "err", err)
			os.Exit(2)
		}
		defer f.Close()
		archive = f
	}

	ctx := context.Background()
	if cli.MaxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(cli.MaxTime))
		defer cancel()
	}

	manifest, err := dissect.Dissect(ctx, archive, cli.Destination, dissect.NewDisk(), cfg)
	if err != nil && !errors.Is(err, dissect.ErrCancelled) {
		logger.Error("dissection failed", "err", err)
		os.Exit(2)
	}

	if cli.Manifest != "" {
		if werr := writeManifest(manifest, cli.Manifest); werr != nil {
			logger.Error("writing manifest failed", "err", werr)
			os.Exit(2)
		}
	}

	// exit code 1 signals a completed run with recorded findings
	switch {
	case err != nil:
		logger.Error("dissection cancelled", "err", err)
		os.Exit(2)
	case manifest.Summary.WarningsTotal > 0 || manifest.Summary.ErrorsTotal > 0 || len(manifest.Violations) > 0:
		os.Exit(1)
	}
}

// writeManifest serializes the manifest to the given path, or to
// STDOUT for "-".
func writeManifest(m *dissect.Manifest, path string) error {
	if path == "-" {
		return m.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create manifest file: %w", err)
	}
	defer f.Close()
	return m.WriteJSON(f)
}
