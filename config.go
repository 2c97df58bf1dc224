// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"io"
	"io/fs"
	"log/slog"
	"runtime"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config is a struct type that holds all config options for a
// dissection run
type Config struct {
	// createDestination creates the extraction root if it does not exist
	createDestination bool

	// customCreateDirMode is the mode for implicitly created directories
	customCreateDirMode fs.FileMode

	// denySymlinkExtraction enables/disables the extraction of symlinks
	denySymlinkExtraction bool

	// disabledCodecs is a set of codec kinds that must not be decoded
	// even though a decoder is registered for them
	disabledCodecs map[Kind]struct{}

	// formatHint forces the format of the outer stream instead of
	// sniffing it, for formats without unique magic bytes
	formatHint Kind

	// logger stream for dissection
	logger logger

	// maxEntries is the maximum cumulative entry count across the
	// whole run. Set value to -1 to disable the check.
	maxEntries int64

	// maxInputSize is the maximum size of the raw input stream.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// maxNestingDepth is the maximum recursive descent into nested
	// archives. 0 refuses any descent. Set value to -1 to disable the
	// check.
	maxNestingDepth int

	// maxTotalBytes is the maximum cumulative decoded bytes across the
	// whole run. Set value to -1 to disable the check.
	maxTotalBytes int64

	// overwrite defines if existing files in the destination are
	// overwritten
	overwrite bool

	// patterns is a list of file patterns to match entries to extract
	patterns []string

	// queueCapacity is the capacity of the bounded extraction job
	// queue; the producing walk blocks when it is full
	queueCapacity int

	// spoolMemoryLimit is the per-entry byte count above which spooled
	// content is moved from memory to a temporary file
	spoolMemoryLimit int64

	// telemetryHook is a function pointer to consume telemetry data
	// after a finished dissection
	telemetryHook TelemetryHook

	// workerCount is the number of extraction workers performing disk
	// writes
	workerCount int
}

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style
func NewConfig(opts ...ConfigOption) *Config {
	const (
		createDestination     = false
		customCreateDirMode   = 0755
		denySymlinkExtraction = false
		maxEntries            = 100000
		maxInputSize          = 1 << (10 * 3) // 1 Gb
		maxNestingDepth       = 16
		maxTotalBytes         = 1 << (10 * 3) // 1 Gb
		overwrite             = false
		spoolMemoryLimit      = 1 << 22 // 4 Mb
	)

	// disable logging by default
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	// worker pool sized near the logical core count, capped
	workerCount := runtime.GOMAXPROCS(0)
	if workerCount > 8 {
		workerCount = 8
	}

	// setup default values
	config := &Config{
		createDestination:     createDestination,
		customCreateDirMode:   customCreateDirMode,
		denySymlinkExtraction: denySymlinkExtraction,
		disabledCodecs:        map[Kind]struct{}{},
		logger:                logger,
		maxEntries:            maxEntries,
		maxInputSize:          maxInputSize,
		maxNestingDepth:       maxNestingDepth,
		maxTotalBytes:         maxTotalBytes,
		overwrite:             overwrite,
		queueCapacity:         workerCount * 4,
		spoolMemoryLimit:      spoolMemoryLimit,
		workerCount:           workerCount,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithCreateDestination options pattern function to create the
// extraction root if it does not exist
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithCustomCreateDirMode options pattern function to set the mode for
// implicitly created directories
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithDenySymlinkExtraction options pattern function to deny symlink
// extraction
func WithDenySymlinkExtraction(deny bool) ConfigOption {
	return func(c *Config) {
		c.denySymlinkExtraction = deny
	}
}

// WithDisabledCodecs options pattern function to disable decoding of
// specific codecs even though a decoder is registered for them
func WithDisabledCodecs(kinds ...Kind) ConfigOption {
	return func(c *Config) {
		for _, k := range kinds {
			c.disabledCodecs[k] = struct{}{}
		}
	}
}

// WithFormatHint options pattern function to force the format of the
// outer stream instead of sniffing it
func WithFormatHint(kind Kind) ConfigOption {
	return func(c *Config) {
		c.formatHint = kind
	}
}

// WithLogger options pattern function to set a custom logger
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxEntries options pattern function to set the cumulative entry
// ceiling in the config (-1 to disable check)
func WithMaxEntries(maxEntries int64) ConfigOption {
	return func(c *Config) {
		c.maxEntries = maxEntries
	}
}

// WithMaxInputSize options pattern function to set the raw input size
// ceiling in the config (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithMaxNestingDepth options pattern function to set the recursion
// ceiling in the config (-1 to disable check)
func WithMaxNestingDepth(maxDepth int) ConfigOption {
	return func(c *Config) {
		c.maxNestingDepth = maxDepth
	}
}

// WithMaxTotalBytes options pattern function to set the cumulative
// decoded byte ceiling in the config (-1 to disable check)
func WithMaxTotalBytes(maxTotalBytes int64) ConfigOption {
	return func(c *Config) {
		c.maxTotalBytes = maxTotalBytes
	}
}

// WithOverwrite options pattern function to set overwrite in the config
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithPatterns options pattern function to set filepath patterns
func WithPatterns(pattern ...string) ConfigOption {
	return func(c *Config) {
		c.patterns = append(c.patterns, pattern...)
	}
}

// WithQueueCapacity options pattern function to set the capacity of
// the bounded extraction job queue
func WithQueueCapacity(capacity int) ConfigOption {
	return func(c *Config) {
		if capacity > 0 {
			c.queueCapacity = capacity
		}
	}
}

// WithSpoolMemoryLimit options pattern function to set the per-entry
// in-memory spool limit before content spills to a temporary file
func WithSpoolMemoryLimit(limit int64) ConfigOption {
	return func(c *Config) {
		if limit >= 0 {
			c.spoolMemoryLimit = limit
		}
	}
}

// WithTelemetryHook options pattern function to set a telemetry hook
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithWorkerCount options pattern function to set the number of
// extraction workers
func WithWorkerCount(count int) ConfigOption {
	return func(c *Config) {
		if count > 0 {
			c.workerCount = count
		}
	}
}

// CreateDestination returns true if the extraction root should be
// created if it does not exist
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// CustomCreateDirMode returns the mode for implicitly created
// directories
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// DenySymlinkExtraction returns true if symlinks are NOT allowed
func (c *Config) DenySymlinkExtraction() bool {
	return c.denySymlinkExtraction
}

// CodecDisabled returns true if decoding of the given codec kind is
// disabled
func (c *Config) CodecDisabled(kind Kind) bool {
	_, found := c.disabledCodecs[kind]
	return found
}

// FormatHint returns the forced format of the outer stream, or
// KindUnknown if the stream should be sniffed
func (c *Config) FormatHint() Kind {
	return c.formatHint
}

// Logger returns the logger
func (c *Config) Logger() logger {
	return c.logger
}

// MaxEntries returns the cumulative entry ceiling
func (c *Config) MaxEntries() int64 {
	return c.maxEntries
}

// MaxInputSize returns the raw input size ceiling
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// MaxNestingDepth returns the recursion ceiling
func (c *Config) MaxNestingDepth() int {
	return c.maxNestingDepth
}

// MaxTotalBytes returns the cumulative decoded byte ceiling
func (c *Config) MaxTotalBytes() int64 {
	return c.maxTotalBytes
}

// Overwrite returns true if existing files should be overwritten
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// Patterns returns a list of unix-filepath patterns to match entries
// to extract. Patterns are matched using [path/filepath.Match].
func (c *Config) Patterns() []string {
	return c.patterns
}

// QueueCapacity returns the capacity of the bounded extraction job
// queue
func (c *Config) QueueCapacity() int {
	return c.queueCapacity
}

// SpoolMemoryLimit returns the per-entry in-memory spool limit
func (c *Config) SpoolMemoryLimit() int64 {
	return c.spoolMemoryLimit
}

// TelemetryHook returns the telemetry hook
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return noopTelemetryHook
	}
	return c.telemetryHook
}

// WorkerCount returns the number of extraction workers
func (c *Config) WorkerCount() int {
	return c.workerCount
}
