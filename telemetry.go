// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"context"
	"encoding/json"
	"time"
)

// now is a function pointer that returns time.Now to the caller.
var now = time.Now

// TelemetryData is a struct type that holds all telemetry data of a
// dissection run
type TelemetryData struct {
	// BytesExtracted is the total size of the extracted files
	BytesExtracted int64

	// DissectionDuration is the time the run took
	DissectionDuration time.Duration

	// DissectionErrors is the number of errors during the run
	DissectionErrors int64

	// ExtractedDirs is the number of extracted directories
	ExtractedDirs int64

	// ExtractedFiles is the number of extracted files
	ExtractedFiles int64

	// ExtractedSymlinks is the number of extracted symlinks
	ExtractedSymlinks int64

	// InputSize is the number of raw input bytes consumed
	InputSize int64

	// LastError is the last error during the run
	LastError error

	// NestedArchives is the number of nested archives descended into
	NestedArchives int64

	// PatternMismatches is the number of entries skipped by pattern
	PatternMismatches int64

	// RootFormat is the detected format of the outer archive
	RootFormat string

	// SecurityViolations is the number of recorded security violations
	SecurityViolations int64

	// SkippedEntries is the number of skipped unsupported entries
	SkippedEntries int64
}

// String returns a string representation of [TelemetryData].
func (td TelemetryData) String() string {
	b, _ := json.Marshal(td)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (td TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if td.LastError != nil {
		lastError = td.LastError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastError string `json:"LastError"`
		*Alias
	}{
		LastError: lastError,
		Alias:     (*Alias)(&td),
	})
}

// TelemetryHook is a function type that performs operations on
// [TelemetryData] after a run has finished, which can be used to
// submit the data to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)

// noopTelemetryHook is a no operation telemetry hook
func noopTelemetryHook(ctx context.Context, td *TelemetryData) {
	// noop
}

// captureDissectionDuration captures the duration of the run
func captureDissectionDuration(td *TelemetryData, start time.Time) {
	td.DissectionDuration = now().Sub(start)
}
