// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"errors"
	"fmt"
)

// ErrNoRecognizedFormat is returned when the outer input is not a
// recognized container or compression format at all. This is the only
// condition that aborts a run; everything else degrades to a recorded
// manifest entry.
var ErrNoRecognizedFormat = errors.New("input is not a recognized archive format")

// ErrCancelled is returned when the run was stopped by context
// cancellation. The returned manifest carries a cancelled terminal node
// and must not be treated as complete.
var ErrCancelled = errors.New("dissection cancelled")

// UnsupportedCodecError reports a sniffed compression codec that has no
// registered decoder, or one that was disabled via the configuration.
type UnsupportedCodecError struct {
	Codec Kind
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("no decoder registered for codec %q", string(e.Codec))
}

// PathViolationError reports a declared entry path that failed
// confinement validation against the extraction root.
type PathViolationError struct {
	Path   string
	Reason string
}

func (e *PathViolationError) Error() string {
	return fmt.Sprintf("path violation for %q: %s", e.Path, e.Reason)
}

// CycleDetectedError reports a nested archive whose content hash is
// already present on the active recursion path.
type CycleDetectedError struct {
	Hash string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("archive cycle detected (content hash %s)", e.Hash)
}

// LimitError reports an exceeded resource ceiling. Limit is one of
// "depth", "entries" or "bytes".
type LimitError struct {
	Limit string
	Value int64
	Max   int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded (%d > %d)", e.Limit, e.Value, e.Max)
}

// CorruptEntryError reports a malformed entry header or a failed
// content read inside a container. The walker cannot resynchronize the
// stream past it, so the containing sequence ends with a truncation
// warning.
type CorruptEntryError struct {
	Format string
	Err    error
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("corrupt %s entry: %v", e.Format, e.Err)
}

func (e *CorruptEntryError) Unwrap() error {
	return e.Err
}
