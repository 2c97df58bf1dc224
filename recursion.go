// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// contentHash is a fixed-size digest over an entry's fully-read bytes.
// It is used only as an equality key for cycle detection; identical
// content in unrelated branches still produces distinct output files.
type contentHash [sha256.Size]byte

func (h contentHash) String() string {
	return hex.EncodeToString(h[:])
}

// recursionContext is the per-run state of the recursion controller
// and the cycle guard. It is exclusively owned by the single driving
// goroutine and is never shared, so no locking applies.
//
// The seen set holds the content hashes of the archives on the active
// ancestor chain only. It is pushed on descent and popped on return,
// so byte-identical siblings and cousins never collide.
type recursionContext struct {
	cfg *Config

	depth   int
	entries int64
	bytes   int64

	seen map[contentHash]struct{}
}

func newRecursionContext(cfg *Config) *recursionContext {
	return &recursionContext{
		cfg:  cfg,
		seen: map[contentHash]struct{}{},
	}
}

// enter checks the depth ceiling and the cycle guard for a descent
// into a nested archive with the given content hash. On success the
// hash is recorded on the active path and the depth is increased; the
// caller must pair it with leave on every return path.
func (rc *recursionContext) enter(h contentHash) error {
	if max := rc.cfg.MaxNestingDepth(); max >= 0 && rc.depth+1 > max {
		return &LimitError{Limit: "depth", Value: int64(rc.depth + 1), Max: int64(max)}
	}
	if _, found := rc.seen[h]; found {
		return &CycleDetectedError{Hash: h.String()}
	}
	rc.seen[h] = struct{}{}
	rc.depth++
	return nil
}

// leave restores the state recorded by the matching enter.
func (rc *recursionContext) leave(h contentHash) {
	delete(rc.seen, h)
	rc.depth--
}

// countEntry accounts one walked entry against the cumulative entry
// ceiling.
func (rc *recursionContext) countEntry() error {
	rc.entries++
	if max := rc.cfg.MaxEntries(); max >= 0 && rc.entries > max {
		return &LimitError{Limit: "entries", Value: rc.entries, Max: max}
	}
	return nil
}

// countBytes accounts n decoded bytes against the cumulative byte
// ceiling.
func (rc *recursionContext) countBytes(n int64) error {
	rc.bytes += n
	if max := rc.cfg.MaxTotalBytes(); max >= 0 && rc.bytes > max {
		return &LimitError{Limit: "bytes", Value: rc.bytes, Max: max}
	}
	return nil
}

// meteredReader accounts every decoded byte that passes through it
// against the recursion context's byte ceiling. Exceeding the ceiling
// surfaces as a read error, which ends the walk of the offending
// container.
type meteredReader struct {
	r  io.Reader
	rc *recursionContext
}

func (m *meteredReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		if lerr := m.rc.countBytes(int64(n)); lerr != nil {
			return n, lerr
		}
	}
	return n, err
}
