// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"encoding/json"
	"fmt"
	"io"
)

// ManifestSchemaVersion identifies the manifest wire format. It is
// versioned independently of the extraction logic so downstream
// tooling can rely on a stable shape.
const ManifestSchemaVersion = "1"

// NodeKind is the kind of a manifest tree node.
type NodeKind string

const (
	NodeFile          NodeKind = "file"
	NodeDir           NodeKind = "dir"
	NodeSymlink       NodeKind = "symlink"
	NodeNestedArchive NodeKind = "nested-archive"
	NodeWarning       NodeKind = "warning"
	NodeError         NodeKind = "error"
	NodeCancelled     NodeKind = "cancelled"
)

// ViolationKind tags a recorded security violation.
type ViolationKind string

const (
	ViolationPathTraversal     ViolationKind = "path-traversal"
	ViolationLimitExceeded     ViolationKind = "limit-exceeded"
	ViolationCycleDetected     ViolationKind = "cycle-detected"
	ViolationUnsupportedFormat ViolationKind = "unsupported-format"
	ViolationCorruptEntry      ViolationKind = "corrupt-entry"
	ViolationCancelled         ViolationKind = "cancelled"
)

// SecurityViolation is a tagged record of a rejected or pruned entry.
// Violations are attached to the manifest instead of aborting the run
// and are immutable after creation.
type SecurityViolation struct {
	Kind   ViolationKind `json:"kind"`
	Path   string        `json:"path,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// ManifestNode is one node in the report tree. Nested-archive nodes
// carry the members found inside them as children.
type ManifestNode struct {
	Kind     NodeKind        `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Path     string          `json:"path,omitempty"`
	Size     int64           `json:"size,omitempty"`
	Link     string          `json:"link,omitempty"`
	Format   string          `json:"format,omitempty"`
	Detail   string          `json:"detail,omitempty"`
	Children []*ManifestNode `json:"children,omitempty"`
}

// ManifestSummary aggregates the run's totals.
type ManifestSummary struct {
	EntriesTotal  int64 `json:"entries_total"`
	BytesTotal    int64 `json:"bytes_total"`
	WarningsTotal int64 `json:"warnings_total"`
	ErrorsTotal   int64 `json:"errors_total"`
}

// Manifest is the structured report of one dissection run. It is the
// primary integration surface for downstream tooling.
type Manifest struct {
	SchemaVersion string              `json:"schema_version"`
	RootArchive   string              `json:"root_archive"`
	RootFormat    string              `json:"root_format,omitempty"`
	Summary       ManifestSummary     `json:"summary"`
	Tree          []*ManifestNode     `json:"tree"`
	Violations    []SecurityViolation `json:"violations"`
}

// WriteJSON serializes the manifest as indented JSON.
func (m *Manifest) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("cannot serialize manifest: %w", err)
	}
	return nil
}

// manifestBuilder accumulates the report tree. It is only touched by
// the driving goroutine; worker results are folded in by that same
// goroutine after it awaits their completion, so no locking applies.
type manifestBuilder struct {
	manifest *Manifest
	stack    []*ManifestNode
}

func newManifestBuilder(rootArchive string) *manifestBuilder {
	return &manifestBuilder{
		manifest: &Manifest{
			SchemaVersion: ManifestSchemaVersion,
			RootArchive:   rootArchive,
			Tree:          []*ManifestNode{},
			Violations:    []SecurityViolation{},
		},
	}
}

// record appends a node under the currently-active parent.
func (b *manifestBuilder) record(node *ManifestNode) {
	if len(b.stack) == 0 {
		b.manifest.Tree = append(b.manifest.Tree, node)
		return
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, node)
}

// openArchive records a nested-archive node and makes it the active
// parent for subsequently recorded nodes.
func (b *manifestBuilder) openArchive(node *ManifestNode) {
	b.record(node)
	b.stack = append(b.stack, node)
}

// closeArchive restores the previous parent.
func (b *manifestBuilder) closeArchive() {
	b.stack = b.stack[:len(b.stack)-1]
}

// violation appends a security violation record.
func (b *manifestBuilder) violation(v SecurityViolation) {
	b.manifest.Violations = append(b.manifest.Violations, v)
}

// finish computes the summary and returns the completed manifest.
// Totals are derived from the final tree, so nodes reclassified during
// worker-result folding are counted correctly.
func (b *manifestBuilder) finish(entriesTotal int64, bytesTotal int64) *Manifest {
	var warnings, errs int64
	var count func(nodes []*ManifestNode)
	count = func(nodes []*ManifestNode) {
		for _, n := range nodes {
			switch n.Kind {
			case NodeWarning, NodeCancelled:
				warnings++
			case NodeError:
				errs++
			}
			count(n.Children)
		}
	}
	count(b.manifest.Tree)

	b.manifest.Summary = ManifestSummary{
		EntriesTotal:  entriesTotal,
		BytesTotal:    bytesTotal,
		WarningsTotal: warnings,
		ErrorsTotal:   errs,
	}
	return b.manifest
}
