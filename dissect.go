// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// defaultRootName is the manifest name for the outer archive when the
// input reader carries no file name.
const defaultRootName = "archive"

// Dissect reads the archive from src and extracts its contents below
// dst on the given target, descending into nested archives. The
// returned manifest describes everything that was found, extracted,
// skipped or rejected.
//
// A nil target defaults to the local disk; a nil config defaults to
// [NewConfig]. The only fatal conditions are an outer stream that is
// not a recognized format at all and context cancellation; every other
// failure is recorded in the manifest and the run continues.
func Dissect(ctx context.Context, src io.Reader, dst string, t Target, cfg *Config) (*Manifest, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if t == nil {
		t = NewDisk()
	}

	name := defaultRootName
	if f, ok := src.(*os.File); ok && f.Name() != "" {
		name = filepath.Base(f.Name())
	}

	td := &TelemetryData{}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureDissectionDuration(td, now())

	if cfg.CreateDestination() && dst != "" {
		if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
			return nil, fmt.Errorf("cannot create destination: %w", err)
		}
	}

	limited := newLimitErrorReader(src, cfg.MaxInputSize())
	d := &dissector{
		cfg:    cfg,
		target: t,
		dst:    dst,
		rc:     newRecursionContext(cfg),
		mb:     newManifestBuilder(name),
		td:     td,
		pool:   startWorkerPool(t, cfg),
	}

	err := d.dissectStream(ctx, limited, "", name, true)
	d.pool.close()
	td.InputSize = int64(limited.ReadBytes())

	manifest := d.mb.finish(d.rc.entries, td.BytesExtracted)
	if err != nil {
		td.LastError = err
		td.DissectionErrors++
		if errors.Is(err, ErrCancelled) {
			return manifest, err
		}
		return nil, err
	}
	return manifest, nil
}

// dissector is the per-run state of the orchestrator. The container
// walk runs on a single driving goroutine; only spooled file writes
// leave it, through the worker pool.
type dissector struct {
	cfg    *Config
	target Target
	dst    string

	rc   *recursionContext
	mb   *manifestBuilder
	td   *TelemetryData
	pool *workerPool

	cancelled bool
}

// pendingWrite pairs a dispatched write job with its manifest node, so
// the driving goroutine can fold the result back in submission order.
type pendingWrite struct {
	job  *writeJob
	node *ManifestNode
}

// dissectStream sniffs one stream, unwraps its compression layers and
// walks the container found underneath. dir is the confined output
// subdirectory the stream expands into; name is the untrusted declared
// name, used for reporting only. The returned error is non-nil only
// for a fatal root failure or cancellation.
func (d *dissector) dissectStream(ctx context.Context, src io.Reader, dir string, name string, root bool) error {
	hr, err := newHeaderReader(src, maxHeaderLength)
	if err != nil {
		if root {
			return fmt.Errorf("cannot read input: %w", err)
		}
		d.recordWarning(name, fmt.Sprintf("cannot read nested stream: %v", err))
		d.recordViolation(ViolationCorruptEntry, name, err.Error())
		return nil
	}

	kind := SniffFormat(hr.PeekHeader())
	if root && d.cfg.FormatHint() != KindUnknown {
		kind = d.cfg.FormatHint()
	}

	// unwrap compression layers until a container or raw content shows
	var stream io.Reader = hr
	decoded := false
	for layer := 0; IsCodec(kind); layer++ {
		if layer >= maxDecoderChain {
			return d.failStream(root, name, ViolationUnsupportedFormat,
				fmt.Sprintf("more than %d chained compression layers", maxDecoderChain))
		}
		decodedStream, err := newDecodedStream(stream, kind, d.cfg)
		if err != nil {
			return d.failStream(root, name, ViolationUnsupportedFormat, err.Error())
		}
		d.cfg.Logger().Debug("decoding compression layer", "codec", string(kind), "name", name)
		nhr, err := newHeaderReader(decodedStream, maxHeaderLength)
		if err != nil {
			return d.failStream(root, name, ViolationCorruptEntry, err.Error())
		}
		decoded = true
		stream = nhr
		kind = SniffFormat(nhr.PeekHeader())
	}

	if !IsContainer(kind) {
		if decoded {
			// a compressed single file, not an archive
			return d.extractDecodedFile(ctx, stream, dir, name)
		}
		return d.failStream(root, name, ViolationUnsupportedFormat, "no recognized container or compression format")
	}

	if root {
		d.mb.manifest.RootFormat = string(kind)
		d.td.RootFormat = string(kind)
	}

	walker, err := newContainerWalker(kind, &meteredReader{r: stream, rc: d.rc})
	if err != nil {
		return d.failStream(root, name, ViolationUnsupportedFormat, err.Error())
	}
	d.cfg.Logger().Info("walking container", "format", string(kind), "name", name, "dir", dir)
	return d.walkContainer(ctx, walker, dir)
}

// failStream handles a stream that cannot be dissected. At the root
// this is the one fatal condition; below the root it degrades to a
// recorded warning.
func (d *dissector) failStream(root bool, name string, kind ViolationKind, detail string) error {
	if root {
		return fmt.Errorf("%w: %s", ErrNoRecognizedFormat, detail)
	}
	d.recordWarning(name, detail)
	d.recordViolation(kind, name, detail)
	return nil
}

// walkContainer drives the single-pass walk over one container's
// entries. Directories and symlinks are synchronized inline so later
// entries can rely on them; regular files are spooled and dispatched
// to the worker pool, and their results are folded back in submission
// order before the container is left.
func (d *dissector) walkContainer(ctx context.Context, w archiveWalker, dir string) error {
	var pending []pendingWrite
	var stopErr error

walk:
	for {
		if ctx.Err() != nil {
			d.markCancelled()
			stopErr = ErrCancelled
			break
		}

		ae, err := w.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			d.recordStreamFailure(w.Type(), err)
			break
		}

		if err := d.rc.countEntry(); err != nil {
			d.recordLimit(ae.Name(), err)
			break
		}

		name := ae.Name()
		if name == "pax_global_header" {
			// tar metadata pseudo entry, nothing to place
			continue
		}

		if match, err := checkPatterns(d.cfg.Patterns(), name); err != nil {
			d.recordWarning(name, err.Error())
			continue
		} else if !match {
			d.cfg.Logger().Debug("skipping pattern mismatch", "name", name)
			d.td.PatternMismatches++
			continue
		}

		sp, err := sandboxPath(d.target, d.dst, dir, name)
		if err != nil {
			d.recordPathViolation(name, err)
			continue
		}

		switch {
		case ae.IsDir():
			if err := createDir(d.target, sp, ae.Mode()); err != nil {
				d.recordError(name, sp.Rel(), err)
				continue
			}
			d.mb.record(&ManifestNode{Kind: NodeDir, Name: name, Path: sp.Rel()})
			d.td.ExtractedDirs++

		case ae.IsSymlink():
			if d.cfg.DenySymlinkExtraction() {
				d.recordWarning(name, "symlink extraction denied")
				d.td.SkippedEntries++
				continue
			}
			if err := createSymlink(d.target, sp, ae.Linkname(), d.cfg); err != nil {
				var pve *PathViolationError
				if errors.As(err, &pve) {
					d.recordPathViolation(name, err)
					continue
				}
				d.recordError(name, sp.Rel(), err)
				continue
			}
			d.mb.record(&ManifestNode{Kind: NodeSymlink, Name: name, Path: sp.Rel(), Link: ae.Linkname()})
			d.td.ExtractedSymlinks++

		case ae.IsRegular():
			stop, err := d.handleRegular(ctx, ae, sp, &pending)
			if stop {
				stopErr = err
				break walk
			}

		default:
			d.recordWarning(name, "unsupported entry type")
			d.td.SkippedEntries++
		}
	}

	d.foldPending(pending)
	return stopErr
}

// handleRegular spools one regular entry's content, descends into it
// when it is a nested archive, and dispatches a write job otherwise.
// A true stop return ends the walk of the containing sequence; err is
// then nil for pruning limits and non-nil for cancellation.
func (d *dissector) handleRegular(ctx context.Context, ae archiveEntry, sp SandboxedPath, pending *[]pendingWrite) (bool, error) {
	name := ae.Name()

	src, err := ae.Open()
	if err != nil {
		d.recordError(name, sp.Rel(), err)
		return false, nil
	}
	sc, err := spoolContent(src, d.cfg.SpoolMemoryLimit())
	src.Close()
	if err != nil {
		var le *LimitError
		if errors.As(err, &le) {
			d.recordLimit(name, err)
			return true, nil
		}
		// a partial content read leaves the container stream in an
		// undefined position, so the sequence ends here
		d.recordWarning(name, fmt.Sprintf("entry sequence truncated: %v", err))
		d.recordViolation(ViolationCorruptEntry, name, err.Error())
		return true, nil
	}

	if nested := SniffFormat(sc.Header()); nested != KindUnknown {
		return d.descend(ctx, sc, nested, name, sp)
	}

	job := &writeJob{
		path:    sp,
		mode:    ae.Mode(),
		content: sc,
		result:  make(chan writeResult, 1),
	}
	node := &ManifestNode{Kind: NodeFile, Name: name, Path: sp.Rel(), Size: sc.Size()}
	d.mb.record(node)
	if err := d.pool.submit(ctx, job); err != nil {
		sc.Close()
		node.Kind = NodeWarning
		node.Detail = "not extracted: run cancelled"
		d.markCancelled()
		return true, ErrCancelled
	}
	*pending = append(*pending, pendingWrite{job: job, node: node})
	return false, nil
}

// descend recurses into a nested archive member, guarded by the depth
// ceiling and the cycle guard. A refused descent prunes only this
// branch; siblings keep processing.
func (d *dissector) descend(ctx context.Context, sc *spooledContent, kind Kind, name string, sp SandboxedPath) (bool, error) {
	h := sc.Hash()
	if err := d.rc.enter(h); err != nil {
		sc.Close()
		var cde *CycleDetectedError
		if errors.As(err, &cde) {
			d.cfg.Logger().Warn("archive cycle detected", "name", name, "hash", cde.Hash)
			d.recordWarning(name, err.Error())
			d.recordViolation(ViolationCycleDetected, name, err.Error())
			return false, nil
		}
		d.cfg.Logger().Warn("nesting depth exceeded", "name", name)
		d.recordLimit(name, err)
		return false, nil
	}
	defer d.rc.leave(h)
	defer sc.Close()

	node := &ManifestNode{Kind: NodeNestedArchive, Name: name, Path: sp.Rel(), Size: sc.Size(), Format: string(kind)}
	d.mb.openArchive(node)
	defer d.mb.closeArchive()
	d.td.NestedArchives++

	src, err := sc.Reader()
	if err != nil {
		d.recordError(name, sp.Rel(), err)
		return false, nil
	}
	if err := d.dissectStream(ctx, src, nestedOutputDir(sp.Rel()), name, false); err != nil {
		return true, err
	}
	return false, nil
}

// extractDecodedFile places the decompressed content of a compressed
// non-archive stream as a regular file.
func (d *dissector) extractDecodedFile(ctx context.Context, src io.Reader, dir string, name string) error {
	outName := decompressedName(path.Base(filepath.ToSlash(name)))
	sp, err := sandboxPath(d.target, d.dst, dir, outName)
	if err != nil {
		d.recordPathViolation(outName, err)
		return nil
	}

	sc, err := spoolContent(&meteredReader{r: src, rc: d.rc}, d.cfg.SpoolMemoryLimit())
	if err != nil {
		var le *LimitError
		if errors.As(err, &le) {
			d.recordLimit(outName, err)
			return nil
		}
		d.recordWarning(outName, fmt.Sprintf("cannot decompress content: %v", err))
		d.recordViolation(ViolationCorruptEntry, outName, err.Error())
		return nil
	}

	job := &writeJob{
		path:    sp,
		mode:    0644,
		content: sc,
		result:  make(chan writeResult, 1),
	}
	node := &ManifestNode{Kind: NodeFile, Name: name, Path: sp.Rel(), Size: sc.Size()}
	d.mb.record(node)
	if err := d.pool.submit(ctx, job); err != nil {
		sc.Close()
		node.Kind = NodeWarning
		node.Detail = "not extracted: run cancelled"
		d.markCancelled()
		return ErrCancelled
	}
	d.foldPending([]pendingWrite{{job: job, node: node}})
	return nil
}

// foldPending awaits the dispatched write jobs and folds their results
// into the manifest, in submission order. Failed writes reclassify
// their node instead of aborting the run.
func (d *dissector) foldPending(pending []pendingWrite) {
	for _, p := range pending {
		res := <-p.job.result
		if res.err != nil {
			d.cfg.Logger().Error("file extraction failed", "path", p.node.Path, "error", res.err)
			p.node.Kind = NodeError
			p.node.Detail = res.err.Error()
			d.td.DissectionErrors++
			d.td.LastError = res.err
			continue
		}
		d.td.ExtractedFiles++
		d.td.BytesExtracted += res.written
	}
}

// markCancelled records the cancellation terminal node, once.
func (d *dissector) markCancelled() {
	if d.cancelled {
		return
	}
	d.cancelled = true
	d.cfg.Logger().Warn("dissection cancelled")
	d.mb.record(&ManifestNode{Kind: NodeCancelled, Detail: "run cancelled before completion"})
	d.mb.violation(SecurityViolation{Kind: ViolationCancelled, Detail: "run cancelled before completion"})
	d.td.SecurityViolations++
}

// recordStreamFailure ends a container sequence after a failed entry
// read, distinguishing exceeded ceilings from corrupt data.
func (d *dissector) recordStreamFailure(format string, err error) {
	var le *LimitError
	if errors.As(err, &le) {
		d.recordLimit("", le)
		return
	}
	d.cfg.Logger().Warn("entry sequence truncated", "format", format, "error", err)
	d.recordWarning("", fmt.Sprintf("entry sequence truncated: %v", err))
	d.recordViolation(ViolationCorruptEntry, "", err.Error())
}

// recordPathViolation records a rejected entry path.
func (d *dissector) recordPathViolation(name string, err error) {
	d.cfg.Logger().Warn("path violation", "name", name, "error", err)
	d.recordWarning(name, err.Error())
	d.recordViolation(ViolationPathTraversal, name, err.Error())
}

// recordLimit records an exceeded resource ceiling.
func (d *dissector) recordLimit(name string, err error) {
	d.cfg.Logger().Warn("limit exceeded", "name", name, "error", err)
	d.recordWarning(name, err.Error())
	d.recordViolation(ViolationLimitExceeded, name, err.Error())
}

// recordError records a failed extraction side effect and continues.
func (d *dissector) recordError(name string, rel string, err error) {
	d.cfg.Logger().Error("extraction failed", "name", name, "path", rel, "error", err)
	d.mb.record(&ManifestNode{Kind: NodeError, Name: name, Path: rel, Detail: err.Error()})
	d.td.DissectionErrors++
	d.td.LastError = err
}

// recordWarning records a skipped entry as a warning node.
func (d *dissector) recordWarning(name string, detail string) {
	d.mb.record(&ManifestNode{Kind: NodeWarning, Name: name, Detail: detail})
}

// recordViolation appends a security violation to the manifest.
func (d *dissector) recordViolation(kind ViolationKind, path string, detail string) {
	d.mb.violation(SecurityViolation{Kind: kind, Path: path, Detail: detail})
	d.td.SecurityViolations++
}

// archiveSuffixes are the file name suffixes stripped when deriving
// output names for nested content, longest match first.
var archiveSuffixes = []string{
	".tar.gz", ".tar.bz2", ".tar.xz", ".tar.zst", ".tar.lz4", ".tar.lz",
	".tgz", ".tbz2", ".txz", ".tzst",
	".tar", ".cpio", ".rar", ".deb", ".ipk",
	".gz", ".bz2", ".xz", ".lzma", ".lz4", ".lz", ".zst", ".sz", ".zz", ".br",
}

// trimArchiveSuffix drops a known archive suffix from name; the match
// is case-insensitive and must leave a non-empty stem.
func trimArchiveSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// nestedOutputDir derives the directory a nested archive expands into
// from its confined path: "control.tar.gz" expands into "control".
func nestedOutputDir(rel string) string {
	dir, base := path.Split(rel)
	return path.Join(dir, trimArchiveSuffix(base))
}

// decompressedName derives the output file name for a compressed
// single file. A name without a known suffix gets ".decompressed"
// appended, so the output never collides with the input name.
func decompressedName(name string) string {
	if trimmed := trimArchiveSuffix(name); trimmed != name {
		return trimmed
	}
	return name + ".decompressed"
}
