// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"context"
	"io/fs"

	"golang.org/x/sync/errgroup"
)

// writeJob is one disk-write side effect dispatched to the extraction
// worker pool. The content is spooled, so workers never touch the
// container stream the driving goroutine is walking.
type writeJob struct {
	path    SandboxedPath
	mode    fs.FileMode
	content *spooledContent
	result  chan writeResult
}

// writeResult is reported back through the job's result channel once
// the write finished.
type writeResult struct {
	written int64
	err     error
}

// workerPool is a fixed-size pool of extraction workers reading jobs
// from a bounded queue. The queue's finite capacity is the single
// deliberate backpressure point of the engine: when disk I/O falls
// behind, submit blocks instead of buffering unboundedly.
type workerPool struct {
	cfg    *Config
	target Target
	jobs   chan *writeJob
	group  *errgroup.Group
}

// startWorkerPool starts cfg.WorkerCount() workers writing to t.
func startWorkerPool(t Target, cfg *Config) *workerPool {
	p := &workerPool{
		cfg:    cfg,
		target: t,
		jobs:   make(chan *writeJob, cfg.QueueCapacity()),
		group:  &errgroup.Group{},
	}
	for i := 0; i < cfg.WorkerCount(); i++ {
		p.group.Go(p.work)
	}
	return p
}

// work drains the job queue until it is closed. Every job gets exactly
// one result, success or not.
func (p *workerPool) work() error {
	for job := range p.jobs {
		job.result <- p.perform(job)
	}
	return nil
}

// perform writes one job's content to the target and releases the
// spooled content on every exit path.
func (p *workerPool) perform(job *writeJob) writeResult {
	defer job.content.Close()

	src, err := job.content.Reader()
	if err != nil {
		return writeResult{err: err}
	}
	written, err := createFile(p.target, job.path, src, job.mode, job.content.Size(), p.cfg)
	return writeResult{written: written, err: err}
}

// submit enqueues a job, blocking while the queue is full. It fails
// only when ctx is cancelled before the job could be enqueued; the
// caller then still owns the job's content.
func (p *workerPool) submit(ctx context.Context, job *writeJob) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs and waits for all submitted jobs to
// drain.
func (p *workerPool) close() {
	close(p.jobs)
	_ = p.group.Wait()
}
