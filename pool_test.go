// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spoolBytes spools literal content for worker pool tests
func spoolBytes(t *testing.T, content []byte) *spooledContent {
	t.Helper()
	sc, err := spoolContent(bytes.NewReader(content), 1<<20)
	require.NoError(t, err)
	return sc
}

// TestWorkerPool tests that dispatched jobs land on the target and
// report their results
func TestWorkerPool(t *testing.T) {

	m := NewMemory()
	cfg := NewConfig(WithWorkerCount(4), WithQueueCapacity(2))
	pool := startWorkerPool(m, cfg)

	ctx := context.Background()
	var jobs []*writeJob
	for i := 0; i < 16; i++ {
		content := []byte(fmt.Sprintf("content of file %d", i))
		job := &writeJob{
			path:    SandboxedPath{root: "dest", rel: fmt.Sprintf("file-%d", i)},
			mode:    0644,
			content: spoolBytes(t, content),
			result:  make(chan writeResult, 1),
		}
		require.NoError(t, pool.submit(ctx, job))
		jobs = append(jobs, job)
	}

	for i, job := range jobs {
		res := <-job.result
		require.NoError(t, res.err)
		assert.Equal(t, int64(len(fmt.Sprintf("content of file %d", i))), res.written)

		entry, found := m.Entry(fmt.Sprintf("dest/file-%d", i))
		require.True(t, found)
		assert.Equal(t, []byte(fmt.Sprintf("content of file %d", i)), entry.Data)
	}

	pool.close()
}

// gatedTarget blocks file creation until released, to make queue
// saturation deterministic in tests
type gatedTarget struct {
	*Memory
	started chan struct{}
	release chan struct{}
}

func (g *gatedTarget) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	g.started <- struct{}{}
	<-g.release
	return g.Memory.CreateFile(path, src, mode, overwrite, maxSize)
}

// TestWorkerPoolBackpressure tests that submit blocks on a saturated
// queue and fails on cancellation instead of buffering unboundedly
func TestWorkerPoolBackpressure(t *testing.T) {

	gt := &gatedTarget{
		Memory:  NewMemory(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cfg := NewConfig(WithWorkerCount(1), WithQueueCapacity(1))
	pool := startWorkerPool(gt, cfg)

	newJob := func(name string) *writeJob {
		return &writeJob{
			path:    SandboxedPath{root: "dest", rel: name},
			mode:    0644,
			content: spoolBytes(t, []byte("payload")),
			result:  make(chan writeResult, 1),
		}
	}

	ctx := context.Background()
	j1 := newJob("first")
	require.NoError(t, pool.submit(ctx, j1))
	<-gt.started // the single worker now blocks inside j1

	j2 := newJob("second")
	require.NoError(t, pool.submit(ctx, j2)) // fills the queue

	// the queue is full and the worker is blocked; a cancelled submit
	// must fail instead of waiting forever
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	j3 := newJob("third")
	err := pool.submit(cancelled, j3)
	require.ErrorIs(t, err, context.Canceled)
	j3.content.Close()

	// release the worker and drain the accepted jobs
	close(gt.release)
	<-gt.started // j2 enters CreateFile
	require.NoError(t, (<-j1.result).err)
	require.NoError(t, (<-j2.result).err)
	pool.close()

	_, found := gt.Entry("dest/first")
	assert.True(t, found)
	_, found = gt.Entry("dest/second")
	assert.True(t, found)
	_, found = gt.Entry("dest/third")
	assert.False(t, found)
}
