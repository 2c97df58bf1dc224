// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// Memory is a Target that keeps extracted contents in memory. It is
// mainly useful for tests and for inspecting archives without touching
// the filesystem.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*MemoryEntry
}

// MemoryEntry is one file, directory or symlink placed on a Memory
// target.
type MemoryEntry struct {
	Data     []byte
	Mode     fs.FileMode
	Linkname string
}

// NewMemory creates a new empty Memory target.
func NewMemory() *Memory {
	return &Memory{entries: map[string]*MemoryEntry{}}
}

func memoryKey(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// CreateDir creates a directory entry at the specified path.
func (m *Memory) CreateDir(p string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(p)
	if e, found := m.entries[key]; found && !e.Mode.IsDir() {
		return fmt.Errorf("path exists and is not a directory")
	}
	m.entries[key] = &MemoryEntry{Mode: fs.ModeDir | mode.Perm()}
	return nil
}

// CreateFile creates a file entry at the specified path with src as
// content, honoring overwrite and maxSize like the disk target.
func (m *Memory) CreateFile(p string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(p)
	if _, found := m.entries[key]; found && !overwrite {
		return 0, fmt.Errorf("file already exists")
	}

	var buf bytes.Buffer
	n, err := io.Copy(limitWriter(&buf, maxSize), src)
	if err != nil {
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	m.entries[key] = &MemoryEntry{Data: buf.Bytes(), Mode: mode.Perm()}
	return n, nil
}

// CreateSymlink creates a symlink entry at newname pointing to oldname.
func (m *Memory) CreateSymlink(oldname string, newname string, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(newname)
	if _, found := m.entries[key]; found && !overwrite {
		return fmt.Errorf("file already exists")
	}
	m.entries[key] = &MemoryEntry{Mode: fs.ModeSymlink | 0777, Linkname: oldname}
	return nil
}

// Lstat returns the FileInfo for the entry at the given path.
func (m *Memory) Lstat(p string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, found := m.entries[memoryKey(p)]
	if !found {
		return nil, fs.ErrNotExist
	}
	return &memoryFileInfo{name: path.Base(memoryKey(p)), size: int64(len(e.Data)), mode: e.Mode}, nil
}

// Stat behaves like Lstat; the memory target does not resolve links.
func (m *Memory) Stat(p string) (fs.FileInfo, error) {
	return m.Lstat(p)
}

// Entry returns the entry stored at the given path, if any.
func (m *Memory) Entry(p string) (*MemoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, found := m.entries[memoryKey(p)]
	return e, found
}

// Paths returns all stored paths, for inspection in tests.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.entries))
	for k := range m.entries {
		paths = append(paths, k)
	}
	return paths
}

// memoryFileInfo implements fs.FileInfo for memory entries
type memoryFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi *memoryFileInfo) Name() string       { return fi.name }
func (fi *memoryFileInfo) Size() int64        { return fi.size }
func (fi *memoryFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *memoryFileInfo) ModTime() time.Time { return time.Time{} }
func (fi *memoryFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *memoryFileInfo) Sys() interface{}   { return nil }
