// Package vfs provides the read-side file system abstraction used by the
// language-intelligence core.
//
// The FS interface allows swapping the underlying file system implementation,
// enabling testing with in-memory file systems. Hydration never writes to
// disk, so only read operations are exposed.
package vfs

import (
	"context"
	"io/fs"
	"time"

	"golang.org/x/sync/errgroup"
)

// FS is a read-only virtual file system.
type FS interface {
	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// ReadDir reads a directory and returns its entries.
	ReadDir(path string) ([]FileInfo, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)

	// Exists returns true if the path exists.
	Exists(path string) bool

	// IsDir returns true if the path is a directory.
	IsDir(path string) bool
}

// FileInfo describes a file or directory.
type FileInfo struct {
	path    string
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

// NewFileInfo creates a FileInfo from the given parameters.
func NewFileInfo(path, name string, size int64, mode fs.FileMode, modTime time.Time, isDir bool) FileInfo {
	return FileInfo{
		path:    path,
		name:    name,
		size:    size,
		mode:    mode,
		modTime: modTime,
		isDir:   isDir,
	}
}

// Path returns the full path.
func (fi FileInfo) Path() string { return fi.path }

// Name returns the base name.
func (fi FileInfo) Name() string { return fi.name }

// Size returns the file size in bytes.
func (fi FileInfo) Size() int64 { return fi.size }

// Mode returns the file mode.
func (fi FileInfo) Mode() fs.FileMode { return fi.mode }

// ModTime returns the modification time.
func (fi FileInfo) ModTime() time.Time { return fi.modTime }

// IsDir returns true if this is a directory.
func (fi FileInfo) IsDir() bool { return fi.isDir }

// IsRegular returns true if this is a regular file.
func (fi FileInfo) IsRegular() bool { return fi.mode.IsRegular() }

// batchReadConcurrency bounds parallel reads so a huge declaration tree
// does not exhaust file descriptors.
const batchReadConcurrency = 16

// BatchRead reads many files in one call and returns a map of path -> content
// for the files that could be read. Files that fail to read are silently
// skipped; one unreadable file never aborts the batch.
func BatchRead(ctx context.Context, fsys FS, paths []string) map[string]string {
	type result struct {
		path    string
		content string
	}

	results := make([]*result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchReadConcurrency)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := fsys.ReadFile(p)
			if err != nil {
				return nil // skip unreadable files
			}
			results[i] = &result{path: p, content: string(data)}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(paths))
	for _, r := range results {
		if r != nil {
			out[r.path] = r.content
		}
	}
	return out
}
