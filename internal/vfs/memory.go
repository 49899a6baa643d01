package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFS implements FS using an in-memory file tree. It is primarily used for
// testing hydration and project detection without touching disk.
//
// MemFS is safe for concurrent use. Directories are implicit: adding a file
// creates every parent directory.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]bool
}

type memFile struct {
	content []byte
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
	}
}

// Ensure MemFS implements FS.
var _ FS = (*MemFS)(nil)

// AddFile adds (or replaces) a file, creating parent directories.
func (m *MemFS) AddFile(filePath, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	m.files[filePath] = &memFile{content: []byte(content), modTime: time.Now()}

	for dir := path.Dir(filePath); dir != "/" && dir != "."; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
}

// AddDir adds an empty directory.
func (m *MemFS) AddDir(dirPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath = m.cleanPath(dirPath)
	for dir := dirPath; dir != "/" && dir != "."; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
}

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(f.content))
	copy(out, f.content)
	return out, nil
}

// ReadDir reads a directory and returns its entries sorted by name.
func (m *MemFS) ReadDir(dirPath string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirPath = m.cleanPath(dirPath)
	if !m.dirs[dirPath] {
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrNotExist}
	}

	seen := make(map[string]FileInfo)
	prefix := dirPath
	if prefix != "/" {
		prefix += "/"
	}

	for p, f := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if name, _, nested := strings.Cut(rest, "/"); !nested {
			seen[name] = NewFileInfo(p, name, int64(len(f.content)), 0o644, f.modTime, false)
		}
	}
	for d := range m.dirs {
		if d == dirPath || !strings.HasPrefix(d, prefix) {
			continue
		}
		rest := strings.TrimPrefix(d, prefix)
		name, _, _ := strings.Cut(rest, "/")
		if _, ok := seen[name]; !ok {
			seen[name] = NewFileInfo(prefix+name, name, 0, fs.ModeDir|0o755, time.Time{}, true)
		}
	}

	infos := make([]FileInfo, 0, len(seen))
	for _, info := range seen {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(filePath, path.Base(filePath), int64(len(f.content)), 0o644, f.modTime, false), nil
	}
	if m.dirs[filePath] {
		return NewFileInfo(filePath, path.Base(filePath), 0, fs.ModeDir|0o755, time.Time{}, true), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// Exists returns true if the path exists.
func (m *MemFS) Exists(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if _, ok := m.files[filePath]; ok {
		return true
	}
	return m.dirs[filePath]
}

// IsDir returns true if the path is a directory.
func (m *MemFS) IsDir(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[m.cleanPath(filePath)]
}

// cleanPath normalizes a path to absolute, forward-slash form.
func (m *MemFS) cleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
