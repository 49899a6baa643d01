package vfs

import (
	"os"
	"path/filepath"
)

// OSFS implements FS using the operating system's file system.
type OSFS struct{}

// NewOSFS creates a new OS file system.
func NewOSFS() *OSFS {
	return &OSFS{}
}

// Ensure OSFS implements FS.
var _ FS = (*OSFS)(nil)

// ReadFile reads the entire file content.
func (f *OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadDir reads a directory and returns its entries.
func (f *OSFS) ReadDir(path string) ([]FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue // Skip entries we can't stat
		}
		entryPath := filepath.Join(path, entry.Name())
		infos = append(infos, osFileInfoToVFS(entryPath, info))
	}
	return infos, nil
}

// Stat returns file information.
func (f *OSFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return osFileInfoToVFS(path, info), nil
}

// Exists returns true if the path exists.
func (f *OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir returns true if the path is a directory.
func (f *OSFS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// osFileInfoToVFS converts os.FileInfo to vfs.FileInfo.
func osFileInfoToVFS(path string, info os.FileInfo) FileInfo {
	return NewFileInfo(
		path,
		info.Name(),
		info.Size(),
		info.Mode(),
		info.ModTime(),
		info.IsDir(),
	)
}
