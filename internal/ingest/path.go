package ingest

import "io/fs"

// Path is a validated filesystem path with the stat info taken when it
// was resolved. Paths are created by FilesystemManager implementations.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{
		absPath: absPath,
		isDir:   isDir,
		info:    info,
	}
}

// String returns the absolute path.
func (p *Path) String() string {
	return p.absPath
}

func (p *Path) IsDir() bool {
	return p.isDir
}

// Info returns the file info cached at resolve time.
func (p *Path) Info() fs.FileInfo {
	return p.info
}

// Size is the cached file size, or 0 for directories.
func (p *Path) Size() int64 {
	if p.isDir || p.info == nil {
		return 0
	}
	return p.info.Size()
}
