package ingest

import (
	"io"
	"io/fs"
)

// File is an open file. Random access is needed to walk database pages.
type File interface {
	io.ReaderAt
	io.Closer
}

// FilesystemManager abstracts file access so the service can be tested
// without touching the real filesystem.
type FilesystemManager interface {
	// Resolve makes rawPath absolute, stats it and rejects anything that
	// is not a regular file or directory.
	Resolve(rawPath string) (*Path, error)

	// Open opens a regular file for reading.
	Open(path *Path) (File, error)

	// Stat returns fresh file info, unlike path.Info().
	Stat(path *Path) (fs.FileInfo, error)

	// FindFiles lists the regular files under root. Ignored directories
	// are not descended into.
	FindFiles(root *Path, recursive bool) ([]*Path, error)

	// IsIgnored reports whether path is excluded by the ignore rules of
	// the scan rooted at root.
	IsIgnored(path *Path, root string) (bool, error)
}
