package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
)

// FileSet manages the files referenced by spans in one compilation.
//
// The frontend owns the actual source text; the core usually only needs file
// names plus line indexes so diagnostics can be rendered as file:line:col.
// Files can therefore be registered with or without content.
type FileSet struct {
	files []File
	index map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a file with content, building its line index.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	id := fs.nextID()
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Flags:   flags,
	})
	fs.index[normalizePath(path)] = id
	return id
}

// AddVirtual adds an in-memory file (tests, stdin).
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Register records a file by name only. Spans into it still resolve to a path,
// but line/column information degrades to byte offsets.
func (fs *FileSet) Register(path string) FileID {
	if id, ok := fs.index[normalizePath(path)]; ok {
		return id
	}
	id := fs.nextID()
	fs.files = append(fs.files, File{
		ID:    id,
		Path:  normalizePath(path),
		Flags: FileContentless,
	})
	fs.index[normalizePath(path)] = id
	return id
}

// Load reads a file from disk and adds it.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fs.Add(path, content, 0), nil
}

// Get returns file metadata for an ID, or nil when out of range.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the file registered under path, if any.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	if id, ok := fs.index[normalizePath(path)]; ok {
		return &fs.files[id], true
	}
	return nil, false
}

// Len returns the number of files.
func (fs *FileSet) Len() int {
	return len(fs.files)
}

// Position resolves a span's start offset to a line/column pair.
// Contentless files report line 0 so callers can fall back to offsets.
func (fs *FileSet) Position(sp Span) (string, LineCol) {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>", LineCol{}
	}
	if len(f.LineIdx) == 0 {
		return f.Path, LineCol{}
	}
	line := sort.Search(len(f.LineIdx), func(i int) bool {
		return f.LineIdx[i] > sp.Start
	})
	lineStart := uint32(0)
	if line > 0 {
		lineStart = f.LineIdx[line-1]
	}
	lineNo, err := safecast.Conv[uint32](line + 1)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return f.Path, LineCol{Line: lineNo, Col: sp.Start - lineStart + 1}
}

// LineText returns the text of the 1-based line, for caret rendering.
func (fs *FileSet) LineText(file FileID, line uint32) (string, bool) {
	f := fs.Get(file)
	if f == nil || len(f.Content) == 0 || line == 0 {
		return "", false
	}
	start := uint32(0)
	if line > 1 {
		if int(line-2) >= len(f.LineIdx) {
			return "", false
		}
		start = f.LineIdx[line-2]
	}
	end := uint32(len(f.Content))
	if int(line-1) < len(f.LineIdx) {
		end = f.LineIdx[line-1] - 1 // drop the newline itself
	}
	if start > end {
		return "", false
	}
	return string(f.Content[start:end]), true
}

func (fs *FileSet) nextID() FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file count overflow: %w", err))
	}
	return FileID(n)
}

// buildLineIndex records the byte offset just past each '\n'.
func buildLineIndex(content []byte) []uint32 {
	var idx []uint32
	for i, b := range content {
		if b == '\n' {
			idx = append(idx, uint32(i+1))
		}
	}
	return idx
}

func normalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
