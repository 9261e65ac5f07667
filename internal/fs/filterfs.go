package fs

import (
	"io/fs"
	"path"

	"github.com/gobwas/glob"
)

// FilterFS wraps an fs.FS with include/exclude glob patterns on file paths.
// Directories are always traversable; filters apply to files only. An empty
// include list means every file is included. Excludes are applied after
// includes.
type FilterFS struct {
	fsys     fs.FS
	included []glob.Glob
	excluded []glob.Glob
}

var (
	_ fs.FS        = (*FilterFS)(nil)
	_ fs.ReadDirFS = (*FilterFS)(nil)
)

func NewFilterFS(fsys fs.FS, included, excluded []string) (*FilterFS, error) {
	inc, err := compilePatterns(included)
	if err != nil {
		return nil, err
	}
	exc, err := compilePatterns(excluded)
	if err != nil {
		return nil, err
	}
	return &FilterFS{fsys: fsys, included: inc, excluded: exc}, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	gs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		gs = append(gs, g)
	}
	return gs, nil
}

func (f *FilterFS) match(p string) bool {
	if len(f.included) > 0 {
		ok := false
		for _, g := range f.included {
			if g.Match(p) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, g := range f.excluded {
		if g.Match(p) {
			return false
		}
	}
	return true
}

func (f *FilterFS) Open(name string) (fs.File, error) {
	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if !info.IsDir() && !f.match(name) {
		file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return file, nil
}

func (f *FilterFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(f.fsys, name)
	if err != nil {
		return nil, err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.IsDir() || f.match(path.Join(name, e.Name())) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}
