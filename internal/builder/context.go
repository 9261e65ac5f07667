package builder

import (
	"io/fs"
	"path/filepath"
	"slices"
)

// Target describes where the produced archive goes: directory, base file name
// and extension, as resolved by the archive task configuration.
type Target struct {
	Dir       string
	Name      string
	Extension string
}

func (t Target) FileName() string {
	ext := t.Extension
	if ext == "" {
		ext = "jar"
	}
	return t.Name + "." + ext
}

func (t Target) Path() string {
	return filepath.Join(t.Dir, t.FileName())
}

// BuildContext is the immutable description of one build invocation's inputs:
// classpath, roots and mode flags. It is assembled once from collaborator
// state and discarded after the build.
type BuildContext struct {
	// Classpath entries are OS paths to jars or class directories.
	Classpath []string

	ClassRoots    []fs.FS
	ResourceRoots []fs.FS
	SourceRoots   []fs.FS

	Target Target

	EmbedSources bool
	Trace        bool
}

// Clone returns a copy with its own slices, so callers cannot alter a context
// already handed to a Builder.
func (c BuildContext) Clone() BuildContext {
	c.Classpath = slices.Clone(c.Classpath)
	c.ClassRoots = slices.Clone(c.ClassRoots)
	c.ResourceRoots = slices.Clone(c.ResourceRoots)
	c.SourceRoots = slices.Clone(c.SourceRoots)
	return c
}
