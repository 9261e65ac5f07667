package bndbuild

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/osgikit/bndbuild/internal/builder"
	bnd_fs "github.com/osgikit/bndbuild/internal/fs"
	"github.com/osgikit/bndbuild/internal/instructions"
)

// Dir is a directory on the filesystem contributing files to the bundle.
// Include and exclude patterns are glob filters applied to file paths
// relative to the directory; empty included means include everything.
type Dir struct {
	Path          string
	IncludedFiles []string
	ExcludedFiles []string
}

// Result is the outcome of a build: the rendered manifest, the archive
// entries, the classified diagnostics and any trace output.
type Result = builder.BuildResult

// Diagnostic is a classified engine message.
type Diagnostic = builder.Diagnostic

// FatalBuildError is returned by Build when the engine reports fatal
// diagnostics. No archive output is written in that case.
type FatalBuildError = builder.FatalBuildError

// Builder accumulates inputs for a single bundle build. The zero value is
// not usable; construct with New.
type Builder struct {
	classes      []Dir
	resources    []Dir
	sources      []Dir
	classpath    []string
	attrs        *instructions.Attributes
	instr        *instructions.Set
	embedSources bool
	trace        bool
	output       io.Writer
}

func New() *Builder {
	return &Builder{
		attrs: instructions.NewAttributes(),
		instr: instructions.NewSet(),
	}
}

// WithClasses adds directories holding compiled class files.
func (b *Builder) WithClasses(dirs ...Dir) *Builder {
	b.classes = append(b.classes, dirs...)
	return b
}

// WithResources adds directories holding non-class resources.
func (b *Builder) WithResources(dirs ...Dir) *Builder {
	b.resources = append(b.resources, dirs...)
	return b
}

// WithSources adds directories holding source files, used when source
// embedding is enabled.
func (b *Builder) WithSources(dirs ...Dir) *Builder {
	b.sources = append(b.sources, dirs...)
	return b
}

// WithClasspath adds classpath entries consulted during activator
// resolution.
func (b *Builder) WithClasspath(entries ...string) *Builder {
	b.classpath = append(b.classpath, entries...)
	return b
}

// WithAttribute records a manifest attribute. Attributes resolve
// first-write-wins: repeating a name keeps the value already set.
func (b *Builder) WithAttribute(name, value string) *Builder {
	b.attrs.Set(name, value)
	return b
}

// WithInstruction records an explicit instruction. Repeating a name
// accumulates the fragments; they flatten to one comma-joined header value.
func (b *Builder) WithInstruction(name string, fragments ...string) *Builder {
	b.instr.Put(name, fragments...)
	return b
}

// WithInstructionMap performs one instruction put per map entry, in sorted
// key order.
func (b *Builder) WithInstructionMap(m map[string]string) *Builder {
	b.instr.Add(m)
	return b
}

func (b *Builder) WithEmbedSources(embed bool) *Builder {
	b.embedSources = embed
	return b
}

func (b *Builder) WithTrace(trace bool) *Builder {
	b.trace = trace
	return b
}

// WithOutput sets the writer the archive is streamed to on success. Without
// an output the build still runs and the result holds the entries.
func (b *Builder) WithOutput(w io.Writer) *Builder {
	b.output = w
	return b
}

// Build runs the bundle build. On fatal diagnostics it returns the partial
// result together with a *FatalBuildError and writes nothing to the output.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	bc := builder.BuildContext{
		Classpath:    b.classpath,
		EmbedSources: b.embedSources,
		Trace:        b.trace,
	}

	var err error
	if bc.ClassRoots, err = roots(b.classes); err != nil {
		return nil, err
	}
	if bc.ResourceRoots, err = roots(b.resources); err != nil {
		return nil, err
	}
	if bc.SourceRoots, err = roots(b.sources); err != nil {
		return nil, err
	}

	inner := builder.New().
		WithContext(bc).
		WithAttributes(b.attrs).
		WithInstructions(b.instr)
	if b.output != nil {
		inner = inner.WithOutput(b.output)
	}
	return inner.Build(ctx)
}

func roots(dirs []Dir) ([]fs.FS, error) {
	out := make([]fs.FS, 0, len(dirs))
	for _, dir := range dirs {
		// An unreadable root is a host I/O failure, not a quiet no-op.
		if _, err := os.Stat(dir.Path); err != nil {
			return nil, fmt.Errorf("root %s: %w", dir.Path, err)
		}
		f, err := bnd_fs.NewFilterFS(os.DirFS(dir.Path), dir.IncludedFiles, dir.ExcludedFiles)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
