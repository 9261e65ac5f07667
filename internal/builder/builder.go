// Package builder orchestrates a bundle build: it resolves the final
// instruction mapping from the manifest-attribute and explicit-instruction
// layers, drives the analysis/build engine with the resolved instructions and
// the build context, classifies the engine's messages and assembles the
// archive in memory before anything is written out.
package builder

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/osgikit/bndbuild/internal/bnd"
	"github.com/osgikit/bndbuild/internal/instructions"
	"github.com/osgikit/bndbuild/internal/logging"
)

// Engine is the narrow contract with the underlying analysis/build engine.
// The orchestration layer is tested against fakes of this interface.
type Engine interface {
	Build(ctx context.Context, job bnd.Job) (*bnd.Result, error)
}

// Builder runs one bundle build invocation. Builders are single-use and not
// safe for concurrent use; create one per invocation.
type Builder struct {
	bc     BuildContext
	attrs  *instructions.Attributes
	instr  *instructions.Set
	engine Engine
	output io.Writer
	log    *logging.Logger
}

func New() *Builder {
	return &Builder{log: logging.NewNopLogger()}
}

func (b *Builder) WithContext(bc BuildContext) *Builder {
	b.bc = bc.Clone()
	return b
}

// WithAttributes sets the manifest-attribute layer, the lower-precedence
// instruction source.
func (b *Builder) WithAttributes(attrs *instructions.Attributes) *Builder {
	b.attrs = attrs
	return b
}

// WithInstructions sets the explicit-instruction layer, which wins over
// attributes sharing a key.
func (b *Builder) WithInstructions(instr *instructions.Set) *Builder {
	b.instr = instr
	return b
}

// WithEngine overrides the analysis engine. When unset, Build creates a fresh
// default engine per invocation; engine instances are never shared.
func (b *Builder) WithEngine(engine Engine) *Builder {
	b.engine = engine
	return b
}

// WithOutput sets the writer the finished archive is written to. The archive
// only reaches the writer after the whole build succeeded.
func (b *Builder) WithOutput(w io.Writer) *Builder {
	b.output = w
	return b
}

func (b *Builder) WithLogger(log *logging.Logger) *Builder {
	b.log = log
	return b
}

// BuildResult is the normalized engine output: manifest bytes, archive
// entries, classified diagnostics and the trace stream (populated only when
// tracing was enabled).
type BuildResult struct {
	Manifest []byte
	Entries  []bnd.Entry
	Advisory []Diagnostic
	Fatal    []Diagnostic
	Trace    []string
}

// Success reports whether the build produced an archive. Advisory diagnostics
// do not fail a build.
func (r *BuildResult) Success() bool {
	return len(r.Fatal) == 0
}

// Build resolves the instruction layers, invokes the engine once and
// normalizes its output. On a fatal diagnostic the returned error is a
// *FatalBuildError and nothing is written to the output writer; the result is
// still returned so callers can surface all diagnostics.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	resolved := instructions.Merge(b.attrs, b.instr)

	b.log.Debugf("The Builder is about to generate a jar using classpath: %v", b.bc.Classpath)

	engine := b.engine
	if engine == nil {
		engine = bnd.New()
	}

	res, err := engine.Build(ctx, bnd.Job{
		Classpath:     b.bc.Classpath,
		ClassRoots:    b.bc.ClassRoots,
		ResourceRoots: b.bc.ResourceRoots,
		SourceRoots:   b.bc.SourceRoots,
		Properties:    resolved,
		EmbedSources:  b.bc.EmbedSources,
		Trace:         b.bc.Trace,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	result := &BuildResult{
		Manifest: res.Manifest,
		Entries:  res.Entries,
		Trace:    make([]string, 0, len(res.Trace)),
	}
	result.Advisory, result.Fatal = classify(res.Messages)
	for _, line := range res.Trace {
		result.Trace = append(result.Trace, "# "+line)
	}

	if !result.Success() {
		return result, &FatalBuildError{Diagnostics: result.Fatal}
	}

	if b.output != nil {
		if err := result.WriteArchive(b.output); err != nil {
			return result, fmt.Errorf("write archive: %w", err)
		}
	}

	return result, nil
}

// WriteArchive writes the archive to w: the manifest entry first, then every
// other entry in engine order. The zip stream is assembled in a buffer so a
// failed build never leaves a partial archive behind the writer.
func (r *BuildResult) WriteArchive(w io.Writer) error {
	if !r.Success() {
		return &FatalBuildError{Diagnostics: r.Fatal}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := make([]bnd.Entry, 0, len(r.Entries)+1)
	entries = append(entries, bnd.Entry{Path: "META-INF/MANIFEST.MF", Data: r.Manifest})
	entries = append(entries, r.Entries...)

	for _, entry := range entries {
		f, err := zw.Create(entry.Path)
		if err != nil {
			return err
		}
		if _, err := f.Write(entry.Data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	_, err := io.Copy(w, &buf)
	return err
}
