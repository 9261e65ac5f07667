// Package service turns configured bundles into build invocations: it
// assembles the build context and instruction layers from configuration,
// runs the builder and persists the archive.
package service

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/osgikit/bndbuild/internal/builder"
	"github.com/osgikit/bndbuild/internal/config"
	bnd_fs "github.com/osgikit/bndbuild/internal/fs"
	"github.com/osgikit/bndbuild/internal/instructions"
	"github.com/osgikit/bndbuild/internal/logging"
	"github.com/osgikit/bndbuild/internal/metrics"
	"github.com/osgikit/bndbuild/internal/progress"
)

var (
	defaultInterval = 30 * time.Second
	errorInterval   = 30 * time.Second
)

type BuildState int

const (
	BuildStateSuccess BuildState = iota
	BuildStateBuildFailed
	BuildStateOutputFailed
	BuildStateInternalError
)

func (s BuildState) String() string {
	switch s {
	case BuildStateSuccess:
		return "success"
	case BuildStateBuildFailed:
		return "build_failed"
	case BuildStateOutputFailed:
		return "output_failed"
	default:
		return "internal_error"
	}
}

type Status struct {
	State   BuildState
	Message string
}

// BundleWorker builds one configured bundle. In watch mode the pool calls
// Execute repeatedly; with single shot set the worker removes itself after
// the first run.
type BundleWorker struct {
	bundleConfig *config.Bundle
	log          *logging.Logger
	bar          *progress.Bar
	reporter     *builder.Reporter
	done         chan struct{}
	singleShot   bool
	status       Status
	interval     time.Duration
}

func NewBundleWorker(b *config.Bundle, logger *logging.Logger, bar *progress.Bar) *BundleWorker {
	return &BundleWorker{
		bundleConfig: b,
		log:          logger,
		bar:          bar,
		done:         make(chan struct{}),
		interval:     defaultInterval,
	}
}

func (w *BundleWorker) WithReporter(r *builder.Reporter) *BundleWorker {
	w.reporter = r
	return w
}

func (w *BundleWorker) WithSingleShot(singleShot bool) *BundleWorker {
	w.singleShot = singleShot
	return w
}

func (w *BundleWorker) WithInterval(d time.Duration) *BundleWorker {
	w.interval = cmp.Or(d, defaultInterval)
	return w
}

func (w *BundleWorker) Name() string {
	return w.bundleConfig.Name
}

func (w *BundleWorker) Done() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *BundleWorker) Status() Status {
	return w.status
}

// Execute runs one build iteration: resolve configuration into a fresh build
// context and instruction layers, build, surface diagnostics and persist the
// archive. It returns the deadline for the next iteration.
func (w *BundleWorker) Execute(ctx context.Context) time.Time {
	startTime := time.Now() // Used for timing metric

	defer w.bar.Add(1)

	name := w.bundleConfig.Name

	opts, err := w.bundleConfig.DecodeOptions()
	if err != nil {
		w.log.Warnf("failed to decode options for bundle %q: %v", name, err)
		return w.report(ctx, BuildStateInternalError, startTime, err)
	}

	bc, err := NewBuildContext(w.bundleConfig, opts)
	if err != nil {
		w.log.Warnf("failed to assemble build context for bundle %q: %v", name, err)
		return w.report(ctx, BuildStateInternalError, startTime, err)
	}

	for i, root := range bc.ClassRoots {
		if ok, err := bnd_fs.ContainsFiles(root); err == nil && !ok {
			w.log.Warnf("bundle %q: classes root %q contains no files", name, w.bundleConfig.Classes[i])
		}
	}

	attrs, instr := Layers(w.bundleConfig)

	result, err := builder.New().
		WithContext(bc).
		WithAttributes(attrs).
		WithInstructions(instr).
		WithLogger(w.log).
		Build(ctx)
	if result != nil && w.reporter != nil {
		w.reporter.Report(result)
	}
	if err != nil {
		w.log.Warnf("failed to build bundle %q: %v", name, err)
		return w.report(ctx, BuildStateBuildFailed, startTime, err)
	}

	if err := writeArchiveFile(bc.Target.Path(), result); err != nil {
		w.log.Warnf("failed to write archive for bundle %q: %v", name, err)
		return w.report(ctx, BuildStateOutputFailed, startTime, err)
	}

	metrics.BundleAdvisories(name, len(result.Advisory))
	w.log.Debugf("Bundle %q built: %s", name, bc.Target.Path())
	return w.report(ctx, BuildStateSuccess, startTime, nil)
}

func (w *BundleWorker) report(ctx context.Context, state BuildState, startTime time.Time, err error) time.Time {
	interval := w.interval
	w.status.State = state
	if err != nil {
		interval = errorInterval // faster retry on error
		w.status.Message = err.Error()
	}

	if state == BuildStateSuccess {
		metrics.BundleBuildSucceeded(w.bundleConfig.Name, startTime)
	} else {
		metrics.BundleBuildFailed(w.bundleConfig.Name, state.String())
	}

	if w.singleShot {
		return w.die(ctx)
	}

	return time.Now().Add(interval)
}

func (w *BundleWorker) die(context.Context) time.Time {
	close(w.done)

	var zero time.Time
	return zero
}

// Layers builds the two instruction layers from a bundle configuration:
// manifest attributes below, explicit instructions above. Instruction keys
// are added in sorted order; order across keys does not affect resolution.
func Layers(b *config.Bundle) (*instructions.Attributes, *instructions.Set) {
	attrs := instructions.AttributesFromMap(b.Manifest)

	instr := instructions.NewSet()
	keys := make([]string, 0, len(b.Instructions))
	for key := range b.Instructions {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		instr.Put(key, b.Instructions[key]...)
	}
	return attrs, instr
}

// NewBuildContext assembles the immutable per-invocation build context from
// a bundle configuration.
func NewBuildContext(b *config.Bundle, opts config.Options) (builder.BuildContext, error) {
	bc := builder.BuildContext{
		Classpath:    slices.Clone(b.Classpath),
		EmbedSources: opts.EmbedSources,
		Trace:        opts.Trace,
	}

	var err error
	if bc.ClassRoots, err = roots(b.Classes, b.IncludedFiles, b.ExcludedFiles); err != nil {
		return bc, err
	}
	if bc.ResourceRoots, err = roots(b.Resources, b.IncludedFiles, b.ExcludedFiles); err != nil {
		return bc, err
	}
	if bc.SourceRoots, err = roots(b.Sources, b.IncludedFiles, b.ExcludedFiles); err != nil {
		return bc, err
	}

	bc.Target = target(b)
	return bc, nil
}

func roots(dirs, included, excluded []string) ([]fs.FS, error) {
	out := make([]fs.FS, 0, len(dirs))
	for _, dir := range dirs {
		// An unreadable root is a host I/O failure, not a quiet no-op.
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("root %s: %w", dir, err)
		}
		f, err := bnd_fs.NewFilterFS(os.DirFS(dir), included, excluded)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func target(b *config.Bundle) builder.Target {
	output := b.Output
	if output == "" {
		output = b.Name + ".jar"
	}

	base := filepath.Base(output)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	return builder.Target{
		Dir:       filepath.Dir(output),
		Name:      strings.TrimSuffix(base, filepath.Ext(base)),
		Extension: ext,
	}
}

// writeArchiveFile persists the archive atomically: the zip stream is built
// in memory and moved into place with a rename, so a failed build or write
// never leaves a partial archive at the target path.
func writeArchiveFile(path string, result *builder.BuildResult) error {
	var buf bytes.Buffer
	if err := result.WriteArchive(&buf); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ErrNoBundles is returned when the configuration declares nothing to build.
var ErrNoBundles = errors.New("no bundles configured")

// Workers creates one worker per configured bundle, sorted by name.
func Workers(root *config.Root, logger *logging.Logger, bar *progress.Bar, reporter *builder.Reporter, singleShot bool, interval time.Duration) ([]*BundleWorker, error) {
	if len(root.Bundles) == 0 {
		return nil, ErrNoBundles
	}

	names := make([]string, 0, len(root.Bundles))
	for name := range root.Bundles {
		names = append(names, name)
	}
	slices.Sort(names)

	workers := make([]*BundleWorker, 0, len(names))
	for _, name := range names {
		w := NewBundleWorker(root.Bundles[name], logger, bar).
			WithReporter(reporter).
			WithSingleShot(singleShot).
			WithInterval(interval)
		workers = append(workers, w)
	}
	return workers, nil
}
