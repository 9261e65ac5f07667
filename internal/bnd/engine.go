package bnd

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yalue/merged_fs"
)

// Engine performs one bundle analysis/build run. Instances are cheap and not
// safe for concurrent use; create one per invocation.
type Engine struct {
	trace []string
}

func New() *Engine {
	return &Engine{}
}

const sourcePrefix = "OSGI-OPT/src"

// Build analyzes the job inputs and synthesizes manifest and archive entries.
// It returns an error only for host I/O failures; everything the engine can
// say about the bundle itself is reported as coded messages in the result.
func (e *Engine) Build(ctx context.Context, job Job) (*Result, error) {
	result := &Result{}
	e.tracef(job, "build")

	if msgs := validateProperties(job.Properties); len(msgs) > 0 {
		// Manifest synthesis is not possible with malformed instructions.
		result.Messages = msgs
		result.Trace = e.trace
		return result, nil
	}

	classEntries, packages, err := e.scanClasses(job)
	if err != nil {
		return nil, err
	}
	result.Entries = append(result.Entries, classEntries...)

	resourceEntries, err := collectEntries(job.ResourceRoots, "")
	if err != nil {
		return nil, err
	}
	result.Entries = append(result.Entries, resourceEntries...)

	embed := job.EmbedSources
	if v, ok := job.Properties["-sources"]; ok && truthy(v) {
		embed = true
	}
	if embed {
		sourceEntries, err := collectEntries(job.SourceRoots, sourcePrefix)
		if err != nil {
			return nil, err
		}
		if len(sourceEntries) == 0 && len(job.SourceRoots) > 0 {
			result.Messages = append(result.Messages, Message{
				Code: CodeEmptySourceRoot,
				Text: "source embedding enabled but no source files were found",
			})
		}
		result.Entries = append(result.Entries, sourceEntries...)
		e.tracef(job, "embed %d source files", len(sourceEntries))
	}

	result.Messages = append(result.Messages, e.checkClasspath(job)...)
	result.Messages = append(result.Messages, e.checkActivator(job)...)

	headers := e.synthesizeHeaders(job, packages)
	result.Manifest = renderManifest(headers)
	e.tracef(job, "manifest %d headers", len(headers))

	e.tracef(job, "end")
	result.Trace = e.trace
	return result, ctx.Err()
}

func (e *Engine) tracef(job Job, format string, args ...any) {
	if job.Trace {
		e.trace = append(e.trace, fmt.Sprintf(format, args...))
	}
}

// validateProperties returns the fatal-shaped messages for structurally
// invalid instruction values. Directive keys (leading "-") are never header
// names and unknown directives are silently ignored, per the engine contract.
func validateProperties(properties map[string]string) []Message {
	var msgs []Message
	for _, key := range slices.Sorted(maps.Keys(properties)) {
		if strings.HasPrefix(key, "-") {
			continue
		}
		if !ValidHeaderName(key) {
			msgs = append(msgs, Message{
				Code: CodeInvalidHeaderName,
				Text: fmt.Sprintf("instruction key %q is not a valid manifest header name", key),
			})
		}
	}
	if v, ok := properties["Bundle-Version"]; ok && !validVersion(v) {
		msgs = append(msgs, Message{
			Code: CodeInvalidVersion,
			Text: fmt.Sprintf("Bundle-Version %q is not a valid OSGi version", v),
		})
	}
	return msgs
}

// scanClasses walks the class roots, collecting archive entries and the set
// of Java packages derived from .class entry paths.
func (e *Engine) scanClasses(job Job) ([]Entry, []string, error) {
	entries, err := collectEntries(job.ClassRoots, "")
	if err != nil {
		return nil, nil, err
	}

	seen := map[string]bool{}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Path, ".class") {
			continue
		}
		dir := path.Dir(entry.Path)
		if dir == "." {
			continue // default package does not export
		}
		seen[strings.ReplaceAll(dir, "/", ".")] = true
	}

	packages := slices.Sorted(maps.Keys(seen))
	e.tracef(job, "analyze %d class files in %d packages", countClassFiles(entries), len(packages))
	return entries, packages, nil
}

func countClassFiles(entries []Entry) int {
	n := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Path, ".class") {
			n++
		}
	}
	return n
}

// collectEntries reads every file under the given roots into archive entries,
// sorted by path. Later roots win on path collisions, matching merged_fs
// semantics.
func collectEntries(roots []fs.FS, prefix string) ([]Entry, error) {
	if len(roots) == 0 {
		return nil, nil
	}

	merged := merged_fs.MergeMultiple(roots...)
	var entries []Entry
	err := fs.WalkDir(merged, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(merged, p)
		if err != nil {
			return err
		}
		if prefix != "" {
			p = path.Join(prefix, p)
		}
		entries = append(entries, Entry{Path: p, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return entries, nil
}

func (e *Engine) checkClasspath(job Job) []Message {
	var msgs []Message
	for _, entry := range job.Classpath {
		if _, err := os.Stat(entry); err != nil {
			msgs = append(msgs, Message{
				Code: CodeClasspathEntryMissing,
				Text: fmt.Sprintf("classpath entry %s is not accessible", entry),
			})
		}
	}
	return msgs
}

// checkActivator verifies that a declared Bundle-Activator class can be
// resolved from the class roots or the classpath. An unresolvable activator
// is a condition the engine reports but does not act on.
func (e *Engine) checkActivator(job Job) []Message {
	activator, ok := job.Properties["Bundle-Activator"]
	if !ok || activator == "" {
		return nil
	}

	classPath := strings.ReplaceAll(activator, ".", "/") + ".class"

	for _, root := range job.ClassRoots {
		if _, err := fs.Stat(root, classPath); err == nil {
			return nil
		}
	}
	for _, entry := range job.Classpath {
		if classpathContains(entry, classPath) {
			return nil
		}
	}

	return []Message{{
		Code: CodeActivatorNotFound,
		Text: fmt.Sprintf("Bundle-Activator class %s not found on classpath", activator),
	}}
}

func classpathContains(entry, classPath string) bool {
	info, err := os.Stat(entry)
	if err != nil {
		return false
	}

	if info.IsDir() {
		_, err := os.Stat(filepath.Join(entry, filepath.FromSlash(classPath)))
		return err == nil
	}

	r, err := zip.OpenReader(entry)
	if err != nil {
		return false
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == classPath {
			return true
		}
	}
	return false
}

// synthesizeHeaders computes the final manifest header map: fixed framework
// headers, every non-directive property verbatim, and an Export-Package
// computed from the scanned packages when not overridden.
func (e *Engine) synthesizeHeaders(job Job, packages []string) map[string]string {
	headers := map[string]string{
		"Manifest-Version":       "1.0",
		"Bundle-ManifestVersion": "2",
	}

	for key, value := range job.Properties {
		if strings.HasPrefix(key, "-") {
			continue
		}
		headers[key] = value
	}

	if _, ok := headers["Export-Package"]; !ok && len(packages) > 0 {
		headers["Export-Package"] = strings.Join(packages, ",")
	}
	if name, ok := headers["Bundle-SymbolicName"]; ok {
		if _, named := headers["Bundle-Name"]; !named {
			headers["Bundle-Name"] = name
		}
	}
	return headers
}

// truthy implements the directive value convention: a directive present with
// any value other than an explicit negative enables the feature. An empty
// payload counts as enabled.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}
