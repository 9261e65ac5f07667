// Package bnd implements the bundle analysis/build engine. It scans compiled
// class roots and resource roots, synthesizes an OSGi manifest from the
// resolved instruction properties, and reports coded messages for anything it
// finds along the way. The orchestration layer in internal/builder decides
// which message codes are fatal.
package bnd

import "io/fs"

// Job describes one engine invocation.
type Job struct {
	// Classpath entries are OS paths to jars or class directories used for
	// reference resolution, not for archive content.
	Classpath []string

	ClassRoots    []fs.FS
	ResourceRoots []fs.FS
	SourceRoots   []fs.FS

	// Properties is the flattened instruction mapping. Keys starting with "-"
	// are engine directives, everything else is a manifest header name.
	Properties map[string]string

	EmbedSources bool
	Trace        bool
}

// Entry is a single archive entry, path in zip notation.
type Entry struct {
	Path string
	Data []byte
}

// Code identifies an engine message kind. The set of codes is the contract
// the orchestration layer classifies on.
type Code string

const (
	CodeActivatorNotFound     Code = "activator-not-found"
	CodeClasspathEntryMissing Code = "classpath-entry-missing"
	CodeEmptySourceRoot       Code = "empty-source-root"
	CodeInvalidHeaderName     Code = "invalid-header-name"
	CodeInvalidVersion        Code = "invalid-version"
)

type Message struct {
	Code Code
	Text string
}

// Result carries everything a build run produced. Manifest and Entries are
// only populated when manifest synthesis completed; Messages and Trace are
// populated either way.
type Result struct {
	Manifest []byte
	Entries  []Entry
	Messages []Message
	Trace    []string
}
