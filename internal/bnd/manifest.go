package bnd

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
)

// preferredHeaderOrder lists headers rendered before everything else, in this
// order. Remaining headers follow sorted by name.
var preferredHeaderOrder = []string{
	"Manifest-Version",
	"Bundle-ManifestVersion",
	"Bundle-SymbolicName",
	"Bundle-Name",
	"Bundle-Version",
}

var headerNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidHeaderName reports whether name is a legal manifest header name per the
// JAR file specification.
func ValidHeaderName(name string) bool {
	return len(name) <= 70 && headerNameRe.MatchString(name)
}

// OSGi version: major(.minor(.micro(.qualifier)?)?)?
var versionRe = regexp.MustCompile(`^\d+(\.\d+(\.\d+(\.[A-Za-z0-9_-]+)?)?)?$`)

func validVersion(v string) bool {
	return versionRe.MatchString(v)
}

// renderManifest produces the manifest bytes for the given headers. Lines
// longer than 72 bytes are wrapped with a continuation space per the JAR file
// specification. Header order is deterministic: preferred headers first, the
// rest sorted by name.
func renderManifest(headers map[string]string) []byte {
	names := make([]string, 0, len(headers))
	for name := range headers {
		if !slices.Contains(preferredHeaderOrder, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	ordered := make([]string, 0, len(headers))
	for _, name := range preferredHeaderOrder {
		if _, ok := headers[name]; ok {
			ordered = append(ordered, name)
		}
	}
	ordered = append(ordered, names...)

	var buf bytes.Buffer
	for _, name := range ordered {
		writeHeader(&buf, name, headers[name])
	}
	buf.WriteString("\r\n") // blank line terminates the main section
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	line := []byte(fmt.Sprintf("%s: %s", name, value))
	for len(line) > 72 {
		buf.Write(line[:72])
		buf.WriteString("\r\n")
		line = append([]byte{' '}, line[72:]...)
	}
	buf.Write(line)
	buf.WriteString("\r\n")
}
