package builder

import (
	"fmt"
	"io"
	"strings"

	"github.com/osgikit/bndbuild/internal/bnd"
)

type Severity int

const (
	SeverityAdvisory Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "advisory"
}

// Diagnostic is one classified engine message.
type Diagnostic struct {
	Code     bnd.Code
	Severity Severity
	Message  string
}

// fatalCodes is the classification rule set: an engine message aborts the
// build if and only if its code appears here. The split mirrors whether the
// engine could complete manifest synthesis; everything else is advisory.
var fatalCodes = map[bnd.Code]bool{
	bnd.CodeInvalidHeaderName: true,
	bnd.CodeInvalidVersion:    true,
}

// Fatal reports whether the given engine code is classified fatal.
func Fatal(code bnd.Code) bool {
	return fatalCodes[code]
}

func classify(msgs []bnd.Message) (advisory, fatal []Diagnostic) {
	for _, m := range msgs {
		d := Diagnostic{Code: m.Code, Severity: SeverityAdvisory, Message: m.Text}
		if Fatal(m.Code) {
			d.Severity = SeverityFatal
			fatal = append(fatal, d)
		} else {
			advisory = append(advisory, d)
		}
	}
	return advisory, fatal
}

// FatalBuildError aborts the build: the engine could not synthesize the
// manifest. The advisory/fatal split is decided here in the adapter, never by
// the reporter.
type FatalBuildError struct {
	Diagnostics []Diagnostic
}

func (e *FatalBuildError) Error() string {
	lines := make([]string, 0, len(e.Diagnostics)+1)
	lines = append(lines, "bundle build failed")
	for _, d := range e.Diagnostics {
		lines = append(lines, fmt.Sprintf("- %s", d.Message))
	}
	return strings.Join(lines, "\n")
}

// Reporter surfaces build diagnostics on two output channels: advisory and
// fatal messages on the error-diagnostic stream, raw trace lines on the trace
// stream. It never suppresses or reclassifies anything.
type Reporter struct {
	errOut   io.Writer
	traceOut io.Writer
}

func NewReporter(errOut, traceOut io.Writer) *Reporter {
	return &Reporter{errOut: errOut, traceOut: traceOut}
}

func (r *Reporter) Report(result *BuildResult) {
	if r.errOut != nil {
		for _, d := range result.Advisory {
			fmt.Fprintf(r.errOut, "%s: %s\n", d.Severity, d.Message)
		}
		for _, d := range result.Fatal {
			fmt.Fprintf(r.errOut, "%s: %s\n", d.Severity, d.Message)
		}
	}
	if r.traceOut != nil {
		for _, line := range result.Trace {
			fmt.Fprintln(r.traceOut, line)
		}
	}
}
