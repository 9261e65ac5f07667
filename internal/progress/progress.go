// Package progress renders a terminal progress bar for multi-bundle builds.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar wraps progressbar so callers can pass a nil-safe handle around.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New creates a bar for n steps writing to w. With enabled false the bar is
// inert and every method is a no-op.
func New(w io.Writer, n int, description string, enabled bool) *Bar {
	if !enabled {
		return &Bar{}
	}
	return &Bar{bar: progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *Bar) Add(n int) {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
