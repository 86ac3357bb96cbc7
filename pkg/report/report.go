// Package report turns a scan result into an output document.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/user/nsenso/pkg/engine"
)

// ErrUnknownFormat is returned by New for an unregistered format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Built-in format names.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Reporter renders a finished scan. Implementations must not reorder
// findings within a severity and must produce the same bytes for the same
// result.
type Reporter interface {
	Render(w io.Writer, res *engine.ScanResult) error
}

// Options tune the built-in reporters.
type Options struct {
	// Color enables ANSI styling in the text report. It is ignored when the
	// writer is not a terminal.
	Color bool
}

type factory func(Options) Reporter

var formats = map[string]factory{
	FormatText: func(o Options) Reporter { return &TextReporter{Color: o.Color} },
	FormatJSON: func(Options) Reporter { return &JSONReporter{Indent: "  "} },
}

// Formats lists the accepted format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the reporter registered under format.
func New(format string, opts Options) (Reporter, error) {
	f, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownFormat, format, Formats())
	}
	return f(opts), nil
}
