package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/user/nsenso/pkg/engine"
)

// Document is the machine-readable report. Its JSON keys are a stable
// interface for downstream tooling.
type Document struct {
	Timestamp string          `json:"timestamp"`
	Findings  DocumentBuckets `json:"findings"`
}

// DocumentBuckets always serialises all three severities, as empty arrays
// when nothing was found.
type DocumentBuckets struct {
	Critical []engine.Finding `json:"critical"`
	Warning  []engine.Finding `json:"warning"`
	Info     []engine.Finding `json:"info"`
}

// NewDocument builds the document for res. The timestamp is the scan's
// completion time in RFC 3339.
func NewDocument(res *engine.ScanResult) Document {
	return Document{
		Timestamp: res.CompletedAt().Format(time.RFC3339),
		Findings: DocumentBuckets{
			Critical: res.Findings(engine.Critical),
			Warning:  res.Findings(engine.Warning),
			Info:     res.Findings(engine.Info),
		},
	}
}

// JSONReporter renders the report as a single JSON document.
type JSONReporter struct {
	Indent string
}

// Render writes the JSON document for res to w.
func (r *JSONReporter) Render(w io.Writer, res *engine.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", r.Indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewDocument(res)); err != nil {
		return fmt.Errorf("encode report as JSON: %w", err)
	}
	return nil
}
