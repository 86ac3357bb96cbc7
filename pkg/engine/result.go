package engine

import (
	"time"
)

// ProbeStatus records how a single probe invocation went. It is kept for
// logging and diagnostics and is not part of the rendered report.
type ProbeStatus struct {
	Name     string
	Duration time.Duration
	Findings int
	Err      error
}

// Failed reports whether the probe contributed nothing because it failed.
func (s ProbeStatus) Failed() bool {
	return s.Err != nil
}

// ScanResult holds the findings of one scan, bucketed by severity. Within a
// bucket findings keep the order in which probes emitted them, and probes
// contribute in registry order.
//
// A ScanResult is only written by the Scanner that created it. Accessors
// return copies so callers cannot mutate it afterwards.
type ScanResult struct {
	scanID      string
	startedAt   time.Time
	completedAt time.Time
	buckets     map[Severity][]Finding
	statuses    []ProbeStatus
}

func newScanResult(scanID string, startedAt time.Time) *ScanResult {
	buckets := make(map[Severity][]Finding, len(severityNames))
	for _, s := range Severities() {
		buckets[s] = make([]Finding, 0)
	}
	return &ScanResult{
		scanID:    scanID,
		startedAt: startedAt,
		buckets:   buckets,
	}
}

// add files already validated observations. The caller guarantees every
// severity is valid.
func (r *ScanResult) add(obs []Observation) {
	for _, o := range obs {
		r.buckets[o.Severity] = append(r.buckets[o.Severity], o.Finding)
	}
}

// ScanID uniquely identifies the scan in logs.
func (r *ScanResult) ScanID() string { return r.scanID }

// StartedAt is the time the scan began.
func (r *ScanResult) StartedAt() time.Time { return r.startedAt }

// CompletedAt is the time the last probe finished. Reports use it as the
// scan timestamp.
func (r *ScanResult) CompletedAt() time.Time { return r.completedAt }

// Findings returns a copy of the bucket for sev. It is never nil.
func (r *ScanResult) Findings(sev Severity) []Finding {
	b := r.buckets[sev]
	out := make([]Finding, len(b))
	copy(out, b)
	return out
}

// Count returns the number of findings filed under sev.
func (r *ScanResult) Count(sev Severity) int {
	return len(r.buckets[sev])
}

// Total returns the number of findings across all severities.
func (r *ScanResult) Total() int {
	n := 0
	for _, b := range r.buckets {
		n += len(b)
	}
	return n
}

// Empty reports whether the scan produced no findings at all.
func (r *ScanResult) Empty() bool {
	return r.Total() == 0
}

// Statuses returns the per-probe log in registry order.
func (r *ScanResult) Statuses() []ProbeStatus {
	out := make([]ProbeStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// FailedProbes returns the names of probes that contributed nothing because
// they failed.
func (r *ScanResult) FailedProbes() []string {
	var names []string
	for _, s := range r.statuses {
		if s.Failed() {
			names = append(names, s.Name)
		}
	}
	return names
}
