package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout bounds a single probe invocation. Filesystem walks over
// a large root can take a while, so it is generous.
const DefaultProbeTimeout = 2 * time.Minute

// Probe failure causes recorded in ProbeStatus.Err.
var (
	ErrProbeTimeout       = errors.New("probe timed out")
	ErrProbePanic         = errors.New("probe panicked")
	ErrInvalidObservation = errors.New("probe emitted an invalid observation")
)

// ProgressFunc is called once per probe after it finishes. done counts the
// probes finished so far, including this one.
type ProgressFunc func(status ProbeStatus, done, total int)

// Scanner runs every probe of a registry once and buckets the findings.
type Scanner struct {
	logger      zerolog.Logger
	timeout     time.Duration
	parallelism int
	progress    ProgressFunc
	now         func() time.Time
	newID       func() string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger for scan and probe events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithProbeTimeout sets the per-probe deadline. Zero or a negative value
// disables it.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.timeout = d }
}

// WithParallelism lets up to n probes run at the same time. The result is the
// same as a sequential scan; only wall-clock time changes. n <= 1 keeps the
// scan sequential.
func WithParallelism(n int) Option {
	return func(s *Scanner) { s.parallelism = n }
}

// WithProgress registers a callback invoked as each probe finishes.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scanner) { s.progress = fn }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// NewScanner returns a sequential scanner with the default probe timeout,
// adjusted by opts.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		logger:      zerolog.Nop(),
		timeout:     DefaultProbeTimeout,
		parallelism: 1,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type probeOutcome struct {
	obs    []Observation
	status ProbeStatus
}

// Scan executes every probe in reg exactly once. A failing probe is logged
// and contributes nothing; it never aborts the scan. The returned error is
// non-nil only when ctx ends before all probes ran, in which case the partial
// result is still returned.
func (s *Scanner) Scan(ctx context.Context, reg *Registry) (*ScanResult, error) {
	probes := reg.Probes()
	result := newScanResult(s.newID(), s.now())
	logger := s.logger.With().Str("scan_id", result.scanID).Logger()
	logger.Info().Int("probes", len(probes)).Msg("starting scan")

	var outcomes []probeOutcome
	if s.parallelism > 1 && len(probes) > 1 {
		outcomes = s.runParallel(ctx, logger, probes)
	} else {
		outcomes = s.runSequential(ctx, logger, probes)
	}

	// Merge in registry order regardless of how the probes were scheduled.
	for _, o := range outcomes {
		result.statuses = append(result.statuses, o.status)
		if o.status.Failed() {
			continue
		}
		result.add(o.obs)
	}
	result.completedAt = s.now()

	logger.Info().
		Int("critical", result.Count(Critical)).
		Int("warning", result.Count(Warning)).
		Int("info", result.Count(Info)).
		Strs("failed_probes", result.FailedProbes()).
		Msg("scan finished")

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("scan interrupted: %w", err)
	}
	return result, nil
}

func (s *Scanner) runSequential(ctx context.Context, logger zerolog.Logger, probes []Probe) []probeOutcome {
	outcomes := make([]probeOutcome, 0, len(probes))
	for i, p := range probes {
		o := s.runProbe(ctx, logger, p)
		outcomes = append(outcomes, o)
		if s.progress != nil {
			s.progress(o.status, i+1, len(probes))
		}
	}
	return outcomes
}

func (s *Scanner) runParallel(ctx context.Context, logger zerolog.Logger, probes []Probe) []probeOutcome {
	outcomes := make([]probeOutcome, len(probes))
	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(s.parallelism)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			o := s.runProbe(ctx, logger, p)
			outcomes[i] = o
			if s.progress != nil {
				mu.Lock()
				done++
				s.progress(o.status, done, len(probes))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// runProbe invokes one probe under the per-probe deadline and validates what
// it returned. Any failure is folded into the status.
func (s *Scanner) runProbe(ctx context.Context, logger zerolog.Logger, p Probe) probeOutcome {
	name := p.Name()
	start := time.Now()

	obs, err := s.execute(ctx, p)
	if err == nil {
		err = validate(obs)
	}

	status := ProbeStatus{
		Name:     name,
		Duration: time.Since(start),
		Err:      err,
	}
	if err != nil {
		logger.Warn().Err(err).Str("probe", name).Dur("duration", status.Duration).Msg("probe failed, skipping its findings")
		return probeOutcome{status: status}
	}
	status.Findings = len(obs)
	logger.Debug().Str("probe", name).Dur("duration", status.Duration).Int("findings", status.Findings).Msg("probe finished")
	return probeOutcome{obs: obs, status: status}
}

type executeResult struct {
	obs []Observation
	err error
}

// execute runs the probe in its own goroutine so that a probe ignoring its
// context still cannot hold the scan past the deadline.
func (s *Scanner) execute(ctx context.Context, p Probe) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ch := make(chan executeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- executeResult{err: fmt.Errorf("%w: %v", ErrProbePanic, r)}
			}
		}()
		obs, err := p.Execute(pctx)
		ch <- executeResult{obs: obs, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(pctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %w", ErrProbeTimeout, s.timeout, r.err)
		}
		return r.obs, r.err
	case <-pctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", ErrProbeTimeout, s.timeout)
	}
}

func validate(obs []Observation) error {
	for i, o := range obs {
		if !o.Severity.Valid() {
			return fmt.Errorf("%w: observation %d: %w: %d", ErrInvalidObservation, i, ErrUnknownSeverity, int(o.Severity))
		}
		if err := o.Finding.Validate(); err != nil {
			return fmt.Errorf("%w: observation %d: %w", ErrInvalidObservation, i, err)
		}
	}
	return nil
}
