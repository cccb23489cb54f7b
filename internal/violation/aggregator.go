// Package violation aggregates detector reports into per-source active
// violation state, an admission stream for recording and the blocking
// overlay shown to the candidate.
package violation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/examtrace/vigil/internal/detector"
	"github.com/examtrace/vigil/internal/domain"
)

const (
	defaultThrottle        = 5 * time.Second
	defaultDismissCooldown = 5 * time.Second

	reportBuffer = 256
	eventBuffer  = 64
)

// Config controls admission policy
type Config struct {
	// Throttle is the minimum interval between admitted records for the
	// same kind and source. Proposals inside the window neither record
	// nor reactivate a cleared kind.
	Throttle time.Duration

	// DismissCooldown keeps a dismissed overlay hidden unless a kind the
	// user has not seen yet becomes active.
	DismissCooldown time.Duration

	// CountDegraded admits violations produced by degraded analysis
	// paths. When false they are dropped before touching state.
	CountDegraded bool

	// DegradedSeverityCap is the highest severity a degraded violation
	// may carry.
	DegradedSeverityCap string
}

// DefaultConfig returns the aggregation defaults
func DefaultConfig() Config {
	return Config{
		Throttle:            defaultThrottle,
		DismissCooldown:     defaultDismissCooldown,
		CountDegraded:       true,
		DegradedSeverityCap: domain.SeverityHigh,
	}
}

type throttleKey struct {
	kind   string
	source string
}

// kindState is the book-keeping behind one active kind for one source
type kindState struct {
	severity string
	degraded bool
	since    time.Time
}

// Aggregator é o único dono do estado de violações da sessão. Reports
// entram por canal e são aplicados um a um; leitores usam Snapshot.
type Aggregator struct {
	config Config
	logger *slog.Logger

	reports  chan detector.Report
	admitted chan domain.Violation
	changes  chan Snapshot

	mu          sync.RWMutex
	active      map[string]map[string]kindState
	lastApplied map[string]uint64
	lastFired   map[throttleKey]time.Time
	dismissedAt time.Time
	dismissed   map[string]bool
	total       int

	now func() time.Time
}

var _ detector.Sink = (*Aggregator)(nil)

// New creates an aggregator. Zero config fields fall back to defaults,
// except CountDegraded which is taken as given.
func New(config Config, logger *slog.Logger) *Aggregator {
	if config.Throttle <= 0 {
		config.Throttle = defaultThrottle
	}
	if config.DismissCooldown <= 0 {
		config.DismissCooldown = defaultDismissCooldown
	}
	if config.DegradedSeverityCap == "" {
		config.DegradedSeverityCap = domain.SeverityHigh
	}

	return &Aggregator{
		config:   config,
		logger:   logger,
		reports:  make(chan detector.Report, reportBuffer),
		admitted: make(chan domain.Violation, eventBuffer),
		changes:  make(chan Snapshot, eventBuffer),
		active: map[string]map[string]kindState{
			domain.SourcePrimary:   {},
			domain.SourceSecondary: {},
		},
		lastApplied: make(map[string]uint64),
		lastFired:   make(map[throttleKey]time.Time),
		now:         time.Now,
	}
}

// Submit queues a report for aggregation. It blocks only while the intake
// buffer is full.
func (a *Aggregator) Submit(ctx context.Context, report detector.Report) error {
	select {
	case a.reports <- report:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies submitted reports in submission order until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case report := <-a.reports:
			a.apply(report)
		}
	}
}

// Admitted delivers violations that survived throttling and degraded
// policy. The channel is never closed; drain it for the session lifetime.
func (a *Aggregator) Admitted() <-chan domain.Violation {
	return a.admitted
}

// Changes delivers a snapshot after every state transition. A slow
// consumer loses intermediate snapshots; Snapshot always has the current
// one.
func (a *Aggregator) Changes() <-chan Snapshot {
	return a.changes
}

func (a *Aggregator) apply(report detector.Report) {
	at := report.At
	if at.IsZero() {
		at = a.now()
	}

	a.mu.Lock()

	// Frame-driven reports must not regress. Seq zero marks event-driven
	// reports, which are never ordered against frames.
	if report.Seq > 0 {
		if last, ok := a.lastApplied[report.Source]; ok && report.Seq < last {
			a.mu.Unlock()
			a.logger.Debug("discarding stale report",
				"source", report.Source,
				"seq", report.Seq,
				"last_applied", last,
			)
			return
		}
		a.lastApplied[report.Source] = report.Seq
	}

	reported := make(map[string]bool, len(report.Violations))
	for _, v := range report.Violations {
		reported[v.Kind] = true
	}

	var admitted []domain.Violation
	changed := false

	for _, v := range report.Violations {
		if v.Degraded {
			if !a.config.CountDegraded {
				continue
			}
			v.Severity = domain.SeverityAtMost(v.Severity, a.config.DegradedSeverityCap)
		}

		key := throttleKey{kind: v.Kind, source: report.Source}
		if !a.admitsLocked(key, at) {
			continue
		}
		a.lastFired[key] = at

		if a.activateLocked(report.Source, v.Kind, kindState{
			severity: v.Severity,
			degraded: v.Degraded,
			since:    at,
		}) {
			changed = true
		}
		a.total++
		admitted = append(admitted, v)
	}

	// A checked kind with no violation in the report is an explicit
	// all-clear for this source.
	for _, kind := range report.Checked {
		if reported[kind] {
			continue
		}
		if a.releaseLocked(report.Source, kind, report.Degraded) {
			changed = true
		}
	}

	var snap Snapshot
	if changed {
		snap = a.snapshotLocked(at)
	}
	a.mu.Unlock()

	for _, v := range admitted {
		select {
		case a.admitted <- v:
		default:
			a.logger.Warn("admission channel full, dropping violation",
				"kind", v.Kind,
				"source", v.Source,
			)
		}
	}
	if changed {
		select {
		case a.changes <- snap:
		default:
		}
	}
}

func (a *Aggregator) admitsLocked(key throttleKey, now time.Time) bool {
	last, ok := a.lastFired[key]
	if !ok {
		return true
	}
	return now.After(last.Add(a.config.Throttle))
}

// activateLocked records the kind as active and reports whether anything
// observable changed. Re-activation keeps the original since time.
func (a *Aggregator) activateLocked(source, kind string, st kindState) bool {
	kinds := a.active[source]
	if kinds == nil {
		kinds = make(map[string]kindState)
		a.active[source] = kinds
	}

	prev, exists := kinds[kind]
	if exists {
		st.since = prev.since
	}
	kinds[kind] = st

	return !exists || prev.severity != st.severity || prev.degraded != st.degraded
}

// releaseLocked clears a kind for one source. A degraded report only
// releases state that degraded analysis established in the first place.
func (a *Aggregator) releaseLocked(source, kind string, reportDegraded bool) bool {
	kinds := a.active[source]
	st, ok := kinds[kind]
	if !ok {
		return false
	}
	if reportDegraded && !st.degraded {
		return false
	}

	delete(kinds, kind)
	return true
}
