package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/examtrace/vigil/internal/domain"
)

// Focus transitions reported by the exam surface
const (
	FocusTabHidden   = "tab_hidden"
	FocusTabVisible  = "tab_visible"
	FocusWindowBlur  = "window_blur"
	FocusWindowFocus = "window_focus"
)

// FocusEvent is one focus transition of the exam window
type FocusEvent struct {
	Kind string
	At   time.Time
}

// FocusSource emits focus transitions from the exam surface
type FocusSource interface {
	Events() <-chan FocusEvent
}

// FocusDetector converts focus transitions into violation reports. It is
// edge triggered: a report goes out when the state changes, not while it
// persists. Its reports carry no frame sequence.
type FocusDetector struct {
	source string
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewFocusDetector creates a focus detector feeding the given sink
func NewFocusDetector(source string, sink Sink, logger *slog.Logger) *FocusDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &FocusDetector{source: source, sink: sink, logger: logger, now: time.Now}
}

// Run consumes focus events until the channel closes or the context ends
func (d *FocusDetector) Run(ctx context.Context, events <-chan FocusEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			report, ok := d.report(ev)
			if !ok {
				d.logger.Debug("unknown focus event", "kind", ev.Kind)
				continue
			}
			if err := d.sink.Submit(ctx, report); err != nil {
				d.logger.Warn("focus report dropped", "kind", ev.Kind, "error", err)
			}
		}
	}
}

// report maps one transition onto a report. Hidden and blurred raise;
// their counterparts clear.
func (d *FocusDetector) report(ev FocusEvent) (Report, bool) {
	at := ev.At
	if at.IsZero() {
		at = d.now()
	}

	switch ev.Kind {
	case FocusTabHidden:
		v := domain.NewViolation(domain.KindTabSwitch, domain.SeverityHigh, 1, "exam tab hidden", d.source, at)
		return Report{
			Source:     d.source,
			Violations: []domain.Violation{v},
			Checked:    []string{domain.KindTabSwitch},
			At:         at,
		}, true

	case FocusTabVisible:
		return Report{Source: d.source, Checked: []string{domain.KindTabSwitch}, At: at}, true

	case FocusWindowBlur:
		v := domain.NewViolation(domain.KindWindowBlur, domain.SeverityMedium, 1, "exam window lost focus", d.source, at)
		return Report{
			Source:     d.source,
			Violations: []domain.Violation{v},
			Checked:    []string{domain.KindWindowBlur},
			At:         at,
		}, true

	case FocusWindowFocus:
		return Report{Source: d.source, Checked: []string{domain.KindWindowBlur}, At: at}, true

	default:
		return Report{}, false
	}
}
